package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// PostgresPowerDailyRepo はPostgreSQLを使用した日次電力使用量リポジトリ。
type PostgresPowerDailyRepo struct {
	db *sql.DB
}

// NewPostgresPowerDailyRepo はPostgresPowerDailyRepoを生成する。
func NewPostgresPowerDailyRepo(db *sql.DB) *PostgresPowerDailyRepo {
	return &PostgresPowerDailyRepo{db: db}
}

// List は日次電力使用量を日付の降順で返す。
func (r *PostgresPowerDailyRepo) List(ctx context.Context) ([]model.PowerUsageDailySetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, usage_date, power_kwh, cost_yen, created_at, updated_at
		 FROM power_usage_daily
		 ORDER BY usage_date DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("日次電力使用量の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := []model.PowerUsageDailySetting{}
	for rows.Next() {
		var e model.PowerUsageDailySetting
		var createdAt, updatedAt sql.NullTime

		if err := rows.Scan(&e.ID, &e.Date, &e.PowerKwh, &e.CostYen, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("日次電力使用量の読み取りに失敗しました: %w", err)
		}

		e.CreatedAt = nullTimePtr(createdAt)
		e.UpdatedAt = nullTimePtr(updatedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("日次電力使用量の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// ReplaceAll は日次電力使用量を渡された集合で置き換える。
func (r *PostgresPowerDailyRepo) ReplaceAll(ctx context.Context, records []model.PowerUsageDailySetting) error {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	return replaceAllInTx(ctx, r.db, "power_usage_daily", ids, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO power_usage_daily (id, usage_date, power_kwh, cost_yen, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, now(), now())
				 ON CONFLICT (id) DO UPDATE SET
				    usage_date = EXCLUDED.usage_date,
				    power_kwh = EXCLUDED.power_kwh,
				    cost_yen = EXCLUDED.cost_yen,
				    updated_at = now()`,
				rec.ID, rec.Date, rec.PowerKwh, rec.CostYen,
			); err != nil {
				return fmt.Errorf("日次電力使用量の保存に失敗しました (id=%s): %w", rec.ID, err)
			}
		}
		return nil
	})
}

// PostgresPowerMonthlyRepo はPostgreSQLを使用した月次電力使用量リポジトリ。
type PostgresPowerMonthlyRepo struct {
	db *sql.DB
}

// NewPostgresPowerMonthlyRepo はPostgresPowerMonthlyRepoを生成する。
func NewPostgresPowerMonthlyRepo(db *sql.DB) *PostgresPowerMonthlyRepo {
	return &PostgresPowerMonthlyRepo{db: db}
}

// List は月次電力使用量を年月の降順で返す。
func (r *PostgresPowerMonthlyRepo) List(ctx context.Context) ([]model.PowerUsageMonthlySetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, usage_month, power_kwh, cost_yen, created_at, updated_at
		 FROM power_usage_monthly
		 ORDER BY usage_month DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("月次電力使用量の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := []model.PowerUsageMonthlySetting{}
	for rows.Next() {
		var e model.PowerUsageMonthlySetting
		var createdAt, updatedAt sql.NullTime

		if err := rows.Scan(&e.ID, &e.Month, &e.PowerKwh, &e.CostYen, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("月次電力使用量の読み取りに失敗しました: %w", err)
		}

		e.CreatedAt = nullTimePtr(createdAt)
		e.UpdatedAt = nullTimePtr(updatedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("月次電力使用量の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// ReplaceAll は月次電力使用量を渡された集合で置き換える。
func (r *PostgresPowerMonthlyRepo) ReplaceAll(ctx context.Context, records []model.PowerUsageMonthlySetting) error {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	return replaceAllInTx(ctx, r.db, "power_usage_monthly", ids, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO power_usage_monthly (id, usage_month, power_kwh, cost_yen, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, now(), now())
				 ON CONFLICT (id) DO UPDATE SET
				    usage_month = EXCLUDED.usage_month,
				    power_kwh = EXCLUDED.power_kwh,
				    cost_yen = EXCLUDED.cost_yen,
				    updated_at = now()`,
				rec.ID, rec.Month, rec.PowerKwh, rec.CostYen,
			); err != nil {
				return fmt.Errorf("月次電力使用量の保存に失敗しました (id=%s): %w", rec.ID, err)
			}
		}
		return nil
	})
}

// compile-time interface check
var (
	_ PowerDailyRepository   = (*PostgresPowerDailyRepo)(nil)
	_ PowerMonthlyRepository = (*PostgresPowerMonthlyRepo)(nil)
)
