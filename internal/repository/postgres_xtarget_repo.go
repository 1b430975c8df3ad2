package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// PostgresXTargetRepo はPostgreSQLを使用したXターゲット設定リポジトリ。
type PostgresXTargetRepo struct {
	db *sql.DB
}

// NewPostgresXTargetRepo はPostgresXTargetRepoを生成する。
func NewPostgresXTargetRepo(db *sql.DB) *PostgresXTargetRepo {
	return &PostgresXTargetRepo{db: db}
}

// List はXターゲット設定をorder昇順で返す。
func (r *PostgresXTargetRepo) List(ctx context.Context) ([]model.XTargetSetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, username, profile_url, enabled, sort_order, created_at, updated_at
		 FROM x_target_settings
		 ORDER BY sort_order ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("Xターゲット設定の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	targets := []model.XTargetSetting{}
	for rows.Next() {
		var t model.XTargetSetting
		var username, profileURL sql.NullString
		var createdAt, updatedAt sql.NullTime

		if err := rows.Scan(
			&t.ID, &t.Name, &username, &profileURL, &t.Enabled, &t.Order,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("Xターゲット設定の読み取りに失敗しました: %w", err)
		}

		t.Username = nullStringValue(username)
		t.ProfileURL = nullStringValue(profileURL)
		t.CreatedAt = nullTimePtr(createdAt)
		t.UpdatedAt = nullTimePtr(updatedAt)
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Xターゲット設定の走査に失敗しました: %w", err)
	}

	return targets, nil
}

// ReplaceAll はXターゲット設定を渡された集合で置き換える。
func (r *PostgresXTargetRepo) ReplaceAll(ctx context.Context, records []model.XTargetSetting) error {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	return replaceAllInTx(ctx, r.db, "x_target_settings", ids, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO x_target_settings
				    (id, name, username, profile_url, enabled, sort_order, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				 ON CONFLICT (id) DO UPDATE SET
				    name = EXCLUDED.name,
				    username = EXCLUDED.username,
				    profile_url = EXCLUDED.profile_url,
				    enabled = EXCLUDED.enabled,
				    sort_order = EXCLUDED.sort_order,
				    updated_at = now()`,
				rec.ID, rec.Name, nullString(rec.Username), nullString(rec.ProfileURL),
				rec.Enabled, rec.Order,
			); err != nil {
				return fmt.Errorf("Xターゲット設定の保存に失敗しました (id=%s): %w", rec.ID, err)
			}
		}
		return nil
	})
}

// compile-time interface check
var _ XTargetRepository = (*PostgresXTargetRepo)(nil)
