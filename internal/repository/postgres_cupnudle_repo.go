package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// PostgresCupnudleItemRepo はPostgreSQLを使用した品名リポジトリ。
type PostgresCupnudleItemRepo struct {
	db *sql.DB
}

// NewPostgresCupnudleItemRepo はPostgresCupnudleItemRepoを生成する。
func NewPostgresCupnudleItemRepo(db *sql.DB) *PostgresCupnudleItemRepo {
	return &PostgresCupnudleItemRepo{db: db}
}

// List は品名を名前の昇順で返す。
func (r *PostgresCupnudleItemRepo) List(ctx context.Context) ([]model.CupnudleItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM cupnudle_items ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("品名一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []model.CupnudleItem{}
	for rows.Next() {
		var it model.CupnudleItem
		if err := rows.Scan(&it.ID, &it.Name, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("品名の読み取りに失敗しました: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("品名一覧の走査に失敗しました: %w", err)
	}
	return items, nil
}

// FindByID は指定IDの品名を取得する。見つからない場合はnilを返す。
func (r *PostgresCupnudleItemRepo) FindByID(ctx context.Context, id string) (*model.CupnudleItem, error) {
	it := &model.CupnudleItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM cupnudle_items WHERE id = $1`,
		id,
	).Scan(&it.ID, &it.Name, &it.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("品名の取得に失敗しました: %w", err)
	}
	return it, nil
}

// Create は品名を作成する。
func (r *PostgresCupnudleItemRepo) Create(ctx context.Context, item *model.CupnudleItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cupnudle_items (id, name, created_at) VALUES ($1, $2, $3)`,
		item.ID, item.Name, item.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("品名の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は品名を削除する。紐づく在庫は外部キーのCASCADEで削除される。
func (r *PostgresCupnudleItemRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cupnudle_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("品名の削除に失敗しました: %w", err)
	}
	return requireAffected(res)
}

// PostgresCupnudleStockRepo はPostgreSQLを使用した在庫リポジトリ。
type PostgresCupnudleStockRepo struct {
	db *sql.DB
}

// NewPostgresCupnudleStockRepo はPostgresCupnudleStockRepoを生成する。
func NewPostgresCupnudleStockRepo(db *sql.DB) *PostgresCupnudleStockRepo {
	return &PostgresCupnudleStockRepo{db: db}
}

// List は在庫を賞味期限の昇順で品名付きで返す。
func (r *PostgresCupnudleStockRepo) List(ctx context.Context) ([]model.CupnudleStockView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.item_id, i.name, s.quantity, s.expires_on, s.note, s.created_at, s.updated_at
		 FROM cupnudle_stocks s
		 INNER JOIN cupnudle_items i ON i.id = s.item_id
		 ORDER BY s.expires_on ASC, i.name ASC, s.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("在庫一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	stocks := []model.CupnudleStockView{}
	for rows.Next() {
		var v model.CupnudleStockView
		var note sql.NullString
		if err := rows.Scan(
			&v.ID, &v.ItemID, &v.ItemName, &v.Quantity, &v.ExpiresOn, &note,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("在庫の読み取りに失敗しました: %w", err)
		}
		v.Note = nullStringValue(note)
		stocks = append(stocks, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("在庫一覧の走査に失敗しました: %w", err)
	}
	return stocks, nil
}

// FindByID は指定IDの在庫を取得する。見つからない場合はnilを返す。
func (r *PostgresCupnudleStockRepo) FindByID(ctx context.Context, id string) (*model.CupnudleStock, error) {
	s := &model.CupnudleStock{}
	var note sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, item_id, quantity, expires_on, note, created_at, updated_at
		 FROM cupnudle_stocks WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ItemID, &s.Quantity, &s.ExpiresOn, &note, &s.CreatedAt, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("在庫の取得に失敗しました: %w", err)
	}
	s.Note = nullStringValue(note)
	return s, nil
}

// Create は在庫を作成する。品名が存在しない場合はErrNotFoundを返す。
func (r *PostgresCupnudleStockRepo) Create(ctx context.Context, stock *model.CupnudleStock) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cupnudle_stocks (id, item_id, quantity, expires_on, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stock.ID, stock.ItemID, stock.Quantity, stock.ExpiresOn, nullString(stock.Note),
		stock.CreatedAt, stock.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("在庫の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は在庫の数量・賞味期限・メモを更新する。
func (r *PostgresCupnudleStockRepo) Update(ctx context.Context, stock *model.CupnudleStock) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cupnudle_stocks SET
		    quantity = $2, expires_on = $3, note = $4, updated_at = $5
		 WHERE id = $1`,
		stock.ID, stock.Quantity, stock.ExpiresOn, nullString(stock.Note), stock.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("在庫の更新に失敗しました: %w", err)
	}
	return requireAffected(res)
}

// Delete は在庫を削除する。
func (r *PostgresCupnudleStockRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cupnudle_stocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("在庫の削除に失敗しました: %w", err)
	}
	return requireAffected(res)
}

// requireAffected は更新・削除で1行も影響しなかった場合にErrNotFoundを返す。
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NewPostgresRepositories はPostgreSQLバックエンドのリポジトリ一式を生成する。
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		News:         NewPostgresNewsSettingsRepo(db),
		XTargets:     NewPostgresXTargetRepo(db),
		PowerDaily:   NewPostgresPowerDailyRepo(db),
		PowerMonthly: NewPostgresPowerMonthlyRepo(db),
		Items:        NewPostgresCupnudleItemRepo(db),
		Stocks:       NewPostgresCupnudleStockRepo(db),
	}
}

// compile-time interface check
var (
	_ CupnudleItemRepository  = (*PostgresCupnudleItemRepo)(nil)
	_ CupnudleStockRepository = (*PostgresCupnudleStockRepo)(nil)
)
