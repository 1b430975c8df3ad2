package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// PostgresNewsSettingsRepo はPostgreSQLを使用したニュースキーワード設定リポジトリ。
type PostgresNewsSettingsRepo struct {
	db *sql.DB
}

// NewPostgresNewsSettingsRepo はPostgresNewsSettingsRepoを生成する。
func NewPostgresNewsSettingsRepo(db *sql.DB) *PostgresNewsSettingsRepo {
	return &PostgresNewsSettingsRepo{db: db}
}

// List はニュースキーワード設定をorder昇順で返す。
func (r *PostgresNewsSettingsRepo) List(ctx context.Context) ([]model.NewsKeywordSetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, keyword, enabled, sort_order, item_limit, rss_url, created_at, updated_at
		 FROM news_keyword_settings
		 ORDER BY sort_order ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ニュースキーワード設定の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	settings := []model.NewsKeywordSetting{}
	for rows.Next() {
		var s model.NewsKeywordSetting
		var rssURL sql.NullString
		var createdAt, updatedAt sql.NullTime

		if err := rows.Scan(
			&s.ID, &s.Keyword, &s.Enabled, &s.Order, &s.Limit,
			&rssURL, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("ニュースキーワード設定の読み取りに失敗しました: %w", err)
		}

		s.RSSURL = nullStringValue(rssURL)
		s.CreatedAt = nullTimePtr(createdAt)
		s.UpdatedAt = nullTimePtr(updatedAt)
		settings = append(settings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ニュースキーワード設定の走査に失敗しました: %w", err)
	}

	return settings, nil
}

// ReplaceAll はニュースキーワード設定を渡された集合で置き換える。
func (r *PostgresNewsSettingsRepo) ReplaceAll(ctx context.Context, records []model.NewsKeywordSetting) error {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	return replaceAllInTx(ctx, r.db, "news_keyword_settings", ids, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO news_keyword_settings
				    (id, keyword, enabled, sort_order, item_limit, rss_url, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				 ON CONFLICT (id) DO UPDATE SET
				    keyword = EXCLUDED.keyword,
				    enabled = EXCLUDED.enabled,
				    sort_order = EXCLUDED.sort_order,
				    item_limit = EXCLUDED.item_limit,
				    rss_url = EXCLUDED.rss_url,
				    updated_at = now()`,
				rec.ID, rec.Keyword, rec.Enabled, rec.Order, rec.Limit, nullString(rec.RSSURL),
			); err != nil {
				return fmt.Errorf("ニュースキーワード設定の保存に失敗しました (id=%s): %w", rec.ID, err)
			}
		}
		return nil
	})
}

// compile-time interface check
var _ NewsSettingsRepository = (*PostgresNewsSettingsRepo)(nil)
