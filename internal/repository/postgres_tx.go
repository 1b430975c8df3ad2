package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// replaceAllInTx はReplaceAllの共通処理を1トランザクションで実行する。
// keepIDsに含まれないレコードをtableから削除した後、upsertで全レコードを書き込む。
// tableは呼び出し側の定数のみを渡すこと（SQLに直接埋め込まれる）。
func replaceAllInTx(ctx context.Context, db TxBeginner, table string, keepIDs []string, upsert func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 空配列の場合 id = ANY('{}') は常にfalseとなり、全件が削除される
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE NOT (id = ANY($1))`, table),
		pq.Array(keepIDs),
	); err != nil {
		return fmt.Errorf("%s の削除に失敗しました: %w", table, err)
	}

	if err := upsert(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// isUniqueViolation はPostgreSQLの一意制約違反エラーかどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation はPostgreSQLの外部キー制約違反エラーかどうかを判定する。
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// nullTimePtr はsql.NullTimeをポインタに変換する。NULLの場合はnilを返す。
func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
