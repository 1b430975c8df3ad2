// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// ErrNotFound は更新・削除対象のレコードが存在しない場合に返される。
var ErrNotFound = errors.New("record not found")

// ErrDuplicate は一意制約に違反するレコードを作成しようとした場合に返される。
var ErrDuplicate = errors.New("duplicate record")

// SettingsCollection は設定コレクション1つ分の永続化インターフェース。
// 書き込みはReplaceAllのみで、部分更新APIは持たない。
type SettingsCollection[T any] interface {
	// List はコレクションの自然な並び順でレコードを返す。
	// キーワード・Xターゲットはorder昇順、電力使用量は日付・年月の降順。
	List(ctx context.Context) ([]T, error)

	// ReplaceAll は渡されたレコード集合でコレクションを置き換える。
	// 渡されたIDに含まれない保存済みレコードを削除し、残りをIDをキーにUPSERTする。
	// UPSERT時はcreatedAtを維持し、updatedAtをサーバー時刻で更新する。
	ReplaceAll(ctx context.Context, records []T) error
}

// NewsSettingsRepository はニュースキーワード設定の永続化インターフェース。
type NewsSettingsRepository = SettingsCollection[model.NewsKeywordSetting]

// XTargetRepository はXターゲット設定の永続化インターフェース。
type XTargetRepository = SettingsCollection[model.XTargetSetting]

// PowerDailyRepository は日次電力使用量の永続化インターフェース。
type PowerDailyRepository = SettingsCollection[model.PowerUsageDailySetting]

// PowerMonthlyRepository は月次電力使用量の永続化インターフェース。
type PowerMonthlyRepository = SettingsCollection[model.PowerUsageMonthlySetting]

// CupnudleItemRepository は在庫管理の品名の永続化インターフェース。
type CupnudleItemRepository interface {
	// List は品名を名前の昇順で返す。
	List(ctx context.Context) ([]model.CupnudleItem, error)
	// FindByID は指定IDの品名を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CupnudleItem, error)
	// Create は品名を作成する。同名の品名が存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, item *model.CupnudleItem) error
	// Delete は品名とその品名に紐づく在庫を削除する。存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// CupnudleStockRepository は在庫の永続化インターフェース。
type CupnudleStockRepository interface {
	// List は在庫を賞味期限の昇順で品名付きで返す。
	List(ctx context.Context) ([]model.CupnudleStockView, error)
	// FindByID は指定IDの在庫を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CupnudleStock, error)
	// Create は在庫を作成する。品名が存在しない場合はErrNotFoundを返す。
	Create(ctx context.Context, stock *model.CupnudleStock) error
	// Update は在庫の数量・賞味期限・メモを更新する。存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, stock *model.CupnudleStock) error
	// Delete は在庫を削除する。存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// Repositories はアプリケーションが使用するリポジトリ一式をまとめた構造体。
// ストレージバックエンドの選択結果をワイヤリング層へ渡すために使用する。
type Repositories struct {
	News         NewsSettingsRepository
	XTargets     XTargetRepository
	PowerDaily   PowerDailyRepository
	PowerMonthly PowerMonthlyRepository
	Items        CupnudleItemRepository
	Stocks       CupnudleStockRepository
}
