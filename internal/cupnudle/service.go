// Package cupnudle は在庫管理サブアプリ（品名と賞味期限付き在庫）のサービス層を提供する。
package cupnudle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/repository"
)

const (
	maxNameLength = 100
	maxNoteLength = 500
	dateLayout    = "2006-01-02"
)

// ItemInput は品名作成リクエストの入力。
type ItemInput struct {
	Name string `json:"name"`
}

// StockInput は在庫作成リクエストの入力。
type StockInput struct {
	ItemID    string   `json:"itemId"`
	Quantity  *float64 `json:"quantity"`
	ExpiresOn string   `json:"expiresOn"`
	Note      string   `json:"note"`
}

// StockUpdateInput は在庫更新リクエストの入力。品名は変更できない。
type StockUpdateInput struct {
	Quantity  *float64 `json:"quantity"`
	ExpiresOn string   `json:"expiresOn"`
	Note      string   `json:"note"`
}

// Service は在庫管理のサービス層。
// 入力不正・対象未検出は*model.APIErrorで返す。
type Service struct {
	items  repository.CupnudleItemRepository
	stocks repository.CupnudleStockRepository
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。
func NewService(items repository.CupnudleItemRepository, stocks repository.CupnudleStockRepository, logger *slog.Logger) *Service {
	return &Service{
		items:  items,
		stocks: stocks,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ListItems は品名を名前の昇順で返す。
func (s *Service) ListItems(ctx context.Context) ([]model.CupnudleItem, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("品名一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// CreateItem は品名を作成する。
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*model.CupnudleItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.NewInvalidPayloadError("name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, model.NewInvalidPayloadError(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	item := &model.CupnudleItem{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateItemNameError(name)
		}
		return nil, fmt.Errorf("品名の作成に失敗しました: %w", err)
	}

	s.logger.Info("品名を登録しました", slog.String("item_id", item.ID), slog.String("name", name))
	return item, nil
}

// DeleteItem は品名とその在庫を削除する。
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if !isID(id) {
		return model.NewItemNotFoundError(id)
	}
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewItemNotFoundError(id)
		}
		return fmt.Errorf("品名の削除に失敗しました: %w", err)
	}
	s.logger.Info("品名を削除しました", slog.String("item_id", id))
	return nil
}

// ListStocks は在庫を賞味期限の近い順に返す。
func (s *Service) ListStocks(ctx context.Context) ([]model.CupnudleStockView, error) {
	stocks, err := s.stocks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("在庫一覧の取得に失敗しました: %w", err)
	}
	return stocks, nil
}

// CreateStock は在庫を作成する。品名が存在しない場合は未検出エラーを返す。
func (s *Service) CreateStock(ctx context.Context, in StockInput) (*model.CupnudleStock, error) {
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, model.NewInvalidPayloadError("itemId is required")
	}
	qty, expiresOn, note, apiErr := validateStock(in.Quantity, in.ExpiresOn, in.Note)
	if apiErr != nil {
		return nil, apiErr
	}

	if !isID(itemID) {
		return nil, model.NewItemNotFoundError(itemID)
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("品名の取得に失敗しました: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}

	now := s.now().UTC()
	stock := &model.CupnudleStock{
		ID:        s.newID(),
		ItemID:    itemID,
		Quantity:  qty,
		ExpiresOn: expiresOn,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stocks.Create(ctx, stock); err != nil {
		// 確認後に品名が削除された場合
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewItemNotFoundError(itemID)
		}
		return nil, fmt.Errorf("在庫の作成に失敗しました: %w", err)
	}

	s.logger.Info("在庫を登録しました",
		slog.String("stock_id", stock.ID),
		slog.String("item_id", itemID),
		slog.Int("quantity", qty),
	)
	return stock, nil
}

// UpdateStock は在庫の数量・賞味期限・メモを更新し、更新後の在庫を返す。
func (s *Service) UpdateStock(ctx context.Context, id string, in StockUpdateInput) (*model.CupnudleStock, error) {
	qty, expiresOn, note, apiErr := validateStock(in.Quantity, in.ExpiresOn, in.Note)
	if apiErr != nil {
		return nil, apiErr
	}

	if !isID(id) {
		return nil, model.NewStockNotFoundError(id)
	}

	stock := &model.CupnudleStock{
		ID:        id,
		Quantity:  qty,
		ExpiresOn: expiresOn,
		Note:      note,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.stocks.Update(ctx, stock); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewStockNotFoundError(id)
		}
		return nil, fmt.Errorf("在庫の更新に失敗しました: %w", err)
	}

	updated, err := s.stocks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("在庫の取得に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewStockNotFoundError(id)
	}
	return updated, nil
}

// DeleteStock は在庫を削除する。
func (s *Service) DeleteStock(ctx context.Context, id string) error {
	if !isID(id) {
		return model.NewStockNotFoundError(id)
	}
	if err := s.stocks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewStockNotFoundError(id)
		}
		return fmt.Errorf("在庫の削除に失敗しました: %w", err)
	}
	s.logger.Info("在庫を削除しました", slog.String("stock_id", id))
	return nil
}

// isID はidがサーバー採番のUUID形式かを返す。
// UUID列への不正な値はストア側でエラーになるため、問い合わせ前に未検出として扱う。
func isID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validateStock は数量（1以上の整数）、賞味期限（実在するYYYY-MM-DD）、メモを検証する。
func validateStock(quantity *float64, expiresOn, note string) (int, string, string, *model.APIError) {
	if quantity == nil {
		return 0, "", "", model.NewInvalidPayloadError("quantity is required")
	}
	q := *quantity
	if q != math.Trunc(q) || q < 1 || q > math.MaxInt32 {
		return 0, "", "", model.NewInvalidPayloadError("quantity must be an integer >= 1")
	}

	expiresOn = strings.TrimSpace(expiresOn)
	if len(expiresOn) != len(dateLayout) {
		return 0, "", "", model.NewInvalidPayloadError("expiresOn must be YYYY-MM-DD")
	}
	if _, err := time.Parse(dateLayout, expiresOn); err != nil {
		return 0, "", "", model.NewInvalidPayloadError("expiresOn must be a valid date")
	}

	note = strings.TrimSpace(note)
	if len([]rune(note)) > maxNoteLength {
		return 0, "", "", model.NewInvalidPayloadError(fmt.Sprintf("note must be at most %d characters", maxNoteLength))
	}

	return int(q), expiresOn, note, nil
}
