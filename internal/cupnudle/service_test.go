package cupnudle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/repository"
)

func newTestService() *Service {
	store := repository.NewMemoryCupnudleStore()
	svc := NewService(store.Items(), store.Stocks(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	n := 0
	svc.newID = func() string {
		n++
		return testID(n)
	}
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

// testID はn番目に採番される固定のUUIDを返す。
func testID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func qty(v float64) *float64 { return &v }

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	return apiErr.Code
}

// 品名の作成と入力検証を検証
func TestCreateItem(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, ItemInput{Name: "  シーフード  "})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID != testID(1) || item.Name != "シーフード" {
		t.Errorf("item = %+v", item)
	}

	if _, err := svc.CreateItem(ctx, ItemInput{Name: "   "}); apiCode(t, err) != model.ErrCodeInvalidPayload {
		t.Error("blank name should be invalid")
	}
	if _, err := svc.CreateItem(ctx, ItemInput{Name: "シーフード"}); apiCode(t, err) != model.ErrCodeDuplicateItemName {
		t.Error("duplicate name should be rejected")
	}
}

// 在庫作成時の入力検証を検証
func TestCreateStock_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	item, _ := svc.CreateItem(ctx, ItemInput{Name: "カレー"})

	tests := []struct {
		name string
		in   StockInput
		code string
	}{
		{"missing item id", StockInput{Quantity: qty(1), ExpiresOn: "2025-06-01"}, model.ErrCodeInvalidPayload},
		{"missing quantity", StockInput{ItemID: item.ID, ExpiresOn: "2025-06-01"}, model.ErrCodeInvalidPayload},
		{"zero quantity", StockInput{ItemID: item.ID, Quantity: qty(0), ExpiresOn: "2025-06-01"}, model.ErrCodeInvalidPayload},
		{"fractional quantity", StockInput{ItemID: item.ID, Quantity: qty(1.5), ExpiresOn: "2025-06-01"}, model.ErrCodeInvalidPayload},
		{"bad date", StockInput{ItemID: item.ID, Quantity: qty(1), ExpiresOn: "2025-02-30"}, model.ErrCodeInvalidPayload},
		{"short date", StockInput{ItemID: item.ID, Quantity: qty(1), ExpiresOn: "2025-6-1"}, model.ErrCodeInvalidPayload},
		{"unknown item", StockInput{ItemID: "nope", Quantity: qty(1), ExpiresOn: "2025-06-01"}, model.ErrCodeItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStock(ctx, tt.in)
			if got := apiCode(t, err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

// 在庫の作成・更新・削除の一連の流れを検証
func TestStockLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	item, _ := svc.CreateItem(ctx, ItemInput{Name: "しお"})

	stock, err := svc.CreateStock(ctx, StockInput{ItemID: item.ID, Quantity: qty(3), ExpiresOn: "2025-09-01", Note: " 棚 "})
	if err != nil {
		t.Fatalf("CreateStock: %v", err)
	}
	if stock.Quantity != 3 || stock.Note != "棚" {
		t.Errorf("stock = %+v", stock)
	}

	updated, err := svc.UpdateStock(ctx, stock.ID, StockUpdateInput{Quantity: qty(1), ExpiresOn: "2025-08-01"})
	if err != nil {
		t.Fatalf("UpdateStock: %v", err)
	}
	if updated.Quantity != 1 || updated.ExpiresOn != "2025-08-01" || updated.Note != "" || updated.ItemID != item.ID {
		t.Errorf("updated = %+v", updated)
	}

	list, _ := svc.ListStocks(ctx)
	if len(list) != 1 || list[0].ItemName != "しお" {
		t.Errorf("list = %+v", list)
	}

	if err := svc.DeleteStock(ctx, stock.ID); err != nil {
		t.Fatalf("DeleteStock: %v", err)
	}
	if err := svc.DeleteStock(ctx, stock.ID); apiCode(t, err) != model.ErrCodeStockNotFound {
		t.Error("second delete should be not found")
	}
	if _, err := svc.UpdateStock(ctx, stock.ID, StockUpdateInput{Quantity: qty(1), ExpiresOn: "2025-08-01"}); apiCode(t, err) != model.ErrCodeStockNotFound {
		t.Error("update of deleted stock should be not found")
	}
}

// 品名削除で在庫も削除されることを検証
func TestDeleteItem_Cascades(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	item, _ := svc.CreateItem(ctx, ItemInput{Name: "カレー"})
	_, _ = svc.CreateStock(ctx, StockInput{ItemID: item.ID, Quantity: qty(2), ExpiresOn: "2025-06-01"})

	if err := svc.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	list, _ := svc.ListStocks(ctx)
	if len(list) != 0 {
		t.Errorf("stocks = %+v, want empty", list)
	}
	if err := svc.DeleteItem(ctx, item.ID); apiCode(t, err) != model.ErrCodeItemNotFound {
		t.Error("second delete should be not found")
	}
}

type failingItems struct {
	repository.CupnudleItemRepository
}

func (failingItems) List(context.Context) ([]model.CupnudleItem, error) {
	return nil, errors.New("connection reset")
}

// ストレージ障害はAPIErrorではなく内部エラーとして返ることを検証
func TestListItems_StorageError(t *testing.T) {
	svc := NewService(failingItems{}, repository.NewMemoryCupnudleStore().Stocks(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.ListItems(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("storage error should not be an APIError: %v", err)
	}
}

// 問い合わせられたidを記録するリポジトリ
type recordingStocks struct {
	repository.CupnudleStockRepository
	calls []string
}

func (r *recordingStocks) Update(_ context.Context, s *model.CupnudleStock) error {
	r.calls = append(r.calls, s.ID)
	return repository.ErrNotFound
}

func (r *recordingStocks) Delete(_ context.Context, id string) error {
	r.calls = append(r.calls, id)
	return repository.ErrNotFound
}

type recordingItems struct {
	repository.CupnudleItemRepository
	calls []string
}

func (r *recordingItems) FindByID(_ context.Context, id string) (*model.CupnudleItem, error) {
	r.calls = append(r.calls, id)
	return nil, nil
}

func (r *recordingItems) Delete(_ context.Context, id string) error {
	r.calls = append(r.calls, id)
	return repository.ErrNotFound
}

// UUID形式でないidはストアへ問い合わせずに未検出となることを検証
func TestMalformedIDs_NotFoundWithoutStoreAccess(t *testing.T) {
	items := &recordingItems{}
	stocks := &recordingStocks{}
	svc := NewService(items, stocks, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if err := svc.DeleteItem(ctx, "abc"); apiCode(t, err) != model.ErrCodeItemNotFound {
		t.Error("DeleteItem(abc) should be item not found")
	}
	_, err := svc.CreateStock(ctx, StockInput{ItemID: "abc", Quantity: qty(1), ExpiresOn: "2025-06-01"})
	if apiCode(t, err) != model.ErrCodeItemNotFound {
		t.Error("CreateStock with itemId abc should be item not found")
	}
	_, err = svc.UpdateStock(ctx, "unknown", StockUpdateInput{Quantity: qty(1), ExpiresOn: "2025-06-01"})
	if apiCode(t, err) != model.ErrCodeStockNotFound {
		t.Error("UpdateStock(unknown) should be stock not found")
	}
	if err := svc.DeleteStock(ctx, "unknown"); apiCode(t, err) != model.ErrCodeStockNotFound {
		t.Error("DeleteStock(unknown) should be stock not found")
	}

	if len(items.calls) != 0 || len(stocks.calls) != 0 {
		t.Errorf("store was queried with malformed ids: items=%v stocks=%v", items.calls, stocks.calls)
	}

	// UUID形式であればストアへ問い合わせる
	if err := svc.DeleteStock(ctx, testID(9)); apiCode(t, err) != model.ErrCodeStockNotFound {
		t.Error("DeleteStock(valid uuid) should be stock not found")
	}
	if len(stocks.calls) != 1 {
		t.Errorf("stocks calls = %v, want one call", stocks.calls)
	}
}
