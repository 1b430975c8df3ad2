package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// MemoryCupnudleStore は品名と在庫をプロセス内メモリに保持するストア。
// 品名削除時の在庫連鎖削除を行うため、品名と在庫で1つのロックを共有する。
type MemoryCupnudleStore struct {
	mu     sync.RWMutex
	items  map[string]model.CupnudleItem
	stocks map[string]model.CupnudleStock
}

// NewMemoryCupnudleStore はMemoryCupnudleStoreを生成する。
func NewMemoryCupnudleStore() *MemoryCupnudleStore {
	return &MemoryCupnudleStore{
		items:  make(map[string]model.CupnudleItem),
		stocks: make(map[string]model.CupnudleStock),
	}
}

// Items は品名リポジトリとしてのビューを返す。
func (s *MemoryCupnudleStore) Items() *MemoryCupnudleItemRepo {
	return &MemoryCupnudleItemRepo{store: s}
}

// Stocks は在庫リポジトリとしてのビューを返す。
func (s *MemoryCupnudleStore) Stocks() *MemoryCupnudleStockRepo {
	return &MemoryCupnudleStockRepo{store: s}
}

// MemoryCupnudleItemRepo はメモリ上の品名リポジトリ。
type MemoryCupnudleItemRepo struct {
	store *MemoryCupnudleStore
}

// List は品名を名前の昇順で返す。
func (r *MemoryCupnudleItemRepo) List(_ context.Context) ([]model.CupnudleItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	items := make([]model.CupnudleItem, 0, len(r.store.items))
	for _, it := range r.store.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// FindByID は指定IDの品名を取得する。見つからない場合はnilを返す。
func (r *MemoryCupnudleItemRepo) FindByID(_ context.Context, id string) (*model.CupnudleItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	it, ok := r.store.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

// Create は品名を作成する。
func (r *MemoryCupnudleItemRepo) Create(_ context.Context, item *model.CupnudleItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, it := range r.store.items {
		if it.Name == item.Name {
			return ErrDuplicate
		}
	}
	r.store.items[item.ID] = *item
	return nil
}

// Delete は品名とその品名に紐づく在庫を削除する。
func (r *MemoryCupnudleItemRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.store.items, id)
	for sid, st := range r.store.stocks {
		if st.ItemID == id {
			delete(r.store.stocks, sid)
		}
	}
	return nil
}

// MemoryCupnudleStockRepo はメモリ上の在庫リポジトリ。
type MemoryCupnudleStockRepo struct {
	store *MemoryCupnudleStore
}

// List は在庫を賞味期限の昇順で品名付きで返す。
func (r *MemoryCupnudleStockRepo) List(_ context.Context) ([]model.CupnudleStockView, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	views := make([]model.CupnudleStockView, 0, len(r.store.stocks))
	for _, st := range r.store.stocks {
		views = append(views, model.CupnudleStockView{
			CupnudleStock: st,
			ItemName:      r.store.items[st.ItemID].Name,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.ExpiresOn != b.ExpiresOn {
			return a.ExpiresOn < b.ExpiresOn
		}
		if a.ItemName != b.ItemName {
			return a.ItemName < b.ItemName
		}
		return a.ID < b.ID
	})
	return views, nil
}

// FindByID は指定IDの在庫を取得する。見つからない場合はnilを返す。
func (r *MemoryCupnudleStockRepo) FindByID(_ context.Context, id string) (*model.CupnudleStock, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	st, ok := r.store.stocks[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Create は在庫を作成する。品名が存在しない場合はErrNotFoundを返す。
func (r *MemoryCupnudleStockRepo) Create(_ context.Context, stock *model.CupnudleStock) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[stock.ItemID]; !ok {
		return ErrNotFound
	}
	r.store.stocks[stock.ID] = *stock
	return nil
}

// Update は在庫の数量・賞味期限・メモを更新する。
func (r *MemoryCupnudleStockRepo) Update(_ context.Context, stock *model.CupnudleStock) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cur, ok := r.store.stocks[stock.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Quantity = stock.Quantity
	cur.ExpiresOn = stock.ExpiresOn
	cur.Note = stock.Note
	cur.UpdatedAt = stock.UpdatedAt
	r.store.stocks[stock.ID] = cur
	return nil
}

// Delete は在庫を削除する。
func (r *MemoryCupnudleStockRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.stocks[id]; !ok {
		return ErrNotFound
	}
	delete(r.store.stocks, id)
	return nil
}

// NewMemoryRepositories はメモリバックエンドのリポジトリ一式を生成する。
func NewMemoryRepositories() *Repositories {
	cup := NewMemoryCupnudleStore()
	return &Repositories{
		News:         NewMemoryNewsSettingsRepo(),
		XTargets:     NewMemoryXTargetRepo(),
		PowerDaily:   NewMemoryPowerDailyRepo(),
		PowerMonthly: NewMemoryPowerMonthlyRepo(),
		Items:        cup.Items(),
		Stocks:       cup.Stocks(),
	}
}

// compile-time interface check
var (
	_ CupnudleItemRepository  = (*MemoryCupnudleItemRepo)(nil)
	_ CupnudleStockRepository = (*MemoryCupnudleStockRepo)(nil)
)
