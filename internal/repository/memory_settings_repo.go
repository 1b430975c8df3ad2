package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// memoryRecord はメモリ上に保持する1レコードとそのタイムスタンプ。
type memoryRecord[T any] struct {
	value     T
	createdAt time.Time
	updatedAt time.Time
}

// MemoryCollection はプロセス内メモリに保持する設定コレクション。
// ローカル開発（STORE_BACKEND=memory）およびテストで使用する。
// ReplaceAllは1つのロック内で削除とUPSERTを行うため、読み取り側から途中状態は見えない。
type MemoryCollection[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]

	idOf  func(T) string
	stamp func(v *T, createdAt, updatedAt time.Time)
	less  func(a, b T) bool
	now   func() time.Time
}

// newMemoryCollection はMemoryCollectionを生成する。
func newMemoryCollection[T any](idOf func(T) string, stamp func(*T, time.Time, time.Time), less func(a, b T) bool) *MemoryCollection[T] {
	return &MemoryCollection[T]{
		records: make(map[string]memoryRecord[T]),
		idOf:    idOf,
		stamp:   stamp,
		less:    less,
		now:     time.Now,
	}
}

// List はコレクションの自然な並び順でレコードを返す。
func (c *MemoryCollection[T]) List(_ context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		v := rec.value
		c.stamp(&v, rec.createdAt, rec.updatedAt)
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c.less(out[i], out[j]) {
			return true
		}
		if c.less(out[j], out[i]) {
			return false
		}
		return c.idOf(out[i]) < c.idOf(out[j])
	})
	return out, nil
}

// ReplaceAll はコレクションを渡されたレコード集合で置き換える。
func (c *MemoryCollection[T]) ReplaceAll(_ context.Context, records []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keep := make(map[string]struct{}, len(records))
	for _, r := range records {
		keep[c.idOf(r)] = struct{}{}
	}

	for id := range c.records {
		if _, ok := keep[id]; !ok {
			delete(c.records, id)
		}
	}

	for _, r := range records {
		id := c.idOf(r)
		createdAt := now
		if existing, ok := c.records[id]; ok {
			createdAt = existing.createdAt
		}
		c.records[id] = memoryRecord[T]{value: r, createdAt: createdAt, updatedAt: now}
	}
	return nil
}

// NewMemoryNewsSettingsRepo はメモリ上のニュースキーワード設定リポジトリを生成する。
func NewMemoryNewsSettingsRepo() *MemoryCollection[model.NewsKeywordSetting] {
	return newMemoryCollection(
		func(s model.NewsKeywordSetting) string { return s.ID },
		func(s *model.NewsKeywordSetting, c, u time.Time) { s.CreatedAt, s.UpdatedAt = &c, &u },
		func(a, b model.NewsKeywordSetting) bool { return a.Order < b.Order },
	)
}

// NewMemoryXTargetRepo はメモリ上のXターゲット設定リポジトリを生成する。
func NewMemoryXTargetRepo() *MemoryCollection[model.XTargetSetting] {
	return newMemoryCollection(
		func(s model.XTargetSetting) string { return s.ID },
		func(s *model.XTargetSetting, c, u time.Time) { s.CreatedAt, s.UpdatedAt = &c, &u },
		func(a, b model.XTargetSetting) bool { return a.Order < b.Order },
	)
}

// NewMemoryPowerDailyRepo はメモリ上の日次電力使用量リポジトリを生成する。
// YYYY-MM-DD形式は文字列比較で日付順になる。
func NewMemoryPowerDailyRepo() *MemoryCollection[model.PowerUsageDailySetting] {
	return newMemoryCollection(
		func(s model.PowerUsageDailySetting) string { return s.ID },
		func(s *model.PowerUsageDailySetting, c, u time.Time) { s.CreatedAt, s.UpdatedAt = &c, &u },
		func(a, b model.PowerUsageDailySetting) bool { return a.Date > b.Date },
	)
}

// NewMemoryPowerMonthlyRepo はメモリ上の月次電力使用量リポジトリを生成する。
func NewMemoryPowerMonthlyRepo() *MemoryCollection[model.PowerUsageMonthlySetting] {
	return newMemoryCollection(
		func(s model.PowerUsageMonthlySetting) string { return s.ID },
		func(s *model.PowerUsageMonthlySetting, c, u time.Time) { s.CreatedAt, s.UpdatedAt = &c, &u },
		func(a, b model.PowerUsageMonthlySetting) bool { return a.Month > b.Month },
	)
}

// compile-time interface check
var (
	_ NewsSettingsRepository = (*MemoryCollection[model.NewsKeywordSetting])(nil)
	_ XTargetRepository      = (*MemoryCollection[model.XTargetSetting])(nil)
	_ PowerDailyRepository   = (*MemoryCollection[model.PowerUsageDailySetting])(nil)
	_ PowerMonthlyRepository = (*MemoryCollection[model.PowerUsageMonthlySetting])(nil)
)
