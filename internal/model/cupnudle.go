package model

import "time"

// CupnudleItem は在庫管理で扱う品名を表す。
type CupnudleItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CupnudleStock は品名ごとの在庫1件を表す。
// ExpiresOnはYYYY-MM-DD形式の賞味期限。
type CupnudleStock struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	ExpiresOn string    `json:"expiresOn"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CupnudleStockView は在庫一覧表示用に品名を結合した在庫を表す。
type CupnudleStockView struct {
	CupnudleStock
	ItemName string `json:"itemName"`
}
