package model

import "time"

// NewsKeywordSetting はニュース取得対象のキーワード設定を表す。
// RSSURLが設定されている場合はキーワード検索フィードの代わりにそのURLを取得する。
type NewsKeywordSetting struct {
	ID        string     `json:"id"`
	Keyword   string     `json:"keyword"`
	Enabled   bool       `json:"enabled"`
	Order     int        `json:"order"`
	Limit     int        `json:"limit"`
	RSSURL    string     `json:"rssUrl,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// XTargetSetting はタイムラインを埋め込むXアカウントの設定を表す。
// UsernameとProfileURLはどちらか一方のみが設定される。
type XTargetSetting struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Username   string     `json:"username,omitempty"`
	ProfileURL string     `json:"profileUrl,omitempty"`
	Enabled    bool       `json:"enabled"`
	Order      int        `json:"order"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// PowerUsageDailySetting は日次の電力使用量記録を表す。
// DateはYYYY-MM-DD形式。
type PowerUsageDailySetting struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	PowerKwh  float64    `json:"powerKwh"`
	CostYen   float64    `json:"costYen"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// PowerUsageMonthlySetting は月次の電力使用量記録を表す。
// MonthはYYYY-MM形式。
type PowerUsageMonthlySetting struct {
	ID        string     `json:"id"`
	Month     string     `json:"month"`
	PowerKwh  float64    `json:"powerKwh"`
	CostYen   float64    `json:"costYen"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// MinNewsLimit と MaxNewsLimit はキーワードごとの取得件数の許容範囲。
const (
	MinNewsLimit     = 1
	MaxNewsLimit     = 20
	DefaultNewsLimit = 5
)
