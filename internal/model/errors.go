// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, settings, inventory, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidPayload     = "INVALID_PAYLOAD"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeMissingCredential  = "MISSING_CREDENTIAL"
	ErrCodeInvalidCredential  = "INVALID_CREDENTIAL"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeCSRFFailed         = "CSRF_VALIDATION_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeStockNotFound      = "STOCK_NOT_FOUND"
	ErrCodeDuplicateItemName  = "DUPLICATE_ITEM_NAME"
	ErrCodeSettingsLoadFailed = "SETTINGS_LOAD_FAILED"
	ErrCodeSettingsSaveFailed = "SETTINGS_SAVE_FAILED"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidPayloadError は入力値のバリデーションエラーを生成する。
// reasonには不正だった項目の説明を渡す。
func NewInvalidPayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayload,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を見直してから再度保存してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewMissingCredentialError はログインIDまたはパスワード未入力のエラーを生成する。
func NewMissingCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredential,
		Message:  "IDとパスワードを入力してください。",
		Category: "auth",
		Action:   "IDとパスワードの両方を入力してください。",
	}
}

// NewInvalidCredentialError はログインIDまたはパスワード不一致のエラーを生成する。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "IDまたはパスワードが一致しません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewRateLimitedError はログイン試行回数の上限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "ログイン試行回数が多すぎます。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "画面を再読み込みしてから再度お試しください。",
	}
}

// NewSettingsLoadFailedError は設定の読み込み失敗エラーを生成する。
func NewSettingsLoadFailedError(collection string) *APIError {
	return &APIError{
		Code:     ErrCodeSettingsLoadFailed,
		Message:  fmt.Sprintf("設定の読み込みに失敗しました: %s", collection),
		Category: "settings",
		Action:   "しばらく待ってから再読み込みしてください。",
	}
}

// NewSettingsSaveFailedError は設定の保存失敗エラーを生成する。
func NewSettingsSaveFailedError(collection string) *APIError {
	return &APIError{
		Code:     ErrCodeSettingsSaveFailed,
		Message:  fmt.Sprintf("設定の保存に失敗しました: %s", collection),
		Category: "settings",
		Action:   "しばらく待ってから再度保存してください。",
	}
}

// NewItemNotFoundError は品名未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された品名が見つかりません: %s", itemID),
		Category: "inventory",
		Action:   "品名一覧を再読み込みしてください。",
	}
}

// NewStockNotFoundError は在庫未検出エラーを生成する。
func NewStockNotFoundError(stockID string) *APIError {
	return &APIError{
		Code:     ErrCodeStockNotFound,
		Message:  fmt.Sprintf("指定された在庫が見つかりません: %s", stockID),
		Category: "inventory",
		Action:   "在庫一覧を再読み込みしてください。",
	}
}

// NewDuplicateItemNameError は同名の品名が既に存在する場合のエラーを生成する。
func NewDuplicateItemNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateItemName,
		Message:  fmt.Sprintf("同じ品名が既に登録されています: %s", name),
		Category: "inventory",
		Action:   "別の品名を入力してください。",
	}
}
