package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/settings"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	ListNews(ctx context.Context) ([]model.NewsKeywordSetting, error)
	SaveNews(ctx context.Context, inputs []settings.NewsKeywordInput) error
	ListXTargets(ctx context.Context) ([]model.XTargetSetting, error)
	SaveXTargets(ctx context.Context, inputs []settings.XTargetInput) error
	ListPower(ctx context.Context) (*settings.PowerSettings, error)
	SavePower(ctx context.Context, daily []settings.PowerDailyInput, monthly []settings.PowerMonthlyInput) error
}

// SettingsHandler は設定の取得・保存のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
	logger  *slog.Logger
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, logger: logger}
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type newsSaveRequest struct {
	Items []settings.NewsKeywordInput `json:"items"`
}

type xSaveRequest struct {
	Items []settings.XTargetInput `json:"items"`
}

type powerSaveRequest struct {
	DailyItems   []settings.PowerDailyInput   `json:"dailyItems"`
	MonthlyItems []settings.PowerMonthlyInput `json:"monthlyItems"`
}

// GetNews はニュースキーワード設定を返す。
// GET /api/settings/news
func (h *SettingsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListNews(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsLoadFailedError(settings.CollectionNews), err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[model.NewsKeywordSetting]{Items: nonNil(items)})
}

// SaveNews はニュースキーワード設定を置き換える。
// POST /api/settings/news
func (h *SettingsHandler) SaveNews(w http.ResponseWriter, r *http.Request) {
	var req newsSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.SaveNews(r.Context(), req.Items); err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsSaveFailedError(settings.CollectionNews), err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// GetXTargets はXターゲット設定を返す。
// GET /api/settings/x
func (h *SettingsHandler) GetXTargets(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListXTargets(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsLoadFailedError(settings.CollectionXTargets), err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[model.XTargetSetting]{Items: nonNil(items)})
}

// SaveXTargets はXターゲット設定を置き換える。
// POST /api/settings/x
func (h *SettingsHandler) SaveXTargets(w http.ResponseWriter, r *http.Request) {
	var req xSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.SaveXTargets(r.Context(), req.Items); err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsSaveFailedError(settings.CollectionXTargets), err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// GetPower は日次・月次の電力使用量を返す。
// GET /api/settings/power
func (h *SettingsHandler) GetPower(w http.ResponseWriter, r *http.Request) {
	power, err := h.service.ListPower(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsLoadFailedError("power"), err)
		return
	}
	writeJSON(w, http.StatusOK, settings.PowerSettings{
		DailyItems:   nonNil(power.DailyItems),
		MonthlyItems: nonNil(power.MonthlyItems),
	})
}

// SavePower は日次・月次の電力使用量を置き換える。
// POST /api/settings/power
func (h *SettingsHandler) SavePower(w http.ResponseWriter, r *http.Request) {
	var req powerSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.SavePower(r.Context(), req.DailyItems, req.MonthlyItems); err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsSaveFailedError("power"), err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// nonNil はJSONでnullではなく空配列を返すためにnilスライスを空スライスにする。
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
