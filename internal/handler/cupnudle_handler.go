package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uhot33-create/MyPortal/internal/cupnudle"
	"github.com/uhot33-create/MyPortal/internal/model"
)

// CupnudleServiceInterface は在庫管理ハンドラーが必要とするサービスインターフェース。
type CupnudleServiceInterface interface {
	ListItems(ctx context.Context) ([]model.CupnudleItem, error)
	CreateItem(ctx context.Context, in cupnudle.ItemInput) (*model.CupnudleItem, error)
	DeleteItem(ctx context.Context, id string) error
	ListStocks(ctx context.Context) ([]model.CupnudleStockView, error)
	CreateStock(ctx context.Context, in cupnudle.StockInput) (*model.CupnudleStock, error)
	UpdateStock(ctx context.Context, id string, in cupnudle.StockUpdateInput) (*model.CupnudleStock, error)
	DeleteStock(ctx context.Context, id string) error
}

// CupnudleHandler は在庫管理のHTTPハンドラー。
type CupnudleHandler struct {
	service CupnudleServiceInterface
	logger  *slog.Logger
}

// NewCupnudleHandler はCupnudleHandlerを生成する。
func NewCupnudleHandler(service CupnudleServiceInterface, logger *slog.Logger) *CupnudleHandler {
	return &CupnudleHandler{service: service, logger: logger}
}

// ListItems GET /api/cupnudle/items
func (h *CupnudleHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[model.CupnudleItem]{Items: nonNil(items)})
}

// CreateItem POST /api/cupnudle/items
func (h *CupnudleHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in cupnudle.ItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.service.CreateItem(r.Context(), in)
	if err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// DeleteItem DELETE /api/cupnudle/items/{id}
func (h *CupnudleHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStocks GET /api/cupnudle/stocks
func (h *CupnudleHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.ListStocks(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[model.CupnudleStockView]{Items: nonNil(stocks)})
}

// CreateStock POST /api/cupnudle/stocks
func (h *CupnudleHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var in cupnudle.StockInput
	if !decodeJSON(w, r, &in) {
		return
	}
	stock, err := h.service.CreateStock(r.Context(), in)
	if err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, stock)
}

// UpdateStock PUT /api/cupnudle/stocks/{id}
func (h *CupnudleHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var in cupnudle.StockUpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	stock, err := h.service.UpdateStock(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// DeleteStock DELETE /api/cupnudle/stocks/{id}
func (h *CupnudleHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteStock(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
