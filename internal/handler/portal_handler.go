package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/uhot33-create/MyPortal/internal/middleware"
	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/portal"
)

// PortalBuilder はポータル画面のデータを組み立てるインターフェース。
type PortalBuilder interface {
	Build(ctx context.Context, limit int) (*portal.Page, error)
}

// PortalHandler はポータル画面データのHTTPハンドラー。
type PortalHandler struct {
	builder PortalBuilder
	logger  *slog.Logger
}

// NewPortalHandler はPortalHandlerを生成する。
func NewPortalHandler(builder PortalBuilder, logger *slog.Logger) *PortalHandler {
	return &PortalHandler{builder: builder, logger: logger}
}

// Get はニュースタブ・統合記事一覧・Xターゲット・為替レート・タイムライン設定を返す。
// GET /api/portal?limit=N
func (h *PortalHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPayloadError("limit must be an integer"))
			return
		}
		// 0以下は max(1, limit) として扱う
		limit = max(1, n)
	}

	page, err := h.builder.Build(r.Context(), limit)
	if err != nil {
		handleServiceError(w, h.logger, r, model.NewSettingsLoadFailedError("portal"), err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
