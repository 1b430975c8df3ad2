// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/uhot33-create/MyPortal/internal/middleware"
	"github.com/uhot33-create/MyPortal/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの読み取り上限（1MiB）。
const maxRequestBodySize = 1 << 20

// okResponse は書き込み系エンドポイントの成功レスポンス。
type okResponse struct {
	OK bool `json:"ok"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON はリクエストボディをJSONとして読み取る。
// 失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログに記録し、500の一般的なメッセージを返す。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, fallback *model.APIError, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	logger.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	if fallback != nil {
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, fallback)
		return
	}
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidPayload,
		model.ErrCodeMissingCredential, model.ErrCodeDuplicateItemName:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredential:
		return http.StatusUnauthorized
	case model.ErrCodeCSRFFailed:
		return http.StatusForbidden
	case model.ErrCodeItemNotFound, model.ErrCodeStockNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
