package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// ErrorResponse 统一错误响应 {error, code, details?}
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    types.ErrorCode     `json:"code"`
	Details *types.ErrorDetails `json:"details,omitempty"`
}

// NewErrorResponse 从 taxonomy 错误构造响应体
func NewErrorResponse(e *types.Error) ErrorResponse {
	resp := ErrorResponse{Error: e.Message, Code: e.Code}
	if !e.Details.IsZero() {
		d := e.Details
		resp.Details = &d
	}
	return resp
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 头已写出，编码失败只能放弃
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError 把任意错误转换为 taxonomy 并写出，状态码只由 code 决定。
// RetryAfter 同时写入 Retry-After 头。
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	e := types.FromError(err)
	status := e.HTTPStatus()

	if e.Details.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.Details.RetryAfter))
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(e.Code)),
			zap.Int("status", status),
		}
		if e.Details.Provider != "" {
			fields = append(fields, zap.String("provider", e.Details.Provider))
		}
		if e.Cause != nil {
			fields = append(fields, zap.Error(e.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", append(fields, zap.String("message", e.Message))...)
		} else {
			logger.Debug("API error", append(fields, zap.String("message", e.Message))...)
		}
	}

	WriteJSON(w, status, NewErrorResponse(e))
}

// =============================================================================
// 🛡️ 请求解析
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体，超过 maxBytes 返回 INVALID_PARAMS (field body)。
// maxBytes <= 0 表示不额外限制 (上游中间件可能已经限制)。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) *types.Error {
	if r.Body == nil || r.Body == http.NoBody {
		return types.NewError(types.ErrInvalidParams, "Request body is required").WithField("body")
	}
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return types.NewError(types.ErrInvalidParams, "Request body too large").
				WithField("body").
				WithCause(err)
		case errors.Is(err, io.EOF):
			return types.NewError(types.ErrInvalidParams, "Request body is required").WithField("body")
		default:
			return types.NewError(types.ErrInvalidParams, "Invalid JSON body").
				WithField("body").
				WithCause(err)
		}
	}
	return nil
}

// Credential 读取 header 中的凭证，兼容 "Authorization: Bearer <token>"
func Credential(r *http.Request, header string) string {
	if header != "" {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// =============================================================================
// ⏱️ 路由超时
// =============================================================================

// RunWithDeadline 在派生 context 中运行 fn，并与计时器竞争。
// 超时后取消 context (尽力而为) 并立即返回 TIMEOUT，不等待 fn 退出。
func RunWithDeadline[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, types.NewError(types.ErrTimeout, "Request timed out").WithCause(ctx.Err())
		}
		return zero, types.NewError(types.ErrTimeout, "Request cancelled").WithCause(ctx.Err())
	}
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
