package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// InternalMessage is the body sent for every 5xx response.
const InternalMessage = "internal server error"

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler handles errors and sends appropriate HTTP responses
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and sends an HTTP response. Server errors are
// logged with their cause and answered with a generic message.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	status := http.StatusInternalServerError
	message := InternalMessage

	appErr := GetAppError(err)
	if appErr != nil && appErr.HTTPStatus != 0 {
		status = appErr.HTTPStatus
	}
	if appErr != nil && status < 500 {
		message = appErr.Message
	}
	if appErr != nil && appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds()))
	}

	h.logError(r, err, appErr, status)
	h.sendJSON(w, status, ErrorResponse{Error: message})
}

// HandleStatus sends an error response with a specific status code
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= 500 {
		message = InternalMessage
	}
	h.logger.Warn("HTTP error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("message", message),
	)
	h.sendJSON(w, status, ErrorResponse{Error: message})
}

func (h *ErrorHandler) logError(r *http.Request, err error, appErr *AppError, status int) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if appErr != nil {
		fields = append(fields, zap.String("error_type", string(appErr.Type)))
	}

	switch {
	case status >= 500:
		h.logger.Error("Request failed", fields...)
	default:
		h.logger.Warn("Request rejected", fields...)
	}
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// Middleware returns an HTTP middleware that recovers panics into a 500.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
