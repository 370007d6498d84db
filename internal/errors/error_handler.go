// Package errors maps coordinator errors to HTTP error responses.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/fluxchat/consistency-sim/internal/model"
	"go.uber.org/zap"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	// General errors
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeMethodNotAllow ErrorCode = "METHOD_NOT_ALLOWED"

	// Replication errors
	ErrorCodeRecordNotFound     ErrorCode = "RECORD_NOT_FOUND"
	ErrorCodeQuorumNotReached   ErrorCode = "QUORUM_NOT_REACHED"
	ErrorCodeInvalidConsistency ErrorCode = "INVALID_CONSISTENCY_LEVEL"
	ErrorCodeReplicaNotFound    ErrorCode = "REPLICA_NOT_FOUND"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string         `json:"status"`
	ErrorCode ErrorCode      `json:"error_code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Handler provides error handling functionality.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError maps err to a status code and error code and writes the response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: ToErrorCode(err),
		Message:   err.Error(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	var qerr *model.QuorumError
	if stderrors.As(err, &qerr) {
		resp.Details = map[string]any{
			"operation":   qerr.Op,
			"consistency": qerr.Level.String(),
			"acked":       qerr.Acked,
			"required":    qerr.Required,
		}
	}

	h.write(w, ToHTTPStatus(err), resp)
}

// ToHTTPStatus converts a coordinator error to an HTTP status code.
func ToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, model.ErrQuorumTimeout):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, model.ErrInvalidConsistency):
		return http.StatusBadRequest
	case stderrors.Is(err, model.ErrReplicaIndex):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToErrorCode converts a coordinator error to an application error code.
func ToErrorCode(err error) ErrorCode {
	switch {
	case stderrors.Is(err, model.ErrQuorumTimeout):
		return ErrorCodeQuorumNotReached
	case stderrors.Is(err, model.ErrInvalidConsistency):
		return ErrorCodeInvalidConsistency
	case stderrors.Is(err, model.ErrReplicaIndex):
		return ErrorCodeReplicaNotFound
	default:
		return ErrorCodeInternalError
	}
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message string, requestID string) {
	h.write(w, statusCode, ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	})
}

func (h *Handler) write(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(resp.ErrorCode)),
		zap.String("message", resp.Message),
		zap.String("request_id", resp.RequestID),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteNotFound writes a record-not-found response.
func (h *Handler) WriteNotFound(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusNotFound, ErrorCodeRecordNotFound, message, requestID)
}

// WriteRateLimitedError writes a rate limit exceeded response.
func (h *Handler) WriteRateLimitedError(w http.ResponseWriter, requestID string) {
	h.WriteErrorResponse(w, http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded", requestID)
}
