// Package middleware provides HTTP middleware for the simulator API.
package middleware

import (
	"context"
	"net/http"
	"time"

	apierrors "github.com/fluxchat/consistency-sim/internal/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// ContextKey is a type for context keys.
type ContextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey ContextKey = "request_id"

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// probePaths are never rate limited and logged at debug.
var probePaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// RequestID tags each request with an ID, reusing the caller's when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		r.Header.Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Logging logs one line per request. Server errors, which include missed
// quorums, log at warn; probes log at debug.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			level := zapcore.InfoLevel
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				level = zapcore.WarnLevel
			case probePaths[r.URL.Path]:
				level = zapcore.DebugLevel
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Int("bytes", rw.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
			}
			if consistency := requestedConsistency(r); consistency != "" {
				fields = append(fields, zap.String("consistency", consistency))
			}
			logger.Log(level, "HTTP request", fields...)
		})
	}
}

// requestedConsistency reads the level from the query string of read and dashboard routes.
func requestedConsistency(r *http.Request) string {
	q := r.URL.Query()
	if c := q.Get("consistency"); c != "" {
		return c
	}
	return q.Get("level")
}

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response.
func Recovery(errorHandler *apierrors.Handler, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := r.Header.Get(RequestIDHeader)
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.String("request_id", requestID),
						zap.String("path", r.URL.Path),
					)
					errorHandler.WriteErrorResponse(w, http.StatusInternalServerError,
						apierrors.ErrorCodeInternalError, "internal server error", requestID)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CORS lets the dashboard call the API from another origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
				w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// RateLimiter sheds API load above a fixed rate. Probe paths are exempt.
type RateLimiter struct {
	limiter      *rate.Limiter
	errorHandler *apierrors.Handler
	logger       *zap.Logger
}

// NewRateLimiter creates a new rate limiter middleware.
func NewRateLimiter(requestsPerSecond float64, burstSize int, errorHandler *apierrors.Handler, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Limit applies rate limiting to requests.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if probePaths[r.URL.Path] || rl.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		requestID := r.Header.Get(RequestIDHeader)
		rl.logger.Warn("rate limit exceeded",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path),
		)
		w.Header().Set("Retry-After", "1")
		rl.errorHandler.WriteRateLimitedError(w, requestID)
	})
}

// statusRecorder captures the status code and body size for logging.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Chain composes middleware so the first argument runs outermost.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
