package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	apierrors "github.com/fluxchat/consistency-sim/internal/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestID(t *testing.T) {
	t.Run("generates request ID if not present", func(t *testing.T) {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			assert.Equal(t, seen, r.Header.Get(RequestIDHeader))
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		handler := RequestID(http.HandlerFunc(okHandler))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "my-custom-id-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "my-custom-id-123", w.Header().Get(RequestIDHeader))
	})
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/records":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("quorum"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/records?consistency=all", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/write?level=ONE", nil))

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "all", entries[0].ContextMap()["consistency"])
		assert.EqualValues(t, 6, entries[0].ContextMap()["bytes"])
		assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
		assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
		assert.Equal(t, "ONE", entries[2].ContextMap()["consistency"])
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(apierrors.NewHandler(zap.NewNop()), zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"*"})(http.HandlerFunc(okHandler))

	t.Run("sets headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://dashboard.local")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("answers preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://dashboard.local")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, apierrors.NewHandler(zap.NewNop()), zap.NewNop())
	handler := rl.Limit(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/v1/replicas", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "RATE_LIMITED")

	t.Run("probes are exempt", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mark("first"), mark("second"))(http.HandlerFunc(okHandler))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, order)
}
