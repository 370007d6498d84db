package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fluxchat/consistency-sim/internal/model"
	"go.uber.org/zap"
)

// Query-string routes used by the browser dashboard. A write that misses its
// level still answers 200 and reports the failure in the body.

// LegacyWrite handles GET /api/write?level=ONE|QUORUM|ALL with a fixed test message.
func (h *Handlers) LegacyWrite(w http.ResponseWriter, r *http.Request) {
	level := model.ConsistencyOne
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := model.ParseConsistencyLevel(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		level = parsed
	}

	rec := model.NewRecord(h.ids.NextID(), "channel-1", "user-1", "Test message")
	outcome := h.svc.Write(rec, level)

	resp := map[string]any{
		"success":   outcome.Success,
		"latency":   model.Milliseconds(outcome.Latency),
		"level":     level.String(),
		"messageId": rec.ID,
	}
	if !outcome.Success {
		resp["error"] = outcome.ErrorReason
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// LegacyPartition handles GET /api/partition?enable=true|false on the last replica.
// A missing enable heals the replica.
func (h *Handlers) LegacyPartition(w http.ResponseWriter, r *http.Request) {
	enable := false
	if raw := r.URL.Query().Get("enable"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorHandler.WriteValidationError(w, fmt.Sprintf("enable must be a boolean, got %q", raw), r.Header.Get("X-Request-ID"))
			return
		}
		enable = parsed
	}

	last := h.svc.ReplicationFactor() - 1
	if err := h.svc.SetPartitioned(last, enable); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.Info("Last replica partition toggled",
		zap.Int("index", last),
		zap.Bool("partitioned", enable))

	h.writeJSONResponse(w, http.StatusOK, map[string]bool{"partitioned": enable})
}
