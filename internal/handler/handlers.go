// Package handler provides HTTP request handlers for the simulator API.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	apierrors "github.com/fluxchat/consistency-sim/internal/errors"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// IDGenerator mints record identifiers for new writes.
type IDGenerator interface {
	NextID() model.RecordID
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	svc          service.ReplicationService
	ids          IDGenerator
	errorHandler *apierrors.Handler
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc service.ReplicationService, ids IDGenerator, errorHandler *apierrors.Handler, logger *zap.Logger) *Handlers {
	return &Handlers{
		svc:          svc,
		ids:          ids,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// WriteRecordRequest is the body of POST /v1/records.
type WriteRecordRequest struct {
	ChannelID   string `json:"channel_id"`
	AuthorID    string `json:"author_id"`
	Content     string `json:"content"`
	Consistency string `json:"consistency,omitempty"`
}

// WriteRecordResponse is returned by a successful write.
type WriteRecordResponse struct {
	ID          model.RecordID `json:"id"`
	ReplicaID   int            `json:"replica_id"`
	Acked       int            `json:"acked"`
	Required    int            `json:"required"`
	Consistency string         `json:"consistency"`
	LatencyMs   float64        `json:"latency_ms"`
}

// ReadRecordResponse is returned by a successful read.
type ReadRecordResponse struct {
	Record      *model.Record `json:"record"`
	ReplicaID   int           `json:"replica_id"`
	Stale       bool          `json:"stale"`
	Responses   int           `json:"responses"`
	Required    int           `json:"required"`
	Consistency string        `json:"consistency"`
	LatencyMs   float64       `json:"latency_ms"`
}

// SetPartitionRequest is the body of PUT /v1/replicas/{index}/partition.
type SetPartitionRequest struct {
	Partitioned *bool `json:"partitioned"`
}

// ReplicasResponse lists the cluster's replicas.
type ReplicasResponse struct {
	ReplicationFactor int                   `json:"replication_factor"`
	Replicas          []model.ReplicaStatus `json:"replicas"`
}

// WriteRecord handles POST /v1/records requests.
func (h *Handlers) WriteRecord(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req WriteRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body: "+err.Error(), requestID)
		return
	}
	if req.ChannelID == "" {
		h.errorHandler.WriteValidationError(w, "channel_id is required", requestID)
		return
	}
	if req.AuthorID == "" {
		h.errorHandler.WriteValidationError(w, "author_id is required", requestID)
		return
	}
	if req.Content == "" {
		h.errorHandler.WriteValidationError(w, "content is required", requestID)
		return
	}

	level, err := h.svc.Consistency().NormalizeConsistencyLevel(req.Consistency)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rec := model.NewRecord(h.ids.NextID(), req.ChannelID, req.AuthorID, req.Content)
	outcome := h.svc.Write(rec, level)
	if !outcome.Success {
		h.errorHandler.HandleError(w, r, outcome.Err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, WriteRecordResponse{
		ID:          rec.ID,
		ReplicaID:   outcome.ReplicaID,
		Acked:       outcome.Acked,
		Required:    outcome.Required,
		Consistency: level.String(),
		LatencyMs:   model.Milliseconds(outcome.Latency),
	})
}

// ReadRecord handles GET /v1/records/{id} requests.
func (h *Handlers) ReadRecord(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	id, err := model.ParseRecordID(mux.Vars(r)["id"])
	if err != nil {
		h.errorHandler.WriteValidationError(w, "id must be a decimal record id", requestID)
		return
	}

	level, err := h.svc.Consistency().NormalizeConsistencyLevel(r.URL.Query().Get("consistency"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	outcome := h.svc.Read(id, level)
	if !outcome.Success {
		h.errorHandler.HandleError(w, r, outcome.Err)
		return
	}
	if !outcome.Found {
		h.errorHandler.WriteNotFound(w, fmt.Sprintf("record %s not found", id), requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, ReadRecordResponse{
		Record:      outcome.Record,
		ReplicaID:   outcome.ReplicaID,
		Stale:       outcome.IsStale,
		Responses:   outcome.Responses,
		Required:    outcome.Required,
		Consistency: level.String(),
		LatencyMs:   model.Milliseconds(outcome.Latency),
	})
}

// ListReplicas handles GET /v1/replicas requests.
func (h *Handlers) ListReplicas(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, ReplicasResponse{
		ReplicationFactor: h.svc.ReplicationFactor(),
		Replicas:          h.svc.Replicas(),
	})
}

// SetPartition handles PUT /v1/replicas/{index}/partition requests.
func (h *Handlers) SetPartition(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		h.errorHandler.WriteValidationError(w, "index must be an integer", requestID)
		return
	}

	var req SetPartitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body: "+err.Error(), requestID)
		return
	}
	if req.Partitioned == nil {
		h.errorHandler.WriteValidationError(w, "partitioned is required", requestID)
		return
	}

	if err := h.svc.SetPartitioned(index, *req.Partitioned); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.Info("Replica partition updated",
		zap.Int("index", index),
		zap.Bool("partitioned", *req.Partitioned),
		zap.String("request_id", requestID))

	h.writeJSONResponse(w, http.StatusOK, map[string]any{
		"index":       index,
		"partitioned": *req.Partitioned,
	})
}

// Metrics handles GET /v1/metrics and GET /api/metrics requests.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.svc.MetricsSnapshot())
}

// writeJSONResponse writes a JSON response to the HTTP response writer.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
