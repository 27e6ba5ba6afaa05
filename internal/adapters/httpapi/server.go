// Package httpapi adapts the saga components to the HTTP surface: the
// saga entry point, the activity-step endpoint, the event feed and
// health.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/observability"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/realtime"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// maxBodyBytes bounds inbound payloads.
const maxBodyBytes = 1 << 20

// SagaStarter is the orchestrator behavior the entry point needs.
type SagaStarter interface {
	StartSaga(ctx context.Context, body []byte) (int, string)
}

// ActivityRunner is the step behavior the activity endpoint needs.
type ActivityRunner interface {
	Apply(ctx context.Context, record saga.TransactionRecord) error
}

// Server routes HTTP traffic to the saga components.
type Server struct {
	starter  SagaStarter
	activity ActivityRunner
	hub      *realtime.Hub
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	logf     func(format string, args ...any)
}

// NewServer constructs the HTTP adapter. hub and metrics may be nil.
func NewServer(starter SagaStarter, activity ActivityRunner, hub *realtime.Hub, metrics *observability.Metrics, logf func(format string, args ...any)) *Server {
	if logf == nil {
		logf = log.Printf
	}
	return &Server{
		starter:  starter,
		activity: activity,
		hub:      hub,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logf: logf,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /startSaga", s.handleStartSaga)
	mux.HandleFunc("POST /activity", s.handleActivity)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *Server) handleStartSaga(w http.ResponseWriter, r *http.Request) {
	span := s.metrics.Start("startSaga")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		span.End(true)
		http.Error(w, saga.ResponseUnexpected, http.StatusInternalServerError)
		return
	}

	status, msg := s.starter.StartSaga(r.Context(), body)
	span.End(status != http.StatusOK)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// handleActivity runs the activity step synchronously. The orchestrator
// calls this endpoint; any non-2xx response is a failed step to it.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	span := s.metrics.Start("activity")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		span.End(true)
		writeResult(w, http.StatusInternalServerError, saga.ActivityResult{
			Status:  saga.StatusFailure,
			Message: "read request body",
		})
		return
	}

	record, err := saga.ParseRecord(body)
	if err != nil {
		span.End(true)
		writeResult(w, http.StatusBadRequest, saga.ActivityResult{
			Status:  saga.StatusFailure,
			Message: err.Error(),
		})
		return
	}

	if err := s.activity.Apply(r.Context(), record); err != nil {
		s.logf("httpapi: activity step failed for order %s: %v", record.OrderID, err)
		span.End(true)
		writeResult(w, http.StatusInternalServerError, saga.ActivityResult{
			Status:  saga.StatusFailure,
			Message: err.Error(),
		})
		return
	}

	span.End(false)
	writeResult(w, http.StatusOK, saga.ActivityResult{
		Status:  saga.StatusSuccess,
		Message: "order stored",
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event feed disabled", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("httpapi: websocket upgrade: %v", err)
		return
	}

	s.hub.Register <- conn

	// Drain client frames so close is noticed; the feed is write-only.
	go func() {
		defer func() { s.hub.Unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func writeResult(w http.ResponseWriter, status int, result saga.ActivityResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
