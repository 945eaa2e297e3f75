// Package api exposes the relay's HTTP surface: transaction submission,
// request lookup, health, and metrics.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/relay"
	"github.com/emperorhan/tx-relayer/internal/store"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// TransactionSubmitter is the slice of the relay core the API depends
// on. Satisfied by *relay.Submitter; tests provide a mock.
type TransactionSubmitter interface {
	Submit(ctx context.Context, intent model.Intent) (*model.Request, error)
}

// RequestReader looks up stored requests. Satisfied by the request
// repository.
type RequestReader interface {
	Get(ctx context.Context, id string) (*model.Request, error)
}

// Server is the public HTTP API.
type Server struct {
	submitter TransactionSubmitter
	requests  RequestReader
	logger    *slog.Logger
}

func NewServer(submitter TransactionSubmitter, requests RequestReader, logger *slog.Logger) *Server {
	return &Server{
		submitter: submitter,
		requests:  requests,
		logger:    logger.With("component", "api"),
	}
}

// Handler returns the HTTP handler for the relay API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transaction", s.handleSubmitTransaction)
	mux.HandleFunc("GET /requests/{id}", s.handleGetRequest)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type submitTransactionRequest struct {
	ID    string `json:"id,omitempty"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"`
	// Data is the hex-encoded calldata, with or without a 0x prefix.
	Data string `json:"data,omitempty"`
}

type requestResponse struct {
	ID        string    `json:"id"`
	Chain     string    `json:"chain"`
	Nonce     uint64    `json:"nonce"`
	Hash      string    `json:"hash"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func toResponse(req *model.Request) requestResponse {
	return requestResponse{
		ID:        req.ID,
		Chain:     req.Chain.String(),
		Nonce:     req.Nonce,
		Hash:      req.Hash,
		Status:    string(req.Status()),
		Attempts:  req.Attempts,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var body submitTransactionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// A caller that supplies no id gets a fresh one and loses
	// idempotent resubmission; a caller that wants retries to dedup
	// must send its own.
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	var data []byte
	if body.Data != "" {
		decoded, err := hex.DecodeString(strings.TrimPrefix(body.Data, "0x"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "data must be hex encoded")
			return
		}
		data = decoded
	}

	req, err := s.submitter.Submit(r.Context(), model.Intent{
		ID:    body.ID,
		To:    body.To,
		Value: body.Value,
		Data:  data,
	})
	if err != nil {
		s.writeSubmitError(w, body.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(req))
}

func (s *Server) writeSubmitError(w http.ResponseWriter, id string, err error) {
	var verr *relay.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	var rerr *relay.BroadcastRejectedError
	if errors.As(err, &rerr) {
		s.logger.Warn("submission rejected", "request_id", id, "reason", rerr.Reason)
		writeError(w, http.StatusUnprocessableEntity, rerr.Error())
		return
	}

	s.logger.Error("submission failed", "request_id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	req, err := s.requests.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		s.logger.Error("request lookup failed", "request_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(req))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
