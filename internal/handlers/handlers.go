// Package handlers implements the HTTP endpoints of the admission layer's
// own surface: health, operator stats, and manual unblocking.
package handlers

import (
	"encoding/json"
	"net/http"

	"payment-gateway/internal/api"
	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
	"payment-gateway/internal/guard"
	"payment-gateway/internal/stats"
)

// Handlers holds the dependencies of the HTTP endpoints.
type Handlers struct {
	guard    *guard.Guard
	reporter *stats.Reporter
	logger   logging.Logger
}

// New creates the endpoint handlers.
func New(g *guard.Guard, reporter *stats.Reporter, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{guard: g, reporter: reporter, logger: logger}
}

// HealthCheck reports service liveness
// @Summary Health check
// @Description Returns service status; exempt from every admission check
// @Tags health
// @Produce json
// @Success 200 {object} api.Envelope
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetStats returns the admission-layer snapshot
// @Summary Admission stats
// @Description Returns guard state, rate-limit policies, and cost budgets
// @Tags admin
// @Produce json
// @Success 200 {object} stats.Snapshot
// @Failure 401 {object} api.Envelope
// @Router /api/admin/stats [get]
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.reporter.Snapshot())
}

type unblockRequest struct {
	ClientKey string `json:"client_key"`
}

// HandleUnblock lifts a guard block before its expiry
// @Summary Unblock a client
// @Description Removes an active block and clears the client's violation history
// @Tags admin
// @Accept json
// @Produce json
// @Param request body unblockRequest true "Client to unblock"
// @Success 200 {object} api.Envelope
// @Failure 400 {object} api.Envelope
// @Failure 401 {object} api.Envelope
// @Router /api/admin/unblock [post]
func (h *Handlers) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	var req unblockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, errors.ValidationError("invalid request body"))
		return
	}
	if req.ClientKey == "" {
		api.WriteError(w, errors.ValidationError("client_key is required"))
		return
	}

	h.guard.Unblock(req.ClientKey)
	h.logger.Info("Client unblocked by operator", logging.String("client_key", req.ClientKey))

	api.WriteJSON(w, http.StatusOK, map[string]string{"client_key": req.ClientKey, "status": "unblocked"})
}
