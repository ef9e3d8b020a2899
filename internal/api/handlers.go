// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package api

import (
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tether/internal/connection"
	"github.com/tomtom215/tether/internal/logging"
)

// StateSource reports channel state. *connection.Manager satisfies it.
type StateSource interface {
	State() connection.State
	Stats() connection.Stats
}

// BreakerSource reports the bridge's publish breaker. *bridge.Bridge
// satisfies it.
type BreakerSource interface {
	BreakerState() gobreaker.State
}

// Handler serves the ops endpoints.
type Handler struct {
	channel StateSource
	bridge  BreakerSource
}

// NewHandler returns a Handler. bridge may be nil.
func NewHandler(channel StateSource, bridge BreakerSource) *Handler {
	return &Handler{channel: channel, bridge: bridge}
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status string           `json:"status"`
	State  connection.State `json:"state"`
}

// Health reports 200 only while the channel is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.channel.State()
	resp := HealthResponse{Status: "ok", State: state}
	status := http.StatusOK
	if state != connection.StateOpen {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}

// StateResponse is the /state body.
type StateResponse struct {
	connection.Stats
	Bridge *BridgeState `json:"bridge,omitempty"`
}

// BridgeState describes the NATS bridge.
type BridgeState struct {
	Breaker string `json:"breaker"`
}

// State returns the channel statistics.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{Stats: h.channel.Stats()}
	if h.bridge != nil {
		resp.Bridge = &BridgeState{Breaker: h.bridge.BreakerState().String()}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write response")
	}
}
