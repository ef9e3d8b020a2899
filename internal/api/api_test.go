// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tether/internal/connection"
)

type stubChannel struct {
	state connection.State
}

func (s stubChannel) State() connection.State { return s.state }

func (s stubChannel) Stats() connection.Stats {
	return connection.Stats{
		Name:       "feed",
		URL:        "wss://feed.example.com/ws",
		State:      s.state,
		Attempts:   2,
		QueueDepth: 3,
	}
}

type stubBreaker gobreaker.State

func (b stubBreaker) BreakerState() gobreaker.State { return gobreaker.State(b) }

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state      connection.State
		wantStatus int
		wantBody   string
	}{
		{connection.StateOpen, http.StatusOK, `"status":"ok"`},
		{connection.StateConnecting, http.StatusServiceUnavailable, `"status":"unavailable"`},
		{connection.StateReconnecting, http.StatusServiceUnavailable, `"state":"reconnecting"`},
		{connection.StateExhausted, http.StatusServiceUnavailable, `"state":"exhausted"`},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			t.Parallel()
			router := NewRouter(RouterConfig{}, NewHandler(stubChannel{state: tt.state}, nil))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %s", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestState(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{}, NewHandler(stubChannel{state: connection.StateOpen}, stubBreaker(gobreaker.StateOpen)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Name       string `json:"name"`
		State      string `json:"state"`
		Attempts   int    `json:"attempts"`
		QueueDepth int    `json:"queue_depth"`
		Bridge     struct {
			Breaker string `json:"breaker"`
		} `json:"bridge"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v: %s", err, rec.Body.String())
	}
	if body.Name != "feed" || body.State != "open" || body.Attempts != 2 || body.QueueDepth != 3 {
		t.Errorf("body = %+v", body)
	}
	if body.Bridge.Breaker != "open" {
		t.Errorf("bridge breaker = %q, want open", body.Bridge.Breaker)
	}
}

func TestState_WithoutBridge(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{}, NewHandler(stubChannel{state: connection.StateIdle}, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if strings.Contains(rec.Body.String(), `"bridge"`) {
		t.Errorf("body should omit bridge: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"connected_since"`) {
		t.Errorf("body should omit connected_since while not open: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{}, NewHandler(stubChannel{state: connection.StateOpen}, nil))

	// Generate one request so the API counter has a series.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tether_api_requests_total") {
		t.Error("metrics output missing tether_api_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{RateLimit: 2, RateWindow: time.Minute},
		NewHandler(stubChannel{state: connection.StateOpen}, nil))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	router := NewRouter(DefaultRouterConfig(), NewHandler(stubChannel{}, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	srv := NewServer(":9464", http.NotFoundHandler(), 5*time.Second, 10*time.Second)
	if srv.Addr != ":9464" || srv.ReadHeaderTimeout != 5*time.Second || srv.WriteTimeout != 10*time.Second {
		t.Errorf("server = %+v", srv)
	}
}
