package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vaanter/alphapack-ledger/internal/infra/runtime"
	"github.com/Vaanter/alphapack-ledger/internal/infra/telemetry"
)

func newAdminFixture(t *testing.T) (*gin.Engine, *runtime.Properties) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider, err := telemetry.Attach(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("attach telemetry: %v", err)
	}

	props := runtime.NewProperties()
	handler := NewAdminHandler(props, provider)

	router := gin.New()
	group := router.Group("/api/v1/admin")
	handler.RegisterRoutes(group)

	return router, props
}

func TestAdminStatus(t *testing.T) {
	router, props := newAdminFixture(t)

	props.BeginProcessing()
	props.BeginProcessing()
	props.EndProcessing()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/status", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp AdminStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}

	if resp.Status != "ok" {
		t.Fatalf("unexpected status %q", resp.Status)
	}

	if resp.Received != 2 {
		t.Fatalf("expected received 2, got %d", resp.Received)
	}

	if resp.Processing != 1 {
		t.Fatalf("expected processing 1, got %d", resp.Processing)
	}

	if !resp.Toggles.Ledger || !resp.Toggles.Archive || !resp.Toggles.Events {
		t.Fatalf("expected all toggles enabled, got %+v", resp.Toggles)
	}

	if resp.Uptime == "" {
		t.Fatal("expected uptime to be set")
	}
}

func TestAdminUpdateToggles(t *testing.T) {
	router, props := newAdminFixture(t)

	disabled := false
	payload, err := json.Marshal(ToggleUpdateRequest{Ledger: &disabled, Events: &disabled})
	if err != nil {
		t.Fatalf("marshal toggles: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/toggles", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp TogglesPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode toggles: %v", err)
	}

	if resp.Ledger || resp.Events {
		t.Fatalf("expected ledger and events disabled, got %+v", resp)
	}

	if !resp.Archive {
		t.Fatal("expected archive untouched")
	}

	if props.LedgerEnabled() || props.EventsEnabled() {
		t.Fatal("expected properties updated")
	}
}

func TestAdminUpdateTogglesRequiresField(t *testing.T) {
	router, _ := newAdminFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/toggles", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
