package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/api"
	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/internal/entity"
	"github.com/feedbacksdev/fanout/project"
	"github.com/feedbacksdev/fanout/store/memory"
)

// testServer creates a Handler backed by a memory store with one project and
// returns the test server plus the store for seeding.
func testServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	s := memory.New()
	s.AddProject(&project.Project{
		Entity: entity.New(),
		ID:     "proj_1",
		Name:   "Acme",
	})

	engine, err := fanout.New(fanout.WithStore(s))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	h := api.NewHandler(engine, slog.Default())
	return httptest.NewServer(h), s
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// --- Webhooks configuration ---

func TestWebhooks_UpdateAndGet(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	cfg := map[string]any{
		"slack": map[string]any{
			"enabled": true,
			"url":     "https://hooks.slack.com/services/T/B/X",
		},
	}
	resp := doJSON(t, "PUT", srv.URL+"/projects/proj_1/webhooks", cfg)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/projects/proj_1/webhooks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		Webhooks map[string]any `json:"webhooks"`
	}
	decodeBody(t, resp, &got)
	if got.Webhooks["slack"] == nil {
		t.Fatalf("expected slack config in response, got %v", got.Webhooks)
	}
}

func TestWebhooks_RejectsInvalidConfig(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	cfg := map[string]any{
		"generic": map[string]any{
			"enabled": true,
			"url":     "http://internal.example.com/hook",
		},
	}
	resp := doJSON(t, "PUT", srv.URL+"/projects/proj_1/webhooks", cfg)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	var body struct {
		Fields []struct {
			Path string `json:"path"`
		} `json:"fields"`
	}
	decodeBody(t, resp, &body)
	if len(body.Fields) == 0 || body.Fields[0].Path != "generic.url" {
		t.Fatalf("expected field path generic.url, got %+v", body.Fields)
	}
}

func TestWebhooks_UpdateUnknownProject(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "PUT", srv.URL+"/projects/nope/webhooks", map[string]any{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWebhooks_RotateSecret(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	cfg := map[string]any{
		"generic": map[string]any{
			"enabled": true,
			"url":     "https://api.example.com/hook",
			"secret":  "whsec_old",
		},
	}
	resp := doJSON(t, "PUT", srv.URL+"/projects/proj_1/webhooks", cfg)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "POST", srv.URL+"/projects/proj_1/endpoints/any/rotate-secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotate: expected 200, got %d", resp.StatusCode)
	}
	var rotated struct {
		Secret string `json:"secret"`
	}
	decodeBody(t, resp, &rotated)
	if rotated.Secret == "" || rotated.Secret == "whsec_old" {
		t.Fatalf("expected a fresh secret, got %q", rotated.Secret)
	}
}

// --- Test deliveries ---

func TestTestDeliver_EndpointResponds(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	srv, s := testServer(t)
	defer srv.Close()

	webhooks := fmt.Sprintf(`{"generic":{"enabled":true,"url":%q,"secret":"whsec_test"}}`, target.URL)
	if err := s.UpdateWebhooks(context.Background(), "proj_1", json.RawMessage(webhooks)); err != nil {
		t.Fatalf("seed webhooks: %v", err)
	}

	resp := doJSON(t, "POST", srv.URL+"/projects/proj_1/test", map[string]any{"kind": "generic"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		OK     bool `json:"ok"`
		Status int  `json:"status"`
	}
	decodeBody(t, resp, &result)
	if !result.OK || result.Status != http.StatusOK {
		t.Fatalf("expected ok=true status=200, got %+v", result)
	}

	// A test delivery must leave no trace in the log.
	records, err := s.ListRecords(context.Background(), "proj_1", delivery.ListOpts{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no delivery records after test, got %d", len(records))
	}
}

func TestTestDeliver_NotConfigured(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/projects/proj_1/test", map[string]any{"kind": "slack"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTestDeliver_UnknownKind(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/projects/proj_1/test", map[string]any{"kind": "carrier-pigeon"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Delivery log ---

func TestListDeliveries_Empty(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/projects/proj_1/deliveries", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var records []map[string]any
	decodeBody(t, resp, &records)
	if len(records) != 0 {
		t.Fatalf("expected empty log, got %d records", len(records))
	}
}

func TestResend_UnknownRecord(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/projects/proj_1/deliveries/dlv_nope/resend", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Digest ---

func TestRunDigest_EmptySweep(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/digest/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var summary struct {
		Projects  int `json:"projects"`
		Delivered int `json:"delivered"`
	}
	decodeBody(t, resp, &summary)
	if summary.Delivered != 0 {
		t.Fatalf("expected no digest deliveries, got %d", summary.Delivered)
	}
}

// --- Stats ---

func TestStats(t *testing.T) {
	srv, s := testServer(t)
	defer srv.Close()

	cfg := map[string]any{
		"slack": map[string]any{
			"enabled": true,
			"url":     "https://hooks.slack.com/services/T/B/X",
		},
		"generic": map[string]any{
			"enabled":        true,
			"url":            "https://api.example.com/hooks",
			"events":         []string{"digest"},
			"digestInterval": "hourly",
		},
	}
	resp := doJSON(t, "PUT", srv.URL+"/projects/proj_1/webhooks", cfg)
	resp.Body.Close()

	for i, status := range []delivery.Status{delivery.StatusSuccess, delivery.StatusSuccess, delivery.StatusFailed} {
		rec := &delivery.Record{
			Entity:    entity.New(),
			ID:        fmt.Sprintf("dlv_%d", i),
			ProjectID: "proj_1",
			Status:    status,
		}
		if err := s.AppendRecord(context.Background(), rec); err != nil {
			t.Fatalf("append record: %v", err)
		}
	}

	resp = doJSON(t, "GET", srv.URL+"/projects/proj_1/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats struct {
		Endpoints       int   `json:"endpoints"`
		DigestEndpoints int   `json:"digest_endpoints"`
		Deliveries      int64 `json:"deliveries"`
		Delivered       int64 `json:"delivered"`
		Failed          int64 `json:"failed"`
	}
	decodeBody(t, resp, &stats)
	if stats.Endpoints != 2 || stats.DigestEndpoints != 1 {
		t.Fatalf("unexpected endpoint counts: %+v", stats)
	}
	if stats.Deliveries != 3 || stats.Delivered != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected delivery counts: %+v", stats)
	}
}

func TestStats_UnknownProject(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/projects/proj_nope/stats", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
