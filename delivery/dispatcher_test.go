package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/internal/entity"
	"github.com/feedbacksdev/fanout/payload"
	"github.com/feedbacksdev/fanout/project"
	"github.com/feedbacksdev/fanout/signature"
	"github.com/feedbacksdev/fanout/store/memory"
)

func intPtr(n int) *int { return &n }

func newTestEvent() *feedback.Event {
	return &feedback.Event{
		ID:        "fb_test",
		ProjectID: "proj_1",
		CreatedAt: time.Now().UTC(),
		Message:   "The export button is broken",
		Type:      "bug",
		Rating:    intPtr(2),
	}
}

// setup seeds a memory store with one project and returns it with a
// dispatcher wired to it.
func setup(t *testing.T, webhooks string) (*memory.Store, *delivery.Dispatcher) {
	t.Helper()

	s := memory.New()
	s.AddProject(&project.Project{
		Entity: entity.New(),
		ID:     "proj_1",
		Name:   "Acme",
	})
	if webhooks != "" {
		if err := s.UpdateWebhooks(context.Background(), "proj_1", json.RawMessage(webhooks)); err != nil {
			t.Fatalf("seed webhooks: %v", err)
		}
	}

	d := delivery.NewDispatcher(s, s, delivery.Config{}, nil)
	return s, d
}

func TestDispatchFanOut(t *testing.T) {
	type hit struct {
		body    []byte
		headers http.Header
	}
	hits := map[string]*hit{}
	record := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			hits[name] = &hit{body: body, headers: r.Header.Clone()}
			w.WriteHeader(http.StatusOK)
		}
	}

	slackSrv := httptest.NewServer(record("slack"))
	defer slackSrv.Close()
	genericSrv := httptest.NewServer(record("generic"))
	defer genericSrv.Close()

	webhooks := fmt.Sprintf(`{
		"slack":   {"enabled": true, "url": %q},
		"generic": {"enabled": true, "url": %q, "secret": "whsec_fanout_test"},
		"discord": {"enabled": false, "url": "https://discord.com/api/webhooks/1/x"}
	}`, slackSrv.URL, genericSrv.URL)

	s, d := setup(t, webhooks)

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes (disabled endpoint excluded), got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if !o.Delivered {
			t.Errorf("expected delivered outcome, got %+v", o)
		}
		if o.Record.Event != payload.EventFeedbackCreated {
			t.Errorf("record event = %q", o.Record.Event)
		}
	}

	// The generic request carries a verifiable signature over its exact body.
	g := hits["generic"]
	if g == nil {
		t.Fatal("generic endpoint was not hit")
	}
	sig := g.headers.Get(signature.SignatureHeader)
	tsStr := g.headers.Get(signature.TimestampHeader)
	if sig == "" || tsStr == "" {
		t.Fatal("missing signature headers on generic delivery")
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		t.Fatalf("timestamp header: %v", err)
	}
	if !signature.Verify(g.body, "whsec_fanout_test", ts, sig) {
		t.Fatal("signature does not verify against the sent body")
	}

	// Chat requests are unsigned.
	if hits["slack"].headers.Get(signature.SignatureHeader) != "" {
		t.Fatal("slack delivery must not be signed")
	}

	// One record per attempt; only the generic record retains its payload.
	records, err := s.ListRecords(context.Background(), "proj_1", delivery.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		switch rec.Kind {
		case endpoint.KindGeneric:
			if len(rec.Payload) == 0 {
				t.Error("generic record should retain its payload")
			}
		case endpoint.KindSlack:
			if len(rec.Payload) != 0 {
				t.Error("chat record must not retain a payload")
			}
		}
	}
}

func TestDispatchFailureIsolation(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer failSrv.Close()

	webhooks := fmt.Sprintf(`{
		"slack":   {"enabled": true, "url": %q},
		"discord": {"enabled": true, "url": %q}
	}`, failSrv.URL, okSrv.URL)

	_, d := setup(t, webhooks)

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("one endpoint failing must not stop the other, got %d outcomes", len(outcomes))
	}

	var delivered, failed int
	for _, o := range outcomes {
		if o.Delivered {
			delivered++
		} else {
			failed++
			if o.Record.Error != "upstream exploded" {
				t.Errorf("failed record should carry the response body, got %q", o.Record.Error)
			}
			if o.Record.Status != delivery.StatusFailed {
				t.Errorf("status = %q", o.Record.Status)
			}
		}
	}
	if delivered != 1 || failed != 1 {
		t.Fatalf("expected 1 delivered and 1 failed, got %d/%d", delivered, failed)
	}
}

func TestDispatchNoEligibleEndpoints(t *testing.T) {
	_, d := setup(t, `{"slack": {"enabled": false, "url": "https://hooks.slack.com/services/T/B/X"}}`)

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestTestDeliverAppendsNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, d := setup(t, fmt.Sprintf(`{"slack": {"enabled": true, "url": %q}}`, srv.URL))

	res, err := d.TestDeliver(context.Background(), "proj_1", endpoint.KindSlack, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Fatalf("expected OK result, got %+v", res)
	}

	records, err := s.ListRecords(context.Background(), "proj_1", delivery.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("test delivery must not append records, found %d", len(records))
	}
}

func TestTestDeliverNotConfigured(t *testing.T) {
	_, d := setup(t, `{"slack": {"enabled": false, "url": "https://hooks.slack.com/services/T/B/X"}}`)

	// Disabled endpoint.
	_, err := d.TestDeliver(context.Background(), "proj_1", endpoint.KindSlack, "")
	if !errors.Is(err, delivery.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for disabled endpoint, got %v", err)
	}

	// Unconfigured kind.
	_, err = d.TestDeliver(context.Background(), "proj_1", endpoint.KindGitHub, "")
	if !errors.Is(err, delivery.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for unconfigured kind, got %v", err)
	}
}

func TestResendReSignsWithCurrentSecret(t *testing.T) {
	var sigs []string
	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		sigs = append(sigs, r.Header.Get(signature.SignatureHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, d := setup(t, fmt.Sprintf(`{"generic": {"enabled": true, "url": %q, "secret": "whsec_old"}}`, srv.URL))

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal(err)
	}
	orig := outcomes[0].Record

	// Rotate the secret, then resend the logged delivery.
	rotated := fmt.Sprintf(`{"generic": {"enabled": true, "url": %q, "secret": "whsec_new"}}`, srv.URL)
	if err := s.UpdateWebhooks(context.Background(), "proj_1", json.RawMessage(rotated)); err != nil {
		t.Fatal(err)
	}

	out, err := d.Resend(context.Background(), "proj_1", orig.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Delivered {
		t.Fatalf("resend failed: %+v", out)
	}

	// The replayed body is the retained original; the signature is fresh and
	// verifies against the rotated secret.
	if string(bodies[1]) != string(bodies[0]) {
		t.Error("resend must replay the retained payload unchanged")
	}
	ts := time.Now().Unix()
	if !signature.Verify(bodies[1], "whsec_new", ts, sigs[1]) &&
		!signature.Verify(bodies[1], "whsec_new", ts-1, sigs[1]) &&
		!signature.Verify(bodies[1], "whsec_new", ts-2, sigs[1]) {
		t.Error("resend signature should verify against the current secret")
	}

	// Exactly one new record, preserving the original event name.
	records, err := s.ListRecords(context.Background(), "proj_1", delivery.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after resend, got %d", len(records))
	}
	if out.Record.Event != orig.Event {
		t.Errorf("resend event = %q, want %q", out.Record.Event, orig.Event)
	}
	if out.Record.ID == orig.ID {
		t.Error("resend must append a new record, not mutate the original")
	}
}

func TestResendChatSynthesizesBody(t *testing.T) {
	var lastBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, d := setup(t, fmt.Sprintf(`{"slack": {"enabled": true, "url": %q}}`, srv.URL))

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal(err)
	}
	rec := outcomes[0].Record
	if len(rec.Payload) != 0 {
		t.Fatal("precondition: chat payloads are not retained")
	}

	if _, err := d.Resend(context.Background(), "proj_1", rec.ID); err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(lastBody, &m); err != nil {
		t.Fatal(err)
	}
	if m["text"] != payload.DefaultText {
		t.Errorf("expected synthesized default text, got %v", m)
	}

	records, _ := s.ListRecords(context.Background(), "proj_1", delivery.ListOpts{})
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestResendWrongProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, d := setup(t, fmt.Sprintf(`{"slack": {"enabled": true, "url": %q}}`, srv.URL))
	s.AddProject(&project.Project{Entity: entity.New(), ID: "proj_2", Name: "Other"})

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.Resend(context.Background(), "proj_2", outcomes[0].Record.ID)
	if !errors.Is(err, delivery.ErrRecordNotFound) {
		t.Fatalf("a record must only be resendable by its own project, got %v", err)
	}
}

// failingRecordStore wraps a delivery store whose appends always fail.
type failingRecordStore struct {
	delivery.Store
}

func (f *failingRecordStore) AppendRecord(context.Context, *delivery.Record) error {
	return errors.New("disk full")
}

func TestDeliveredButLogFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memory.New()
	s.AddProject(&project.Project{Entity: entity.New(), ID: "proj_1", Name: "Acme"})
	webhooks := fmt.Sprintf(`{"slack": {"enabled": true, "url": %q}}`, srv.URL)
	if err := s.UpdateWebhooks(context.Background(), "proj_1", json.RawMessage(webhooks)); err != nil {
		t.Fatal(err)
	}

	d := delivery.NewDispatcher(&failingRecordStore{Store: s}, s, delivery.Config{}, nil)

	outcomes, err := d.Dispatch(context.Background(), "proj_1", newTestEvent())
	if err != nil {
		t.Fatal("a log-write failure must not fail the dispatch:", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	o := outcomes[0]
	if !o.Delivered {
		t.Error("the POST succeeded; the outcome must say delivered")
	}
	if o.LogErr == nil {
		t.Error("the failed append must surface as LogErr")
	}
	if o.Record == nil {
		t.Error("the record must still describe the attempt")
	}
}
