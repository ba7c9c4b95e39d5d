package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kickoff/internal/config"
	"kickoff/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(config.ResolverSettings{BaseURL: srv.URL + "/", Issuer: "kickoff", Secret: "s3cret", TimeoutSeconds: 2}, "user-1", noopLogger{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestFetchInitialTimeline(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"timelineEvents":[{"eventId":1,"minute":3,"action":0,"team":0},{"eventId":2,"action":4}]}`))
	})

	events, err := client.FetchInitialTimeline(context.Background(), "m 1")
	if err != nil {
		t.Fatalf("FetchInitialTimeline returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EventID == nil || *events[0].EventID != 1 || events[0].Minute == nil || *events[0].Minute != 3 {
		t.Fatalf("first event decoded wrong: %+v", events[0])
	}
	if events[1].Minute != nil {
		t.Fatalf("missing minute must stay nil, got %d", *events[1].Minute)
	}

	if gotPath != "GET /matches/m 1/timeline" {
		t.Fatalf("request = %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("missing bearer token: %q", gotAuth)
	}
	if sub := stringClaim(t, parseClaims(t, strings.TrimPrefix(gotAuth, "Bearer "), "s3cret"), "sub"); sub != "user-1" {
		t.Fatalf("sub = %s, want user-1", sub)
	}
}

func TestSubmitDecisionSendsBodyAndIdempotencyKey(t *testing.T) {
	var keys []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/matches/m1/decisions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		key := r.Header.Get("Idempotency-Key")
		if _, err := uuid.Parse(key); err != nil {
			t.Errorf("idempotency key %q is not a uuid", key)
		}
		keys = append(keys, key)

		var body decisionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Decision != 2 || body.Minute != 17 {
			t.Errorf("body = %+v, want decision 2 at minute 17", body)
		}
		_, _ = w.Write([]byte(`{"timelineEvents":[{"eventId":5,"minute":17,"action":4,"team":0,"teamScored":true}],"resultText":"Goal!"}`))
	})

	// The second call is a retry after a lost response.
	for i := 0; i < 2; i++ {
		slice, err := client.SubmitDecision(context.Background(), "m1", ports.Decision{EventID: 5, Minute: 17, Code: 2})
		if err != nil {
			t.Fatalf("SubmitDecision returned error: %v", err)
		}
		if slice.ResultText != "Goal!" || len(slice.TimelineEvents) != 1 || !slice.TimelineEvents[0].TeamScored {
			t.Fatalf("slice decoded wrong: %+v", slice)
		}
	}
	if len(keys) != 2 || keys[0] != keys[1] {
		t.Fatalf("idempotency keys = %v, want the same key for a retried decision", keys)
	}
}

func TestIdempotencyKeyDistinguishesDecisions(t *testing.T) {
	base := ports.Decision{EventID: 5, Minute: 17, Code: 2}
	key := IdempotencyKey("m1", base)
	if key != IdempotencyKey("m1", base) {
		t.Fatal("key must be stable for the same decision")
	}

	tests := []struct {
		name    string
		matchID string
		d       ports.Decision
	}{
		{"other match", "m2", base},
		{"other minute", "m1", ports.Decision{EventID: 5, Minute: 18, Code: 2}},
		{"chained event in same minute", "m1", ports.Decision{EventID: 6, Minute: 17, Code: 2}},
		{"other choice", "m1", ports.Decision{EventID: 5, Minute: 17, Code: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdempotencyKey(tt.matchID, tt.d); got == key {
				t.Fatalf("key %s collides with the base decision", got)
			}
		})
	}
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "match not found", http.StatusNotFound)
	})

	_, err := client.SubmitDecision(context.Background(), "m1", ports.Decision{EventID: 1, Minute: 3, Code: 1})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "match not found" {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestMalformedBodyIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	if _, err := client.FetchInitialTimeline(context.Background(), "m1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(config.ResolverSettings{}, "user-1", noopLogger{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
}
