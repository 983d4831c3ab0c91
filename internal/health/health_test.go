package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/lorekeeperhq/lorekeeper/internal/health"
)

type probeBody struct {
	Status string `json:"status"`
	Checks map[string]struct {
		Status    string `json:"status"`
		Error     string `json:"error"`
		LatencyMS int64  `json:"latency_ms"`
	} `json:"checks"`
}

func probe(t *testing.T, h *health.Handler, path string) (int, probeBody) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	if path == "/healthz" {
		h.Healthz(rec, req)
	} else {
		h.Readyz(rec, req)
	}
	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{Name: "database", Check: func(context.Context) error {
		return errors.New("down")
	}})

	code, body := probe(t, h, "/healthz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok even with failing dependencies", code, body.Status)
	}
}

func TestReadyzReportsEveryDependency(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "database", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "llm_provider", Check: func(context.Context) error { return nil }},
	)

	code, body := probe(t, h, "/readyz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("readyz = %d %q, want 200 ok", code, body.Status)
	}
	for _, name := range []string{"database", "llm_provider"} {
		if body.Checks[name].Status != "ok" {
			t.Errorf("check %q = %q, want ok", name, body.Checks[name].Status)
		}
	}
}

func TestReadyzFailsWhenAnyDependencyFails(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "database", Check: func(context.Context) error {
			return errors.New("connection refused")
		}},
		health.Checker{Name: "llm_provider", Check: func(context.Context) error { return nil }},
	)

	code, body := probe(t, h, "/readyz")
	if code != http.StatusServiceUnavailable || body.Status != "fail" {
		t.Fatalf("readyz = %d %q, want 503 fail", code, body.Status)
	}
	if db := body.Checks["database"]; db.Status != "fail" || db.Error != "connection refused" {
		t.Errorf("database check = %+v", db)
	}
	if body.Checks["llm_provider"].Status != "ok" {
		t.Errorf("llm_provider check = %+v, healthy dependency must still report ok", body.Checks["llm_provider"])
	}
}

func TestReadyzNoCheckersIsReady(t *testing.T) {
	t.Parallel()

	code, body := probe(t, health.New(), "/readyz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("readyz = %d %q, want 200 ok", code, body.Status)
	}
}

func TestReadyzRunsChecksConcurrently(t *testing.T) {
	t.Parallel()

	// Both probes block until the other has started; the request only
	// completes if the handler runs them in parallel.
	var wg sync.WaitGroup
	wg.Add(2)
	rendezvous := func(context.Context) error {
		wg.Done()
		wg.Wait()
		return nil
	}

	h := health.New(
		health.Checker{Name: "database", Check: rendezvous},
		health.Checker{Name: "llm_provider", Check: rendezvous},
	)

	code, _ := probe(t, h, "/readyz")
	if code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", code)
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{Name: "database", Check: func(context.Context) error { return nil }})
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadyzRespectsCancelledRequest(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz on cancelled request = %d, want 503", rec.Code)
	}
}
