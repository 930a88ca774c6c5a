package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fitd/internal/eventbus"
	"fitd/internal/httpapi"
	"fitd/internal/jobs"
	"fitd/internal/manager"
	"fitd/internal/store"
	"fitd/pkg/types"
)

type testServer struct {
	*httptest.Server
	mgr    *manager.Manager
	bus    *eventbus.Bus
	jobs   jobs.Store
	closed bool
}

type serverOpts struct {
	dir          string
	jobsDB       string
	maxProcesses int
	maxLoaded    int
}

// newServer wires store, jobs, event bus, manager and mux the way cmd/fitd
// does, behind an httptest.Server.
func newServer(t *testing.T, o serverOpts) *testServer {
	t.Helper()
	if o.dir == "" {
		o.dir = filepath.Join(t.TempDir(), "models")
	}
	st, err := store.New(o.dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	var js jobs.Store = jobs.NewMemory()
	if o.jobsDB != "" {
		b, err := jobs.Open(o.jobsDB)
		if err != nil {
			t.Fatalf("jobs db: %v", err)
		}
		js = b
	}
	bus := eventbus.New(zerolog.Nop())
	mgr, err := manager.NewWithConfig(manager.Config{
		Store:        st,
		Jobs:         js,
		MaxProcesses: o.maxProcesses,
		MaxLoaded:    o.maxLoaded,
		Logger:       zerolog.Nop(),
		Publisher:    bus,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	httpapi.SetEventSource(bus)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	ts := &testServer{Server: srv, mgr: mgr, bus: bus, jobs: js}
	t.Cleanup(func() { ts.shutdown(t) })
	return ts
}

// shutdown stops the HTTP server, waits for training jobs and releases the
// jobs database. Safe to call more than once.
func (s *testServer) shutdown(t *testing.T) {
	t.Helper()
	if s.closed {
		return
	}
	s.closed = true
	httpapi.SetEventSource(nil)
	s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.mgr.Close(ctx); err != nil {
		t.Fatalf("close manager: %v", err)
	}
	_ = s.bus.Close()
	if err := s.jobs.Close(); err != nil {
		t.Fatalf("close jobs: %v", err)
	}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func mustStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want %d body=%s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

// waitJob polls GET /jobs/{name} until the job is terminal.
func waitJob(t *testing.T, base, name string) types.JobStatus {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := httpGet(t, base+"/jobs/"+name)
		if resp.StatusCode == http.StatusOK {
			var j types.JobStatus
			if err := json.Unmarshal(body, &j); err != nil {
				t.Fatalf("job json: %v", err)
			}
			if j.Terminal() {
				return j
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", name)
	return types.JobStatus{}
}

func fitAndWait(t *testing.T, base string, req types.FitRequest) types.JobStatus {
	t.Helper()
	resp, body := httpPostJSON(t, base+"/fit", req)
	mustStatus(t, resp, body, http.StatusOK)
	j := waitJob(t, base, req.Name)
	if j.State != types.JobDone {
		t.Fatalf("fit %s: %+v", req.Name, j)
	}
	return j
}
