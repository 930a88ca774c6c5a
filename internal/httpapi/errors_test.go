package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fitd/internal/manager"
	"fitd/internal/store"
	"fitd/pkg/types"
)

func newManager(t *testing.T, maxProcesses, maxLoaded int) *manager.Manager {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "models"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	m, err := manager.New(st, maxProcesses, maxLoaded)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func waitDone(t *testing.T, m *manager.Manager, name string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if j, err := m.Job(name); err == nil && j.Terminal() {
			if j.State != types.JobDone {
				t.Fatalf("job failed: %+v", j)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", name)
}

func TestErrorStatus_ManagerErrors(t *testing.T) {
	m := newManager(t, 1, 1)
	X := [][]float64{{0}, {1}}
	y := []any{0, 1}

	_, notFound := m.Load("ghost")
	_, notLoaded := m.Predict("ghost", X)
	_, badKind := m.Fit("m", X, y, "svm", nil)
	_, badInput := m.Fit("m", X, []any{0}, "lr", nil)

	if _, err := m.Fit("a", X, y, "lr", nil); err != nil {
		t.Fatalf("fit: %v", err)
	}
	waitDone(t, m, "a")
	_, collision := m.Fit("a", X, y, "lr", nil)
	if _, err := m.Fit("b", X, y, "lr", nil); err != nil {
		t.Fatalf("fit: %v", err)
	}
	waitDone(t, m, "b")
	if _, err := m.Load("a"); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, capacity := m.Load("b")

	if err := m.Close(t.Context()); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, closing := m.Fit("c", X, y, "lr", nil)

	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"not found", notFound, http.StatusNotFound, "not_found"},
		{"not loaded", notLoaded, http.StatusConflict, "not_loaded"},
		{"invalid kind", badKind, http.StatusBadRequest, "invalid_model_kind"},
		{"invalid input", badInput, http.StatusBadRequest, "invalid_input"},
		{"collision", collision, http.StatusConflict, "name_collision"},
		{"capacity", capacity, http.StatusTooManyRequests, "capacity_exceeded"},
		{"shutting down", closing, http.StatusServiceUnavailable, "shutting_down"},
		{"wrapped", fmt.Errorf("ctx: %w", notFound), http.StatusNotFound, "not_found"},
		{"http error", mockHTTPError{msg: "teapot", code: http.StatusTeapot}, http.StatusTeapot, ""},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, c := range cases {
		if c.err == nil {
			t.Fatalf("%s: expected an error from the manager", c.name)
		}
		status, kind := errorStatus(c.err)
		if status != c.status || kind != c.kind {
			t.Fatalf("%s: got %d/%q, want %d/%q", c.name, status, kind, c.status, c.kind)
		}
	}
}

func TestWriteServiceError_Body(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/load", nil)
	writeServiceError(w, r, manager.ErrModelNotFound("m1"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	e := decodeError(t, w)
	if e.Error != "model not found: m1" || e.Code != http.StatusNotFound || e.Kind != "not_found" {
		t.Fatalf("unexpected body: %+v", e)
	}
}
