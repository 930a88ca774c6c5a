package e2e

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fitd/pkg/types"
)

var twoPoints = types.FitRequest{
	Name:      "m1",
	ModelType: "logreg",
	X:         [][]float64{{0, 0}, {1, 1}},
	Y:         []any{0, 1},
}

// Full lifecycle over HTTP: fit, load, predict, unload, remove. The event
// stream must carry the fit events for the job.
func TestE2E_LogRegLifecycle(t *testing.T) {
	srv := newServer(t, serverOpts{maxProcesses: 2, maxLoaded: 2})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()

	j := fitAndWait(t, srv.URL, twoPoints)
	if j.Rows != 2 || j.Features != 2 || j.Kind != "logreg" {
		t.Fatalf("job record: %+v", j)
	}

	seen := map[string]bool{}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !(seen["fit_started"] && seen["fit_done"]) {
		var e types.Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read event (seen %v): %v", seen, err)
		}
		if e.Model == "m1" {
			seen[e.Name] = true
		}
	}

	resp, body := httpPostJSON(t, srv.URL+"/load", types.ModelRequest{Name: "m1"})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = httpPostJSON(t, srv.URL+"/predict", types.PredictRequest{Name: "m1", X: [][]float64{{0, 0}, {1, 1}}})
	mustStatus(t, resp, body, http.StatusOK)
	var pr types.PredictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		t.Fatalf("predict json: %v", err)
	}
	if len(pr.Predictions) != 2 || pr.Predictions[0] != float64(0) || pr.Predictions[1] != float64(1) {
		t.Fatalf("predictions: %v", pr.Predictions)
	}

	resp, body = httpGet(t, srv.URL+"/status")
	mustStatus(t, resp, body, http.StatusOK)
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	if len(st.Loaded) != 1 || st.Loaded[0].Name != "m1" || st.Loaded[0].Predictions != 2 {
		t.Fatalf("status loaded: %+v", st.Loaded)
	}

	resp, body = httpPostJSON(t, srv.URL+"/unload", types.ModelRequest{Name: "m1"})
	mustStatus(t, resp, body, http.StatusOK)
	resp, body = httpPostJSON(t, srv.URL+"/predict", types.PredictRequest{Name: "m1", X: [][]float64{{0, 0}}})
	mustStatus(t, resp, body, http.StatusConflict)

	resp, body = httpPostJSON(t, srv.URL+"/remove", types.ModelRequest{Name: "m1"})
	mustStatus(t, resp, body, http.StatusOK)
	resp, body = httpPostJSON(t, srv.URL+"/load", types.ModelRequest{Name: "m1"})
	mustStatus(t, resp, body, http.StatusNotFound)
}

func TestE2E_LoadCapacity(t *testing.T) {
	srv := newServer(t, serverOpts{maxProcesses: 2, maxLoaded: 1})

	for _, name := range []string{"a", "b"} {
		req := twoPoints
		req.Name = name
		fitAndWait(t, srv.URL, req)
	}

	resp, body := httpPostJSON(t, srv.URL+"/load", types.ModelRequest{Name: "a"})
	mustStatus(t, resp, body, http.StatusOK)
	var reply types.StatusReply
	_ = json.Unmarshal(body, &reply)
	if reply.Status != "loaded" {
		t.Fatalf("first load: %s", body)
	}

	resp, body = httpPostJSON(t, srv.URL+"/load", types.ModelRequest{Name: "a"})
	mustStatus(t, resp, body, http.StatusOK)
	_ = json.Unmarshal(body, &reply)
	if reply.Status != "already_loaded" {
		t.Fatalf("second load: %s", body)
	}

	resp, body = httpPostJSON(t, srv.URL+"/load", types.ModelRequest{Name: "b"})
	mustStatus(t, resp, body, http.StatusTooManyRequests)
	var er types.ErrorResponse
	_ = json.Unmarshal(body, &er)
	if er.Kind != "capacity_exceeded" {
		t.Fatalf("capacity error: %s", body)
	}
}

func TestE2E_NameCollision(t *testing.T) {
	srv := newServer(t, serverOpts{maxProcesses: 2, maxLoaded: 2})
	fitAndWait(t, srv.URL, twoPoints)

	resp, body := httpPostJSON(t, srv.URL+"/fit", twoPoints)
	mustStatus(t, resp, body, http.StatusConflict)
}

// Artifacts and job records outlive a restart on the same model dir and jobs
// database.
func TestE2E_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	opts := serverOpts{
		dir:          filepath.Join(dir, "models"),
		jobsDB:       filepath.Join(dir, "jobs.db"),
		maxProcesses: 1,
		maxLoaded:    1,
	}

	first := newServer(t, opts)
	fitAndWait(t, first.URL, twoPoints)
	first.shutdown(t)

	second := newServer(t, opts)
	resp, body := httpGet(t, second.URL+"/models")
	mustStatus(t, resp, body, http.StatusOK)
	var models types.ModelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		t.Fatalf("models json: %v", err)
	}
	if len(models.Models) != 1 || models.Models[0].Name != "m1" || models.Models[0].Loaded {
		t.Fatalf("models after restart: %+v", models.Models)
	}

	j := waitJob(t, second.URL, "m1")
	if j.State != types.JobDone {
		t.Fatalf("job after restart: %+v", j)
	}

	resp, body = httpPostJSON(t, second.URL+"/load", types.ModelRequest{Name: "m1"})
	mustStatus(t, resp, body, http.StatusOK)
	resp, body = httpPostJSON(t, second.URL+"/predict", types.PredictRequest{Name: "m1", X: [][]float64{{1, 1}}})
	mustStatus(t, resp, body, http.StatusOK)
	var pr types.PredictResponse
	_ = json.Unmarshal(body, &pr)
	if len(pr.Predictions) != 1 || pr.Predictions[0] != float64(1) {
		t.Fatalf("predictions after restart: %v", pr.Predictions)
	}
}

func TestE2E_RemoveAllKeepsServing(t *testing.T) {
	srv := newServer(t, serverOpts{maxProcesses: 2, maxLoaded: 2})
	for _, name := range []string{"a", "b"} {
		req := twoPoints
		req.Name = name
		fitAndWait(t, srv.URL, req)
	}
	resp, body := httpPostJSON(t, srv.URL+"/load", types.ModelRequest{Name: "a"})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = httpPostJSON(t, srv.URL+"/remove_all", nil)
	mustStatus(t, resp, body, http.StatusOK)
	var reply types.StatusReply
	_ = json.Unmarshal(body, &reply)
	if reply.Status != "all_deleted" || reply.Removed == nil || *reply.Removed != 2 {
		t.Fatalf("remove_all: %s", body)
	}

	resp, body = httpGet(t, srv.URL+"/status")
	var st types.StatusResponse
	_ = json.Unmarshal(body, &st)
	if len(st.Loaded) != 0 {
		t.Fatalf("models still loaded: %+v", st.Loaded)
	}

	// names are free again
	fitAndWait(t, srv.URL, twoPoints)
}

func TestE2E_MetricsExposed(t *testing.T) {
	srv := newServer(t, serverOpts{maxProcesses: 1, maxLoaded: 1})
	httpGet(t, srv.URL+"/status")

	resp, body := httpGet(t, srv.URL+"/metrics")
	mustStatus(t, resp, body, http.StatusOK)
	for _, want := range []string{"fitd_http_requests_total", "fitd_manager_fit_jobs_active", "fitd_manager_loaded_models"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %s", want)
		}
	}
}
