package httpapi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"fitd/internal/manager"
	"fitd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response", "internal")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

// errorStatus maps manager errors to an HTTP status and error kind.
func errorStatus(err error) (int, string) {
	switch {
	case manager.IsCapacityExceeded(err):
		return http.StatusTooManyRequests, "capacity_exceeded"
	case manager.IsNameCollision(err):
		return http.StatusConflict, "name_collision"
	case manager.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case manager.IsNotLoaded(err):
		return http.StatusConflict, "not_loaded"
	case manager.IsInvalidModelKind(err):
		return http.StatusBadRequest, "invalid_model_kind"
	case manager.IsInvalidInput(err):
		return http.StatusBadRequest, "invalid_input"
	case manager.IsShuttingDown(err):
		return http.StatusServiceUnavailable, "shutting_down"
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), ""
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError writes err with its mapped status. Capacity rejections are
// counted as backpressure under the route they hit.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorStatus(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure(routePatternOrPath(r))
	}
	if status >= 500 && zlog != nil {
		zlog.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSONError(w, status, err.Error(), kind)
}
