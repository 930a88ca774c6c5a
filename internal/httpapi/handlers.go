package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fitd/pkg/types"
)

type handlers struct {
	svc Service
}

// fit godoc
// @Summary      Start a training job
// @Description  Validates the request, reserves a training slot and trains in the background.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.FitRequest  true  "Training data"
// @Success      200      {object}  types.StatusReply
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /fit [post]
func (h *handlers) fit(w http.ResponseWriter, r *http.Request) {
	var req types.FitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.svc.Fit(req.Name, req.X, req.Y, req.ModelType, req.Params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusReply{Status: "started", JobID: id})
}

// predict godoc
// @Summary      Predict with a loaded model
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.PredictRequest  true  "Model name and feature rows"
// @Success      200      {object}  types.PredictResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Router       /predict [post]
func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var req types.PredictRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Predict(req.Name, req.X)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PredictResponse{Predictions: out})
}

// load godoc
// @Summary      Load a persisted model into memory
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.ModelRequest  true  "Model name"
// @Success      200      {object}  types.StatusReply
// @Failure      404      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Router       /load [post]
func (h *handlers) load(w http.ResponseWriter, r *http.Request) {
	var req types.ModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.Load(req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusReply{Status: string(st)})
}

// unload godoc
// @Summary      Drop a model from memory
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.ModelRequest  true  "Model name"
// @Success      200      {object}  types.StatusReply
// @Failure      404      {object}  types.ErrorResponse
// @Router       /unload [post]
func (h *handlers) unload(w http.ResponseWriter, r *http.Request) {
	var req types.ModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Unload(req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusReply{Status: "unloaded"})
}

// remove godoc
// @Summary      Delete a persisted model
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.ModelRequest  true  "Model name"
// @Success      200      {object}  types.StatusReply
// @Failure      404      {object}  types.ErrorResponse
// @Router       /remove [post]
func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	var req types.ModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Remove(req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusReply{Status: "deleted"})
}

// removeAll godoc
// @Summary      Delete every persisted model
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.StatusReply
// @Router       /remove_all [post]
func (h *handlers) removeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RemoveAll()
	if err != nil {
		// partial deletions are still reported as done
		if zlog != nil {
			zlog.Warn().Err(err).Int("removed", n).Msg("remove_all incomplete")
		}
	}
	writeJSON(w, http.StatusOK, types.StatusReply{Status: "all_deleted", Removed: &n})
}

// status godoc
// @Summary      Server status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// models godoc
// @Summary      List persisted models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListModels()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: list})
}

// jobs godoc
// @Summary      List training jobs
// @Tags         jobs
// @Produce      json
// @Success      200  {object}  types.JobsResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /jobs [get]
func (h *handlers) jobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Jobs()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.JobsResponse{Jobs: list})
}

// job godoc
// @Summary      Latest training job for a model
// @Tags         jobs
// @Produce      json
// @Param        name  path      string  true  "Model name"
// @Success      200   {object}  types.JobStatus
// @Failure      404   {object}  types.ErrorResponse
// @Router       /jobs/{name} [get]
func (h *handlers) job(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.Job(chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}
