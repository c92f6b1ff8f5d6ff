package httpx

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/services"
	"github.com/gorilla/mux"
)

type taskResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Description: t.Description,
		Completed:   t.Completed,
		Owner:       t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())

	var in services.NewTaskInput
	if err := decodeJSON(w, req, &in); err != nil {
		r.writeServiceError(w, req, err)
		return
	}

	task, err := r.tasks.Create(req.Context(), id.User.ID, in)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (r *Router) handleListTasks(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())

	filter, err := services.ParseTaskQuery(req.URL.Query())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}

	tasks, err := r.tasks.List(req.Context(), id.User.ID, filter)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleGetTask(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	task, err := r.tasks.Get(req.Context(), id.User.ID, mux.Vars(req)["id"])
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (r *Router) handleUpdateTask(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	fields, err := decodeFields(w, req)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}

	task, err := r.tasks.Update(req.Context(), id.User.ID, mux.Vars(req)["id"], fields)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (r *Router) handleDeleteTask(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	task, err := r.tasks.Delete(req.Context(), id.User.ID, mux.Vars(req)["id"])
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}
