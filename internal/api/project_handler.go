package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Library.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// saveProjectHandler stores the current session. An empty id creates a new
// project.
func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveProjectRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		state, err := cfg.Session.MarshalState()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		p, err := cfg.Library.SaveProject(r.Context(), req.ID, req.Name, state)
		if err != nil {
			writeEditError(w, err)
			return
		}

		status := http.StatusOK
		if req.ID == "" {
			status = http.StatusCreated
		}
		WriteJSON(w, status, ProjectToResponse(p))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Library.LoadProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Library.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// loadProjectHandler replaces the session with a saved project. A drag in
// progress is abandoned.
func loadProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Library.LoadProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeEditError(w, err)
			return
		}
		if err := cfg.Session.Restore(p.State); err != nil {
			cfg.Logger.Error("failed to restore project", "project_id", p.ID, "error", err)
			WriteError(w, http.StatusUnprocessableEntity, "project state is unreadable", "INVALID_PROJECT")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}
