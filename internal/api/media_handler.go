package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// maxUploadMemory is the part of a multipart upload kept in memory.
const maxUploadMemory = 32 << 20

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := cfg.Library.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
			return
		}

		resp := MediaListResponse{Media: make([]MediaResponse, len(items))}
		for i, m := range items {
			resp.Media[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func uploadMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid multipart body", "BAD_REQUEST")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		item, err := cfg.Library.Upload(r.Context(), header.Filename, file)
		if err != nil {
			writeServiceError(w, cfg, "upload", err)
			return
		}
		WriteJSON(w, http.StatusCreated, MediaToResponse(item))
	}
}

func getMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := cfg.Library.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, MediaToResponse(item))
	}
}

func deleteMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Library.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func autoGenerateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, added, err := cfg.Library.AutoGenerate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg, "auto-generate", err)
			return
		}

		resp := AutoGenerateResponse{
			Status:  res.Status,
			Outputs: res.Outputs,
			Message: res.Message,
			Added:   make([]MediaResponse, len(added)),
		}
		for i, m := range added {
			resp.Added[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func syncMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		added, err := cfg.Library.SyncRemote(r.Context())
		if err != nil {
			writeServiceError(w, cfg, "sync", err)
			return
		}

		resp := MediaListResponse{Media: make([]MediaResponse, len(added))}
		for i, m := range added {
			resp.Media[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// mediaFileHandler streams a library item to the preview. Items that only
// exist on the media service are redirected to their remote URL.
func mediaFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		item, err := cfg.Library.Get(r.Context(), id)
		if err != nil {
			writeEditError(w, err)
			return
		}

		if item.Path == "" {
			if item.URL == "" {
				WriteError(w, http.StatusNotFound, "media has no playable file", "NOT_FOUND")
				return
			}
			http.Redirect(w, r, item.URL, http.StatusFound)
			return
		}

		fallback := "video/mp4"
		if item.Kind == timeline.KindAudio {
			fallback = "audio/mpeg"
		}
		if err := cfg.Media.ServeMedia(w, r, item.Path, fallback); err != nil {
			cfg.Logger.Error("media stream error", "error", err, "media_id", id)
		}
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		item, err := cfg.Library.Get(r.Context(), id)
		if err != nil {
			writeEditError(w, err)
			return
		}
		switch item.ThumbnailURL {
		case "":
			WriteError(w, http.StatusNotFound, "thumbnail not available", "NOT_FOUND")
			return
		case library.ThumbnailURL(id):
		default:
			http.Redirect(w, r, item.ThumbnailURL, http.StatusFound)
			return
		}
		if err := cfg.Media.ServeMedia(w, r, cfg.Library.ThumbnailPath(id), "image/jpeg"); err != nil {
			cfg.Logger.Error("thumbnail stream error", "error", err, "media_id", id)
		}
	}
}
