package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))
	r.Get("/status", statusHandler(cfg))

	r.Route("/media", func(r chi.Router) {
		r.Get("/", listMediaHandler(cfg))
		r.Post("/", uploadMediaHandler(cfg))
		r.Post("/sync", syncMediaHandler(cfg))
		r.Get("/{id}", getMediaHandler(cfg))
		r.Delete("/{id}", deleteMediaHandler(cfg))
		r.Post("/{id}/auto_generate", autoGenerateHandler(cfg))
		r.With(LoopbackGuard()).Get("/{id}/file", mediaFileHandler(cfg))
		r.With(LoopbackGuard()).Head("/{id}/file", mediaFileHandler(cfg))
		r.With(LoopbackGuard()).Get("/{id}/thumbnail", thumbnailHandler(cfg))
	})

	r.Route("/timeline", func(r chi.Router) {
		r.Get("/", snapshotHandler(cfg))
		r.Put("/split_screen", splitScreenHandler(cfg))
		r.Route("/{slot}", func(r chi.Router) {
			r.Get("/", slotHandler(cfg))
			r.Post("/clips", addClipHandler(cfg))
			r.Post("/reorder", reorderHandler(cfg))
			r.Post("/split", splitHandler(cfg))
			r.Put("/view", viewHandler(cfg))
			r.Route("/clips/{clipID}", func(r chi.Router) {
				r.Delete("/", removeClipHandler(cfg))
				r.Post("/move", moveClipHandler(cfg))
				r.Post("/place", placeClipHandler(cfg))
				r.Post("/trim", trimClipHandler(cfg))
				r.Put("/transform", transformHandler(cfg))
				r.Post("/keyframes", setKeyframeHandler(cfg))
				r.Patch("/keyframes/{index}", moveKeyframeHandler(cfg))
				r.Delete("/keyframes/{index}", removeKeyframeHandler(cfg))
			})
		})
	})

	r.Route("/drag", func(r chi.Router) {
		r.Get("/", activeDragHandler(cfg))
		r.Post("/begin", beginDragHandler(cfg))
		r.Post("/move", dragMoveHandler(cfg))
		r.Post("/end", endDragHandler(cfg))
		r.Post("/cancel", cancelDragHandler(cfg))
	})

	r.Route("/playback/{slot}", func(r chi.Router) {
		r.Get("/status", playbackStatusHandler(cfg))
		r.Post("/play", transportHandler(cfg, (*playback.Channel).Play))
		r.Post("/pause", transportHandler(cfg, (*playback.Channel).Pause))
		r.Post("/toggle", transportHandler(cfg, (*playback.Channel).Toggle))
		r.Post("/stop", transportHandler(cfg, (*playback.Channel).Stop))
		r.Post("/seek", seekHandler(cfg))
		r.Get("/commands", commandsHandler(cfg))
		r.Post("/ready", mediaReadyHandler(cfg))
		r.Post("/failed", mediaFailedHandler(cfg))
	})

	r.Route("/export", func(r chi.Router) {
		r.Post("/render", renderHandler(cfg))
		r.Post("/edl", exportEDLHandler(cfg))
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", listProjectsHandler(cfg))
		r.Post("/", saveProjectHandler(cfg))
		r.Get("/{id}", getProjectHandler(cfg))
		r.Delete("/{id}", deleteProjectHandler(cfg))
		r.Post("/{id}/load", loadProjectHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.Start).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Session.Snapshot()

		resp := StatusResponse{
			SplitScreen: snap.SplitScreen,
			Playback:    make(map[string]SlotStatus, len(cfg.Channels)),
			Drag:        snap.Drag,
		}
		if cfg.Library != nil {
			items, err := cfg.Library.List(r.Context())
			if err != nil {
				cfg.Logger.Warn("failed to count media", "error", err)
			}
			resp.MediaCount = len(items)
		}
		if cfg.Runner != nil {
			resp.ProbePaused = cfg.Runner.IsPaused()
		}
		for _, s := range snap.Slots {
			ch, ok := cfg.Channels[s.Slot]
			if !ok {
				continue
			}
			resp.Playback[string(s.Slot)] = SlotStatus{Status: ch.Status(), Clips: len(s.Track.Clips)}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

// writeEditError maps editing errors to HTTP statuses.
func writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrUnknownSlot),
		errors.Is(err, editor.ErrUnknownDragKind),
		errors.Is(err, timeline.ErrIndexOutOfRange),
		errors.Is(err, timeline.ErrSplitOutsideClip),
		errors.Is(err, timeline.ErrKeyframeExists),
		errors.Is(err, library.ErrUnsupportedMedia),
		errors.Is(err, export.ErrInvalidOutputDir):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, editor.ErrClipNotFound),
		errors.Is(err, library.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, editor.ErrDragInProgress),
		errors.Is(err, editor.ErrNoDrag):
		WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func slotParam(w http.ResponseWriter, r *http.Request) (editor.Slot, bool) {
	slot, err := editor.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeEditError(w, err)
		return "", false
	}
	return slot, true
}
