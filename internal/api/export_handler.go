package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/render"
)

const defaultProjectName = "heimdex_export"

// writeServiceError reports a failed call to the media service.
func writeServiceError(w http.ResponseWriter, cfg ServerConfig, op string, err error) {
	var svcErr *render.ServiceError
	switch {
	case errors.Is(err, render.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "SERVICE_UNAVAILABLE")
	case errors.As(err, &svcErr), errors.Is(err, render.ErrNotMedia):
		cfg.Logger.Warn("media service call failed", "op", op, "error", err)
		WriteError(w, http.StatusBadGateway, err.Error(), "SERVICE_ERROR")
	default:
		writeEditError(w, err)
	}
}

// renderHandler exports the current session through the render service. In
// split-screen mode the top, bottom and audio slots go out as one request;
// otherwise the single track is rendered.
func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		split := cfg.Session.SplitScreen()

		var (
			single   export.RenderRequest
			layout   export.SplitRenderRequest
			clipsOut int
		)
		if split {
			layout = export.SplitRequest(cfg.Session.Layout())
			clipsOut = len(layout.TopClips) + len(layout.BottomClips)
		} else {
			track, err := cfg.Session.Track(editor.SlotSingle)
			if err != nil {
				writeEditError(w, err)
				return
			}
			single = export.SingleRequest(track)
			clipsOut = len(single.Clips)
		}
		if clipsOut == 0 {
			WriteError(w, http.StatusBadRequest, "timeline is empty", "EMPTY_TIMELINE")
			return
		}

		path, err := cfg.Library.RenderPath("render.mp4")
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		f, err := os.Create(path)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to create render file", "INTERNAL_ERROR")
			return
		}

		var res *render.RenderResult
		if split {
			res, err = cfg.Renderer.RenderSplit(ctx, layout, f)
		} else {
			res, err = cfg.Renderer.Render(ctx, single, f)
		}
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
			writeServiceError(w, cfg, "render", err)
			return
		}

		item, err := cfg.Library.RecordRender(ctx, res, path)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		mode := "single"
		if split {
			mode = "split"
		}
		WriteJSON(w, http.StatusOK, RenderResponse{
			Status: "ok",
			Mode:   mode,
			Media:  MediaToResponse(item),
			Result: res,
		})
	}
}

// exportEDLHandler writes one slot of the session as a CMX3600 EDL.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.EDLRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		slot, err := editor.ParseSlot(req.Slot)
		if err != nil {
			writeEditError(w, err)
			return
		}
		track, err := cfg.Session.Track(slot)
		if err != nil {
			writeEditError(w, err)
			return
		}
		clips := export.FromTrack(track)
		if len(clips) == 0 {
			WriteError(w, http.StatusBadRequest, "timeline is empty", "EMPTY_TIMELINE")
			return
		}

		projectName := export.SanitizeName(req.ProjectName, 120)
		if projectName == "" {
			projectName = defaultProjectName
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = cfg.Session.FPS()
		}

		edl := export.GenerateEDL(clips, projectName, frameRate)
		outputPath := filepath.Join(req.OutputDir, export.EDLFileName(projectName, string(slot)))
		if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, export.EDLResponse{
			Status:     "ok",
			Format:     "edl",
			OutputPath: outputPath,
			ClipCount:  len(clips),
		})
	}
}
