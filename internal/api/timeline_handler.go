package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func snapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func splitScreenHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitScreenRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.SetSplitScreen(req.Enabled)
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func slotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		writeSlot(w, cfg, slot)
	}
}

func writeSlot(w http.ResponseWriter, cfg ServerConfig, slot editor.Slot) {
	st, err := cfg.Session.Slot(slot)
	if err != nil {
		writeEditError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req AddClipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.MediaID == "" {
			WriteError(w, http.StatusBadRequest, "media_id is required", "BAD_REQUEST")
			return
		}

		src, err := cfg.Library.Source(r.Context(), req.MediaID)
		if err != nil {
			writeEditError(w, err)
			return
		}
		index := -1
		if req.Index != nil {
			index = *req.Index
		}
		clip, landed, err := cfg.Session.AddClip(slot, src, index)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, AddClipResponse{Clip: clip, Slot: landed})
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		if err := cfg.Session.RemoveClip(slot, chi.URLParam(r, "clipID")); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req ReorderRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.ReorderClip(slot, req.From, req.To); err != nil {
			writeEditError(w, err)
			return
		}
		writeSlot(w, cfg, slot)
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req MoveClipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		to, err := editor.ParseSlot(req.ToSlot)
		if err != nil {
			writeEditError(w, err)
			return
		}

		index := 0
		if req.Index != nil {
			index = *req.Index
		} else {
			dst, err := cfg.Session.Track(to)
			if err != nil {
				writeEditError(w, err)
				return
			}
			index = len(dst.Clips)
			if from == to && index > 0 {
				index--
			}
		}

		if err := cfg.Session.MoveClip(from, chi.URLParam(r, "clipID"), to, index); err != nil {
			writeEditError(w, err)
			return
		}
		writeSlot(w, cfg, to)
	}
}

func placeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req PlaceClipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		res, err := cfg.Session.PlaceClip(slot, chi.URLParam(r, "clipID"), req.Start)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req TrimRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		edge, err := timeline.ParseEdge(req.Edge)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		res, err := cfg.Session.TrimClip(slot, chi.URLParam(r, "clipID"), edge, req.Time)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func splitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req SplitRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var (
			clip timeline.Clip
			err  error
		)
		if req.Time != nil {
			clip, err = cfg.Session.SplitAt(slot, *req.Time)
		} else {
			clip, err = cfg.Session.SplitAtPlayhead(slot)
		}
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, clip)
	}
}

func viewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var v timeline.View
		if err := decodeJSON(r, &v); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.SetView(slot, v); err != nil {
			writeEditError(w, err)
			return
		}
		writeSlot(w, cfg, slot)
	}
}

func transformHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		tr := timeline.IdentityTransform()
		if err := decodeJSON(r, &tr); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := cfg.Session.SetBaseTransform(slot, chi.URLParam(r, "clipID"), tr)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func setKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var kf timeline.Keyframe
		if err := decodeJSON(r, &kf); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if kf.T < 0 || kf.Value.Empty() {
			WriteError(w, http.StatusBadRequest, "keyframe needs t >= 0 and at least one value", "BAD_REQUEST")
			return
		}
		clip, err := cfg.Session.SetKeyframe(slot, chi.URLParam(r, "clipID"), kf)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func moveKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		index, ok := keyframeIndex(w, r)
		if !ok {
			return
		}
		var req MoveKeyframeRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := cfg.Session.MoveKeyframe(slot, chi.URLParam(r, "clipID"), index, req.T)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func removeKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		index, ok := keyframeIndex(w, r)
		if !ok {
			return
		}
		clip, err := cfg.Session.RemoveKeyframe(slot, chi.URLParam(r, "clipID"), index)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func keyframeIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "keyframe index must be an integer", "BAD_REQUEST")
		return 0, false
	}
	return i, true
}

func activeDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := cfg.Session.ActiveDrag()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}
}

func beginDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editor.DragStart
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Slot == "" {
			req.Slot = editor.SlotSingle
		}
		if err := cfg.Session.BeginDrag(req); err != nil {
			writeEditError(w, err)
			return
		}
		info, _ := cfg.Session.ActiveDrag()
		WriteJSON(w, http.StatusCreated, info)
	}
}

func dragMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragMoveRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		upd, err := cfg.Session.DragMove(req.X)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, upd)
	}
}

func endDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := cfg.Session.EndDrag()
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}
}

func cancelDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.CancelDrag(); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
