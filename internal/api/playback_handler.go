package api

import (
	"net/http"

	"github.com/heimdex/heimdex-editor/internal/playback"
)

func channelParam(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*playback.Channel, bool) {
	slot, ok := slotParam(w, r)
	if !ok {
		return nil, false
	}
	ch, ok := cfg.Channels[slot]
	if !ok {
		WriteError(w, http.StatusNotFound, "no player for slot "+string(slot), "NOT_FOUND")
		return nil, false
	}
	return ch, true
}

func playbackStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelParam(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ch.Status())
	}
}

// transportHandler runs a cursor-only command such as play or stop.
func transportHandler(cfg ServerConfig, fn func(*playback.Channel)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelParam(w, r, cfg)
		if !ok {
			return
		}
		fn(ch)
		WriteJSON(w, http.StatusOK, ch.Status())
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelParam(w, r, cfg)
		if !ok {
			return
		}
		var req SeekRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		ch.Seek(req.Time)
		WriteJSON(w, http.StatusOK, ch.Status())
	}
}

// commandsHandler hands the preview everything queued since its last poll.
func commandsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelParam(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, CommandsResponse{
			Commands: ch.Commands.Drain(),
			Events:   ch.Events(),
		})
	}
}

func mediaReadyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelParam(w, r, cfg)
		if !ok {
			return
		}
		var req TokenRequest
		if err := decodeJSON(r, &req); err != nil || req.Token == 0 {
			WriteError(w, http.StatusBadRequest, "token is required", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, TokenResponse{Accepted: ch.MediaReady(req.Token)})
	}
}

func mediaFailedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := channelParam(w, r, cfg)
		if !ok {
			return
		}
		var req TokenRequest
		if err := decodeJSON(r, &req); err != nil || req.Token == 0 {
			WriteError(w, http.StatusBadRequest, "token is required", "BAD_REQUEST")
			return
		}
		reason := req.Reason
		if reason == "" {
			reason = "media failed to load"
		}
		WriteJSON(w, http.StatusOK, TokenResponse{Accepted: ch.MediaFailed(req.Token, reason)})
	}
}
