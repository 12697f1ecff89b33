package api

import (
	"time"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	SplitScreen bool                  `json:"split_screen"`
	MediaCount  int                   `json:"media_count"`
	ProbePaused bool                  `json:"probe_paused"`
	Playback    map[string]SlotStatus `json:"playback"`
	Drag        *editor.DragInfo      `json:"drag,omitempty"`
}

type SlotStatus struct {
	playback.Status
	Clips int `json:"clips"`
}

type MediaResponse struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	DisplayName  string  `json:"display_name"`
	Kind         string  `json:"kind"`
	Origin       string  `json:"origin"`
	URL          string  `json:"url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Size         int64   `json:"size"`
	Duration     float64 `json:"duration"`
	ProbeStatus  string  `json:"probe_status"`
	ProbeError   string  `json:"probe_error,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type MediaListResponse struct {
	Media []MediaResponse `json:"media"`
}

type AutoGenerateResponse struct {
	Status  string          `json:"status"`
	Outputs []string        `json:"outputs"`
	Message string          `json:"message,omitempty"`
	Added   []MediaResponse `json:"added"`
}

type AddClipRequest struct {
	MediaID string `json:"media_id"`
	Index   *int   `json:"index,omitempty"`
}

type AddClipResponse struct {
	Clip timeline.Clip `json:"clip"`
	Slot editor.Slot   `json:"slot"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type MoveClipRequest struct {
	ToSlot string `json:"to_slot"`
	Index  *int   `json:"index,omitempty"`
}

type PlaceClipRequest struct {
	Start float64 `json:"start"`
}

type TrimRequest struct {
	Edge string  `json:"edge"`
	Time float64 `json:"time"`
}

type SplitRequest struct {
	// Time defaults to the slot's playback cursor.
	Time *float64 `json:"time,omitempty"`
}

type MoveKeyframeRequest struct {
	T float64 `json:"t"`
}

type SplitScreenRequest struct {
	Enabled bool `json:"enabled"`
}

type DragMoveRequest struct {
	X float64 `json:"x"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type TokenRequest struct {
	Token  uint64 `json:"token"`
	Reason string `json:"reason,omitempty"`
}

type TokenResponse struct {
	Accepted bool `json:"accepted"`
}

type CommandsResponse struct {
	Commands []playback.Command `json:"commands"`
	Events   []playback.Event   `json:"events"`
}

type RenderResponse struct {
	Status string               `json:"status"`
	Mode   string               `json:"mode"`
	Media  MediaResponse        `json:"media"`
	Result *render.RenderResult `json:"result"`
}

type SaveProjectRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaToResponse(m *library.MediaItem) MediaResponse {
	return MediaResponse{
		ID:           m.ID,
		Filename:     m.Filename,
		DisplayName:  m.DisplayName,
		Kind:         string(m.Kind),
		Origin:       m.Origin,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Size:         m.Size,
		Duration:     m.Duration,
		ProbeStatus:  m.ProbeStatus,
		ProbeError:   m.ProbeError,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

func ProjectToResponse(p *library.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}
