// Package library keeps the media available to the editor and the saved
// projects, and probes new media for its duration in the background.
package library

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var ErrNotFound = errors.New("not found")

const (
	OriginUploaded  = "uploaded"
	OriginGenerated = "generated"
	OriginRendered  = "rendered"

	ProbePending = "pending"
	ProbeProbing = "probing"
	ProbeReady   = "ready"
	ProbeFailed  = "failed"
)

// MediaItem is one entry of the media library.
type MediaItem struct {
	ID           string             `json:"id"`
	Filename     string             `json:"filename"`
	DisplayName  string             `json:"display_name"`
	Kind         timeline.MediaKind `json:"kind"`
	Origin       string             `json:"origin"`
	Path         string             `json:"-"`
	URL          string             `json:"url,omitempty"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	Size         int64              `json:"size"`
	Duration     float64            `json:"duration"`
	ProbeStatus  string             `json:"probe_status"`
	ProbeError   string             `json:"probe_error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Source is the reference a clip cut from this item carries.
func (m *MediaItem) Source() timeline.SourceRef {
	return timeline.SourceRef{
		MediaID:  m.ID,
		Filename: m.Filename,
		URL:      m.URL,
		Kind:     m.Kind,
		Duration: m.Duration,
	}
}

// ProbeTarget is what ffprobe should open: the local copy when there is one.
func (m *MediaItem) ProbeTarget() string {
	if m.Path != "" {
		return m.Path
	}
	return m.URL
}

// Project is a saved editing session.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var mediaExtensions = map[string]timeline.MediaKind{
	".mp4":  timeline.KindVideo,
	".mov":  timeline.KindVideo,
	".mkv":  timeline.KindVideo,
	".webm": timeline.KindVideo,
	".mp3":  timeline.KindAudio,
	".wav":  timeline.KindAudio,
	".m4a":  timeline.KindAudio,
	".aac":  timeline.KindAudio,
}

// KindOf classifies a file by extension. ok is false for non-media files.
func KindOf(filename string) (timeline.MediaKind, bool) {
	kind, ok := mediaExtensions[strings.ToLower(filepath.Ext(filename))]
	return kind, ok
}

func NewID() string {
	return uuid.NewString()
}
