// Package timeline holds the clip/track model of the editor and the pure
// functions derived from it: placement, active-clip resolution, keyframe
// interpolation, snapping, trimming, splitting and track edits.
//
// Nothing in this package keeps hidden state. Every function takes a Track or
// Clip value and returns a new value; callers own the state.
package timeline

import (
	"errors"
	"math"
)

const (
	// DefaultFPS is the frame rate used for quantization when none is configured.
	DefaultFPS = 30.0

	// epsilon absorbs float noise when comparing timeline seconds.
	epsilon = 1e-9
)

var (
	ErrIndexOutOfRange  = errors.New("clip index out of range")
	ErrSplitOutsideClip = errors.New("playhead is not strictly inside a clip")
	ErrKeyframeExists   = errors.New("a keyframe already exists at that time")
)

// MediaKind distinguishes video from audio sources.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// SourceRef points at the uploaded media a clip was cut from. The editor
// treats it as opaque data handed back by the upload service.
type SourceRef struct {
	MediaID  string    `json:"media_id"`
	Filename string    `json:"filename"`
	URL      string    `json:"url,omitempty"`
	Kind     MediaKind `json:"kind"`
	// Duration is the probed length of the source in seconds, 0 when unknown.
	Duration float64 `json:"duration,omitempty"`
}

// Key identifies the loadable media behind a source.
func (s SourceRef) Key() string {
	if s.MediaID != "" {
		return s.MediaID
	}
	return s.Filename
}

// Transform is the pan/zoom/rotation applied to a clip in preview.
type Transform struct {
	PanX     float64 `json:"pan_x"`
	PanY     float64 `json:"pan_y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// IdentityTransform leaves the frame untouched.
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// Clip is one placed, trimmed segment of a media source.
type Clip struct {
	ID       string    `json:"id"`
	Source   SourceRef `json:"source"`
	InPoint  float64   `json:"in_point"`
	OutPoint float64   `json:"out_point"`
	// TimelineStart is the explicit placement; nil means "right after the
	// previous clip on the track".
	TimelineStart *float64 `json:"timeline_start,omitempty"`
	// SourceOffset accumulates the in-point shifts applied by leading-edge trims.
	SourceOffset float64 `json:"source_offset"`
	// Provisional is set while OutPoint is a placeholder waiting for metadata.
	Provisional bool       `json:"provisional,omitempty"`
	Keyframes   []Keyframe `json:"keyframes,omitempty"`
	Base        Transform  `json:"base_transform"`
}

// Duration is OutPoint - InPoint, never negative.
func (c Clip) Duration() float64 {
	return math.Max(0, c.OutPoint-c.InPoint)
}

// Clone returns a copy that shares no memory with c.
func (c Clip) Clone() Clip {
	out := c
	if c.TimelineStart != nil {
		out.TimelineStart = Float(*c.TimelineStart)
	}
	if c.Keyframes != nil {
		out.Keyframes = make([]Keyframe, len(c.Keyframes))
		for i, kf := range c.Keyframes {
			out.Keyframes[i] = kf.Clone()
		}
	}
	return out
}

// Track is an ordered list of clips evaluated as one timeline.
type Track struct {
	Clips []Clip `json:"clips"`
}

// Len returns the number of clips on the track.
func (t Track) Len() int {
	return len(t.Clips)
}

// Clone deep-copies the track.
func (t Track) Clone() Track {
	out := Track{Clips: make([]Clip, len(t.Clips))}
	for i, c := range t.Clips {
		out.Clips[i] = c.Clone()
	}
	return out
}

// IndexOf returns the position of the clip with the given id, or -1.
func (t Track) IndexOf(id string) int {
	for i, c := range t.Clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 {
	return &v
}

// NormalizeFPS falls back to DefaultFPS for unusable rates.
func NormalizeFPS(fps float64) float64 {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return DefaultFPS
	}
	return fps
}

// MinDuration is one frame at fps.
func MinDuration(fps float64) float64 {
	return 1 / NormalizeFPS(fps)
}

// Quantize rounds t to the nearest frame boundary.
func Quantize(t, fps float64) float64 {
	fps = NormalizeFPS(fps)
	return math.Round(t*fps) / fps
}

// View is the preview framing of a split-screen slot.
type View struct {
	Zoom float64 `json:"zoom"`
	PanY float64 `json:"pan_y"`
}

// DefaultView shows the frame unscaled and centred.
func DefaultView() View {
	return View{Zoom: 1}
}
