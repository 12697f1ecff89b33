// Package playback drives preview media from the timeline cursor.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// DefaultTickInterval is how often the cursor advances while playing.
const DefaultTickInterval = 50 * time.Millisecond

// State is the scheduler's play state.
type State int

const (
	StateStopped State = iota
	StatePaused
	StatePlaying
	StateScrubbing
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateScrubbing:
		return "scrubbing"
	default:
		return "stopped"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stopped":
		*s = StateStopped
	case "paused":
		*s = StatePaused
	case "playing":
		*s = StatePlaying
	case "scrubbing":
		*s = StateScrubbing
	default:
		return fmt.Errorf("unknown playback state %q", text)
	}
	return nil
}

// Media is the preview element the scheduler controls. Load is asynchronous:
// the element reports completion through Scheduler.MediaReady or
// Scheduler.MediaFailed with the same token. Implementations must not call
// back into the scheduler from inside these methods.
type Media interface {
	Load(token uint64, src timeline.SourceRef)
	Seek(mediaTime float64)
	Play()
	Pause()
	Blank()
}

// EventType classifies scheduler notifications.
type EventType string

const (
	EventClipChanged EventType = "clip_changed"
	EventGap         EventType = "gap"
	EventEnded       EventType = "ended"
	EventMediaError  EventType = "media_error"
)

// Event is a non-fatal notification for the UI.
type Event struct {
	Type   EventType `json:"type"`
	ClipID string    `json:"clip_id,omitempty"`
	Cursor float64   `json:"cursor"`
	Error  string    `json:"error,omitempty"`
}

// Config tunes a Scheduler. Zero values take defaults.
type Config struct {
	TickInterval time.Duration
	Logger       *slog.Logger
	// OnEvent is called with the scheduler lock held; it must not call back
	// into the scheduler.
	OnEvent func(Event)
	Now     func() time.Time
}

// Status is a snapshot of the scheduler.
type Status struct {
	State        State   `json:"state"`
	Cursor       float64 `json:"cursor"`
	Total        float64 `json:"total_duration"`
	ActiveClipID string  `json:"active_clip_id,omitempty"`
	MediaTime    float64 `json:"media_time"`
	Blank        bool    `json:"blank"`
	Loading      bool    `json:"loading"`
}

// Scheduler owns the playback cursor of one track and keeps a Media element
// in step with it.
type Scheduler struct {
	media   Media
	logger  *slog.Logger
	onEvent func(Event)
	now     func() time.Time
	tick    time.Duration

	mu     sync.Mutex
	track  timeline.Track
	starts []float64
	total  float64

	state  State
	resume State
	cursor float64

	activeID     string
	loadedKey    string
	pendingToken uint64
	pendingKey   string
	pendingSeek  *float64
	failedKey    string
	tokenSeq     uint64
	blank        bool

	cancelTick context.CancelFunc
}

// NewScheduler creates a stopped scheduler over an empty track.
func NewScheduler(media Media, cfg Config) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		media:   media,
		logger:  cfg.Logger,
		onEvent: cfg.OnEvent,
		now:     cfg.Now,
		tick:    cfg.TickInterval,
		blank:   true,
	}
}

// SetTrack replaces the track being played. The cursor is clamped into the
// new duration and the preview is brought in line with it.
func (s *Scheduler) SetTrack(track timeline.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.track = track.Clone()
	p := timeline.Resolve(s.track)
	s.starts, s.total = p.Starts, p.Total
	s.cursor = s.clamp(s.cursor)
	s.evaluateLocked(false)
}

// Play starts advancing the cursor. Playing from the end restarts at 0.
func (s *Scheduler) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePlaying:
		return
	case StateScrubbing:
		s.resume = StatePlaying
		return
	}
	if s.total <= 0 {
		return
	}
	if s.cursor >= s.total {
		s.cursor = 0
	}
	s.state = StatePlaying
	s.logger.Debug("playback started", "cursor", s.cursor)
	s.evaluateLocked(true)
	s.startTickerLocked()
}

// Pause freezes the cursor.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePlaying:
		s.state = StatePaused
		s.stopTickerLocked()
		s.media.Pause()
	case StateScrubbing:
		if s.resume == StatePlaying {
			s.resume = StatePaused
		}
	}
}

// Toggle switches between playing and paused.
func (s *Scheduler) Toggle() {
	s.mu.Lock()
	playing := s.state == StatePlaying
	s.mu.Unlock()
	if playing {
		s.Pause()
	} else {
		s.Play()
	}
}

// Stop halts playback and rewinds to 0.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTickerLocked()
	s.state = StateStopped
	s.resume = StateStopped
	s.cursor = 0
	s.media.Pause()
	s.evaluateLocked(true)
}

// Seek moves the cursor without changing the play state.
func (s *Scheduler) Seek(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = s.clamp(t)
	s.evaluateLocked(true)
}

// BeginScrub suspends playback while the playhead is dragged.
func (s *Scheduler) BeginScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateScrubbing {
		return
	}
	s.resume = s.state
	if s.state == StatePlaying {
		s.stopTickerLocked()
		s.media.Pause()
	}
	s.state = StateScrubbing
}

// Scrub moves the cursor during a playhead drag.
func (s *Scheduler) Scrub(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = s.clamp(t)
	s.evaluateLocked(true)
}

// EndScrub restores the state active before BeginScrub.
func (s *Scheduler) EndScrub() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateScrubbing {
		return
	}
	s.state = s.resume
	if s.state == StatePlaying {
		if s.cursor >= s.total {
			s.state = StateStopped
			return
		}
		s.evaluateLocked(true)
		s.startTickerLocked()
	}
}

// Preview shows mediaTime of src without moving the cursor. Trims use it to
// display the frame at the edge being dragged.
func (s *Scheduler) Preview(src timeline.SourceRef, mediaTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StatePlaying {
		return
	}
	key := src.Key()
	if key == s.loadedKey && s.pendingToken == 0 {
		s.blank = false
		s.media.Seek(mediaTime)
		return
	}
	if key != s.pendingKey {
		s.loadLocked(src)
	}
	s.pendingSeek = timeline.Float(mediaTime)
}

// MediaReady reports that the load identified by token finished. Stale
// tokens are ignored. It returns whether the token was current.
func (s *Scheduler) MediaReady(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == 0 || token != s.pendingToken {
		s.logger.Debug("discarding stale media load", "token", token, "pending", s.pendingToken)
		return false
	}
	s.loadedKey = s.pendingKey
	s.pendingToken, s.pendingKey = 0, ""

	if s.pendingSeek != nil {
		s.blank = false
		s.media.Seek(*s.pendingSeek)
		s.pendingSeek = nil
		return true
	}

	act, ok := timeline.ActiveClipAt(s.track, s.starts, s.cursor)
	if !ok {
		// Still in a gap: stay blank until the cursor reaches a clip.
		s.evaluateLocked(false)
		return true
	}
	if act.Clip.Source.Key() != s.loadedKey {
		s.evaluateLocked(true)
		return true
	}
	s.blank = false
	s.media.Seek(act.MediaTime)
	if s.state == StatePlaying {
		s.media.Play()
	}
	return true
}

// MediaFailed reports that the load identified by token could not complete.
// The preview goes blank and the cursor keeps its state; choosing a different
// clip retries.
func (s *Scheduler) MediaFailed(token uint64, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == 0 || token != s.pendingToken {
		return false
	}
	s.logger.Warn("media load failed", "source", s.pendingKey, "error", reason)
	s.failedKey = s.pendingKey
	s.pendingToken, s.pendingKey = 0, ""
	s.pendingSeek = nil
	s.loadedKey = ""
	s.blank = true
	s.media.Pause()
	s.media.Blank()
	s.emit(Event{Type: EventMediaError, ClipID: s.activeID, Error: reason})
	return true
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:        s.state,
		Cursor:       s.cursor,
		Total:        s.total,
		ActiveClipID: s.activeID,
		Blank:        s.blank,
		Loading:      s.pendingToken != 0,
	}
	if act, ok := timeline.ActiveClipAt(s.track, s.starts, s.cursor); ok {
		st.MediaTime = act.MediaTime
	}
	return st
}

// Cursor returns the current timeline time.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// State returns the current play state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the ticker.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickerLocked()
}

func (s *Scheduler) clamp(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return math.Min(math.Max(0, t), s.total)
}

func (s *Scheduler) emit(ev Event) {
	ev.Cursor = s.cursor
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// evaluateLocked brings the media element in line with the clip under the
// cursor. force seeks even when the active clip did not change.
func (s *Scheduler) evaluateLocked(force bool) {
	act, ok := timeline.ActiveClipAt(s.track, s.starts, s.cursor)
	if !ok {
		s.failedKey = ""
		if s.activeID != "" || !s.blank {
			s.activeID = ""
			s.blank = true
			s.media.Pause()
			s.media.Blank()
			s.emit(Event{Type: EventGap})
		}
		return
	}

	changed := act.Clip.ID != s.activeID
	if changed {
		s.activeID = act.Clip.ID
		s.failedKey = ""
		s.emit(Event{Type: EventClipChanged, ClipID: act.Clip.ID})
	}

	key := act.Clip.Source.Key()
	if key == s.failedKey {
		return
	}
	if key != s.loadedKey {
		if key == s.pendingKey {
			s.pendingSeek = nil
			return
		}
		s.loadLocked(act.Clip.Source)
		return
	}

	// The active source is loaded, so any other pending load is stale.
	s.pendingToken, s.pendingKey, s.pendingSeek = 0, "", nil
	if changed || force || s.blank {
		s.blank = false
		s.media.Seek(act.MediaTime)
		if s.state == StatePlaying {
			s.media.Play()
		}
	}
}

func (s *Scheduler) loadLocked(src timeline.SourceRef) {
	s.tokenSeq++
	s.pendingToken = s.tokenSeq
	s.pendingKey = src.Key()
	s.pendingSeek = nil
	s.loadedKey = ""
	s.media.Pause()
	s.media.Load(s.pendingToken, src)
}

func (s *Scheduler) advanceLocked(dt float64) {
	// A failed load holds the cursor until the user moves it.
	if s.state != StatePlaying || s.failedKey != "" {
		return
	}
	s.cursor += dt
	if s.cursor >= s.total {
		s.cursor = s.total
		s.state = StateStopped
		s.stopTickerLocked()
		s.media.Pause()
		s.evaluateLocked(false)
		s.emit(Event{Type: EventEnded})
		return
	}
	s.evaluateLocked(false)
}

func (s *Scheduler) startTickerLocked() {
	if s.cancelTick != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelTick = cancel
	go s.run(ctx)
}

func (s *Scheduler) stopTickerLocked() {
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	last := s.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.now()
			elapsed := now.Sub(last).Seconds()
			last = now

			s.mu.Lock()
			if ctx.Err() == nil {
				s.advanceLocked(elapsed)
			}
			s.mu.Unlock()
		}
	}
}
