package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// DefaultProvisionalDuration is the out-point given to a clip whose source
// has not been probed yet.
const DefaultProvisionalDuration = 10.0

// Player previews one slot. *playback.Scheduler implements it.
type Player interface {
	SetTrack(track timeline.Track)
	Cursor() float64
	Seek(t float64)
	BeginScrub()
	Scrub(t float64)
	EndScrub()
	Preview(src timeline.SourceRef, mediaTime float64)
}

type Options struct {
	FPS                 float64
	Snap                timeline.SnapOptions
	ProvisionalDuration float64
	NewID               func() string
	Logger              *slog.Logger
}

// Session is the single owner of the clip/track model.
type Session struct {
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	tracks      map[Slot]timeline.Track
	views       map[Slot]timeline.View
	splitScreen bool
	players     map[Slot]Player
	drag        *dragState
}

func NewSession(opts Options) *Session {
	opts.FPS = timeline.NormalizeFPS(opts.FPS)
	if opts.ProvisionalDuration <= 0 {
		opts.ProvisionalDuration = DefaultProvisionalDuration
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		opts:    opts,
		logger:  logging.WithComponent(opts.Logger, "editor"),
		tracks:  make(map[Slot]timeline.Track, len(Slots)),
		views:   make(map[Slot]timeline.View, len(Slots)),
		players: make(map[Slot]Player, len(Slots)),
	}
	for _, slot := range Slots {
		s.tracks[slot] = timeline.Track{}
		s.views[slot] = timeline.DefaultView()
	}
	return s
}

// Attach connects the player previewing slot and hands it the current track.
func (s *Session) Attach(slot Slot, p Player) error {
	if !slot.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[slot] = p
	p.SetTrack(s.tracks[slot])
	return nil
}

func (s *Session) FPS() float64 {
	return s.opts.FPS
}

// SlotState is the derived view of one slot.
type SlotState struct {
	Slot   Slot           `json:"slot"`
	Track  timeline.Track `json:"track"`
	Starts []float64      `json:"starts"`
	Total  float64        `json:"total"`
	View   timeline.View  `json:"view"`
}

// Slot returns the track of slot with its placement resolved.
func (s *Session) Slot(slot Slot) (SlotState, error) {
	if !slot.valid() {
		return SlotState{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotStateLocked(slot), nil
}

func (s *Session) slotStateLocked(slot Slot) SlotState {
	track := s.tracks[slot].Clone()
	p := timeline.Resolve(track)
	if track.Clips == nil {
		track.Clips = []timeline.Clip{}
	}
	return SlotState{Slot: slot, Track: track, Starts: p.Starts, Total: p.Total, View: s.views[slot]}
}

// Snapshot is the state of every slot.
type Snapshot struct {
	SplitScreen bool        `json:"split_screen"`
	Slots       []SlotState `json:"slots"`
	Drag        *DragInfo   `json:"drag,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{SplitScreen: s.splitScreen}
	for _, slot := range Slots {
		snap.Slots = append(snap.Slots, s.slotStateLocked(slot))
	}
	if s.drag != nil {
		info := s.drag.info()
		snap.Drag = &info
	}
	return snap
}

// publishLocked pushes the track of slot to its player.
func (s *Session) publishLocked(slot Slot) {
	if p := s.players[slot]; p != nil {
		p.SetTrack(s.tracks[slot])
	}
}

func (s *Session) findLocked(slot Slot, clipID string) (timeline.Track, int, error) {
	if !slot.valid() {
		return timeline.Track{}, -1, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	track := s.tracks[slot]
	i := track.IndexOf(clipID)
	if i < 0 {
		return track, -1, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}
	return track, i, nil
}

// AddClip cuts a new clip from src and inserts it at index, or appends it
// when index is out of range. Audio sources always land on the audio slot.
// Until the source is probed the clip runs for the provisional duration.
func (s *Session) AddClip(slot Slot, src timeline.SourceRef, index int) (timeline.Clip, Slot, error) {
	if src.Kind == timeline.KindAudio {
		slot = SlotAudio
	}
	if !slot.valid() {
		return timeline.Clip{}, slot, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	c := timeline.Clip{
		ID:       s.opts.NewID(),
		Source:   src,
		InPoint:  0,
		OutPoint: src.Duration,
		Base:     timeline.IdentityTransform(),
	}
	if c.OutPoint <= 0 {
		c.OutPoint = s.opts.ProvisionalDuration
		c.Provisional = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return timeline.Clip{}, slot, ErrDragInProgress
	}
	s.tracks[slot] = timeline.Insert(s.tracks[slot], index, c)
	s.publishLocked(slot)
	logging.WithSlot(s.logger, string(slot)).Info("clip added",
		"clip_id", c.ID, "media_id", src.MediaID, "provisional", c.Provisional)
	return c, slot, nil
}

func (s *Session) RemoveClip(slot Slot, clipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return ErrDragInProgress
	}
	track, i, err := s.findLocked(slot, clipID)
	if err != nil {
		return err
	}
	if s.tracks[slot], err = timeline.Remove(track, i); err != nil {
		return err
	}
	s.publishLocked(slot)
	return nil
}

// ReorderClip moves clip from position from to position to on one track.
func (s *Session) ReorderClip(slot Slot, from, to int) error {
	if !slot.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return ErrDragInProgress
	}
	out, err := timeline.Reorder(s.tracks[slot], from, to)
	if err != nil {
		return err
	}
	s.tracks[slot] = out
	s.publishLocked(slot)
	return nil
}

// MoveClip transfers a clip to another slot, inserting it at index there.
func (s *Session) MoveClip(from Slot, clipID string, to Slot, index int) error {
	if !to.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return ErrDragInProgress
	}
	track, i, err := s.findLocked(from, clipID)
	if err != nil {
		return err
	}
	if from == to {
		out, err := timeline.Reorder(track, i, index)
		if err != nil {
			return err
		}
		s.tracks[from] = out
		s.publishLocked(from)
		return nil
	}
	src, dst, err := timeline.Transfer(track, s.tracks[to], i, index)
	if err != nil {
		return err
	}
	s.tracks[from], s.tracks[to] = src, dst
	s.publishLocked(from)
	s.publishLocked(to)
	return nil
}

// PlaceClip snaps clip to rawStart and pins it there.
func (s *Session) PlaceClip(slot Slot, clipID string, rawStart float64) (timeline.SnapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return timeline.SnapResult{}, ErrDragInProgress
	}
	track, i, err := s.findLocked(slot, clipID)
	if err != nil {
		return timeline.SnapResult{}, err
	}
	pinned := timeline.Pin(track)
	res := timeline.Snap(pinned, i, rawStart, s.opts.Snap)
	if s.tracks[slot], err = timeline.Reposition(pinned, i, res.Start); err != nil {
		return res, err
	}
	s.publishLocked(slot)
	return res, nil
}

// TrimClip moves one edge of a clip to raw source seconds.
func (s *Session) TrimClip(slot Slot, clipID string, edge timeline.Edge, raw float64) (timeline.TrimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return timeline.TrimResult{}, ErrDragInProgress
	}
	track, i, err := s.findLocked(slot, clipID)
	if err != nil {
		return timeline.TrimResult{}, err
	}
	res := timeline.Trim(track.Clips[i], edge, raw, s.opts.FPS)
	if s.tracks[slot], err = timeline.Replace(track, i, res.Clip); err != nil {
		return res, err
	}
	s.publishLocked(slot)
	if p := s.players[slot]; p != nil {
		p.Preview(res.Clip.Source, res.PreviewTime)
	}
	return res, nil
}

// SplitAtPlayhead cuts the clip under the slot's playback cursor and returns
// the second half, which the view selects.
func (s *Session) SplitAtPlayhead(slot Slot) (timeline.Clip, error) {
	if !slot.valid() {
		return timeline.Clip{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return timeline.Clip{}, ErrDragInProgress
	}
	cursor := 0.0
	if p := s.players[slot]; p != nil {
		cursor = p.Cursor()
	}
	return s.splitLocked(slot, cursor)
}

// SplitAt cuts the clip under timeline time t.
func (s *Session) SplitAt(slot Slot, t float64) (timeline.Clip, error) {
	if !slot.valid() {
		return timeline.Clip{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return timeline.Clip{}, ErrDragInProgress
	}
	return s.splitLocked(slot, t)
}

func (s *Session) splitLocked(slot Slot, t float64) (timeline.Clip, error) {
	out, sel, err := timeline.SplitAt(s.tracks[slot], t, s.opts.FPS, s.opts.NewID())
	if err != nil {
		return timeline.Clip{}, fmt.Errorf("split at %.3f: %w", t, err)
	}
	s.tracks[slot] = out
	s.publishLocked(slot)
	second := out.Clips[sel].Clone()
	logging.WithSlot(s.logger, string(slot)).Debug("clip split", "at", t, "clip_id", second.ID)
	return second, nil
}

// SetKeyframe adds or replaces the keyframe at kf.T on a clip.
func (s *Session) SetKeyframe(slot Slot, clipID string, kf timeline.Keyframe) (timeline.Clip, error) {
	return s.updateClip(slot, clipID, func(c timeline.Clip) (timeline.Clip, error) {
		return timeline.SetKeyframe(c, kf), nil
	})
}

func (s *Session) MoveKeyframe(slot Slot, clipID string, index int, t float64) (timeline.Clip, error) {
	return s.updateClip(slot, clipID, func(c timeline.Clip) (timeline.Clip, error) {
		out, _, err := timeline.MoveKeyframe(c, index, t)
		return out, err
	})
}

func (s *Session) RemoveKeyframe(slot Slot, clipID string, index int) (timeline.Clip, error) {
	return s.updateClip(slot, clipID, func(c timeline.Clip) (timeline.Clip, error) {
		return timeline.RemoveKeyframe(c, index)
	})
}

// SetBaseTransform changes the transform used where no keyframe applies.
func (s *Session) SetBaseTransform(slot Slot, clipID string, tr timeline.Transform) (timeline.Clip, error) {
	return s.updateClip(slot, clipID, func(c timeline.Clip) (timeline.Clip, error) {
		c.Base = tr
		return c, nil
	})
}

func (s *Session) updateClip(slot Slot, clipID string, fn func(timeline.Clip) (timeline.Clip, error)) (timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return timeline.Clip{}, ErrDragInProgress
	}
	track, i, err := s.findLocked(slot, clipID)
	if err != nil {
		return timeline.Clip{}, err
	}
	c, err := fn(track.Clips[i].Clone())
	if err != nil {
		return timeline.Clip{}, err
	}
	if s.tracks[slot], err = timeline.Replace(track, i, c); err != nil {
		return timeline.Clip{}, err
	}
	s.publishLocked(slot)
	return c, nil
}

// ApplyMetadata records the probed duration of a media item on every clip
// cut from it and returns how many clips changed. A drag in progress on the
// affected slot continues from the corrected clips.
func (s *Session) ApplyMetadata(mediaID string, duration float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, slot := range Slots {
		out, n := timeline.ApplyDuration(s.tracks[slot], mediaID, duration, s.opts.FPS)
		if n == 0 {
			continue
		}
		s.tracks[slot] = out
		if d := s.drag; d != nil && d.slot == slot {
			d.original, _ = timeline.ApplyDuration(d.original, mediaID, duration, s.opts.FPS)
			d.pinned, _ = timeline.ApplyDuration(d.pinned, mediaID, duration, s.opts.FPS)
			one, _ := timeline.ApplyDuration(timeline.Track{Clips: []timeline.Clip{d.clip}}, mediaID, duration, s.opts.FPS)
			d.clip = one.Clips[0]
		}
		s.publishLocked(slot)
		total += n
	}
	if total > 0 {
		logging.WithMediaID(s.logger, mediaID).Info("clip durations corrected", "duration", duration, "clips", total)
	}
	return total
}

// SetView changes the preview framing of a slot.
func (s *Session) SetView(slot Slot, v timeline.View) error {
	if !slot.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[slot] = v
	return nil
}

func (s *Session) SetSplitScreen(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splitScreen = on
}

func (s *Session) SplitScreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.splitScreen
}

// Track returns a copy of the track of slot.
func (s *Session) Track(slot Slot) (timeline.Track, error) {
	if !slot.valid() {
		return timeline.Track{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks[slot].Clone(), nil
}

// Layout returns the split-screen arrangement for rendering.
func (s *Session) Layout() export.SplitLayout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.SplitLayout{
		Top:        s.tracks[SlotTop].Clone(),
		Bottom:     s.tracks[SlotBottom].Clone(),
		Audio:      s.tracks[SlotAudio].Clone(),
		TopView:    s.views[SlotTop],
		BottomView: s.views[SlotBottom],
	}
}

// State is the persisted form of a session.
type State struct {
	SplitScreen bool                    `json:"split_screen"`
	Tracks      map[Slot]timeline.Track `json:"tracks"`
	Views       map[Slot]timeline.View  `json:"views"`
}

// MarshalState encodes the committed tracks and views. A drag in progress
// is saved as its starting point.
func (s *Session) MarshalState() ([]byte, error) {
	s.mu.Lock()
	st := State{
		SplitScreen: s.splitScreen,
		Tracks:      make(map[Slot]timeline.Track, len(Slots)),
		Views:       make(map[Slot]timeline.View, len(Slots)),
	}
	for _, slot := range Slots {
		track := s.tracks[slot]
		if s.drag != nil && s.drag.slot == slot {
			track = s.drag.original
		}
		st.Tracks[slot] = track.Clone()
		st.Views[slot] = s.views[slot]
	}
	s.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Restore replaces the session with a saved state. Unknown slots and clips
// without a positive duration are dropped, and any drag is abandoned.
func (s *Session) Restore(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endDragLocked()
	s.splitScreen = st.SplitScreen
	for _, slot := range Slots {
		saved := st.Tracks[slot]
		track := timeline.Track{Clips: make([]timeline.Clip, 0, len(saved.Clips))}
		for _, c := range saved.Clips {
			// Clips that break 0 <= in < out are dropped.
			if !(c.InPoint >= 0) || !(c.OutPoint > c.InPoint) || math.IsInf(c.OutPoint, 0) {
				s.logger.Warn("dropping invalid clip from saved session",
					"slot", slot, "clip_id", c.ID, "in_point", c.InPoint, "out_point", c.OutPoint)
				continue
			}
			c = c.Clone()
			if c.ID == "" {
				c.ID = s.opts.NewID()
			}
			timeline.SortKeyframes(c.Keyframes)
			track.Clips = append(track.Clips, c)
		}
		s.tracks[slot] = track
		v, ok := st.Views[slot]
		if !ok || v.Zoom <= 0 {
			v = timeline.DefaultView()
		}
		s.views[slot] = v
		s.publishLocked(slot)
	}
	s.logger.Info("session restored", "split_screen", st.SplitScreen)
	return nil
}
