package editor

import (
	"errors"
	"fmt"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// DragKind is the pointer operation being performed.
type DragKind string

const (
	DragReposition   DragKind = "reposition"
	DragTrimLeading  DragKind = "trim_leading"
	DragTrimTrailing DragKind = "trim_trailing"
	DragKeyframe     DragKind = "keyframe"
	DragPlayhead     DragKind = "playhead"
)

func (k DragKind) valid() bool {
	switch k {
	case DragReposition, DragTrimLeading, DragTrimTrailing, DragKeyframe, DragPlayhead:
		return true
	}
	return false
}

// DragStart describes the pointer press that starts a drag. Anchor is the
// pointer position in timeline seconds.
type DragStart struct {
	Kind     DragKind `json:"kind"`
	Slot     Slot     `json:"slot"`
	ClipID   string   `json:"clip_id,omitempty"`
	Keyframe int      `json:"keyframe,omitempty"`
	Anchor   float64  `json:"anchor"`
}

// DragInfo is the drag in progress as shown to the view.
type DragInfo struct {
	DragStart
	Current float64 `json:"current"`
}

// DragUpdate is the effect of one pointer move.
type DragUpdate struct {
	Kind        DragKind             `json:"kind"`
	Clip        *timeline.Clip       `json:"clip,omitempty"`
	Snap        *timeline.SnapResult `json:"snap,omitempty"`
	PreviewTime *float64             `json:"preview_time,omitempty"`
	Keyframe    int                  `json:"keyframe"`
	Cursor      *float64             `json:"cursor,omitempty"`
}

type dragState struct {
	kind     DragKind
	slot     Slot
	clipID   string
	keyframe int
	anchor   float64
	current  float64

	original  timeline.Track
	pinned    timeline.Track
	clip      timeline.Clip
	clipStart float64
	cursor    float64
}

func (d *dragState) info() DragInfo {
	return DragInfo{
		DragStart: DragStart{Kind: d.kind, Slot: d.slot, ClipID: d.clipID, Keyframe: d.keyframe, Anchor: d.anchor},
		Current:   d.current,
	}
}

// ActiveDrag returns the drag in progress, if any.
func (s *Session) ActiveDrag() (DragInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return DragInfo{}, false
	}
	return s.drag.info(), true
}

// BeginDrag moves the session from idle to dragging. Only one drag may be
// active at a time.
func (s *Session) BeginDrag(req DragStart) error {
	if !req.Kind.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDragKind, req.Kind)
	}
	if !req.Slot.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, req.Slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return ErrDragInProgress
	}

	d := &dragState{
		kind:     req.Kind,
		slot:     req.Slot,
		clipID:   req.ClipID,
		keyframe: req.Keyframe,
		anchor:   req.Anchor,
		current:  req.Anchor,
	}

	if req.Kind == DragPlayhead {
		if p := s.players[req.Slot]; p != nil {
			d.cursor = p.Cursor()
			p.BeginScrub()
			p.Scrub(req.Anchor)
		}
		s.drag = d
		return nil
	}

	track, i, err := s.findLocked(req.Slot, req.ClipID)
	if err != nil {
		return err
	}
	if req.Kind == DragKeyframe && (req.Keyframe < 0 || req.Keyframe >= len(track.Clips[i].Keyframes)) {
		return fmt.Errorf("keyframe %d: %w", req.Keyframe, timeline.ErrIndexOutOfRange)
	}
	d.original = track.Clone()
	d.clip = track.Clips[i].Clone()
	d.clipStart = timeline.ComputeStarts(track)[i]
	if req.Kind == DragReposition {
		d.pinned = timeline.Pin(track)
	}
	s.drag = d
	s.logger.Debug("drag started", "kind", req.Kind, "slot", req.Slot, "clip_id", req.ClipID)
	return nil
}

// DragMove applies a pointer move to x, in timeline seconds.
func (s *Session) DragMove(x float64) (DragUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.drag
	if d == nil {
		return DragUpdate{}, ErrNoDrag
	}
	d.current = x
	upd := DragUpdate{Kind: d.kind}
	p := s.players[d.slot]

	if d.kind == DragPlayhead {
		if p != nil {
			p.Scrub(x)
			c := p.Cursor()
			upd.Cursor = &c
		}
		return upd, nil
	}

	track := s.tracks[d.slot]
	i := track.IndexOf(d.clipID)
	if i < 0 {
		s.drag = nil
		return upd, fmt.Errorf("%w: %s", ErrClipNotFound, d.clipID)
	}

	switch d.kind {
	case DragReposition:
		res := timeline.Snap(d.pinned, i, d.clipStart+x-d.anchor, s.opts.Snap)
		out, err := timeline.Reposition(d.pinned, i, res.Start)
		if err != nil {
			return upd, err
		}
		s.tracks[d.slot] = out
		upd.Snap = &res

	case DragTrimLeading, DragTrimTrailing:
		edge, raw := timeline.EdgeLeading, d.clip.InPoint+x-d.anchor
		if d.kind == DragTrimTrailing {
			edge, raw = timeline.EdgeTrailing, d.clip.OutPoint+x-d.anchor
		}
		res := timeline.Trim(d.clip, edge, raw, s.opts.FPS)
		out, err := timeline.Replace(track, i, res.Clip)
		if err != nil {
			return upd, err
		}
		s.tracks[d.slot] = out
		if p != nil {
			p.Preview(res.Clip.Source, res.PreviewTime)
		}
		upd.PreviewTime = &res.PreviewTime

	case DragKeyframe:
		c, idx, err := timeline.MoveKeyframe(track.Clips[i], d.keyframe, x-d.clipStart)
		if errors.Is(err, timeline.ErrKeyframeExists) {
			// Hold position until the pointer leaves the occupied time.
			upd.Keyframe = d.keyframe
			cur := track.Clips[i].Clone()
			upd.Clip = &cur
			return upd, nil
		}
		if err != nil {
			return upd, err
		}
		out, err := timeline.Replace(track, i, c)
		if err != nil {
			return upd, err
		}
		s.tracks[d.slot] = out
		d.keyframe = idx
		upd.Keyframe = idx
	}

	s.publishLocked(d.slot)
	c := s.tracks[d.slot].Clips[i].Clone()
	upd.Clip = &c
	return upd, nil
}

// EndDrag commits the drag and returns the session to idle.
func (s *Session) EndDrag() (DragInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return DragInfo{}, ErrNoDrag
	}
	info := s.drag.info()
	s.endDragLocked()
	s.logger.Debug("drag ended", "kind", info.Kind, "slot", info.Slot, "at", info.Current)
	return info, nil
}

// CancelDrag abandons the drag and puts back what it changed.
func (s *Session) CancelDrag() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drag
	if d == nil {
		return ErrNoDrag
	}
	if d.kind == DragPlayhead {
		if p := s.players[d.slot]; p != nil {
			p.Scrub(d.cursor)
		}
	} else {
		s.tracks[d.slot] = d.original
		s.publishLocked(d.slot)
	}
	s.endDragLocked()
	return nil
}

func (s *Session) endDragLocked() {
	d := s.drag
	if d == nil {
		return
	}
	if d.kind == DragPlayhead {
		if p := s.players[d.slot]; p != nil {
			p.EndScrub()
		}
	}
	s.drag = nil
}
