package editor

import (
	"errors"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func TestDrag_OnlyOneAtATime(t *testing.T) {
	s, _ := newTestSession(t)
	c, _, _ := s.AddClip(SlotSingle, video("m1", 4), -1)

	if _, err := s.DragMove(1); !errors.Is(err, ErrNoDrag) {
		t.Errorf("DragMove() without drag error = %v", err)
	}
	if err := s.BeginDrag(DragStart{Kind: DragReposition, Slot: SlotSingle, ClipID: c.ID}); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if err := s.BeginDrag(DragStart{Kind: DragPlayhead, Slot: SlotSingle}); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("second BeginDrag() error = %v", err)
	}
	if _, _, err := s.AddClip(SlotSingle, video("m2", 1), -1); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("edit during drag error = %v", err)
	}
	if _, err := s.EndDrag(); err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if _, ok := s.ActiveDrag(); ok {
		t.Error("drag still active after EndDrag()")
	}
	if err := s.CancelDrag(); !errors.Is(err, ErrNoDrag) {
		t.Errorf("CancelDrag() when idle error = %v", err)
	}
}

func TestDrag_RepositionSnapsAndAvoidsOverlap(t *testing.T) {
	s, _ := newTestSession(t)
	a, _, _ := s.AddClip(SlotSingle, video("m1", 4), -1)
	b, _, _ := s.AddClip(SlotSingle, video("m2", 2), -1)

	// Grab b at its middle (5) and move it so its start lands near a's end.
	if err := s.BeginDrag(DragStart{Kind: DragReposition, Slot: SlotSingle, ClipID: b.ID, Anchor: 5}); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	for x := 0.0; x <= 14; x += 0.05 {
		upd, err := s.DragMove(x)
		if err != nil {
			t.Fatalf("DragMove(%v) error = %v", x, err)
		}
		if upd.Snap.Start < 0 {
			t.Fatalf("DragMove(%v) start %v < 0", x, upd.Snap.Start)
		}
		st, _ := s.Slot(SlotSingle)
		if st.Starts[1] < st.Starts[0]+a.OutPoint-1e-9 && st.Starts[1]+2 > st.Starts[0]+1e-9 {
			t.Fatalf("DragMove(%v) overlaps: starts %v", x, st.Starts)
		}
	}

	upd, _ := s.DragMove(5.1)
	if !upd.Snap.Snapped || upd.Snap.Start != 4 {
		t.Errorf("expected snap to a's end, got %+v", upd.Snap)
	}
	s.EndDrag()

	st, _ := s.Slot(SlotSingle)
	if st.Starts[0] != 0 || st.Starts[1] != 4 {
		t.Errorf("starts after drag = %v", st.Starts)
	}
}

func TestDrag_TrimCancelRestores(t *testing.T) {
	s, p := newTestSession(t)
	c, _, _ := s.AddClip(SlotSingle, video("m1", 6), -1)

	s.BeginDrag(DragStart{Kind: DragTrimTrailing, Slot: SlotSingle, ClipID: c.ID, Anchor: 6})
	upd, err := s.DragMove(4)
	if err != nil {
		t.Fatalf("DragMove() error = %v", err)
	}
	if upd.Clip.OutPoint != 4 || *upd.PreviewTime != 4 {
		t.Errorf("trailing trim = %+v", upd.Clip)
	}
	upd, _ = s.DragMove(-20)
	if d := upd.Clip.Duration(); d < 1.0/30-1e-9 {
		t.Errorf("trim collapsed clip to %v", d)
	}
	upd, _ = s.DragMove(50)
	if upd.Clip.OutPoint != 6 {
		t.Errorf("trim past media end: out = %v", upd.Clip.OutPoint)
	}
	if len(p.previews) != 3 {
		t.Errorf("previews = %v", p.previews)
	}

	if err := s.CancelDrag(); err != nil {
		t.Fatalf("CancelDrag() error = %v", err)
	}
	st, _ := s.Slot(SlotSingle)
	if st.Track.Clips[0].OutPoint != 6 || p.track.Clips[0].OutPoint != 6 {
		t.Errorf("cancel did not restore: %+v", st.Track.Clips[0])
	}
}

func TestDrag_LeadingTrimComposes(t *testing.T) {
	s, _ := newTestSession(t)
	c, _, _ := s.AddClip(SlotSingle, video("m1", 6), -1)

	s.BeginDrag(DragStart{Kind: DragTrimLeading, Slot: SlotSingle, ClipID: c.ID, Anchor: 0})
	s.DragMove(1)
	s.DragMove(2)
	s.EndDrag()

	s.BeginDrag(DragStart{Kind: DragTrimLeading, Slot: SlotSingle, ClipID: c.ID, Anchor: 0})
	upd, _ := s.DragMove(-0.5)
	s.EndDrag()

	if !almostEqual(upd.Clip.InPoint, 1.5) || !almostEqual(upd.Clip.SourceOffset, 1.5) {
		t.Errorf("clip after two trims = %+v", upd.Clip)
	}
}

func TestDrag_Keyframe(t *testing.T) {
	s, _ := newTestSession(t)
	c, _, _ := s.AddClip(SlotSingle, video("m1", 4), -1)
	s.SetKeyframe(SlotSingle, c.ID, timeline.Keyframe{T: 1, Value: timeline.TransformPatch{Scale: timeline.Float(2)}})
	s.SetKeyframe(SlotSingle, c.ID, timeline.Keyframe{T: 3, Value: timeline.TransformPatch{Scale: timeline.Float(4)}})

	if err := s.BeginDrag(DragStart{Kind: DragKeyframe, Slot: SlotSingle, ClipID: c.ID, Keyframe: 5}); !errors.Is(err, timeline.ErrIndexOutOfRange) {
		t.Errorf("BeginDrag() bad keyframe error = %v", err)
	}

	s.BeginDrag(DragStart{Kind: DragKeyframe, Slot: SlotSingle, ClipID: c.ID, Keyframe: 0, Anchor: 1})
	upd, _ := s.DragMove(3.5)
	if upd.Keyframe != 1 || upd.Clip.Keyframes[1].T != 3.5 {
		t.Errorf("keyframe not moved past its neighbour: %+v", upd)
	}
	upd, _ = s.DragMove(3)
	if upd.Clip.Keyframes[1].T != 3.5 {
		t.Errorf("keyframe moved onto an occupied time: %+v", upd.Clip.Keyframes)
	}
	upd, _ = s.DragMove(9)
	if upd.Clip.Keyframes[1].T != 4 {
		t.Errorf("keyframe not clamped to clip: %+v", upd.Clip.Keyframes)
	}
	s.EndDrag()
}

func TestDrag_Playhead(t *testing.T) {
	s, p := newTestSession(t)
	s.AddClip(SlotSingle, video("m1", 4), -1)
	p.Seek(1)

	s.BeginDrag(DragStart{Kind: DragPlayhead, Slot: SlotSingle, Anchor: 2})
	if !p.scrubbing || p.Cursor() != 2 {
		t.Fatalf("scrub not started: scrubbing=%v cursor=%v", p.scrubbing, p.Cursor())
	}
	upd, _ := s.DragMove(3)
	if upd.Cursor == nil || *upd.Cursor != 3 {
		t.Errorf("cursor update = %v", upd.Cursor)
	}
	s.CancelDrag()
	if p.scrubbing || p.Cursor() != 1 {
		t.Errorf("cancel: scrubbing=%v cursor=%v", p.scrubbing, p.Cursor())
	}
}
