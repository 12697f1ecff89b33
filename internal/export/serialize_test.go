package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func clip(name string, in, out float64) timeline.Clip {
	return timeline.Clip{
		ID:       name,
		Source:   timeline.SourceRef{MediaID: name, Filename: name, Kind: timeline.KindVideo},
		InPoint:  in,
		OutPoint: out,
		Base:     timeline.IdentityTransform(),
	}
}

func TestFromTrack_SequentialPayload(t *testing.T) {
	track := timeline.Track{Clips: []timeline.Clip{clip("v1.mp4", 0, 5), clip("v2.mp4", 1, 10)}}

	out := FromTrack(track)
	if len(out) != 2 {
		t.Fatalf("got %d descriptors, want 2", len(out))
	}
	if out[0].Filename != "v1.mp4" || out[0].Start != 0 || out[0].End != 5 || out[0].TimelineStart != 0 {
		t.Errorf("first descriptor = %+v", out[0])
	}
	if out[1].Filename != "v2.mp4" || out[1].Start != 1 || out[1].End != 10 || out[1].TimelineStart != 5 {
		t.Errorf("second descriptor = %+v", out[1])
	}
}

func TestFromTrack_SortsByTimelineStart(t *testing.T) {
	late := clip("late.mp4", 0, 2)
	late.TimelineStart = timeline.Float(10)
	early := clip("early.mp4", 0, 3)
	early.TimelineStart = timeline.Float(0)
	tie := clip("tie.mp4", 0, 1)
	tie.TimelineStart = timeline.Float(10)

	out := FromTrack(timeline.Track{Clips: []timeline.Clip{late, early, tie}})

	got := []string{out[0].Filename, out[1].Filename, out[2].Filename}
	want := []string{"early.mp4", "late.mp4", "tie.mp4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if out[0].TimelineStart != 0 || out[1].TimelineStart != 10 {
		t.Errorf("timeline starts = %v, %v", out[0].TimelineStart, out[1].TimelineStart)
	}
}

func TestFromTrack_SamplesTransformAtClipStart(t *testing.T) {
	c := clip("a.mp4", 0, 4)
	c.Keyframes = []timeline.Keyframe{
		{T: 0, Value: timeline.TransformPatch{Scale: timeline.Float(2), PanX: timeline.Float(-10)}},
		{T: 4, Value: timeline.TransformPatch{Scale: timeline.Float(4)}},
	}

	out := FromTrack(timeline.Track{Clips: []timeline.Clip{c}})
	if out[0].Scale != 2 || out[0].PositionX != -10 || out[0].Rotation != 0 {
		t.Errorf("descriptor transform = %+v", out[0])
	}
}

func TestSplitRequest(t *testing.T) {
	music := clip("song.mp3", 0, 30)
	music.Source.Kind = timeline.KindAudio

	req := SplitRequest(SplitLayout{
		Top:     timeline.Track{Clips: []timeline.Clip{clip("top.mp4", 0, 3)}},
		Bottom:  timeline.Track{},
		Audio:   timeline.Track{Clips: []timeline.Clip{music}},
		TopView: timeline.View{Zoom: 1.5, PanY: -20},
	})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	for _, want := range []string{`"top_zoom":1.5`, `"top_pan_y":-20`, `"bottom_zoom":1`, `"bottom_clips":[]`, `"filename":"song.mp3"`} {
		if !strings.Contains(body, want) {
			t.Errorf("split request missing %s: %s", want, body)
		}
	}
}
