package export

import (
	"sort"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// FromTrack serializes a track into render order: ascending timeline start,
// with clips that share a start kept in array order. The transform is
// sampled at the start of each clip; keyframe animation is not exported.
func FromTrack(track timeline.Track) []ClipDescriptor {
	starts := timeline.ComputeStarts(track)
	order := make([]int, len(track.Clips))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return starts[order[a]] < starts[order[b]] })

	out := make([]ClipDescriptor, 0, len(track.Clips))
	for _, i := range order {
		c := track.Clips[i]
		tr := timeline.TransformAt(c, 0)
		out = append(out, ClipDescriptor{
			Filename:      c.Source.Filename,
			Start:         c.InPoint,
			End:           c.OutPoint,
			InPoint:       c.InPoint,
			OutPoint:      c.OutPoint,
			TimelineStart: starts[i],
			PositionX:     tr.PanX,
			PositionY:     tr.PanY,
			Scale:         tr.Scale,
			Rotation:      tr.Rotation,
			Kind:          c.Source.Kind,
		})
	}
	return out
}

// SingleRequest builds the render request for one-track mode.
func SingleRequest(track timeline.Track) RenderRequest {
	return RenderRequest{Clips: FromTrack(track)}
}

// SplitLayout is the arrangement rendered in split-screen mode.
type SplitLayout struct {
	Top        timeline.Track
	Bottom     timeline.Track
	Audio      timeline.Track
	TopView    timeline.View
	BottomView timeline.View
}

// SplitRequest builds the render request for split-screen mode.
func SplitRequest(l SplitLayout) SplitRenderRequest {
	return SplitRenderRequest{
		TopClips:    FromTrack(l.Top),
		BottomClips: FromTrack(l.Bottom),
		AudioClips:  FromTrack(l.Audio),
		TopZoom:     zoomOrDefault(l.TopView.Zoom),
		TopPanY:     l.TopView.PanY,
		BottomZoom:  zoomOrDefault(l.BottomView.Zoom),
		BottomPanY:  l.BottomView.PanY,
	}
}

func zoomOrDefault(z float64) float64 {
	if z <= 0 {
		return 1
	}
	return z
}
