package timeline

import (
	"fmt"
	"math"
	"strings"
)

// Edge selects which end of a clip an operation acts on.
type Edge int

const (
	EdgeLeading Edge = iota
	EdgeTrailing
)

func (e Edge) String() string {
	if e == EdgeTrailing {
		return "trailing"
	}
	return "leading"
}

// ParseEdge accepts "leading"/"in" and "trailing"/"out".
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leading", "in", "left":
		return EdgeLeading, nil
	case "trailing", "out", "right":
		return EdgeTrailing, nil
	default:
		return EdgeLeading, fmt.Errorf("unknown edge %q", s)
	}
}

// TrimResult is the outcome of one trim step.
type TrimResult struct {
	Clip Clip `json:"clip"`
	// PreviewTime is the source-media time the preview should show: the new
	// in-point for leading trims, the new out-point for trailing trims.
	PreviewTime float64 `json:"preview_time"`
}

// Trim moves one edge of clip to raw source seconds, quantized to fps.
//
// The leading edge stays within [0, out-1/fps] and shifts SourceOffset by the
// same amount it moves. The trailing edge stays at least one frame after the
// in-point and, once the source duration is known, never past it.
func Trim(clip Clip, edge Edge, raw, fps float64) TrimResult {
	fps = NormalizeFPS(fps)
	minDur := MinDuration(fps)
	out := clip.Clone()
	q := Quantize(raw, fps)

	if edge == EdgeLeading {
		maxIn := out.OutPoint - minDur
		in := math.Min(math.Max(0, q), maxIn)
		if in < 0 {
			in = 0
		}
		out.SourceOffset += in - out.InPoint
		out.InPoint = in
		return TrimResult{Clip: out, PreviewTime: in}
	}

	o := math.Max(q, out.InPoint+minDur)
	if d := out.Source.Duration; d > 0 && !out.Provisional {
		o = math.Max(math.Min(o, d), out.InPoint+minDur)
	}
	out.OutPoint = o
	return TrimResult{Clip: out, PreviewTime: o}
}
