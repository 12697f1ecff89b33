package timeline

import "math"

const (
	// DefaultPixelsPerSecond is the timeline zoom used when none is given.
	DefaultPixelsPerSecond = 20.0
	// DefaultSnapThresholdPx is how close, in pixels, an edge must come to a
	// target before it snaps.
	DefaultSnapThresholdPx = 8.0
)

// SnapKind says what a snap target is.
type SnapKind string

const (
	SnapOrigin   SnapKind = "origin"
	SnapClipEdge SnapKind = "clip_edge"
	SnapRuler    SnapKind = "ruler"
)

// priority orders snap targets; lower wins.
func (k SnapKind) priority() int {
	switch k {
	case SnapOrigin:
		return 0
	case SnapClipEdge:
		return 1
	default:
		return 2
	}
}

// SnapTarget is a candidate time an edge can align to.
type SnapTarget struct {
	Time float64  `json:"time"`
	Kind SnapKind `json:"kind"`
}

// SnapOptions tunes the snap engine. Zero values take the defaults.
type SnapOptions struct {
	PixelsPerSecond float64
	ThresholdPx     float64
}

func (o SnapOptions) normalized() SnapOptions {
	if o.PixelsPerSecond <= 0 {
		o.PixelsPerSecond = DefaultPixelsPerSecond
	}
	if o.ThresholdPx <= 0 {
		o.ThresholdPx = DefaultSnapThresholdPx
	}
	return o
}

// SnapResult is the proposed start for a dragged clip.
type SnapResult struct {
	Start   float64    `json:"start"`
	Snapped bool       `json:"snapped"`
	Target  SnapTarget `json:"target"`
	Edge    Edge       `json:"edge"`
}

// RulerStep is the spacing, in seconds, of ruler ticks at a zoom level.
func RulerStep(pixelsPerSecond float64) float64 {
	switch {
	case pixelsPerSecond >= 60:
		return 1
	case pixelsPerSecond >= 25:
		return 2
	default:
		return 5
	}
}

type hypothesis struct {
	start  float64
	target SnapTarget
	edge   Edge
}

// Snap proposes a start for clip index when it is dragged to rawStart.
//
// Both the leading and the trailing edge are tested against the origin, the
// edges of every other clip and the ruler ticks. Hypotheses that would put
// the clip before 0 or over another clip are discarded. Among the rest the
// lowest-priority target wins, then the one closest to rawStart, so a target
// the raw position already sits on only wins among targets of its own
// priority. Without a target the raw position is used if it is free,
// otherwise the nearest free position.
//
// Placement of the other clips is computed from track as given. Callers
// pass a pinned track (see Pin) so moving the dragged clip never shifts
// its neighbours.
func Snap(track Track, index int, rawStart float64, opts SnapOptions) SnapResult {
	if index < 0 || index >= len(track.Clips) {
		return SnapResult{Start: math.Max(0, rawStart)}
	}
	opts = opts.normalized()
	starts := ComputeStarts(track)
	dur := track.Clips[index].Duration()

	targets := snapTargets(track, starts, index, rawStart, dur, opts)
	var best *hypothesis
	bestDist := math.Inf(1)
	for _, tg := range targets {
		for _, edge := range [...]Edge{EdgeLeading, EdgeTrailing} {
			edgeTime := rawStart
			start := tg.Time
			if edge == EdgeTrailing {
				edgeTime = rawStart + dur
				start = tg.Time - dur
			}
			if math.Abs(edgeTime-tg.Time)*opts.PixelsPerSecond > opts.ThresholdPx+epsilon {
				continue
			}
			if start < -epsilon || overlapsOthers(track, starts, index, start, dur) {
				continue
			}
			start = math.Max(0, start)
			dist := math.Abs(start - rawStart)
			if dist <= epsilon {
				start, dist = rawStart, 0
			}
			h := hypothesis{start: start, target: tg, edge: edge}
			if best == nil ||
				tg.Kind.priority() < best.target.Kind.priority() ||
				(tg.Kind.priority() == best.target.Kind.priority() && dist < bestDist) {
				hc := h
				best, bestDist = &hc, dist
			}
		}
	}
	if best != nil {
		return SnapResult{Start: best.start, Snapped: true, Target: best.target, Edge: best.edge}
	}

	start := math.Max(0, rawStart)
	if !overlapsOthers(track, starts, index, start, dur) {
		return SnapResult{Start: start}
	}
	return SnapResult{Start: nearestFree(track, starts, index, start, dur)}
}

func snapTargets(track Track, starts []float64, index int, raw, dur float64, opts SnapOptions) []SnapTarget {
	targets := []SnapTarget{{Time: 0, Kind: SnapOrigin}}
	for j, c := range track.Clips {
		if j == index {
			continue
		}
		targets = append(targets,
			SnapTarget{Time: starts[j], Kind: SnapClipEdge},
			SnapTarget{Time: starts[j] + c.Duration(), Kind: SnapClipEdge},
		)
	}

	step := RulerStep(opts.PixelsPerSecond)
	reach := opts.ThresholdPx / opts.PixelsPerSecond
	lo := math.Max(0, raw-reach)
	hi := raw + dur + reach
	for k := math.Ceil(lo / step); k*step <= hi; k++ {
		if k <= 0 {
			continue
		}
		targets = append(targets, SnapTarget{Time: k * step, Kind: SnapRuler})
	}
	return targets
}

// overlapsOthers reports whether [start, start+dur) intersects any other
// clip's interval. Touching edges do not count.
func overlapsOthers(track Track, starts []float64, index int, start, dur float64) bool {
	end := start + dur
	for j, c := range track.Clips {
		if j == index {
			continue
		}
		d := c.Duration()
		if d <= 0 {
			continue
		}
		s := starts[j]
		if start < s+d-epsilon && s < end-epsilon {
			return true
		}
	}
	return false
}

func nearestFree(track Track, starts []float64, index int, start, dur float64) float64 {
	candidates := []float64{0}
	for j, c := range track.Clips {
		if j == index {
			continue
		}
		candidates = append(candidates, starts[j]+c.Duration(), starts[j]-dur)
	}
	best := math.Inf(1)
	bestDist := math.Inf(1)
	for _, c := range candidates {
		if c < -epsilon || overlapsOthers(track, starts, index, c, dur) {
			continue
		}
		c = math.Max(0, c)
		if d := math.Abs(c - start); d < bestDist {
			best, bestDist = c, d
		}
	}
	if math.IsInf(best, 1) {
		// The end of the last clip is always free.
		return totalFromStarts(track, starts)
	}
	return best
}
