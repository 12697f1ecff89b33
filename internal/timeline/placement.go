package timeline

import "math"

// ComputeStarts resolves the timeline start of every clip, in array order.
// A clip with an explicit TimelineStart sits there (floored at 0); any other
// clip follows the end of the clip before it. Gaps and overlaps are passed
// through untouched.
func ComputeStarts(track Track) []float64 {
	starts := make([]float64, len(track.Clips))
	cursor := 0.0
	for i, c := range track.Clips {
		start := cursor
		if c.TimelineStart != nil {
			start = math.Max(0, *c.TimelineStart)
		}
		starts[i] = start
		cursor = start + c.Duration()
	}
	return starts
}

// TotalDuration is the latest clip end on the track, 0 when empty.
func TotalDuration(track Track) float64 {
	return totalFromStarts(track, ComputeStarts(track))
}

func totalFromStarts(track Track, starts []float64) float64 {
	total := 0.0
	for i, c := range track.Clips {
		total = math.Max(total, starts[i]+c.Duration())
	}
	return total
}

// Placement is the resolved view of a track that callers usually want together.
type Placement struct {
	Starts []float64 `json:"starts"`
	Total  float64   `json:"total_duration"`
}

// Resolve computes starts and total duration in one pass over the track.
func Resolve(track Track) Placement {
	starts := ComputeStarts(track)
	return Placement{Starts: starts, Total: totalFromStarts(track, starts)}
}
