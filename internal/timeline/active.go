package timeline

// Active describes the clip occupying a timeline instant.
type Active struct {
	Index     int     `json:"index"`
	Clip      Clip    `json:"clip"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	MediaTime float64 `json:"media_time"`
}

// ActiveClipAt returns the first clip, in array order, whose [start, end)
// interval contains t. ok is false in gaps and past the last clip, which is
// the signal to render a blank frame.
//
// starts must come from ComputeStarts(track); a mismatched slice is recomputed.
func ActiveClipAt(track Track, starts []float64, t float64) (Active, bool) {
	if len(starts) != len(track.Clips) {
		starts = ComputeStarts(track)
	}
	for i, c := range track.Clips {
		start := starts[i]
		end := start + c.Duration()
		if t >= start && t < end {
			return Active{
				Index:     i,
				Clip:      c,
				Start:     start,
				End:       end,
				MediaTime: c.InPoint + (t - start),
			}, true
		}
	}
	return Active{}, false
}
