package timeline

import "math"

// SplitAt cuts the clip under timeline time t in two. The second half gets
// newID and is inserted right after the first; the returned index points at
// it so callers can select it.
//
// The cut lands on a frame boundary and must leave at least one frame on each
// side, otherwise ErrSplitOutsideClip is returned.
func SplitAt(track Track, t, fps float64, newID string) (Track, int, error) {
	fps = NormalizeFPS(fps)
	minDur := MinDuration(fps)
	starts := ComputeStarts(track)
	act, ok := ActiveClipAt(track, starts, t)
	if !ok {
		return track, -1, ErrSplitOutsideClip
	}
	dur := act.Clip.Duration()
	offset := t - act.Start
	if offset < minDur-epsilon || dur-offset < minDur-epsilon {
		return track, -1, ErrSplitOutsideClip
	}
	offset = math.Min(math.Max(Quantize(offset, fps), minDur), dur-minDur)

	first, second := splitClip(act.Clip, offset, newID)

	out := track.Clone()
	i := act.Index
	out.Clips[i] = first
	out.Clips = append(out.Clips, Clip{})
	copy(out.Clips[i+2:], out.Clips[i+1:])
	out.Clips[i+1] = second
	return out, i + 1, nil
}

func splitClip(c Clip, offset float64, newID string) (Clip, Clip) {
	first := c.Clone()
	second := c.Clone()
	cut := c.InPoint + offset

	first.OutPoint = cut
	first.Provisional = false

	second.ID = newID
	second.InPoint = cut
	second.SourceOffset = c.SourceOffset + offset
	if c.TimelineStart != nil {
		second.TimelineStart = Float(math.Max(0, *c.TimelineStart) + offset)
	}

	first.Keyframes, second.Keyframes = splitKeyframes(c, offset)
	return first, second
}

// splitKeyframes divides the keyframes at offset. Each side gets a boundary
// key carrying the interpolated transform so the animation is continuous
// across the cut.
func splitKeyframes(c Clip, offset float64) ([]Keyframe, []Keyframe) {
	if len(c.Keyframes) == 0 {
		return nil, nil
	}
	boundary := PatchFrom(TransformAt(c, offset))

	var left, right []Keyframe
	for _, kf := range c.Keyframes {
		switch {
		case kf.T < offset-epsilon:
			left = append(left, kf.Clone())
		case kf.T > offset+epsilon:
			k := kf.Clone()
			k.T -= offset
			right = append(right, k)
		}
	}
	left = append(left, Keyframe{T: offset, Value: boundary.clone()})
	right = append([]Keyframe{{T: 0, Value: boundary}}, right...)
	return left, right
}
