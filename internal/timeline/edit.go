package timeline

import (
	"fmt"
	"math"
)

func checkIndex(track Track, i int) error {
	if i < 0 || i >= len(track.Clips) {
		return fmt.Errorf("index %d of %d: %w", i, len(track.Clips), ErrIndexOutOfRange)
	}
	return nil
}

// Insert places clip at index i. An out-of-range index appends.
func Insert(track Track, i int, clip Clip) Track {
	out := track.Clone()
	if i < 0 || i > len(out.Clips) {
		i = len(out.Clips)
	}
	out.Clips = append(out.Clips, Clip{})
	copy(out.Clips[i+1:], out.Clips[i:])
	out.Clips[i] = clip.Clone()
	return out
}

// Remove deletes clip i.
func Remove(track Track, i int) (Track, error) {
	if err := checkIndex(track, i); err != nil {
		return track, err
	}
	out := track.Clone()
	out.Clips = append(out.Clips[:i], out.Clips[i+1:]...)
	return out, nil
}

// Reorder moves clip from to position to. to is clamped to the track.
func Reorder(track Track, from, to int) (Track, error) {
	if err := checkIndex(track, from); err != nil {
		return track, err
	}
	out := track.Clone()
	c := out.Clips[from]
	out.Clips = append(out.Clips[:from], out.Clips[from+1:]...)
	if to < 0 {
		to = 0
	}
	if to > len(out.Clips) {
		to = len(out.Clips)
	}
	out.Clips = append(out.Clips, Clip{})
	copy(out.Clips[to+1:], out.Clips[to:])
	out.Clips[to] = c
	return out, nil
}

// Transfer moves clip i of src into dst at index at. The moved clip drops
// its explicit placement and follows its new predecessor.
func Transfer(src, dst Track, i, at int) (Track, Track, error) {
	if err := checkIndex(src, i); err != nil {
		return src, dst, err
	}
	c := src.Clips[i].Clone()
	c.TimelineStart = nil
	newSrc, _ := Remove(src, i)
	return newSrc, Insert(dst, at, c), nil
}

// Pin fixes every clip at its resolved start, so later edits to one clip no
// longer shift the clips after it.
func Pin(track Track) Track {
	starts := ComputeStarts(track)
	out := track.Clone()
	for i := range out.Clips {
		out.Clips[i].TimelineStart = Float(starts[i])
	}
	return out
}

// Reposition pins the track and moves clip i to start.
func Reposition(track Track, i int, start float64) (Track, error) {
	if err := checkIndex(track, i); err != nil {
		return track, err
	}
	out := Pin(track)
	out.Clips[i].TimelineStart = Float(math.Max(0, start))
	return out, nil
}

// Replace swaps clip i for c.
func Replace(track Track, i int, c Clip) (Track, error) {
	if err := checkIndex(track, i); err != nil {
		return track, err
	}
	out := track.Clone()
	out.Clips[i] = c.Clone()
	return out, nil
}

// ApplyDuration records a probed source duration on every clip cut from
// mediaID. Provisional clips take the real length as their out-point; other
// clips are clamped into it. It returns the number of clips changed.
func ApplyDuration(track Track, mediaID string, duration, fps float64) (Track, int) {
	if duration <= 0 {
		return track, 0
	}
	minDur := MinDuration(fps)
	out := track.Clone()
	changed := 0
	for i := range out.Clips {
		c := &out.Clips[i]
		if c.Source.Key() != mediaID {
			continue
		}
		before := *c
		c.Source.Duration = duration
		if c.Provisional {
			c.OutPoint = duration
			c.Provisional = false
		}
		if c.OutPoint > duration {
			c.OutPoint = duration
		}
		if c.InPoint > c.OutPoint-minDur {
			c.InPoint = math.Max(0, c.OutPoint-minDur)
		}
		if c.Source != before.Source || c.OutPoint != before.OutPoint ||
			c.InPoint != before.InPoint || c.Provisional != before.Provisional {
			changed++
		}
	}
	return out, changed
}
