package timeline

import (
	"fmt"
	"math"
	"sort"
)

// Property names one animatable transform channel.
type Property int

const (
	PropPanX Property = iota
	PropPanY
	PropScale
	PropRotation
)

var allProperties = [...]Property{PropPanX, PropPanY, PropScale, PropRotation}

func (p Property) String() string {
	switch p {
	case PropPanX:
		return "pan_x"
	case PropPanY:
		return "pan_y"
	case PropScale:
		return "scale"
	case PropRotation:
		return "rotation"
	default:
		return fmt.Sprintf("property(%d)", int(p))
	}
}

// TransformPatch is a partial transform. A nil field is undefined at that key.
type TransformPatch struct {
	PanX     *float64 `json:"pan_x,omitempty"`
	PanY     *float64 `json:"pan_y,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

func (p TransformPatch) get(prop Property) (float64, bool) {
	var v *float64
	switch prop {
	case PropPanX:
		v = p.PanX
	case PropPanY:
		v = p.PanY
	case PropScale:
		v = p.Scale
	case PropRotation:
		v = p.Rotation
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Empty reports whether no property is defined.
func (p TransformPatch) Empty() bool {
	return p.PanX == nil && p.PanY == nil && p.Scale == nil && p.Rotation == nil
}

func (p TransformPatch) clone() TransformPatch {
	var out TransformPatch
	if p.PanX != nil {
		out.PanX = Float(*p.PanX)
	}
	if p.PanY != nil {
		out.PanY = Float(*p.PanY)
	}
	if p.Scale != nil {
		out.Scale = Float(*p.Scale)
	}
	if p.Rotation != nil {
		out.Rotation = Float(*p.Rotation)
	}
	return out
}

// PatchFrom returns a patch defining every property of t.
func PatchFrom(t Transform) TransformPatch {
	return TransformPatch{
		PanX:     Float(t.PanX),
		PanY:     Float(t.PanY),
		Scale:    Float(t.Scale),
		Rotation: Float(t.Rotation),
	}
}

func (t *Transform) set(prop Property, v float64) {
	switch prop {
	case PropPanX:
		t.PanX = v
	case PropPanY:
		t.PanY = v
	case PropScale:
		t.Scale = v
	case PropRotation:
		t.Rotation = v
	}
}

// Keyframe pins some transform properties at T seconds from the clip start.
type Keyframe struct {
	T     float64        `json:"t"`
	Value TransformPatch `json:"value"`
}

// Clone deep-copies the keyframe.
func (k Keyframe) Clone() Keyframe {
	return Keyframe{T: k.T, Value: k.Value.clone()}
}

// TransformAt evaluates the clip transform at clip-relative time t.
//
// Without keyframes the base transform applies. Otherwise each property is
// interpolated independently over the keyframes that define it: before the
// first defined point the first value holds, after the last the last value
// holds, and in between values are blended linearly. A property no keyframe
// defines keeps its base value.
func TransformAt(clip Clip, t float64) Transform {
	out := clip.Base
	if len(clip.Keyframes) == 0 {
		return out
	}
	for _, prop := range allProperties {
		if v, ok := interpolate(clip.Keyframes, prop, t); ok {
			out.set(prop, v)
		}
	}
	return out
}

func interpolate(keys []Keyframe, prop Property, t float64) (float64, bool) {
	var (
		havePrev bool
		prevT    float64
		prevV    float64
	)
	for _, kf := range keys {
		v, ok := kf.Value.get(prop)
		if !ok {
			continue
		}
		if !havePrev {
			if t <= kf.T {
				return v, true
			}
			havePrev, prevT, prevV = true, kf.T, v
			continue
		}
		if t <= kf.T {
			if kf.T == prevT {
				return prevV, true
			}
			u := (t - prevT) / (kf.T - prevT)
			return prevV + (v-prevV)*u, true
		}
		prevT, prevV = kf.T, v
	}
	return prevV, havePrev
}

// SortKeyframes orders keyframes by ascending T, keeping insertion order for ties.
func SortKeyframes(keys []Keyframe) {
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].T < keys[j].T })
}

func clampKeyTime(clip Clip, t float64) float64 {
	return math.Min(math.Max(0, t), clip.Duration())
}

func findKeyframe(keys []Keyframe, t float64) int {
	for i, kf := range keys {
		if math.Abs(kf.T-t) <= epsilon {
			return i
		}
	}
	return -1
}

// SetKeyframe inserts kf into the clip, replacing any keyframe at the same
// time. T is clamped to the clip duration. The returned clip keeps its
// keyframes sorted.
func SetKeyframe(clip Clip, kf Keyframe) Clip {
	out := clip.Clone()
	kf = kf.Clone()
	kf.T = clampKeyTime(out, kf.T)
	if i := findKeyframe(out.Keyframes, kf.T); i >= 0 {
		out.Keyframes[i] = kf
	} else {
		out.Keyframes = append(out.Keyframes, kf)
	}
	SortKeyframes(out.Keyframes)
	return out
}

// MoveKeyframe retimes keyframe i and returns its new position in the sorted list.
func MoveKeyframe(clip Clip, i int, t float64) (Clip, int, error) {
	if i < 0 || i >= len(clip.Keyframes) {
		return clip, i, fmt.Errorf("keyframe %d: %w", i, ErrIndexOutOfRange)
	}
	t = clampKeyTime(clip, t)
	if j := findKeyframe(clip.Keyframes, t); j >= 0 && j != i {
		return clip, i, ErrKeyframeExists
	}

	out := clip.Clone()
	moved := out.Keyframes[i]
	moved.T = t
	out.Keyframes = append(out.Keyframes[:i], out.Keyframes[i+1:]...)
	idx := sort.Search(len(out.Keyframes), func(k int) bool { return out.Keyframes[k].T > t })
	out.Keyframes = append(out.Keyframes, Keyframe{})
	copy(out.Keyframes[idx+1:], out.Keyframes[idx:])
	out.Keyframes[idx] = moved
	return out, idx, nil
}

// RemoveKeyframe deletes keyframe i.
func RemoveKeyframe(clip Clip, i int) (Clip, error) {
	if i < 0 || i >= len(clip.Keyframes) {
		return clip, fmt.Errorf("keyframe %d: %w", i, ErrIndexOutOfRange)
	}
	out := clip.Clone()
	out.Keyframes = append(out.Keyframes[:i], out.Keyframes[i+1:]...)
	if len(out.Keyframes) == 0 {
		out.Keyframes = nil
	}
	return out, nil
}
