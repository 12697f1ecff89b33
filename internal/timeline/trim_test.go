package timeline

import "testing"

func TestTrim_Leading(t *testing.T) {
	c := clip("a", 2, 8)
	res := Trim(c, EdgeLeading, 3.01, 30)

	if !almostEqual(res.Clip.InPoint, 3) {
		t.Errorf("InPoint = %v, want 3 (quantized)", res.Clip.InPoint)
	}
	if !almostEqual(res.Clip.SourceOffset, 1) {
		t.Errorf("SourceOffset = %v, want 1", res.Clip.SourceOffset)
	}
	if !almostEqual(res.PreviewTime, 3) {
		t.Errorf("PreviewTime = %v, want new in-point 3", res.PreviewTime)
	}
	if c.InPoint != 2 {
		t.Error("input clip was mutated")
	}
}

func TestTrim_LeadingClamps(t *testing.T) {
	c := clip("a", 2, 8)

	if res := Trim(c, EdgeLeading, -5, 30); res.Clip.InPoint != 0 {
		t.Errorf("InPoint = %v, want 0", res.Clip.InPoint)
	}
	res := Trim(c, EdgeLeading, 20, 30)
	if !almostEqual(res.Clip.InPoint, 8-1.0/30) {
		t.Errorf("InPoint = %v, want one frame before out", res.Clip.InPoint)
	}
}

func TestTrim_Trailing(t *testing.T) {
	c := clip("a", 2, 8)
	c.Source.Duration = 10

	res := Trim(c, EdgeTrailing, 9.49, 10)
	if !almostEqual(res.Clip.OutPoint, 9.5) || !almostEqual(res.PreviewTime, 9.5) {
		t.Errorf("got out %v preview %v, want 9.5", res.Clip.OutPoint, res.PreviewTime)
	}

	if res := Trim(c, EdgeTrailing, 30, 30); !almostEqual(res.Clip.OutPoint, 10) {
		t.Errorf("OutPoint = %v, want capped at media duration 10", res.Clip.OutPoint)
	}
	if res := Trim(c, EdgeTrailing, 0, 30); !almostEqual(res.Clip.OutPoint, 2+1.0/30) {
		t.Errorf("OutPoint = %v, want one frame after in", res.Clip.OutPoint)
	}
}

func TestTrim_ProvisionalIgnoresDurationCap(t *testing.T) {
	c := clip("a", 0, 10)
	c.Provisional = true

	res := Trim(c, EdgeTrailing, 14, 30)
	if !almostEqual(res.Clip.OutPoint, 14) {
		t.Errorf("OutPoint = %v, want 14", res.Clip.OutPoint)
	}
}

func TestTrim_MinimumDurationHolds(t *testing.T) {
	for _, fps := range []float64{24, 25, 30, 60, 0} {
		c := clip("a", 1, 1.5)
		for raw := -2.0; raw < 4; raw += 0.013 {
			for _, edge := range []Edge{EdgeLeading, EdgeTrailing} {
				got := Trim(c, edge, raw, fps).Clip
				if got.OutPoint-got.InPoint < MinDuration(fps)-1e-9 {
					t.Fatalf("fps %v edge %v raw %v: duration %v below one frame",
						fps, edge, raw, got.OutPoint-got.InPoint)
				}
			}
		}
	}
}

func TestParseEdge(t *testing.T) {
	if e, err := ParseEdge("trailing"); err != nil || e != EdgeTrailing {
		t.Errorf("ParseEdge(trailing) = %v, %v", e, err)
	}
	if e, err := ParseEdge("IN"); err != nil || e != EdgeLeading {
		t.Errorf("ParseEdge(IN) = %v, %v", e, err)
	}
	if _, err := ParseEdge("middle"); err == nil {
		t.Error("expected error for unknown edge")
	}
}
