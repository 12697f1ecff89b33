package playback

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Range is an inclusive byte span of a media file.
type Range struct {
	Start int64
	End   int64
}

func (r Range) ContentLength() int64 {
	return r.End - r.Start + 1
}

func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange resolves a Range header against a file of size bytes. It
// returns nil for an absent header. Multiple specs are merged into the
// smallest span covering all satisfiable ones, since preview elements only
// ever consume one contiguous window.
func ParseRange(header string, size int64) (*Range, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	specs, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}

	var ranges []Range
	for _, spec := range strings.Split(specs, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		r, err := parseSpec(spec, size)
		if errors.Is(err, ErrUnsatisfiable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, ErrUnsatisfiable
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	merged := ranges[0]
	for _, r := range ranges[1:] {
		if r.End > merged.End {
			merged.End = r.End
		}
	}
	return &merged, nil
}

func parseSpec(spec string, size int64) (Range, error) {
	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return Range{}, ErrInvalidRange
	}

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return Range{}, ErrInvalidRange
		}
		if size == 0 {
			return Range{}, ErrUnsatisfiable
		}
		return Range{Start: max(size-n, 0), End: size - 1}, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return Range{}, ErrInvalidRange
	}
	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil {
			return Range{}, ErrInvalidRange
		}
		if end < start {
			return Range{}, ErrInvalidRange
		}
	}
	if start >= size {
		return Range{}, ErrUnsatisfiable
	}
	return Range{Start: start, End: min(end, size-1)}, nil
}
