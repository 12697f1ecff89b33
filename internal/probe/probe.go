// Package probe reads media metadata with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrNoDuration = errors.New("media has no duration")

// Result is the metadata the editor needs from a media file.
type Result struct {
	Duration   float64 `json:"duration"`
	FormatName string  `json:"format_name"`
	Size       int64   `json:"size"`
	HasVideo   bool    `json:"has_video"`
	HasAudio   bool    `json:"has_audio"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
}

type Prober interface {
	Probe(ctx context.Context, path string) (*Result, error)
}

// FFProbe shells out to ffprobe through ffmpeg-go.
type FFProbe struct {
	logger *slog.Logger
}

func NewFFProbe(logger *slog.Logger) *FFProbe {
	return &FFProbe{logger: logger}
}

// Probe runs ffprobe on path, which may be a local file or a URL. ffprobe
// itself cannot be interrupted; when ctx ends first the result is dropped.
func (p *FFProbe) Probe(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := ffmpeg.Probe(path)
		done <- outcome{out, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("ffprobe %s: %w", path, o.err)
		}
		res, err := Parse([]byte(o.out))
		if err != nil {
			return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
		}
		if p.logger != nil {
			p.logger.Debug("probed media", "path", path, "duration", res.Duration, "format", res.FormatName)
		}
		return res, nil
	}
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// Parse decodes ffprobe's JSON (-show_format -show_streams). The container
// duration is preferred; the longest stream duration is the fallback.
func Parse(data []byte) (*Result, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	res := &Result{FormatName: out.Format.FormatName}
	res.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	res.Size, _ = strconv.ParseInt(out.Format.Size, 10, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if res.HasVideo {
				continue
			}
			res.HasVideo = true
			res.Width, res.Height = s.Width, s.Height
			res.VideoCodec = s.CodecName
			res.FrameRate = parseRate(s.AvgFrameRate)
		case "audio":
			if res.HasAudio {
				continue
			}
			res.HasAudio = true
			res.AudioCodec = s.CodecName
		}
		if res.Duration <= 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > res.Duration {
				res.Duration = d
			}
		}
	}

	if res.Duration <= 0 {
		return res, ErrNoDuration
	}
	return res, nil
}

// parseRate turns "30000/1001" or "25" into frames per second.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Thumbnailer grabs a still frame from a video.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, path, outPath string, offset float64) error
}

// Thumbnail writes the frame at offset seconds of path to outPath as a JPEG
// scaled to 320 pixels wide.
func (p *FFProbe) Thumbnail(ctx context.Context, path, outPath string, offset float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		offset = 0
	}

	done := make(chan error, 1)
	go func() {
		done <- ffmpeg.Input(path, ffmpeg.KwArgs{"ss": strconv.FormatFloat(offset, 'f', 3, 64)}).
			Output(outPath, ffmpeg.KwArgs{"vframes": 1, "vf": "scale=320:-2", "q:v": 4}).
			OverWriteOutput().
			Silent(true).
			Run()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg thumbnail %s: %w", path, err)
		}
		if p.logger != nil {
			p.logger.Debug("thumbnail written", "path", path, "out", outPath, "offset", offset)
		}
		return nil
	}
}
