package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// GenerateEDL renders clips as a CMX3600 edit decision list. Source in/out
// come from the clip's in/out points and record in/out from its timeline
// start, so gaps on the timeline survive into the EDL.
func GenerateEDL(clips []ClipDescriptor, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(timeline.DefaultFPS)
	}

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame(frameRate) {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, clip := range clips {
		track := "V"
		if clip.Kind == timeline.KindAudio {
			track = "A"
		}
		recIn := clip.TimelineStart
		recOut := recIn + clip.Duration()

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", track,
				secondsToTimecode(clip.InPoint, fps),
				secondsToTimecode(clip.OutPoint, fps),
				secondsToTimecode(recIn, fps),
				secondsToTimecode(recOut, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", strings.TrimSuffix(clip.Filename, filepath.Ext(clip.Filename))),
			fmt.Sprintf("* SOURCE FILE:  %s", clip.Filename),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func isDropFrame(frameRate float64) bool {
	return math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01
}

func secondsToTimecode(sec float64, fps int) string {
	if sec < 0 {
		sec = 0
	}
	totalFrames := int(math.Round(sec * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
