package export

import "github.com/heimdex/heimdex-editor/internal/timeline"

// ClipDescriptor is one entry of a render request. Start and End repeat the
// source in/out points for services that predate InPoint/OutPoint.
type ClipDescriptor struct {
	Filename      string             `json:"filename"`
	Start         float64            `json:"start"`
	End           float64            `json:"end"`
	InPoint       float64            `json:"in_point"`
	OutPoint      float64            `json:"out_point"`
	TimelineStart float64            `json:"timeline_start"`
	PositionX     float64            `json:"position_x"`
	PositionY     float64            `json:"position_y"`
	Scale         float64            `json:"scale"`
	Rotation      float64            `json:"rotation"`
	Kind          timeline.MediaKind `json:"-"`
}

// Duration is the length the clip occupies on the timeline.
func (d ClipDescriptor) Duration() float64 {
	return d.OutPoint - d.InPoint
}

type RenderRequest struct {
	Clips []ClipDescriptor `json:"clips"`
}

type SplitRenderRequest struct {
	TopClips    []ClipDescriptor `json:"top_clips"`
	BottomClips []ClipDescriptor `json:"bottom_clips"`
	AudioClips  []ClipDescriptor `json:"audio_clips"`
	TopZoom     float64          `json:"top_zoom"`
	TopPanY     float64          `json:"top_pan_y"`
	BottomZoom  float64          `json:"bottom_zoom"`
	BottomPanY  float64          `json:"bottom_pan_y"`
}

type EDLRequest struct {
	ProjectName string  `json:"project_name"`
	Slot        string  `json:"slot"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir"`
}

type EDLResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}
