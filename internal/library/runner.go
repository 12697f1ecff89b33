package library

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/heimdex/heimdex-editor/internal/probe"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// MetadataSink receives probed durations. It returns how many clips it
// corrected.
type MetadataSink interface {
	ApplyMetadata(mediaID string, duration float64) int
}

const DefaultProbeInterval = 2 * time.Second

// Runner probes pending media items in the background, one per tick.
type Runner struct {
	repo         Repository
	prober       probe.Prober
	sink         MetadataSink
	logger       *slog.Logger
	pollInterval time.Duration

	thumbs    probe.Thumbnailer
	thumbPath func(id string) string

	running atomic.Bool
	paused  atomic.Bool
}

func NewRunner(repo Repository, prober probe.Prober, sink MetadataSink, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Runner{
		repo:         repo,
		prober:       prober,
		sink:         sink,
		logger:       logger,
		pollInterval: interval,
	}
}

// SetThumbnailer enables still frames for probed local videos. pathFor maps
// a media id to the output file.
func (r *Runner) SetThumbnailer(t probe.Thumbnailer, pathFor func(id string) string) {
	r.thumbs = t
	r.thumbPath = pathFor
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("probe runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("probe runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.ProcessNext(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("probe runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("probe runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// ProcessNext probes the oldest pending item. It returns false when there
// was nothing to do.
func (r *Runner) ProcessNext(ctx context.Context) bool {
	items, err := r.repo.ListPendingProbes(ctx, 1)
	if err != nil {
		r.logger.Error("failed to list pending probes", "error", err)
		return false
	}
	if len(items) == 0 {
		return false
	}

	item := items[0]
	target := item.ProbeTarget()
	if target == "" {
		r.repo.UpdateProbeStatus(ctx, item.ID, ProbeFailed, "no local path or url")
		return true
	}

	r.repo.UpdateProbeStatus(ctx, item.ID, ProbeProbing, "")
	r.logger.Debug("probing media", "media_id", item.ID, "filename", item.Filename)

	res, err := r.prober.Probe(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			r.repo.UpdateProbeStatus(context.Background(), item.ID, ProbePending, "")
			return true
		}
		r.logger.Warn("probe failed", "media_id", item.ID, "error", err)
		r.repo.UpdateProbeStatus(ctx, item.ID, ProbeFailed, err.Error())
		return true
	}

	if err := r.repo.UpdateProbeResult(ctx, item.ID, res.Duration, res.Size); err != nil {
		r.logger.Error("failed to store probe result", "media_id", item.ID, "error", err)
		return true
	}

	if item.Kind == timeline.KindVideo && item.Path != "" {
		r.thumbnail(ctx, item, res.Duration)
	}

	corrected := 0
	if r.sink != nil {
		corrected = r.sink.ApplyMetadata(item.ID, res.Duration)
	}
	r.logger.Info("media probed", "media_id", item.ID, "duration", res.Duration, "clips_corrected", corrected)
	return true
}

// thumbnail grabs a frame one second in, or halfway through shorter clips.
// Failures only cost the media bin its preview image.
func (r *Runner) thumbnail(ctx context.Context, item *MediaItem, duration float64) {
	if r.thumbs == nil || r.thumbPath == nil {
		return
	}
	out := r.thumbPath(item.ID)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		r.logger.Warn("failed to create thumbnail dir", "error", err)
		return
	}
	if err := r.thumbs.Thumbnail(ctx, item.Path, out, min(1.0, duration/2)); err != nil {
		r.logger.Warn("thumbnail failed", "media_id", item.ID, "error", err)
		return
	}
	if err := r.repo.UpdateThumbnail(ctx, item.ID, ThumbnailURL(item.ID)); err != nil {
		r.logger.Error("failed to store thumbnail", "media_id", item.ID, "error", err)
	}
}
