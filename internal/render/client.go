// Package render talks to the external media service: upload, render,
// auto-generation and the remote media listing.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/heimdex/heimdex-editor/internal/export"
)

var (
	// ErrNotMedia is returned when a render succeeds at the HTTP level but
	// the body is not a media file.
	ErrNotMedia = errors.New("render service did not return media")
	// ErrNotConfigured is returned by the stub for operations that need a
	// real service.
	ErrNotConfigured = errors.New("media service not configured")
)

// ServiceError is a non-2xx answer from the media service.
type ServiceError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Nothing retries
// automatically; callers use it to word the message shown to the user.
func (e *ServiceError) IsRetryable() bool {
	return e.StatusCode >= 500
}

type UploadResult struct {
	Filename string `json:"filename"`
	Message  string `json:"message,omitempty"`
}

type RenderResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type AutoGenerateResult struct {
	Status  string   `json:"status"`
	Outputs []string `json:"outputs"`
	Message string   `json:"message,omitempty"`
}

// RemoteMedia is one entry of the service's media listing.
type RemoteMedia struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	URL          string  `json:"url"`
	Type         string  `json:"type"`
	UploadDate   float64 `json:"uploadDate"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

type Client interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error)
	// Render streams the rendered media for a single-track request into dst.
	Render(ctx context.Context, req export.RenderRequest, dst io.Writer) (*RenderResult, error)
	// RenderSplit streams the rendered media for a split-screen request into dst.
	RenderSplit(ctx context.Context, req export.SplitRenderRequest, dst io.Writer) (*RenderResult, error)
	AutoGenerate(ctx context.Context, filename string) (*AutoGenerateResult, error)
	ListMedia(ctx context.Context) ([]RemoteMedia, error)
}

// StubClient keeps the editor usable without a media service: uploads are
// accepted locally, everything that needs the service reports
// ErrNotConfigured.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	c.logger.Info("media service stub: upload accepted locally", "filename", filename, "bytes", n)
	return &UploadResult{Filename: filename, Message: "stored locally"}, nil
}

func (c *StubClient) Render(ctx context.Context, req export.RenderRequest, dst io.Writer) (*RenderResult, error) {
	c.logger.Info("media service stub: render requested", "clips", len(req.Clips))
	return nil, ErrNotConfigured
}

func (c *StubClient) RenderSplit(ctx context.Context, req export.SplitRenderRequest, dst io.Writer) (*RenderResult, error) {
	c.logger.Info("media service stub: split render requested",
		"top_clips", len(req.TopClips), "bottom_clips", len(req.BottomClips), "audio_clips", len(req.AudioClips))
	return nil, ErrNotConfigured
}

func (c *StubClient) AutoGenerate(ctx context.Context, filename string) (*AutoGenerateResult, error) {
	c.logger.Info("media service stub: auto-generate requested", "filename", filename)
	return nil, ErrNotConfigured
}

func (c *StubClient) ListMedia(ctx context.Context) ([]RemoteMedia, error) {
	return []RemoteMedia{}, nil
}
