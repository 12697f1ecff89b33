package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/export"
)

// HTTPClient is the media service client used when a service URL is configured.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	n, err := io.Copy(part, r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("uploading media", "filename", filename, "size", humanize.Bytes(uint64(n)))

	var result UploadResult
	if err := c.doJSON(req, "upload", &result); err != nil {
		return nil, err
	}
	if result.Filename == "" {
		result.Filename = path.Base(filename)
	}
	return &result, nil
}

func (c *HTTPClient) Render(ctx context.Context, payload export.RenderRequest, dst io.Writer) (*RenderResult, error) {
	return c.render(ctx, "/render_timeline", "render", payload, len(payload.Clips), dst)
}

func (c *HTTPClient) RenderSplit(ctx context.Context, payload export.SplitRenderRequest, dst io.Writer) (*RenderResult, error) {
	n := len(payload.TopClips) + len(payload.BottomClips) + len(payload.AudioClips)
	return c.render(ctx, "/render_split_timeline", "split render", payload, n, dst)
}

func (c *HTTPClient) render(ctx context.Context, endpoint, op string, payload any, clipCount int, dst io.Writer) (*RenderResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("requesting render", "endpoint", endpoint, "clips", clipCount, "body_bytes", len(body))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ServiceError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isMediaType(contentType) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("render returned non-media body", "content_type", contentType, "body", string(snippet))
		return nil, fmt.Errorf("%w (content type %q)", ErrNotMedia, contentType)
	}

	size, err := io.Copy(dst, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered media: %w", err)
	}

	result := &RenderResult{
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		ContentType: contentType,
		Size:        size,
	}
	c.logger.Info("render complete",
		"filename", result.Filename,
		"size", humanize.Bytes(uint64(size)),
		"took", time.Since(start).Round(time.Millisecond).String(),
	)
	return result, nil
}

func (c *HTTPClient) AutoGenerate(ctx context.Context, filename string) (*AutoGenerateResult, error) {
	body, err := json.Marshal(map[string]string{"filename": filename})
	if err != nil {
		return nil, fmt.Errorf("marshal auto-generate request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auto_generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result AutoGenerateResult
	if err := c.doJSON(req, "auto-generate", &result); err != nil {
		return nil, err
	}
	if result.Status == "error" {
		return nil, &ServiceError{Op: "auto-generate", StatusCode: http.StatusOK, Body: result.Message}
	}
	return &result, nil
}

func (c *HTTPClient) ListMedia(ctx context.Context) ([]RemoteMedia, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/media", nil)
	if err != nil {
		return nil, err
	}
	var items []RemoteMedia
	if err := c.doJSON(req, "list media", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func (c *HTTPClient) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > 4096 {
			respBody = respBody[:4096]
		}
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", op, err)
	}
	return nil
}

func isMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "video/") || strings.HasPrefix(mt, "audio/") || mt == "application/octet-stream"
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return ""
	}
	return path.Base(params["filename"])
}
