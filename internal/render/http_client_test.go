package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/export"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPClient_Render_StreamsMedia(t *testing.T) {
	var received export.RenderRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render_timeline" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing request id header")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="version3.mp4"`)
		w.Write([]byte("fake-mp4"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, testLogger())
	var out bytes.Buffer
	res, err := client.Render(context.Background(), export.RenderRequest{
		Clips: []export.ClipDescriptor{{Filename: "a.mp4", Start: 0, End: 2, InPoint: 0, OutPoint: 2}},
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.String() != "fake-mp4" {
		t.Errorf("body = %q", out.String())
	}
	if res.Filename != "version3.mp4" || res.Size != 8 || res.ContentType != "video/mp4" {
		t.Errorf("result = %+v", res)
	}
	if len(received.Clips) != 1 || received.Clips[0].Filename != "a.mp4" {
		t.Errorf("payload = %+v", received)
	}
}

func TestHTTPClient_Render_NonMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"filename":"version1.mp4","message":"ok"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, testLogger())
	_, err := client.RenderSplit(context.Background(), export.SplitRenderRequest{}, io.Discard)
	if !errors.Is(err, ErrNotMedia) {
		t.Fatalf("expected ErrNotMedia, got %v", err)
	}
}

func TestHTTPClient_Render_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"ffmpeg exploded"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, testLogger())
	_, err := client.Render(context.Background(), export.RenderRequest{}, io.Discard)

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if svcErr.StatusCode != http.StatusInternalServerError || !strings.Contains(svcErr.Body, "ffmpeg exploded") {
		t.Errorf("ServiceError = %+v", svcErr)
	}
	if !svcErr.IsRetryable() {
		t.Error("expected 5xx to be retryable")
	}
}

func TestHTTPClient_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "clip.mp4" || string(data) != "frames" {
			t.Errorf("got %q with %q", header.Filename, data)
		}
		json.NewEncoder(w).Encode(UploadResult{Filename: "clip.mp4", Message: "File uploaded successfully"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, testLogger())
	res, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("frames"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Filename != "clip.mp4" {
		t.Errorf("filename = %q", res.Filename)
	}
}

func TestHTTPClient_AutoGenerateAndList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auto_generate":
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["filename"] != "long.mp4" {
				t.Errorf("filename = %q", req["filename"])
			}
			w.Write([]byte(`{"status":"success","outputs":["Clip 1 created.","Clip 2 created."]}`))
		case "/media":
			w.Write([]byte(`[{"id":"version1.mp4","filename":"version1.mp4","url":"http://x/files/version1.mp4","type":"video","uploadDate":1700000000,"thumbnailUrl":null}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, testLogger())
	res, err := client.AutoGenerate(context.Background(), "long.mp4")
	if err != nil {
		t.Fatalf("AutoGenerate: %v", err)
	}
	if len(res.Outputs) != 2 {
		t.Errorf("outputs = %v", res.Outputs)
	}

	items, err := client.ListMedia(context.Background())
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(items) != 1 || items[0].Type != "video" || items[0].ThumbnailURL != nil {
		t.Errorf("items = %+v", items)
	}
}

func TestHTTPClient_AutoGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"Failed to identify viral clips."}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, testLogger())
	_, err := client.AutoGenerate(context.Background(), "x.mp4")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || !strings.Contains(svcErr.Body, "viral") {
		t.Fatalf("expected ServiceError with message, got %v", err)
	}
}

func TestStubClient(t *testing.T) {
	c := NewStubClient(testLogger())
	res, err := c.Upload(context.Background(), "a.mp4", strings.NewReader("x"))
	if err != nil || res.Filename != "a.mp4" {
		t.Fatalf("Upload = %+v, %v", res, err)
	}
	if _, err := c.Render(context.Background(), export.RenderRequest{}, io.Discard); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Render error = %v, want ErrNotConfigured", err)
	}
}
