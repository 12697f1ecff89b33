package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// MediaServer streams source media to the preview element with byte-range
// support, which browsers need to seek inside video.
type MediaServer struct {
	logger *slog.Logger
}

func NewMediaServer(logger *slog.Logger) *MediaServer {
	return &MediaServer{logger: logger}
}

// ServeMedia writes the file at path. fallbackType is used when the
// extension does not map to a MIME type.
func (s *MediaServer) ServeMedia(w http.ResponseWriter, r *http.Request, path, fallbackType string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "media not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat media: %w", err)
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = fallbackType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType)
	h.Set("Last-Modified", stat.ModTime().UTC().Format(http.TimeFormat))

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		// Malformed ranges are ignored and the whole file is sent.
		s.logger.Debug("ignoring malformed range", "range", r.Header.Get("Range"))
		rng = nil
	case err != nil:
		return err
	}

	if rng == nil {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			if _, err := io.Copy(w, file); err != nil {
				s.logger.Debug("media copy interrupted", "path", path, "error", err)
			}
		}
		return nil
	}

	h.Set("Content-Length", strconv.FormatInt(rng.ContentLength(), 10))
	h.Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek media: %w", err)
	}
	if _, err := io.CopyN(w, file, rng.ContentLength()); err != nil {
		s.logger.Debug("media copy interrupted", "path", path, "error", err)
	}
	return nil
}
