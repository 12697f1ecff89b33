package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

const maxFilenameLen = 120

type Service struct {
	repo     Repository
	client   render.Client
	mediaDir string
	logger   *slog.Logger
}

func NewService(repo Repository, client render.Client, mediaDir string, logger *slog.Logger) *Service {
	return &Service{repo: repo, client: client, mediaDir: mediaDir, logger: logger}
}

// MediaURL is the path the preview uses to stream an item.
func MediaURL(id string) string {
	return "/media/" + id + "/file"
}

// ThumbnailURL is the path the media bin loads an item's still from.
func ThumbnailURL(id string) string {
	return "/media/" + id + "/thumbnail"
}

// ThumbnailPath is where the still frame of item id is stored.
func (s *Service) ThumbnailPath(id string) string {
	return filepath.Join(s.mediaDir, "thumbs", id+".jpg")
}

// Upload stores r under mediaDir, hands it to the upload service and
// registers it in the library with a pending probe.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*MediaItem, error) {
	name := export.SanitizeName(filepath.Base(filename), maxFilenameLen)
	kind, ok := KindOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, filepath.Ext(name))
	}

	id := NewID()
	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	path := filepath.Join(s.mediaDir, id+strings.ToLower(filepath.Ext(name)))
	size, err := writeFile(path, r)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopen upload: %w", err)
	}
	res, err := s.client.Upload(ctx, name, f)
	f.Close()
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	if res != nil && res.Filename != "" {
		name = res.Filename
	}

	existing, err := s.repo.GetItemByFilename(ctx, name)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if existing != nil {
		// Re-uploading a known file refreshes the local copy only.
		os.Remove(path)
		return existing, nil
	}

	now := time.Now()
	item := &MediaItem{
		ID:          id,
		Filename:    name,
		DisplayName: strings.TrimSuffix(name, filepath.Ext(name)),
		Kind:        kind,
		Origin:      OriginUploaded,
		Path:        path,
		URL:         MediaURL(id),
		Size:        size,
		ProbeStatus: ProbePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.logger.Info("media uploaded", "media_id", id, "filename", name, "size", humanize.Bytes(uint64(size)))
	return item, nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context) ([]*MediaItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*MediaItem{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*MediaItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("media %s: %w", id, ErrNotFound)
	}
	return item, nil
}

// Source resolves a media id into the reference a new clip carries.
func (s *Service) Source(ctx context.Context, id string) (timeline.SourceRef, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return timeline.SourceRef{}, err
	}
	return item.Source(), nil
}

// Delete removes the item and its local copy. Clips already on a track keep
// their reference and show as failed media in the preview.
func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	for _, path := range []string{item.Path, s.ThumbnailPath(id)} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove media file", "media_id", id, "path", path, "error", err)
		}
	}
	s.logger.Info("media deleted", "media_id", id, "filename", item.Filename)
	return nil
}

// AutoGenerate asks the generation service to cut highlights from an item
// and merges whatever the service now lists into the library.
func (s *Service) AutoGenerate(ctx context.Context, id string) (*render.AutoGenerateResult, []*MediaItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.client.AutoGenerate(ctx, item.Filename)
	if err != nil {
		return nil, nil, fmt.Errorf("auto-generate %s: %w", item.Filename, err)
	}
	added, err := s.SyncRemote(ctx)
	if err != nil {
		return res, nil, err
	}
	s.logger.Info("auto-generate completed", "media_id", id, "outputs", len(res.Outputs), "added", len(added))
	return res, added, nil
}

// SyncRemote adds remote media not yet known by filename. Items whose
// filename is already present are left untouched.
func (s *Service) SyncRemote(ctx context.Context) ([]*MediaItem, error) {
	remote, err := s.client.ListMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote media: %w", err)
	}

	var added []*MediaItem
	for _, rm := range remote {
		kind, ok := remoteKind(rm)
		if !ok {
			continue
		}
		existing, err := s.repo.GetItemByFilename(ctx, rm.Filename)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}

		created := time.Now()
		if rm.UploadDate > 0 {
			created = time.Unix(int64(rm.UploadDate), 0)
		}
		item := &MediaItem{
			ID:          NewID(),
			Filename:    rm.Filename,
			DisplayName: strings.TrimSuffix(rm.Filename, filepath.Ext(rm.Filename)),
			Kind:        kind,
			Origin:      OriginGenerated,
			URL:         rm.URL,
			ProbeStatus: ProbePending,
			CreatedAt:   created,
			UpdatedAt:   time.Now(),
		}
		if rm.ThumbnailURL != nil {
			item.ThumbnailURL = *rm.ThumbnailURL
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return added, err
		}
		added = append(added, item)
	}
	return added, nil
}

func remoteKind(rm render.RemoteMedia) (timeline.MediaKind, bool) {
	switch {
	case strings.HasPrefix(rm.Type, "video"):
		return timeline.KindVideo, true
	case strings.HasPrefix(rm.Type, "audio"):
		return timeline.KindAudio, true
	}
	return KindOf(rm.Filename)
}

// RecordRender registers a rendered export that was written to path.
func (s *Service) RecordRender(ctx context.Context, res *render.RenderResult, path string) (*MediaItem, error) {
	name := res.Filename
	if name == "" {
		name = filepath.Base(path)
	}
	now := time.Now()
	id := NewID()
	item := &MediaItem{
		ID:          id,
		Filename:    name,
		DisplayName: strings.TrimSuffix(name, filepath.Ext(name)),
		Kind:        timeline.KindVideo,
		Origin:      OriginRendered,
		Path:        path,
		URL:         MediaURL(id),
		Size:        res.Size,
		ProbeStatus: ProbePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing, err := s.repo.GetItemByFilename(ctx, name); err != nil {
		return nil, err
	} else if existing != nil {
		item.Filename = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, filepath.Ext(name)), now.Unix(), filepath.Ext(name))
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("render recorded", "media_id", id, "filename", item.Filename, "size", humanize.Bytes(uint64(res.Size)))
	return item, nil
}

// RenderPath is where a rendered export named filename is written.
func (s *Service) RenderPath(filename string) (string, error) {
	dir := filepath.Join(s.mediaDir, "renders")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create render dir: %w", err)
	}
	name := export.SanitizeName(filepath.Base(filename), maxFilenameLen)
	if name == "" || name == "." {
		name = "render.mp4"
	}
	return filepath.Join(dir, NewID()+"_"+name), nil
}

// SaveProject stores state under id, creating the project when id is empty.
func (s *Service) SaveProject(ctx context.Context, id, name string, state []byte) (*Project, error) {
	now := time.Now()
	p := &Project{ID: id, Name: export.SanitizeName(name, maxFilenameLen), State: state, CreatedAt: now, UpdatedAt: now}
	if p.Name == "" {
		p.Name = "Untitled"
	}
	if p.ID == "" {
		p.ID = NewID()
	} else if existing, err := s.repo.GetProject(ctx, id); err != nil {
		return nil, err
	} else if existing != nil {
		p.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SaveProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("project saved", "project_id", p.ID, "bytes", humanize.Bytes(uint64(len(state))))
	return p, nil
}

func (s *Service) LoadProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []*Project{}
	}
	return projects, nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.LoadProject(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, id)
}
