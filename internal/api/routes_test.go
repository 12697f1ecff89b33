package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/render"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer builds a router over a real session, library and SQLite store.
func testServer(t *testing.T, client render.Client) (http.Handler, ServerConfig) {
	t.Helper()
	logger := testLogger()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if client == nil {
		client = render.NewStubClient(logger)
	}
	lib := library.NewService(library.NewRepository(database.Conn()), client, filepath.Join(t.TempDir(), "files"), logger)

	seq := 0
	session := editor.NewSession(editor.Options{
		FPS:    30,
		Logger: logger,
		NewID: func() string {
			seq++
			return fmt.Sprintf("c%d", seq)
		},
	})

	channels := make(map[editor.Slot]*playback.Channel, len(editor.Slots))
	for _, slot := range editor.Slots {
		ch := playback.NewChannel(playback.Config{TickInterval: 10 * time.Millisecond, Logger: logger}, 0)
		t.Cleanup(ch.Close)
		if err := session.Attach(slot, ch); err != nil {
			t.Fatalf("Attach(%s): %v", slot, err)
		}
		channels[slot] = ch
	}

	cfg := ServerConfig{
		Session:  session,
		Channels: channels,
		Library:  lib,
		Renderer: client,
		Media:    playback.NewMediaServer(logger),
		Logger:   logger,
		Start:    time.Now(),
		Version:  "test",
	}
	return NewRouter(cfg), cfg
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

// uploadMedia posts a small file through the upload route and returns its id.
func uploadMedia(t *testing.T, h http.Handler, filename string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("not really media"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var m MediaResponse
	decodeInto(t, rr, &m)
	return m.ID
}

func addClip(t *testing.T, h http.Handler, slot, mediaID string) AddClipResponse {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/timeline/"+slot+"/clips", AddClipRequest{MediaID: mediaID})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add clip status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp AddClipResponse
	decodeInto(t, rr, &resp)
	return resp
}

func TestHealthHandler(t *testing.T) {
	h, _ := testServer(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestStatusHandler(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")
	addClip(t, h, "single", id)

	rr := doJSON(t, h, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp StatusResponse
	decodeInto(t, rr, &resp)

	if resp.MediaCount != 1 {
		t.Errorf("media_count = %d, want 1", resp.MediaCount)
	}
	single, ok := resp.Playback["single"]
	if !ok {
		t.Fatalf("playback missing single slot: %v", resp.Playback)
	}
	if single.Clips != 1 {
		t.Errorf("single clips = %d, want 1", single.Clips)
	}
	if single.Total != editor.DefaultProvisionalDuration {
		t.Errorf("single total = %v, want %v", single.Total, editor.DefaultProvisionalDuration)
	}
}

func TestMediaRoutes(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")

	rr := doJSON(t, h, http.MethodGet, "/media", nil)
	var list MediaListResponse
	decodeInto(t, rr, &list)
	if len(list.Media) != 1 || list.Media[0].ID != id {
		t.Fatalf("media list = %+v", list.Media)
	}
	if list.Media[0].ProbeStatus != library.ProbePending {
		t.Errorf("probe_status = %q, want %q", list.Media[0].ProbeStatus, library.ProbePending)
	}

	req := httptest.NewRequest(http.MethodGet, "/media/"+id+"/file", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("Range", "bytes=0-2")
	fileRR := httptest.NewRecorder()
	h.ServeHTTP(fileRR, req)
	if fileRR.Code != http.StatusPartialContent {
		t.Fatalf("file status = %d, want %d", fileRR.Code, http.StatusPartialContent)
	}
	if got := fileRR.Body.String(); got != "not" {
		t.Errorf("range body = %q, want %q", got, "not")
	}

	if rr := doJSON(t, h, http.MethodDelete, "/media/"+id, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if rr := doJSON(t, h, http.MethodGet, "/media/"+id, nil); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	h, _ := testServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAutoGenerate_StubNotConfigured(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")

	rr := doJSON(t, h, http.MethodPost, "/media/"+id+"/auto_generate", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestTimelineEditing(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")

	first := addClip(t, h, "single", id)
	second := addClip(t, h, "single", id)
	if first.Slot != editor.SlotSingle {
		t.Errorf("slot = %q, want single", first.Slot)
	}

	rr := doJSON(t, h, http.MethodGet, "/timeline/single", nil)
	var st editor.SlotState
	decodeInto(t, rr, &st)
	if len(st.Track.Clips) != 2 || st.Total != 20 {
		t.Fatalf("slot state = %+v", st)
	}

	rr = doJSON(t, h, http.MethodPost, "/timeline/single/reorder", ReorderRequest{From: 1, To: 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body = %s", rr.Code, rr.Body.String())
	}
	decodeInto(t, rr, &st)
	if st.Track.Clips[0].ID != second.Clip.ID {
		t.Errorf("first clip after reorder = %q, want %q", st.Track.Clips[0].ID, second.Clip.ID)
	}

	rr = doJSON(t, h, http.MethodPost, "/timeline/single/clips/"+first.Clip.ID+"/trim", TrimRequest{Edge: "out", Time: 4})
	if rr.Code != http.StatusOK {
		t.Fatalf("trim status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/timeline/single/split", SplitRequest{Time: floatPtr(5)})
	if rr.Code != http.StatusCreated {
		t.Fatalf("split status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, "/timeline/single", nil)
	decodeInto(t, rr, &st)
	if len(st.Track.Clips) != 3 {
		t.Errorf("clips after split = %d, want 3", len(st.Track.Clips))
	}
	if st.Total != 14 {
		t.Errorf("total after trim and split = %v, want 14", st.Total)
	}

	rr = doJSON(t, h, http.MethodDelete, "/timeline/single/clips/"+first.Clip.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestTimelineErrors(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")
	addClip(t, h, "single", id)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown slot", http.MethodGet, "/timeline/left", nil, http.StatusBadRequest},
		{"unknown media", http.MethodPost, "/timeline/single/clips", AddClipRequest{MediaID: "nope"}, http.StatusNotFound},
		{"missing media id", http.MethodPost, "/timeline/single/clips", AddClipRequest{}, http.StatusBadRequest},
		{"unknown clip", http.MethodPost, "/timeline/single/clips/zzz/place", PlaceClipRequest{Start: 1}, http.StatusNotFound},
		{"bad edge", http.MethodPost, "/timeline/single/clips/c1/trim", TrimRequest{Edge: "middle", Time: 1}, http.StatusBadRequest},
		{"split at boundary", http.MethodPost, "/timeline/single/split", SplitRequest{Time: floatPtr(0)}, http.StatusBadRequest},
		{"reorder out of range", http.MethodPost, "/timeline/single/reorder", ReorderRequest{From: 5, To: 0}, http.StatusBadRequest},
		{"bad keyframe index", http.MethodDelete, "/timeline/single/clips/c1/keyframes/x", nil, http.StatusBadRequest},
		{"missing keyframe", http.MethodDelete, "/timeline/single/clips/c1/keyframes/3", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestAudioClipLandsOnAudioSlot(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "music.mp3")

	resp := addClip(t, h, "top", id)
	if resp.Slot != editor.SlotAudio {
		t.Errorf("slot = %q, want audio", resp.Slot)
	}
}

func TestKeyframeRoutes(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")
	clip := addClip(t, h, "single", id).Clip
	base := "/timeline/single/clips/" + clip.ID

	for _, kf := range []map[string]any{
		{"t": 0, "value": map[string]any{"scale": 1}},
		{"t": 4, "value": map[string]any{"scale": 2}},
	} {
		if rr := doJSON(t, h, http.MethodPost, base+"/keyframes", kf); rr.Code != http.StatusOK {
			t.Fatalf("set keyframe status = %d, body = %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, h, http.MethodPatch, base+"/keyframes/1", MoveKeyframeRequest{T: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("move keyframe status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Keyframes []struct {
			T float64 `json:"t"`
		} `json:"keyframes"`
	}
	decodeInto(t, rr, &out)
	if len(out.Keyframes) != 2 || out.Keyframes[1].T != 2 {
		t.Errorf("keyframes = %+v, want second at t=2", out.Keyframes)
	}

	rr = doJSON(t, h, http.MethodPatch, base+"/keyframes/1", MoveKeyframeRequest{T: 0})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("move onto existing keyframe status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	if rr := doJSON(t, h, http.MethodPost, base+"/keyframes", map[string]any{"t": 1}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty keyframe status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDragRoutes(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")
	clip := addClip(t, h, "single", id).Clip

	if rr := doJSON(t, h, http.MethodGet, "/drag", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("idle drag status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	start := editor.DragStart{Kind: editor.DragTrimTrailing, Slot: editor.SlotSingle, ClipID: clip.ID, Anchor: 10}
	if rr := doJSON(t, h, http.MethodPost, "/drag/begin", start); rr.Code != http.StatusCreated {
		t.Fatalf("begin status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, h, http.MethodPost, "/drag/begin", start); rr.Code != http.StatusConflict {
		t.Errorf("second begin status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if rr := doJSON(t, h, http.MethodPost, "/timeline/single/clips", AddClipRequest{MediaID: id}); rr.Code != http.StatusConflict {
		t.Errorf("edit during drag status = %d, want %d", rr.Code, http.StatusConflict)
	}

	rr := doJSON(t, h, http.MethodPost, "/drag/move", DragMoveRequest{X: 7})
	if rr.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var upd editor.DragUpdate
	decodeInto(t, rr, &upd)
	if upd.Clip == nil || upd.Clip.OutPoint != 7 {
		t.Fatalf("drag update clip = %+v, want out point 7", upd.Clip)
	}

	if rr := doJSON(t, h, http.MethodPost, "/drag/end", nil); rr.Code != http.StatusOK {
		t.Fatalf("end status = %d", rr.Code)
	}
	if rr := doJSON(t, h, http.MethodPost, "/drag/end", nil); rr.Code != http.StatusConflict {
		t.Errorf("end without drag status = %d, want %d", rr.Code, http.StatusConflict)
	}

	var st editor.SlotState
	decodeInto(t, doJSON(t, h, http.MethodGet, "/timeline/single", nil), &st)
	if st.Total != 7 {
		t.Errorf("total after drag = %v, want 7", st.Total)
	}
}

func TestPlaybackRoutes(t *testing.T) {
	h, _ := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")
	addClip(t, h, "single", id)

	rr := doJSON(t, h, http.MethodPost, "/playback/single/seek", SeekRequest{Time: 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("seek status = %d", rr.Code)
	}
	var st playback.Status
	decodeInto(t, rr, &st)
	if st.Cursor != 3 {
		t.Errorf("cursor = %v, want 3", st.Cursor)
	}

	var cmds CommandsResponse
	decodeInto(t, doJSON(t, h, http.MethodGet, "/playback/single/commands", nil), &cmds)
	var token uint64
	for _, c := range cmds.Commands {
		if c.Op == playback.OpLoad {
			token = c.Token
		}
	}
	if token == 0 {
		t.Fatalf("no load command in %+v", cmds.Commands)
	}

	var tok TokenResponse
	decodeInto(t, doJSON(t, h, http.MethodPost, "/playback/single/ready", TokenRequest{Token: token + 100}), &tok)
	if tok.Accepted {
		t.Error("stale token was accepted")
	}
	decodeInto(t, doJSON(t, h, http.MethodPost, "/playback/single/ready", TokenRequest{Token: token}), &tok)
	if !tok.Accepted {
		t.Error("current token was rejected")
	}

	if rr := doJSON(t, h, http.MethodPost, "/playback/single/ready", TokenRequest{}); rr.Code != http.StatusBadRequest {
		t.Errorf("missing token status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	decodeInto(t, doJSON(t, h, http.MethodPost, "/playback/single/stop", nil), &st)
	if st.Cursor != 0 || st.State != playback.StateStopped {
		t.Errorf("after stop = %+v", st)
	}
}

func TestProjectRoutes(t *testing.T) {
	h, cfg := testServer(t, nil)
	id := uploadMedia(t, h, "beach.mp4")
	addClip(t, h, "single", id)

	rr := doJSON(t, h, http.MethodPost, "/projects", SaveProjectRequest{Name: "Trip"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var p ProjectResponse
	decodeInto(t, rr, &p)

	if err := cfg.Session.RemoveClip(editor.SlotSingle, "c1"); err != nil {
		t.Fatalf("RemoveClip: %v", err)
	}

	rr = doJSON(t, h, http.MethodPost, "/projects/"+p.ID+"/load", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("load status = %d, body = %s", rr.Code, rr.Body.String())
	}
	track, _ := cfg.Session.Track(editor.SlotSingle)
	if len(track.Clips) != 1 || track.Clips[0].ID != "c1" {
		t.Errorf("restored track = %+v", track.Clips)
	}

	var list ProjectsResponse
	decodeInto(t, doJSON(t, h, http.MethodGet, "/projects", nil), &list)
	if len(list.Projects) != 1 || list.Projects[0].Name != "Trip" {
		t.Errorf("projects = %+v", list.Projects)
	}

	if rr := doJSON(t, h, http.MethodDelete, "/projects/"+p.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := doJSON(t, h, http.MethodPost, "/projects/"+p.ID+"/load", nil); rr.Code != http.StatusNotFound {
		t.Errorf("load deleted status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func floatPtr(v float64) *float64 { return &v }
