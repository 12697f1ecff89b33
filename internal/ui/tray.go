package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-editor/internal/playback"
)

// Transport is the playback channel the tray controls.
type Transport interface {
	Toggle()
	Stop()
	Status() playback.Status
}

// ProbeControl pauses and resumes background media probing.
type ProbeControl interface {
	Pause()
	Resume()
	IsPaused() bool
}

type Tray struct {
	transport Transport
	probes    ProbeControl
	logger    *slog.Logger
	url       string

	statusItem *systray.MenuItem
	playItem   *systray.MenuItem
	stopItem   *systray.MenuItem
	probeItem  *systray.MenuItem

	mu sync.Mutex

	onOpen func(url string) error
	onQuit func()
}

type TrayConfig struct {
	Transport Transport
	Probes    ProbeControl
	Logger    *slog.Logger
	// URL is the address of the editor view opened from the menu.
	URL    string
	OnOpen func(url string) error
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		transport: cfg.Transport,
		probes:    cfg.Probes,
		logger:    cfg.Logger,
		url:       cfg.URL,
		onOpen:    cfg.OnOpen,
		onQuit:    cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Heimdex")
	systray.SetTooltip("Heimdex Editor")

	t.statusItem = systray.AddMenuItem("Stopped 00:00 / 00:00", "Playback position")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.playItem = systray.AddMenuItem("Play", "Play or pause the timeline")
	t.stopItem = systray.AddMenuItem("Stop", "Stop and rewind")

	systray.AddSeparator()

	t.probeItem = systray.AddMenuItem("Pause Probing", "Pause media metadata probing")
	openItem := systray.AddMenuItem("Open Editor", "Open the editor in a browser")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Editor")

	ctx, cancel := context.WithCancel(context.Background())
	go t.refreshLoop(ctx, time.Second)

	go func() {
		for {
			select {
			case <-t.playItem.ClickedCh:
				t.togglePlay()
			case <-t.stopItem.ClickedCh:
				t.stop()
			case <-t.probeItem.ClickedCh:
				t.toggleProbing()
			case <-openItem.ClickedCh:
				t.handleOpen()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				cancel()
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

func (t *Tray) refresh() {
	if t.transport == nil {
		return
	}
	st := t.transport.Status()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle(StatusLine(st))
	if st.State == playback.StatePlaying {
		t.playItem.SetTitle("Pause")
	} else {
		t.playItem.SetTitle("Play")
	}
}

func (t *Tray) togglePlay() {
	if t.transport == nil {
		return
	}
	t.transport.Toggle()
	t.refresh()
}

func (t *Tray) stop() {
	if t.transport == nil {
		return
	}
	t.transport.Stop()
	t.refresh()
}

func (t *Tray) toggleProbing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.probes == nil {
		return
	}

	if t.probes.IsPaused() {
		t.probes.Resume()
		t.probeItem.SetTitle("Pause Probing")
	} else {
		t.probes.Pause()
		t.probeItem.SetTitle("Resume Probing")
	}
}

func (t *Tray) handleOpen() {
	if t.onOpen != nil {
		if err := t.onOpen(t.url); err != nil {
			t.logger.Error("failed to open editor", "error", err, "url", t.url)
		}
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

// StatusLine formats a playback status for the menu, e.g.
// "Playing 01:05 / 03:20".
func StatusLine(st playback.Status) string {
	state := st.State.String()
	label := strings.ToUpper(state[:1]) + state[1:]
	if st.Loading {
		label += " (loading)"
	}
	return fmt.Sprintf("%s %s / %s", label, clock(st.Cursor), clock(st.Total))
}

// clock renders seconds as mm:ss, or h:mm:ss past an hour.
func clock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	s := int(sec)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
