package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/library"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/probe"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
	"github.com/heimdex/heimdex-editor/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex editor",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"fps", cfg.FPS())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	var client render.Client
	if cfg.ServiceURL() != "" {
		client = render.NewHTTPClient(cfg.ServiceURL(), cfg.ServiceTimeout(), logger)
		logger.Info("media service enabled", "base_url", cfg.ServiceURL())
	} else {
		client = render.NewStubClient(logger)
		logger.Info("media service not configured, rendering disabled")
	}

	lib := library.NewService(repo, client, cfg.MediaDir(), logging.WithComponent(logger, "library"))

	session := editor.NewSession(editor.Options{
		FPS: cfg.FPS(),
		Snap: timeline.SnapOptions{
			PixelsPerSecond: cfg.PixelsPerSecond(),
			ThresholdPx:     cfg.SnapThresholdPx(),
		},
		ProvisionalDuration: cfg.ProvisionalDuration().Seconds(),
		Logger:              logger,
	})

	channels := make(map[editor.Slot]*playback.Channel, len(editor.Slots))
	for _, slot := range editor.Slots {
		ch := playback.NewChannel(playback.Config{
			TickInterval: cfg.TickInterval(),
			Logger:       logging.WithSlot(logging.WithComponent(logger, "playback"), string(slot)),
		}, playback.DefaultQueueSize)
		if err := session.Attach(slot, ch); err != nil {
			return fmt.Errorf("failed to attach %s player: %w", slot, err)
		}
		channels[slot] = ch
	}
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	if err := restoreLastProject(lib, repo, session); err != nil {
		logger.Warn("failed to restore last project", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ffprobe := probe.NewFFProbe(logger)
	runner := library.NewRunner(repo, ffprobe, session, cfg.ProbeInterval(), logging.WithComponent(logger, "probe"))
	runner.SetThumbnailer(ffprobe, lib.ThumbnailPath)
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:     cfg.Port(),
		Session:  session,
		Channels: channels,
		Library:  lib,
		Runner:   runner,
		Renderer: client,
		Media:    playback.NewMediaServer(logger),
		Logger:   logger,
		Start:    startTime,
		Version:  config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Transport: channels[editor.SlotSingle],
			Probes:    runner,
			Logger:    logger,
			URL:       "http://" + apiServer.Addr(),
			OnOpen:    openBrowser,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	if err := saveLastProject(lib, repo, session); err != nil {
		logger.Error("failed to save session", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// lastProjectKey names the config entry holding the project autosaved on exit.
const lastProjectKey = "last_project_id"

func restoreLastProject(lib *library.Service, repo library.Repository, session *editor.Session) error {
	ctx := context.Background()

	id, err := repo.GetConfig(ctx, lastProjectKey)
	if err != nil || id == "" {
		return err
	}
	p, err := lib.LoadProject(ctx, id)
	if err != nil {
		return err
	}
	return session.Restore(p.State)
}

func saveLastProject(lib *library.Service, repo library.Repository, session *editor.Session) error {
	ctx := context.Background()

	state, err := session.MarshalState()
	if err != nil {
		return err
	}
	id, err := repo.GetConfig(ctx, lastProjectKey)
	if err != nil {
		return err
	}
	p, err := lib.SaveProject(ctx, id, "Autosave", state)
	if err != nil {
		return err
	}
	return repo.SetConfig(ctx, lastProjectKey, p.ID)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
