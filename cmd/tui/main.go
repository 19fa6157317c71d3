package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"dotatimings/internal/bootstrap"
	"dotatimings/internal/config"
	"dotatimings/internal/notify"
	"dotatimings/internal/platform"
	"dotatimings/internal/platform/audio"
	"dotatimings/internal/storage"
	"dotatimings/internal/ui/terminal"
)

const appName = "DotaTimings"

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("dotatimings: %v", err)
	}
}

func run(args []string) error {
	settings, err := storage.LoadSettings(appName)
	if err != nil {
		log.Printf("load settings: %v", err)
	}
	cfg, err := config.Load(settings, flag.CommandLine, args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	appDir, err := platform.NewPaths(appName).AppDir()
	if err != nil {
		return err
	}
	logger, err := bootstrap.NewLogger(cfg.Debug, filepath.Join(appDir, "tui.log"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	runtime, err := bootstrap.Open(ctx, bootstrap.Options{
		AppName: appName,
		Config:  cfg,
		Logger:  logger,
		Player:  audio.NewSpeaker(notify.SampleRate),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = runtime.Close()
	}()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	updates := runtime.Session.Subscribe(64)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return runtime.Session.Run(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return terminal.New(screen, runtime.Session, runtime.Renderer, logger).Run(groupCtx, updates)
	})
	return group.Wait()
}
