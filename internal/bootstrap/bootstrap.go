// Package bootstrap assembles a match session with its store, notifiers and
// logger for the desktop and terminal binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dotatimings/internal/config"
	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/clock"
	"dotatimings/internal/core/session"
	"dotatimings/internal/notify"
	"dotatimings/internal/platform"
	"dotatimings/internal/storage/sqlite"
)

// Options configures Open.
type Options struct {
	AppName string
	Config  config.Config
	Logger  *zap.Logger
	// Sender raises desktop notifications. Nil disables them.
	Sender notify.Sender
	// Player plays alert sounds. Nil disables them.
	Player notify.Player
	// Clock defaults to the real clock.
	Clock clock.Clock
}

// Runtime owns everything a running front-end needs.
type Runtime struct {
	Config   config.Config
	Logger   *zap.Logger
	Renderer *catalog.Renderer
	Session  *session.Session

	store   *sqlite.Store
	sound   *notify.Switch
	desktop *notify.Switch
}

// NewLogger builds a JSON production logger, or a console logger at debug
// level when debug is set. Output goes to stderr unless paths are given.
func NewLogger(debug bool, paths ...string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if len(paths) > 0 {
		cfg.OutputPaths = paths
		cfg.ErrorOutputPaths = paths
	}
	return cfg.Build()
}

// Open resolves the database path, opens the store and creates the session.
func Open(ctx context.Context, options Options) (*Runtime, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := options.Config

	if cfg.DatabasePath == "" {
		path, err := platform.NewPaths(options.AppName).DatabasePath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.DatabasePath = path
	}

	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open match store: %w", err)
	}

	renderer := catalog.NewRenderer(cfg.Locale)
	var (
		soundNotifier   session.Notifier
		desktopNotifier session.Notifier
	)
	if options.Player != nil {
		soundNotifier = notify.NewSound(options.Player)
	}
	if options.Sender != nil {
		desktopNotifier = notify.NewDesktop(options.Sender, renderer)
	}
	runtime := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Renderer: renderer,
		store:    store,
		sound:    notify.NewSwitch(soundNotifier, cfg.Sound),
		desktop:  notify.NewSwitch(desktopNotifier, cfg.DesktopNotifications),
	}

	runtime.Session = session.New(cfg.EngineConfig(), session.Dependencies{
		Clock:    options.Clock,
		Store:    store,
		Notifier: notify.Multi{notify.NewLog(logger.Named("notify")), runtime.sound, runtime.desktop},
		Renderer: renderer,
		Logger:   logger,
	})

	logger.Info("runtime ready",
		zap.String("database", cfg.DatabasePath),
		zap.String("locale", renderer.Locale()),
		zap.Duration("tick_interval", cfg.TickInterval),
		zap.Int("start_offset", cfg.StartOffset),
	)
	return runtime, nil
}

// ApplySettings updates what can change while a match runs. Clock and
// language changes apply on the next launch.
func (runtime *Runtime) ApplySettings(settings config.Settings) {
	runtime.sound.SetEnabled(settings.Sound)
	runtime.desktop.SetEnabled(settings.DesktopNotifications)
}

// Close releases the store and flushes the logger.
func (runtime *Runtime) Close() error {
	err := runtime.store.Close()
	_ = runtime.Logger.Sync()
	return err
}
