package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"

	"dotatimings/internal/bootstrap"
	"dotatimings/internal/config"
	"dotatimings/internal/core/session"
	"dotatimings/internal/notify"
	"dotatimings/internal/platform"
	"dotatimings/internal/platform/audio"
	"dotatimings/internal/storage"
	"dotatimings/internal/ui/controls"
	"dotatimings/internal/ui/overlay"
	"dotatimings/internal/ui/preferences"
	"dotatimings/internal/ui/tray"
)

const (
	appName = "DotaTimings"
	appID   = "com.dotatimings.app"
)

func main() {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		if activateErr := platform.Activate(appName); activateErr != nil {
			log.Printf("single instance: %v", activateErr)
		}
		log.Printf("single instance: %v", err)
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	settings, err := storage.LoadSettings(appName)
	if err != nil {
		log.Printf("load settings: %v", err)
	}
	cfg, err := config.Load(settings, flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := bootstrap.NewLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(theme.HistoryIcon())

	runtime, err := bootstrap.Open(ctx, bootstrap.Options{
		AppName: appName,
		Config:  cfg,
		Logger:  logger,
		Sender:  fyneApp,
		Player:  audio.NewSpeaker(notify.SampleRate),
	})
	if err != nil {
		logger.Fatal("open runtime", zap.Error(err))
	}
	defer func() {
		_ = runtime.Close()
	}()

	match := runtime.Session
	updates := match.Subscribe(64)
	go func() {
		if err := match.Run(ctx); err != nil {
			logger.Error("session stopped", zap.Error(err))
		}
	}()

	perform := func(action controls.Action, view session.View) {
		go func() {
			if err := controls.Perform(ctx, match, action, view); err != nil {
				level := zap.WarnLevel
				if errors.Is(err, session.ErrActionUnavailable) {
					level = zap.DebugLevel
				}
				logger.Check(level, "action failed").Write(zap.String("action", controls.Label(action, view)), zap.Error(err))
			}
		}()
	}

	matchWindow := overlay.New(fyneApp, runtime.Renderer, perform)
	prefsWindow := preferences.New(fyneApp, settings, func(updated config.Settings) {
		if err := storage.SaveSettings(appName, updated); err != nil {
			logger.Warn("save settings", zap.Error(err))
		}
		runtime.ApplySettings(updated)
	})

	var trayManager *tray.Manager
	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager = tray.New(desktopApp, tray.Callbacks{
			OnAction:      perform,
			OnShowMatch:   matchWindow.Show,
			OnPreferences: prefsWindow.Show,
			OnQuit: func() {
				cancel()
				fyneApp.Quit()
			},
		})
		desktopApp.SetSystemTrayIcon(theme.HistoryIcon())
		matchWindow.SetCloseIntercept(matchWindow.Hide)
	} else {
		log.Printf("system tray unsupported on this platform")
	}

	go guard.ServeActivations(func() {
		fyne.Do(matchWindow.Show)
	})

	go func() {
		for range updates {
			view, err := match.View(ctx)
			if err != nil {
				continue
			}
			fyne.Do(func() {
				if trayManager != nil {
					trayManager.SetView(view)
				}
				matchWindow.SetView(view)
			})
		}
	}()

	matchWindow.Show()
	fyneApp.Run()
}
