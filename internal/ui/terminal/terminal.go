// Package terminal is a full-screen terminal front-end for a match session.
package terminal

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/gametime"
	"dotatimings/internal/core/session"
	"dotatimings/internal/ui/controls"
)

// Target is the session driven by the terminal.
type Target interface {
	controls.Session
	View(ctx context.Context) (session.View, error)
}

var (
	styleDefault = tcell.StyleDefault
	styleClock   = tcell.StyleDefault.Foreground(tcell.ColorGold).Bold(true)
	styleHeading = tcell.StyleDefault.Foreground(tcell.ColorSilver).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMessage = tcell.StyleDefault.Foreground(tcell.ColorOrange)
)

var keyBindings = map[rune]controls.Action{
	's': controls.Start,
	'p': controls.TogglePause,
	' ': controls.TogglePause,
	'e': controls.End,
	'r': controls.RoshanKilled,
	'd': controls.DireTormentorKilled,
	't': controls.RadiantTormentorKilled,
}

const helpLine = "[s]tart [p]ause/resume [e]nd [r]oshan [d]ire [t] radiant tormentor [q]uit"

// App renders the session and maps keys to actions.
type App struct {
	screen   tcell.Screen
	target   Target
	renderer *catalog.Renderer
	logger   *zap.Logger

	view    session.View
	message string
}

// New creates a terminal front-end on an initialized screen.
func New(screen tcell.Screen, target Target, renderer *catalog.Renderer, logger *zap.Logger) *App {
	if renderer == nil {
		renderer = catalog.NewRenderer(catalog.BaseLocale)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		screen:   screen,
		target:   target,
		renderer: renderer,
		logger:   logger.Named("terminal"),
		view:     session.View{State: session.StateNotStarted},
	}
}

// Run draws on every update and handles keys until the user quits, ctx is
// done or updates is closed.
func (app *App) Run(ctx context.Context, updates <-chan session.Update) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			event := app.screen.PollEvent()
			if event == nil {
				close(events)
				return
			}
			events <- event
		}
	}()

	app.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			app.refresh(ctx)
		case event, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := event.(type) {
			case *tcell.EventResize:
				app.screen.Sync()
				app.draw()
			case *tcell.EventKey:
				if app.handleKey(ctx, ev) {
					return nil
				}
				app.refresh(ctx)
			}
		}
	}
}

// handleKey performs the bound action and reports whether to quit.
func (app *App) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return true
	}
	if ev.Key() != tcell.KeyRune {
		return false
	}
	if ev.Rune() == 'q' {
		return true
	}
	action, ok := keyBindings[ev.Rune()]
	if !ok {
		return false
	}
	if !controls.Available(action, app.view) {
		app.message = fmt.Sprintf("%s is not available now", controls.Label(action, app.view))
		return false
	}
	if err := controls.Perform(ctx, app.target, action, app.view); err != nil {
		app.message = err.Error()
		if !errors.Is(err, session.ErrActionUnavailable) {
			app.logger.Warn("action failed", zap.String("action", controls.Label(action, app.view)), zap.Error(err))
		}
		return false
	}
	app.message = ""
	return false
}

func (app *App) refresh(ctx context.Context) {
	view, err := app.target.View(ctx)
	if err != nil {
		app.logger.Debug("view unavailable", zap.Error(err))
	} else {
		app.view = view
	}
	app.draw()
	app.screen.Show()
}

func (app *App) draw() {
	app.screen.Clear()
	width, height := app.screen.Size()
	view := app.view

	clock := view.Clock
	if clock == "" {
		clock = "--:--"
	}
	x := drawText(app.screen, 0, 0, styleHeading, "DotaTimings ")
	drawText(app.screen, x, 0, styleClock, clock)
	drawText(app.screen, 0, 1, styleDefault, controls.Status(view))
	drawText(app.screen, 0, 2, styleDim, fmt.Sprintf("Roshan: %s, kills %d", view.Roshan.Status, view.Roshan.Kills))

	y := 4
	drawText(app.screen, 0, y, styleHeading, "Timers")
	y++
	if len(view.Countdowns) == 0 {
		drawText(app.screen, 2, y, styleDim, "none")
		y++
	}
	for _, countdown := range view.Countdowns {
		line := fmt.Sprintf("%s  %s", gametime.Format(countdown.RemainingSeconds), app.renderer.Title(countdown.Kind))
		if countdown.Frozen {
			line += " (paused)"
		}
		drawText(app.screen, 2, y, styleDefault, line)
		y++
	}

	y++
	drawText(app.screen, 0, y, styleHeading, "Events")
	y++
	footer := height - 2
	for i := len(view.Feed) - 1; i >= 0 && y < footer; i-- {
		event := view.Feed[i]
		drawText(app.screen, 2, y, styleDefault, fmt.Sprintf("%s  %s", event.MatchTime, event.Message))
		y++
	}

	if app.message != "" {
		drawText(app.screen, 0, height-2, styleMessage, app.message)
	}
	drawText(app.screen, 0, height-1, styleDim, truncate(helpLine, width))
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) int {
	width, height := screen.Size()
	if y < 0 || y >= height {
		return x
	}
	for _, r := range text {
		if x >= width {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width])
}
