package overlay

import (
	"fmt"
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/gametime"
	"dotatimings/internal/core/session"
	"dotatimings/internal/ui/controls"
)

// Window shows the running match: clock, countdowns, the event feed and
// action buttons. Methods must run on the fyne thread.
type Window struct {
	window         fyne.Window
	renderer       *catalog.Renderer
	clockLabel     *canvas.Text
	statusLabel    *canvas.Text
	roshanLabel    *canvas.Text
	countdownLabel *widget.Label
	feedList       *widget.List
	buttons        map[controls.Action]*widget.Button
	onAction       func(controls.Action, session.View)
	view           session.View
	feed           []session.OccurredEvent
}

const (
	windowWidthFraction  = float32(0.22)
	windowHeightFraction = float32(0.45)
	defaultScreenWidth   = float32(1920)
	defaultScreenHeight  = float32(1080)
)

var (
	clockColor = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
	textColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	dimColor   = color.NRGBA{R: 170, G: 170, B: 170, A: 255}
)

// New creates the match window.
func New(app fyne.App, renderer *catalog.Renderer, onAction func(controls.Action, session.View)) *Window {
	if renderer == nil {
		renderer = catalog.NewRenderer(catalog.BaseLocale)
	}
	window := app.NewWindow("DotaTimings")
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	clockLabel := canvas.NewText("--:--", clockColor)
	clockLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	clockLabel.TextSize = 32

	statusLabel := canvas.NewText("", textColor)
	statusLabel.TextStyle = fyne.TextStyle{Bold: true}
	statusLabel.TextSize = 14

	roshanLabel := canvas.NewText("", dimColor)
	roshanLabel.TextSize = 13

	countdownLabel := widget.NewLabel("")
	countdownLabel.TextStyle = fyne.TextStyle{Monospace: true}

	overlay := &Window{
		window:         window,
		renderer:       renderer,
		clockLabel:     clockLabel,
		statusLabel:    statusLabel,
		roshanLabel:    roshanLabel,
		countdownLabel: countdownLabel,
		buttons:        make(map[controls.Action]*widget.Button),
		onAction:       onAction,
		view:           session.View{State: session.StateNotStarted},
	}

	overlay.feedList = widget.NewList(
		func() int { return len(overlay.feed) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, object fyne.CanvasObject) {
			object.(*widget.Label).SetText(overlay.feedLine(id))
		},
	)

	var buttonObjects []fyne.CanvasObject
	for _, action := range controls.Actions() {
		action := action
		button := widget.NewButton(controls.Label(action, overlay.view), func() {
			if overlay.onAction != nil {
				overlay.onAction(action, overlay.view)
			}
		})
		overlay.buttons[action] = button
		buttonObjects = append(buttonObjects, button)
	}

	header := container.New(&headerLayout{}, clockLabel, statusLabel, roshanLabel)
	top := container.NewVBox(header, countdownLabel)
	actions := container.NewGridWithColumns(3, buttonObjects...)
	window.SetContent(container.NewBorder(top, actions, nil, nil, overlay.feedList))

	overlay.SetView(overlay.view)
	overlay.resizeToScreenFraction()
	return overlay
}

// Show brings the window to front.
func (overlay *Window) Show() {
	overlay.window.Show()
	overlay.window.RequestFocus()
}

// Hide hides the window; the match keeps running.
func (overlay *Window) Hide() {
	overlay.window.Hide()
}

// SetCloseIntercept replaces window close with handler.
func (overlay *Window) SetCloseIntercept(handler func()) {
	overlay.window.SetCloseIntercept(handler)
}

// SetRenderer switches the language of titles.
func (overlay *Window) SetRenderer(renderer *catalog.Renderer) {
	if renderer == nil {
		return
	}
	overlay.renderer = renderer
	overlay.SetView(overlay.view)
}

// SetView redraws the window from view.
func (overlay *Window) SetView(view session.View) {
	overlay.view = view

	overlay.clockLabel.Text = view.Clock
	if view.Clock == "" {
		overlay.clockLabel.Text = "--:--"
	}
	overlay.clockLabel.Refresh()

	overlay.statusLabel.Text = controls.Status(view)
	overlay.statusLabel.Refresh()

	overlay.roshanLabel.Text = roshanLine(view.Roshan)
	overlay.roshanLabel.Refresh()

	overlay.countdownLabel.SetText(overlay.countdownLines(view.Countdowns))

	for action, button := range overlay.buttons {
		button.SetText(controls.Label(action, view))
		if controls.Available(action, view) {
			button.Enable()
		} else {
			button.Disable()
		}
	}

	if len(view.Feed) != len(overlay.feed) {
		overlay.feed = view.Feed
		overlay.feedList.Refresh()
	}
}

// feedLine renders the feed newest first.
func (overlay *Window) feedLine(id widget.ListItemID) string {
	index := len(overlay.feed) - 1 - id
	if index < 0 || index >= len(overlay.feed) {
		return ""
	}
	event := overlay.feed[index]
	return fmt.Sprintf("%s  %s", event.MatchTime, event.Message)
}

func (overlay *Window) countdownLines(countdowns []session.Countdown) string {
	if len(countdowns) == 0 {
		return "No active timers"
	}
	lines := make([]string, 0, len(countdowns))
	for _, countdown := range countdowns {
		line := fmt.Sprintf("%s  %s", gametime.Format(countdown.RemainingSeconds), overlay.renderer.Title(countdown.Kind))
		if countdown.Frozen {
			line += " (paused)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func roshanLine(roshan session.RoshanView) string {
	status := strings.ReplaceAll(string(roshan.Status), "_", " ")
	if status == "" {
		status = string(session.RoshanAlive)
	}
	return fmt.Sprintf("Roshan: %s, kills %d", status, roshan.Kills)
}

func (overlay *Window) resizeToScreenFraction() {
	screenSize := fyne.NewSize(defaultScreenWidth, defaultScreenHeight)
	canvasSize := overlay.window.Canvas().Size()
	// Canvas size can be reused as a proxy for monitor size when it is clearly screen-like.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	width := screenSize.Width * windowWidthFraction
	height := screenSize.Height * windowHeightFraction
	minSize := overlay.window.Content().MinSize()
	if width < minSize.Width {
		width = minSize.Width
	}
	if height < minSize.Height {
		height = minSize.Height
	}

	overlay.window.Resize(fyne.NewSize(width, height))
}

// headerLayout puts the clock on the left and stacks status and Roshan
// lines on the right, vertically centered against the clock.
type headerLayout struct{}

func (layout *headerLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 3 {
		return
	}
	clock := objects[0]
	status := objects[1]
	roshan := objects[2]

	pad := size.Height * 0.1
	clockSize := clock.MinSize()
	clock.Move(fyne.NewPos(pad, (size.Height-clockSize.Height)/2))
	clock.Resize(clockSize)

	textX := pad*2 + clockSize.Width
	availableWidth := size.Width - textX - pad
	if availableWidth < 0 {
		availableWidth = 0
	}
	statusSize := status.MinSize()
	roshanSize := roshan.MinSize()
	blockHeight := statusSize.Height + 4 + roshanSize.Height
	top := (size.Height - blockHeight) / 2
	if top < 0 {
		top = 0
	}
	status.Move(fyne.NewPos(textX, top))
	status.Resize(fyne.NewSize(availableWidth, statusSize.Height))
	roshan.Move(fyne.NewPos(textX, top+statusSize.Height+4))
	roshan.Resize(fyne.NewSize(availableWidth, roshanSize.Height))
}

func (layout *headerLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) < 3 {
		return fyne.NewSize(0, 0)
	}
	clockSize := objects[0].MinSize()
	statusSize := objects[1].MinSize()
	roshanSize := objects[2].MinSize()

	textWidth := statusSize.Width
	if roshanSize.Width > textWidth {
		textWidth = roshanSize.Width
	}
	height := clockSize.Height
	if text := statusSize.Height + 4 + roshanSize.Height; text > height {
		height = text
	}
	return fyne.NewSize(clockSize.Width+textWidth+30, height+10)
}
