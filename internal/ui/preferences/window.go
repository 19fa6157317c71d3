package preferences

import (
	"errors"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"dotatimings/internal/config"
	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/gametime"
)

// Window handles the preferences UI.
type Window struct {
	window      fyne.Window
	settings    config.Settings
	onSave      func(config.Settings)
	tickMillis  *widget.Entry
	startOffset *widget.Entry
	locale      *widget.Select
	sound       *widget.Check
	desktop     *widget.Check
	reconcile   *widget.Check
	debug       *widget.Check
	errorLabel  *widget.Label
}

// New creates a preferences window.
func New(app fyne.App, settings config.Settings, onSave func(config.Settings)) *Window {
	window := app.NewWindow("DotaTimings Settings")

	tickMillis := widget.NewEntry()
	startOffset := widget.NewEntry()
	startOffset.SetPlaceHolder("-01:30")
	locale := widget.NewSelect(catalog.Locales(), nil)
	sound := widget.NewCheck("Play a sound for every event", nil)
	desktop := widget.NewCheck("Show desktop notifications", nil)
	reconcile := widget.NewCheck("Catch up from wall time on resume", nil)
	debug := widget.NewCheck("Debug logging", nil)
	errorLabel := widget.NewLabel("")

	form := container.NewVBox(
		widget.NewLabelWithStyle("Clock", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("One match second lasts"), tickMillis, widget.NewLabel("ms")),
		container.NewHBox(widget.NewLabel("Match starts at"), startOffset),
		reconcile,
		widget.NewLabelWithStyle("Notifications", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Language"), locale),
		sound,
		desktop,
		debug,
		errorLabel,
	)

	saveButton := widget.NewButton("Save", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(420, 380))

	prefs := &Window{
		window:      window,
		onSave:      onSave,
		tickMillis:  tickMillis,
		startOffset: startOffset,
		locale:      locale,
		sound:       sound,
		desktop:     desktop,
		reconcile:   reconcile,
		debug:       debug,
		errorLabel:  errorLabel,
	}
	prefs.UpdateSettings(settings)

	saveButton.OnTapped = func() {
		if err := prefs.handleSave(); err != nil {
			prefs.errorLabel.SetText(err.Error())
		}
	}
	cancelButton.OnTapped = func() {
		prefs.UpdateSettings(prefs.settings)
		window.Hide()
	}

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings config.Settings) {
	prefs.settings = settings
	prefs.tickMillis.SetText(strconv.FormatInt(settings.TickInterval.Milliseconds(), 10))
	prefs.startOffset.SetText(gametime.Format(settings.StartOffset))
	prefs.locale.SetSelected(settings.Locale)
	prefs.sound.SetChecked(settings.Sound)
	prefs.desktop.SetChecked(settings.DesktopNotifications)
	prefs.reconcile.SetChecked(settings.ReconcileOnResume)
	prefs.debug.SetChecked(settings.Debug)
	prefs.errorLabel.SetText("")
}

func (prefs *Window) handleSave() error {
	settings := prefs.settings

	millis, err := strconv.Atoi(prefs.tickMillis.Text)
	if err != nil || millis <= 0 {
		return errors.New("tick interval must be a positive number of milliseconds")
	}
	settings.TickInterval = time.Duration(millis) * time.Millisecond

	offset, err := gametime.Parse(prefs.startOffset.Text)
	if err != nil {
		return errors.New("match start must look like -01:30")
	}
	settings.StartOffset = offset

	if prefs.locale.Selected != "" {
		settings.Locale = prefs.locale.Selected
	}
	settings.Sound = prefs.sound.Checked
	settings.DesktopNotifications = prefs.desktop.Checked
	settings.ReconcileOnResume = prefs.reconcile.Checked
	settings.Debug = prefs.debug.Checked

	if err := (config.Config{Settings: settings}).Validate(); err != nil {
		return err
	}

	prefs.settings = settings
	prefs.errorLabel.SetText("")
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
	return nil
}
