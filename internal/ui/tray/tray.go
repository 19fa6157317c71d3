package tray

import (
	"fmt"

	"fyne.io/fyne/v2"

	"dotatimings/internal/core/session"
	"dotatimings/internal/ui/controls"
)

const menuTitle = "DotaTimings"

// App is the part of desktop.App the tray needs.
type App interface {
	SetSystemTrayMenu(menu *fyne.Menu)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnAction      func(controls.Action, session.View)
	OnShowMatch   func()
	OnPreferences func()
	OnQuit        func()
}

// Manager handles system tray state. Methods must run on the fyne thread.
type Manager struct {
	app         App
	statusItem  *fyne.MenuItem
	actionItems map[controls.Action]*fyne.MenuItem
	callbacks   Callbacks
	view        session.View
}

// New creates a tray manager with the provided callbacks.
func New(app App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:         app,
		callbacks:   callbacks,
		actionItems: make(map[controls.Action]*fyne.MenuItem),
		view:        session.View{State: session.StateNotStarted},
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true

	for _, action := range controls.Actions() {
		action := action
		manager.actionItems[action] = fyne.NewMenuItem("", func() {
			if manager.callbacks.OnAction != nil {
				manager.callbacks.OnAction(action, manager.view)
			}
		})
	}

	manager.SetView(manager.view)
	return manager
}

// SetView updates the status line and action availability.
func (manager *Manager) SetView(view session.View) {
	manager.view = view
	manager.statusItem.Label = fmt.Sprintf("Status: %s", controls.Status(view))
	for action, item := range manager.actionItems {
		item.Label = controls.Label(action, view)
		item.Disabled = !controls.Available(action, view)
	}
	manager.refreshMenu()
}

// Menu returns the current tray menu.
func (manager *Manager) Menu() *fyne.Menu {
	items := []*fyne.MenuItem{
		manager.statusItem,
		fyne.NewMenuItem("Show match", func() {
			if manager.callbacks.OnShowMatch != nil {
				manager.callbacks.OnShowMatch()
			}
		}),
		fyne.NewMenuItemSeparator(),
	}
	for _, action := range controls.Actions() {
		items = append(items, manager.actionItems[action])
	}
	items = append(items,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	)
	return fyne.NewMenu(menuTitle, items...)
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.Menu())
	}
}
