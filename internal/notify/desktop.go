package notify

import (
	"context"
	"errors"

	"fyne.io/fyne/v2"

	"dotatimings/internal/core/catalog"
)

var errNoSender = errors.New("desktop notifications unavailable")

// Sender is the part of fyne.App used to raise desktop notifications.
type Sender interface {
	SendNotification(*fyne.Notification)
}

// Desktop shows notifications through the desktop shell.
type Desktop struct {
	sender   Sender
	renderer *catalog.Renderer
}

// NewDesktop returns a desktop notifier titled in the renderer's locale.
func NewDesktop(sender Sender, renderer *catalog.Renderer) *Desktop {
	if renderer == nil {
		renderer = catalog.NewRenderer(catalog.BaseLocale)
	}
	return &Desktop{sender: sender, renderer: renderer}
}

// Notify sends one desktop notification.
func (notifier *Desktop) Notify(_ context.Context, kind catalog.Kind, message string) error {
	if notifier.sender == nil {
		return errNoSender
	}
	notifier.sender.SendNotification(fyne.NewNotification(notifier.renderer.Title(kind), message))
	return nil
}
