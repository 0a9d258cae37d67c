// Package notifications surfaces redemption outcomes to the user.
package notifications

import (
	"context"

	"github.com/myxmaster/zeus/address"
	"github.com/myxmaster/zeus/constants"
	"github.com/myxmaster/zeus/events"
	"github.com/myxmaster/zeus/logger"
	"github.com/myxmaster/zeus/utils"
)

// Notifier delivers a user-facing notification. Implementations must
// not block the event bus.
type Notifier interface {
	Notify(title string, body string)
}

// LogNotifier writes notifications to the application log. Used when no
// push transport is configured.
type LogNotifier struct{}

func (notifier *LogNotifier) Notify(title string, body string) {
	logger.Logger.Info().
		Str("title", title).
		Str("body", body).
		Msg("Notification")
}

// PaymentReceivedListener turns redemption events into notifications.
type PaymentReceivedListener struct {
	notifier Notifier
}

func NewPaymentReceivedListener(notifier Notifier) *PaymentReceivedListener {
	return &PaymentReceivedListener{notifier: notifier}
}

func (listener *PaymentReceivedListener) ConsumeEvent(ctx context.Context, event *events.Event) error {
	if event.Event != constants.EVENT_PAYMENT_REDEEMED {
		return nil
	}

	properties, ok := event.Properties.(*address.PaymentRedeemedProperties)
	if !ok {
		logger.Logger.Error().Str("event", event.Event).Msg("Unexpected event properties type")
		return nil
	}

	body := "Payment of " + utils.FormatSats(properties.AmountMsat/1000) + " sats automatically accepted"
	listener.notifier.Notify("ZEUS PAY payment received!", body)
	return nil
}
