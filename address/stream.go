package address

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/myxmaster/zeus/logger"
)

// PaidEvent announces an incoming payment held by the service, pushed
// over the stream socket.
type PaidEvent struct {
	Hash string `json:"hash"`
	// Req is the hodl invoice wrapping the payment, informational only.
	Req        string `json:"req,omitempty"`
	AmountMsat uint64 `json:"amount_msat"`
	Comment    string `json:"comment,omitempty"`
}

type streamMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type streamAuthMessage struct {
	Event string     `json:"event"`
	Data  authFields `json:"data"`
}

// Subscribe opens the stream socket, authenticates and invokes onPaid
// for every payment notification until the connection drops or ctx is
// cancelled. Blocks for the lifetime of the subscription.
func (client *ServiceClient) Subscribe(ctx context.Context, onPaid func(PaidEvent)) error {
	auth, err := client.authenticate(ctx)
	if err != nil {
		return err
	}

	socketUrl := client.socketHost + client.socketPath
	wsConfig, err := websocket.NewConfig(socketUrl, originUrl(client.socketHost))
	if err != nil {
		return err
	}

	ws, err := websocket.DialConfig(wsConfig)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer ws.Close()

	// Unblock the Receive loop when the caller gives up.
	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	err = websocket.JSON.Send(ws, &streamAuthMessage{
		Event: "auth",
		Data:  *auth,
	})
	if err != nil {
		return &TransportError{Err: err}
	}

	logger.Logger.Info().Str("url", socketUrl).Msg("Subscribed to lnurl payment stream")

	for {
		var message streamMessage
		if err := websocket.JSON.Receive(ws, &message); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Err: err}
		}

		switch message.Event {
		case "paid":
			var paid PaidEvent
			if err := json.Unmarshal(message.Data, &paid); err != nil {
				logger.Logger.Warn().Err(err).Msg("Failed to decode paid event")
				continue
			}
			onPaid(paid)
		default:
			logger.Logger.Debug().Str("event", message.Event).Msg("Ignoring unknown stream event")
		}
	}
}

func originUrl(socketHost string) string {
	origin := socketHost
	origin = strings.Replace(origin, "wss://", "https://", 1)
	origin = strings.Replace(origin, "ws://", "http://", 1)
	return origin
}
