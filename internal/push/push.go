// Package push is the push side of the transport gateway: a websocket
// listener that subscribes to incremental updates for one access key and
// hands raw payloads to a callback. It reconnects with backoff until its
// context is cancelled.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"battle-tracker/internal/config"
	"battle-tracker/internal/constants"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler receives the raw payload of every data message addressed to the
// subscribed key.
type Handler func(raw []byte)

type Listener struct {
	url       string
	accessKey string
	handler   Handler
	notify    func()
	logger    zerolog.Logger
}

func NewListener(cfg *config.Config, logger zerolog.Logger) *Listener {
	return &Listener{
		url:       cfg.PushURL,
		accessKey: cfg.AccessKey,
		logger:    logger,
	}
}

func (l *Listener) SetHandler(h Handler) {
	l.handler = h
}

// SetNotify registers a callback for change notifications that carry no
// payload; the recipient is expected to pull a fresh snapshot.
func (l *Listener) SetNotify(fn func()) {
	l.notify = fn
}

// message is the websocket envelope. Type distinguishes the initial full
// response from incremental updates; KeyID scopes updates to one client.
type message struct {
	Type  string          `json:"type"`
	KeyID string          `json:"keyId"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type clientCommand struct {
	Action string `json:"action"`
	KeyID  string `json:"keyId,omitempty"`
}

// Run connects, subscribes, and dispatches messages until ctx is cancelled.
// Connection failures are retried with capped exponential backoff.
func (l *Listener) Run(ctx context.Context) error {
	if l.url == "" {
		l.logger.Info().Msg("push channel disabled, no url configured")
		<-ctx.Done()
		return ctx.Err()
	}

	delay := constants.WSReconnectDelay
	for {
		err := l.listen(ctx)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Warn().Err(err).Dur("retry_in", delay).Msg("push connection lost")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > constants.WSMaxReconnectDelay {
			delay = constants.WSMaxReconnectDelay
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: constants.WSHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.logger.Info().Str("url", l.url).Msg("push channel connected")

	for _, cmd := range []clientCommand{
		{Action: "authenticate", KeyID: l.accessKey},
		{Action: "subscribe", KeyID: l.accessKey},
		{Action: "getData"},
	} {
		if err := conn.WriteJSON(cmd); err != nil {
			return err
		}
	}

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		l.dispatch(raw)
	}
}

func (l *Listener) dispatch(raw []byte) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		l.logger.Debug().Err(err).Msg("ignoring unparseable push message")
		return
	}

	switch msg.Type {
	case "dataResponse":
		l.deliver(msg.Data)
	case "dataUpdate":
		// Updates for other keys on a shared channel are not ours.
		if msg.KeyID != "" && msg.KeyID != l.accessKey {
			return
		}
		// A bare notification without data means "something changed, pull".
		if len(msg.Data) == 0 {
			if l.notify != nil {
				l.notify()
			}
			return
		}
		l.deliver(msg.Data)
	case "authError", "error":
		l.logger.Error().Str("type", msg.Type).Str("error", msg.Error).Msg("push channel error")
	case "authenticated", "subscribed":
		l.logger.Debug().Str("type", msg.Type).Msg("push handshake step")
	default:
		l.logger.Debug().Str("type", msg.Type).Msg("ignoring push message")
	}
}

func (l *Listener) deliver(data json.RawMessage) {
	if len(data) == 0 || l.handler == nil {
		return
	}
	l.handler(data)
}
