package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type EmitFunc func(event string, payload any) error

// EventHandler receives every Socket.IO event. Returning an error tears the
// connection down.
type EventHandler func(ctx context.Context, eventName string, payload json.RawMessage, emit EmitFunc) error

type GatewayOptions struct {
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

func (o GatewayOptions) withDefaults() GatewayOptions {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

// ErrServerClosed is returned when the server sends an Engine.IO close packet.
var ErrServerClosed = errors.New("engine.io close")

// WebsocketURL turns the server base URL into the Engine.IO websocket
// endpoint.
func WebsocketURL(mewURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(mewURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid MEW_URL scheme: %q", u.Scheme)
	}
	u.Path = "/socket.io/"
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RunGatewayOnce holds one connection until ctx ends, the server closes it or
// the handler fails.
func RunGatewayOnce(ctx context.Context, wsURL, token string, handler EventHandler, opts GatewayOptions) error {
	if strings.TrimSpace(wsURL) == "" {
		return fmt.Errorf("wsURL is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	opts = opts.withDefaults()

	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	sendText := func(payload string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, []byte(payload))
	}
	emit := func(event string, payload any) error {
		frame, err := EmitFrame(event, payload)
		if err != nil {
			return err
		}
		return sendText(frame)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"), time.Now().Add(2*time.Second))
			writeMu.Unlock()
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		for _, frame := range SplitFrames(msg) {
			if err := handleFrame(ctx, string(frame), token, sendText, handler, emit); err != nil {
				return err
			}
		}
	}
}

func handleFrame(ctx context.Context, s, token string, sendText func(string) error, handler EventHandler, emit EmitFunc) error {
	if s == "" {
		return nil
	}
	switch s[0] {
	case '0': // open
		auth, _ := json.Marshal(map[string]string{"token": token})
		return sendText("40" + string(auth))
	case '1':
		return ErrServerClosed
	case '2': // ping
		return sendText("3")
	case '4':
		if strings.HasPrefix(s, "44") {
			return fmt.Errorf("socket.io error: %s", strings.TrimSpace(s[2:]))
		}
		if !strings.HasPrefix(s, "42") {
			return nil
		}
		eventName, payload, ok, err := decodeEventPayload([]byte(s[2:]))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return handler(ctx, eventName, payload, emit)
	}
	return nil
}
