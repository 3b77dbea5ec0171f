package socketio

import (
	"context"
	"errors"
	"time"
)

type ReconnectOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	OnDisconnect   func(err error, nextBackoff time.Duration)
	// OnConnect runs before each dial, including the first.
	OnConnect func(attempt int)
}

type Session interface {
	Token(ctx context.Context) (string, error)
}

// RunGatewayWithReconnectSession keeps a gateway connection alive until ctx
// ends, fetching a fresh token from session before every dial. Backoff
// doubles after each disconnect up to MaxBackoff and resets once a
// connection has stayed up for longer than MaxBackoff.
func RunGatewayWithReconnectSession(
	ctx context.Context,
	wsURL string,
	session Session,
	handler EventHandler,
	gatewayOpts GatewayOptions,
	reconnectOpts ReconnectOptions,
) error {
	if session == nil {
		return errors.New("session is required")
	}

	initial := reconnectOpts.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxBackoff := reconnectOpts.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 10 * time.Second
	}
	backoff := initial

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if reconnectOpts.OnConnect != nil {
			reconnectOpts.OnConnect(attempt)
		}

		started := time.Now()
		token, err := session.Token(ctx)
		if err == nil {
			err = RunGatewayOnce(ctx, wsURL, token, handler, gatewayOpts)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > maxBackoff {
			backoff = initial
		}

		if reconnectOpts.OnDisconnect != nil {
			reconnectOpts.OnDisconnect(err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
