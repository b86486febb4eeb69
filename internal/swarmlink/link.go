// Package swarmlink maintains the websocket connection to the swarm backend.
package swarmlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/gorilla/websocket"

	"swarmview/internal/logging"
)

var ErrNotConnected = errors.New("backend not connected")

// Options bound the reconnect backoff. MaxElapsed of zero retries forever.
type Options struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	WriteTimeout    time.Duration
}

// Link dials the backend, delivers every inbound text frame in arrival
// order and redials with exponential backoff when the connection drops.
type Link struct {
	url    string
	opts   Options
	dialer *websocket.Dialer
	logger *slog.Logger

	// OnState, if set, is called from Run whenever the connection comes up
	// or goes down.
	OnState func(connected bool)

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(url string, opts Options, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Link{
		url:    url,
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger.With(slog.String("component", "swarmlink"), slog.String("url", url)),
	}
}

func (l *Link) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if l.opts.InitialInterval > 0 {
		b.InitialInterval = l.opts.InitialInterval
	}
	if l.opts.MaxInterval > 0 {
		b.MaxInterval = l.opts.MaxInterval
	}
	b.MaxElapsedTime = l.opts.MaxElapsed
	b.Reset()
	return b
}

// Run blocks until ctx is done or the backoff gives up, in which case the
// last connection error is returned.
func (l *Link) Run(ctx context.Context, deliver func([]byte)) error {
	b := l.newBackOff()
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			connected, err := l.session(ctx, deliver)
			if ctx.Err() != nil {
				return nil
			}
			if connected {
				b.Reset()
			}
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				return fmt.Errorf("backend unreachable after %s: %w", b.GetElapsedTime().Round(time.Second), err)
			}
			logging.LogError(l.logger, "backend connection lost", err, slog.Duration("retry_in", wait))
			t.Reset(wait)
		}
	}
}

// session runs one connection until it fails. connected reports whether
// the dial succeeded.
func (l *Link) session(ctx context.Context, deliver func([]byte)) (connected bool, err error) {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	l.setConn(conn)
	l.logger.Info("backend connected")
	if l.OnState != nil {
		l.OnState(true)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		l.setConn(nil)
		if stop() {
			logging.SafeClose(conn, l.logger, "backend connection")
		}
		if l.OnState != nil {
			l.OnState(false)
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		deliver(data)
	}
}

func (l *Link) setConn(c *websocket.Conn) {
	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
}

// Connected reports whether a backend connection is currently up.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Send writes v as one JSON text frame.
func (l *Link) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ErrNotConnected
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(l.opts.WriteTimeout))
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}
