// Package remote follows a running dashboard's status stream.
package remote

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

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 120 * time.Second
	controlTimeout   = 5 * time.Second
)

// StatusURL turns a dashboard address ("localhost:8080", "http://host:8080")
// into its status websocket URL. ws:// and wss:// URLs are returned as is.
func StatusURL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("dashboard address: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("dashboard address: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws/status"
	}
	return u.String(), nil
}

// Watch calls fn for every snapshot the dashboard at wsURL sends. It returns
// nil when ctx is cancelled or the server closes the stream normally.
func Watch(ctx context.Context, wsURL string, fn func(shop.Snapshot)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", wsURL, err)
	}

	var writeMu sync.Mutex
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlTimeout))
	})

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(controlTimeout))
			writeMu.Unlock()
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read status: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		if kind != websocket.TextMessage {
			continue
		}

		var snap shop.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Warn("skipping malformed snapshot", "error", err)
			continue
		}
		fn(snap)
	}
}

// Follow keeps watching across disconnects, waiting retry between attempts.
// It returns when ctx is cancelled.
func Follow(ctx context.Context, wsURL string, retry time.Duration, fn func(shop.Snapshot)) error {
	for {
		err := Watch(ctx, wsURL, fn)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Warn("dashboard connection lost", "url", wsURL, "error", err)
		} else {
			log.Info("dashboard closed the stream", "url", wsURL)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

// ErrNoSnapshot is returned by First when the stream ends before a snapshot.
var ErrNoSnapshot = errors.New("remote: stream ended without a snapshot")

// First returns the first snapshot the dashboard sends.
func First(ctx context.Context, wsURL string) (shop.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		got  shop.Snapshot
		seen bool
	)
	err := Watch(ctx, wsURL, func(s shop.Snapshot) {
		if !seen {
			got, seen = s, true
			cancel()
		}
	})
	if err != nil {
		return shop.Snapshot{}, err
	}
	if !seen {
		return shop.Snapshot{}, ErrNoSnapshot
	}
	return got, nil
}
