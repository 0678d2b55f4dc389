package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

type written struct {
	kind int
	data []byte
}

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	writes chan written
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{writes: make(chan written, 64), closed: make(chan struct{})}
}

func (c *fakeConn) SetReadLimit(int64) {}
func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	c.writes <- written{kind, data}
	return nil
}

func (c *fakeConn) next(t *testing.T) written {
	t.Helper()
	select {
	case w := <-c.writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a write")
		return written{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, h.IsRunning)
	return h
}

func TestHub_Broadcast(t *testing.T) {
	h := runHub(t)
	conn := newFakeConn()
	client := NewClient(h, conn, TextMessage([]byte(`{"hello":true}`)))
	go client.Run()

	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if w := conn.next(t); w.kind != websocket.TextMessage || string(w.data) != `{"hello":true}` {
		t.Errorf("initial message: got %d %q", w.kind, w.data)
	}

	if err := h.BroadcastJSON(map[string]string{"phase": "scanning"}); err != nil {
		t.Fatal(err)
	}
	if w := conn.next(t); string(w.data) != `{"phase":"scanning"}` {
		t.Errorf("json: got %q", w.data)
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	if w := conn.next(t); w.kind != websocket.BinaryMessage || len(w.data) != 2 {
		t.Errorf("binary: got %d %v", w.kind, w.data)
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_BroadcastJSONError(t *testing.T) {
	h := New("test")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("unencodable value: expected error")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := runHub(t)
	// Registered but never pumped: its buffer fills up.
	NewClient(h, newFakeConn())
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was not dropped")
		}
		h.BroadcastBinary([]byte{1})
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	<-done

	if w := conn.next(t); w.kind != websocket.CloseMessage {
		t.Errorf("expected close frame, got %d", w.kind)
	}
	if h.IsRunning() {
		t.Error("hub should report stopped")
	}

	// Late clients are not registered.
	late := NewClient(h, newFakeConn())
	if _, ok := <-late.send; ok {
		t.Error("late client send channel should be closed")
	}
}
