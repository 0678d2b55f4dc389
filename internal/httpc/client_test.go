package httpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	t.Run("success", func(t *testing.T) {
		body, err := GetBytes(context.Background(), nil, srv.URL+"/ok")
		if err != nil {
			t.Fatalf("GetBytes: %v", err)
		}
		if string(body) != "payload" {
			t.Errorf("body: got %q", body)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := GetBytes(context.Background(), srv.Client(), srv.URL+"/missing")
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("err: got %v, want StatusError", err)
		}
		if se.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode: got %d", se.StatusCode)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := GetBytes(ctx, NewClient(time.Second), srv.URL+"/slow"); err == nil {
			t.Error("expected error")
		}
	})
}
