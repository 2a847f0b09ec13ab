package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBroadcastTargetsKey(t *testing.T) {
	s := NewSSEClients()
	a := &Client{Msg: make(chan string, 1), Key: "blog/a"}
	b := &Client{Msg: make(chan string, 1), Key: "blog/b"}
	s.Add(a)
	s.Add(b)

	s.Broadcast("blog/a", MsgReload)

	select {
	case msg := <-a.Msg:
		if msg != MsgReload {
			t.Errorf("got %q, want %q", msg, MsgReload)
		}
	default:
		t.Fatal("expected message for subscribed client")
	}

	select {
	case msg := <-b.Msg:
		t.Fatalf("unexpected message %q for other key", msg)
	default:
	}

	// A full buffer drops instead of blocking
	s.Broadcast("blog/a", "one")
	s.Broadcast("blog/a", "two")
	if got := <-a.Msg; got != "one" {
		t.Errorf("got %q, want one", got)
	}

	s.Delete(a)
	s.Delete(b)
	s.Delete(a)
	if s.Len() != 0 {
		t.Errorf("expected no clients, got %d", s.Len())
	}
}

func TestServe(t *testing.T) {
	s := NewSSEClients()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Serve(w, r, "noise/thought")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, _ := reader.ReadString('\n')
	if !strings.HasPrefix(line, "event: connected") {
		t.Fatalf("unexpected first line %q", line)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Broadcast("noise/thought", MsgReload)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended before reload: %v", err)
		}
		if strings.TrimSpace(line) == "event: "+MsgReload {
			break
		}
	}
}
