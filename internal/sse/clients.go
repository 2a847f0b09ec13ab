// Package sse pushes live-preview reload events to editors watching a draft.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/config"
)

const MsgReload = "reload"

// heartbeatInterval keeps idle streams open through proxies.
const heartbeatInterval = 30 * time.Second

// Client is one open stream. Msg is buffered by one; Broadcast drops
// messages for a client whose buffer is full.
type Client struct {
	Msg chan string
	Key string
}

// SSEClients tracks open streams by the draft key they watch.
type SSEClients struct {
	mu    sync.RWMutex
	byKey map[string]map[*Client]struct{}
}

func NewSSEClients() *SSEClients {
	return &SSEClients{byKey: make(map[string]map[*Client]struct{})}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byKey[client.Key]
	if !ok {
		set = make(map[*Client]struct{})
		s.byKey[client.Key] = set
	}
	set[client] = struct{}{}
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byKey[client.Key]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(s.byKey, client.Key)
	}
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, set := range s.byKey {
		n += len(set)
	}
	return n
}

// Broadcast sends msg to every client watching key.
func (s *SSEClients) Broadcast(key string, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.byKey[key] {
		select {
		case client.Msg <- msg:
		default:
		}
	}
}

// Serve streams messages for key to w until the request ends.
func (s *SSEClients) Serve(w http.ResponseWriter, r *http.Request, key string) {
	log := zerolog.Ctx(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeSSE)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", key)
	flusher.Flush()

	client := &Client{Msg: make(chan string, 1), Key: key}
	s.Add(client)
	log.Debug().Str("key", key).Int("clients", s.Len()).Msg("SSE client connected")
	defer func() {
		s.Delete(client)
		log.Debug().Str("key", key).Msg("SSE client disconnected")
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg, key)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
