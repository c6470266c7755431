// Package sse provides Server-Sent Events client management for live post reloads.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

const ReloadMessage = "reload"

type Client struct {
	Msg  chan string
	Slug string
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to every client following slug. Slow clients miss the message.
func (s *SSEClients) Broadcast(slug string, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Slug == slug {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

// NotifyReload is the reload notifier handed to the post store.
func (s *SSEClients) NotifyReload(slug string) {
	s.Broadcast(slug, ReloadMessage)
}

// ServeHTTP streams events for the post named by the "post" query parameter.
func (s *SSEClients) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	slug := r.URL.Query().Get("post")
	if slug == "" {
		http.Error(w, "Post parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &Client{
		Msg:  make(chan string, 1),
		Slug: slug,
	}
	s.Add(client)
	l.Debug().Str("slug", slug).Msg("New SSE client connected")

	defer func() {
		s.Delete(client)
		l.Debug().Str("slug", slug).Msg("SSE client disconnected")
	}()

	done := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-done:
			return
		}
	}
}
