package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// ScoreChannel is the pg_notify channel score commits are announced on.
const ScoreChannel = "offer_scores"

// ScoreHub listens to PostgreSQL NOTIFY on ScoreChannel and fans each
// committed score out to connected SSE clients.
type ScoreHub struct {
	connStr   string
	clients   map[chan []byte]bool
	mu        sync.RWMutex
	broadcast chan []byte
}

func NewScoreHub(connStr string) *ScoreHub {
	return &ScoreHub{
		connStr:   connStr,
		clients:   make(map[chan []byte]bool),
		broadcast: make(chan []byte, 256),
	}
}

// Start runs the listener and the dispatcher until ctx ends. Without a
// connection string only Broadcast feeds the hub.
func (hub *ScoreHub) Start(ctx context.Context) {
	if hub.connStr != "" {
		go hub.listen(ctx)
	}
	go hub.dispatch(ctx)
}

func (hub *ScoreHub) listen(ctx context.Context) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("scorehub: pg listener", "event", int(ev), "error", err)
		}
	}
	listener := pq.NewListener(hub.connStr, 10*time.Second, time.Minute, reportProblem)
	defer listener.Close()

	if err := listener.Listen(ScoreChannel); err != nil {
		logger.Error("scorehub: listen", "channel", ScoreChannel, "error", err)
		return
	}
	logger.Info("scorehub: listening", "channel", ScoreChannel)

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			// nil after a reconnect; notifications sent meanwhile are lost
			if n != nil {
				hub.Broadcast([]byte(n.Extra))
			}
		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

func (hub *ScoreHub) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-hub.broadcast:
			hub.mu.RLock()
			for ch := range hub.clients {
				select {
				case ch <- msg:
				default:
					// slow client, drop
				}
			}
			hub.mu.RUnlock()
		}
	}
}

// Broadcast queues a JSON payload for every client. A full buffer drops it.
func (hub *ScoreHub) Broadcast(payload []byte) {
	select {
	case hub.broadcast <- payload:
	default:
	}
}

// Clients returns the number of connected clients.
func (hub *ScoreHub) Clients() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// HandleSSE streams committed scores as Server-Sent Events.
//
//	GET /api/scores/stream
func (hub *ScoreHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan []byte, 64)
	hub.mu.Lock()
	hub.clients[ch] = true
	hub.mu.Unlock()

	defer func() {
		hub.mu.Lock()
		delete(hub.clients, ch)
		hub.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if !json.Valid(msg) {
				continue
			}
			w.Write([]byte("event: score\ndata: "))
			w.Write(msg)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
