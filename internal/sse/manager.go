package sse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/openarklib/openark-server/internal/id"
)

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	ID          string
	// BookID is the room this client subscribed to. Empty means the client
	// receives every broadcast.
	BookID string
}

// Manager manages SSE connections and broadcasts events.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, 1000), // Buffer 1000 events
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Start begins the event broadcasting loop.
// This should be called once at server startup in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event := <-m.events:
			m.broadcast(event)

		case <-heartbeatTicker.C:
			// Send heartbeat to all clients.
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown gracefully shuts down the manager.
// It stops accepting new events, drains remaining events, and closes all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents race with Emit() which holds read lock during send.
	m.shutdownMu.Lock()
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	// Drain remaining events with context timeout.
	done := make(chan struct{})
	go func() {
		for event := range m.events {
			m.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("SSE events drained successfully")
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
	}

	m.wg.Wait()
	m.closeAllClients()

	m.logger.Info("SSE manager shutdown complete")
	return nil
}

// Emit queues an event for broadcast. Accepts any to satisfy the store's
// EventEmitter interface; non-Event values are dropped with a warning.
func (m *Manager) Emit(event any) {
	e, ok := event.(Event)
	if !ok {
		m.logger.Warn("Dropping non-Event emission", "type", "unknown")
		return
	}

	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	if m.shutdown {
		return
	}

	// Non-blocking send; the buffer absorbs bursts.
	select {
	case m.events <- e:
	default:
		m.logger.Warn("SSE event buffer full, dropping event", "event_type", string(e.Type))
	}
}

// AddClient registers a new client subscribed to a book room.
// Pass an empty bookID for a firehose subscription.
func (m *Manager) AddClient(bookID string) (*Client, error) {
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	if m.shutdown {
		return nil, errors.New("sse manager is shut down")
	}

	client := &Client{
		ID:          id.MustGenerate("sse"),
		BookID:      bookID,
		EventChan:   make(chan Event, 32),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	m.mu.Unlock()

	m.logger.Debug("SSE client connected", "client_id", client.ID, "book_id", bookID)
	return client, nil
}

// RemoveClient unregisters a client and closes its channel.
func (m *Manager) RemoveClient(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
	}
	m.mu.Unlock()

	if ok {
		close(client.EventChan)
		m.logger.Debug("SSE client disconnected", "client_id", clientID)
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// broadcast sends an event to connected clients, filtered by room.
func (m *Manager) broadcast(event Event) {
	var delivered, dropped int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		// Room filtering: book-scoped events only reach that book's room.
		// Heartbeats and global events reach everyone.
		if event.BookID != "" && client.BookID != "" && event.BookID != client.BookID {
			continue
		}

		// Non-blocking send (drop if client is slow/stuck).
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("broadcast event",
			slog.String("event_type", string(event.Type)),
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped))
	}
}

// closeAllClients closes every client channel and clears the registry.
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, client := range m.clients {
		close(client.EventChan)
		delete(m.clients, id)
	}
}
