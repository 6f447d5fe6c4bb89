// Package sse broadcasts server events to connected clients over
// Server-Sent Events. Comment events are scoped to per-book rooms;
// everything else goes to every listener.
package sse

import "time"

// EventType identifies the kind of event being broadcast.
type EventType string

// Event types delivered to clients.
const (
	EventHeartbeat      EventType = "heartbeat"
	EventCommentCreated EventType = "comment.created"
	EventCommentDeleted EventType = "comment.deleted"
	EventBookUpdated    EventType = "book.updated"
)

// Event is one broadcastable message. BookID scopes delivery to clients
// subscribed to that book's room; empty means deliver to everyone.
type Event struct {
	Type      EventType `json:"type"`
	BookID    string    `json:"book_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHeartbeatEvent creates a keep-alive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now()}
}

// NewCommentCreatedEvent creates a comment broadcast for a book room.
func NewCommentCreatedEvent(bookID string, comment any) Event {
	return Event{
		Type:      EventCommentCreated,
		BookID:    bookID,
		Payload:   comment,
		Timestamp: time.Now(),
	}
}

// NewCommentDeletedEvent announces a comment removal to a book room.
func NewCommentDeletedEvent(bookID, commentID string) Event {
	return Event{
		Type:      EventCommentDeleted,
		BookID:    bookID,
		Payload:   map[string]string{"comment_id": commentID},
		Timestamp: time.Now(),
	}
}

// NewBookUpdatedEvent announces that a book's content changed.
func NewBookUpdatedEvent(bookID string) Event {
	return Event{
		Type:      EventBookUpdated,
		BookID:    bookID,
		Timestamp: time.Now(),
	}
}
