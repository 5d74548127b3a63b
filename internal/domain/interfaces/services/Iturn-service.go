package Iservices

import (
	"context"

	"chat-connector/internal/infra/stream"
)

// EmitFunc delivers one normalized event to the transport layer.
type EmitFunc func(event stream.Event) error

// ITurnService drives one user-prompt-to-assistant-reply cycle.
type ITurnService interface {
	// StreamTurn persists the user prompt, streams the assistant reply
	// through emit as it is generated, and persists the final (or partial,
	// when cancelled) assistant message exactly once.
	StreamTurn(ctx context.Context, userID, conversationID int64, prompt, serviceType string, emit EmitFunc) error

	// RespondBlocking generates and persists an assistant reply for the
	// already-persisted message history, without streaming.
	RespondBlocking(ctx context.Context, userID, conversationID int64, serviceType string) (string, error)

	// RequestStop signals the in-flight turn for the caller's conversation.
	RequestStop(ctx context.Context, userID, conversationID int64) error
}
