package stream

import (
	"context"

	"chat-connector/internal/domain/dto"
	"chat-connector/internal/infra/provider"
)

type EventType int

const (
	EventTextDelta EventType = iota
	EventError
	EventEnd
)

// Event is one element of the normalized stream consumed by the transport
// layer: a text fragment, a terminal error, or end of stream.
type Event struct {
	Type  EventType
	Text  string
	Error string
}

// Payload converts the event to its wire body. Error events carry the
// warning-prefixed display text so clients render them inside the transcript.
func (e Event) Payload() dto.StreamPayload {
	if e.Type == EventError {
		return dto.StreamPayload{Error: e.Error, Text: "⚠️ " + e.Error}
	}
	return dto.StreamPayload{Text: e.Text}
}

const noResponseMessage = "No response from model"

// Frame normalizes a raw backend delta sequence into events. Guarantees:
// a backend failure becomes exactly one Error event followed by End, and a
// stream that closes without producing any fragment yields a synthetic
// Error before End. The returned channel always terminates with EventEnd.
func Frame(ctx context.Context, deltas <-chan provider.Delta) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		defer close(out)

		sawFragment := false
		for {
			select {
			case <-ctx.Done():
				send(ctx, out, Event{Type: EventEnd})
				return
			case delta, ok := <-deltas:
				if !ok {
					if !sawFragment {
						send(ctx, out, Event{Type: EventError, Error: noResponseMessage})
					}
					send(ctx, out, Event{Type: EventEnd})
					return
				}
				if delta.Err != nil {
					send(ctx, out, Event{Type: EventError, Error: delta.Err.Error()})
					send(ctx, out, Event{Type: EventEnd})
					return
				}
				sawFragment = true
				if !send(ctx, out, Event{Type: EventTextDelta, Text: delta.Text}) {
					return
				}
			}
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- Event, event Event) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
