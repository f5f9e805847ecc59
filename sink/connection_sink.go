package sink

import (
	"chat-hub/domain/event"
	"chat-hub/errors"
	"context"
)

// ConnectionSink buffers the events published to one connection.
// The connection actor drains Events and writes them to the transport.
type ConnectionSink struct {
	events chan event.DomainEvent
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &ConnectionSink{events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the broadcaster and never blocks on a slow reader.
// A full buffer drops the event and reports ErrSinkFull.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.events <- e:
		return nil
	default:
		return errors.ErrSinkFull
	}
}

func (s *ConnectionSink) Events() <-chan event.DomainEvent {
	return s.events
}
