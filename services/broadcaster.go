package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/observability"
	"context"
	"log/slog"
	"time"
)

// Broadcaster fans a newly stored record out to every live connection of the
// conversation participants. Delivery is best-effort: a slow or full sink
// loses the event and nothing is redelivered.
type Broadcaster struct {
	log             *slog.Logger
	sessions        contract.ISessionRepository
	registry        contract.IRegistry
	metrics         *observability.Metrics
	deliveryTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, sessions contract.ISessionRepository, registry contract.IRegistry,
	metrics *observability.Metrics, deliveryTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		log:             log,
		sessions:        sessions,
		registry:        registry,
		metrics:         metrics,
		deliveryTimeout: deliveryTimeout,
	}
}

// Fanout returns how many sinks accepted the event.
// The direction is computed per Session: "send" for the sender's own sessions.
func (b *Broadcaster) Fanout(ctx context.Context, conversation domain.Conversation, record domain.HistoryRecord) int {
	sessions, err := b.sessions.ListByOwners(ctx, conversation.Participants[:])
	if err != nil {
		b.log.Error("Unable to list sessions for fanout", "conversation_id", conversation.ID, "error", err)
		return 0
	}

	delivered := 0
	for _, session := range sessions {
		evt := event.MessageDelivered{
			Target:         session.Group(),
			RecordID:       record.ID,
			ConversationID: conversation.ID,
			Direction:      record.DirectionFor(session.OwnerID),
			Content:        record.Content,
			At:             record.CreatedAt,
		}
		for _, sink := range b.registry.SinksFor(session.Group()) {
			if b.deliver(ctx, sink, evt) {
				delivered++
			}
		}
	}
	return delivered
}

func (b *Broadcaster) deliver(ctx context.Context, sink contract.EventSink, evt event.MessageDelivered) bool {
	deliveryCtx, cancel := context.WithTimeout(ctx, b.deliveryTimeout)
	defer cancel()

	if err := sink.Consume(deliveryCtx, evt); err != nil {
		b.metrics.DeliveriesTotal.WithLabelValues(observability.OutcomeDropped).Inc()
		b.log.Warn("Broadcast event lost", "group", evt.Target, "record_id", evt.RecordID, "error", err)
		return false
	}
	b.metrics.DeliveriesTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	return true
}
