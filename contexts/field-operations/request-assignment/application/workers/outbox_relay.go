package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

const (
	defaultClaimedTopic   = "service_request.claimed"
	defaultRelayBatchSize = 100
)

// OutboxRelay moves claim events from the store outbox to the event bus.
// Delivery is at-least-once: a crash between publish and ack re-publishes the
// row. Rows are published in outbox order and a publish failure ends the pass
// so later rows never overtake an earlier one.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultRelayBatchSize
	}
	topic := r.Topic
	if topic == "" {
		topic = defaultClaimedTopic
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "request_assignment_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	sent, dropped := 0, 0
	for _, message := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			// An undecodable row can never be published; acknowledge it so it
			// does not block the rows behind it.
			logger.Error("outbox payload undecodable, dropping row",
				"event", "request_assignment_outbox_row_dropped",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_type", message.EventType,
				"error", err.Error(),
			)
			if err := r.ack(ctx, logger, message.OutboxID); err != nil {
				return err
			}
			dropped++
			continue
		}

		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "request_assignment_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_id", envelope.EventID,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.ack(ctx, logger, message.OutboxID); err != nil {
			return err
		}
		sent++
	}

	if sent > 0 || dropped > 0 {
		logger.Info("outbox relay pass completed",
			"event", "request_assignment_outbox_relay_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", topic,
			"sent_count", sent,
			"dropped_count", dropped,
		)
	}
	return nil
}

func (r OutboxRelay) ack(ctx context.Context, logger *slog.Logger, outboxID string) error {
	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	if err := r.Outbox.MarkOutboxSent(ctx, outboxID, now); err != nil {
		logger.Error("outbox mark sent failed",
			"event", "request_assignment_outbox_mark_sent_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"outbox_id", outboxID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
