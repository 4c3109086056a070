package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gigdesk/assignq/shared/rabbitmq"
)

// AMQPDispatcher publishes offer notifications to a RabbitMQ exchange
// consumed by the notification service (push/email delivery lives
// there, not here).
type AMQPDispatcher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewAMQPDispatcher creates a dispatcher over an established RabbitMQ client
func NewAMQPDispatcher(client *rabbitmq.Client, logger *slog.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{
		client: client,
		logger: logger,
	}
}

// Dispatch publishes the notification as a persistent JSON message.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, n OfferNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal offer notification: %w", err)
	}

	if err := d.client.Publish(ctx, body, "application/json"); err != nil {
		d.logger.Error("Failed to publish offer notification",
			slog.String("queue_entry_id", n.QueueEntryID),
			slog.String("freelancer_id", n.FreelancerID),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish offer notification: %w", err)
	}

	d.logger.Debug("Offer notification published",
		slog.String("queue_entry_id", n.QueueEntryID),
		slog.String("freelancer_id", n.FreelancerID),
		slog.Int("priority_bucket", n.PriorityBucket),
	)

	return nil
}
