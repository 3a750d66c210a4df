package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/symptomcheck/scheduling-engine/internal/booking"
)

// Publisher appends payment notifications to the stream the listener
// consumes. In production the payment provider callback is the writer;
// this is the ingress and simulation path.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) Publish(ctx context.Context, ev booking.PaymentEvent) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"transaction_id": ev.TransactionID,
			"appointment_id": ev.AppointmentID.String(),
			"status":         string(ev.Status),
			"amount_cents":   strconv.FormatInt(ev.AmountCents, 10),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish payment event: %w", err)
	}
	return nil
}
