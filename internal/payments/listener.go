// Package payments consumes asynchronous payment status notifications and
// forwards them to the booking engine. Delivery is at-least-once with no
// ordering guarantee, so the listener is idempotent per transaction ID.
package payments

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/symptomcheck/scheduling-engine/internal/booking"
)

// Applier is the slice of the booking engine the listener drives.
type Applier interface {
	ApplyPaymentEvent(ctx context.Context, ev booking.PaymentEvent) error
}

// ProcessedStore is the durable idempotency ledger keyed by transaction ID.
type ProcessedStore interface {
	Seen(ctx context.Context, transactionID string) (bool, error)
	Mark(ctx context.Context, ev booking.PaymentEvent) error
}

type Listener struct {
	client   *redis.Client
	engine   Applier
	store    ProcessedStore
	stream   string
	group    string
	consumer string
	block    time.Duration
	log      zerolog.Logger
}

func NewListener(client *redis.Client, engine Applier, store ProcessedStore, stream, group string, log zerolog.Logger) *Listener {
	return &Listener{
		client:   client,
		engine:   engine,
		store:    store,
		stream:   stream,
		group:    group,
		consumer: "listener-" + uuid.NewString(),
		block:    5 * time.Second,
		log:      log.With().Str("component", "payment-listener").Logger(),
	}
}

// Run consumes the stream until ctx is cancelled. Messages are only acked
// once handled; transient failures leave them pending for redelivery.
func (l *Listener) Run(ctx context.Context) error {
	err := l.client.XGroupCreateMkStream(ctx, l.stream, l.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	l.log.Info().Str("stream", l.stream).Str("group", l.group).Msg("payment listener started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		streams, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    l.group,
			Consumer: l.consumer,
			Streams:  []string{l.stream, ">"},
			Count:    16,
			Block:    l.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Error().Err(err).Msg("read payment stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := l.Handle(ctx, msg); err != nil {
					l.log.Warn().Err(err).Str("message_id", msg.ID).Msg("payment event left pending for retry")
					continue
				}
				if err := l.client.XAck(ctx, l.stream, l.group, msg.ID).Err(); err != nil {
					l.log.Error().Err(err).Str("message_id", msg.ID).Msg("ack payment event")
				}
			}
		}
	}
}

// Handle processes one notification. A nil return means the message is
// done and may be acked; an error means it should be redelivered.
func (l *Listener) Handle(ctx context.Context, msg redis.XMessage) error {
	ev, err := parseMessage(msg)
	if err != nil {
		// Malformed messages never become valid; drop them.
		l.log.Error().Err(err).Str("message_id", msg.ID).Msg("discarding malformed payment event")
		return nil
	}

	seen, err := l.store.Seen(ctx, ev.TransactionID)
	if err != nil {
		return err
	}
	if seen {
		l.log.Debug().Str("transaction_id", ev.TransactionID).Msg("duplicate payment event")
		return nil
	}

	if err := l.engine.ApplyPaymentEvent(ctx, ev); err != nil {
		if errors.Is(err, booking.ErrAppointmentNotFound) {
			// Bad reference; retrying cannot help.
			l.log.Error().Err(err).Str("transaction_id", ev.TransactionID).Msg("payment event for unknown appointment")
			return l.store.Mark(ctx, ev)
		}
		return err
	}

	return l.store.Mark(ctx, ev)
}

func parseMessage(msg redis.XMessage) (booking.PaymentEvent, error) {
	var ev booking.PaymentEvent

	txID, ok := msg.Values["transaction_id"].(string)
	if !ok || txID == "" {
		return ev, errors.New("missing transaction_id")
	}

	apptRaw, ok := msg.Values["appointment_id"].(string)
	if !ok {
		return ev, errors.New("missing appointment_id")
	}
	apptID, err := uuid.Parse(apptRaw)
	if err != nil {
		return ev, errors.New("appointment_id is not a UUID")
	}

	status, ok := msg.Values["status"].(string)
	if !ok {
		return ev, errors.New("missing status")
	}
	ps := booking.PaymentStatus(status)
	if ps != booking.PaymentSucceeded && ps != booking.PaymentFailed {
		return ev, errors.New("unknown status " + status)
	}

	var amount int64
	if raw, ok := msg.Values["amount_cents"].(string); ok && raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ev, errors.New("amount_cents is not an integer")
		}
	}

	ev.TransactionID = txID
	ev.AppointmentID = apptID
	ev.Status = ps
	ev.AmountCents = amount
	return ev, nil
}
