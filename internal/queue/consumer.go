package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// StartRentalConsumer connects to RabbitMQ, declares the rental events
// queue and appends one line per event to out. It reconnects with backoff
// until ctx is cancelled and then returns ctx.Err().
func StartRentalConsumer(ctx context.Context, url string, out io.Writer) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("rental-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("rental-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, out io.Writer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("rental-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, out); err != nil {
				log.WithError(err).Warn("rental-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, out io.Writer) error {
	var ev RentalEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.RentalID == 0 {
		return errors.New("incomplete event")
	}

	var line string
	switch ev.Type {
	case RentalCreated:
		line = fmt.Sprintf("[%s] Rental created | rental_id=%d | user_id=%s | user=%q | umbrella_id=%s | credits=%d | rented_at=%s | deadline=%s\n",
			ev.OccurredAt, ev.RentalID, ev.UserID, ev.UserName, ev.UmbrellaID, ev.CreditsUsed, ev.RentedAt, ev.DeadlineAt)
	case RentalReturned:
		line = fmt.Sprintf("[%s] Rental returned | rental_id=%d | user_id=%s | umbrella_id=%s | returned_at=%s\n",
			ev.OccurredAt, ev.RentalID, ev.UserID, ev.UmbrellaID, ev.ReturnedAt)
	case RentalExpired:
		line = fmt.Sprintf("[%s] Rental expired | rental_id=%d | user_id=%s | umbrella_id=%s | deadline=%s\n",
			ev.OccurredAt, ev.RentalID, ev.UserID, ev.UmbrellaID, ev.DeadlineAt)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if _, err := io.WriteString(out, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
