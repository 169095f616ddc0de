// Package notify publishes domain events for systems outside the club
// floor, such as the front desk's confirmation mailer.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/playperu/beachclub/internal/beachclub"
)

const ReservationCreatedQueue = "reservation.created"

// ReservationCreated is the message body for a new booking.
type ReservationCreated struct {
	ReservationID string             `json:"reservationId"`
	GuestName     string             `json:"guestName"`
	Contact       string             `json:"contact"`
	ZoneType      beachclub.ZoneType `json:"zoneType"`
	Date          string             `json:"date"`
	Time          string             `json:"time"`
	GuestCount    int                `json:"guestCount"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func NewReservationCreated(r beachclub.Reservation) ReservationCreated {
	return ReservationCreated{
		ReservationID: r.ID,
		GuestName:     r.GuestName,
		Contact:       r.Contact,
		ZoneType:      r.ZoneType,
		Date:          r.Date,
		Time:          r.Time,
		GuestCount:    r.GuestCount,
		CreatedAt:     r.CreatedAt,
	}
}

type Notifier interface {
	ReservationCreated(ctx context.Context, r beachclub.Reservation) error
}

// New returns an AMQP notifier for url, or one that drops everything when
// url is empty.
func New(url string, logger *slog.Logger) Notifier {
	if url == "" {
		return Nop{}
	}
	return &AMQP{url: url, logger: logger}
}

type Nop struct{}

func (Nop) ReservationCreated(context.Context, beachclub.Reservation) error { return nil }

// AMQP dials the broker for every message.
type AMQP struct {
	url    string
	logger *slog.Logger
}

func (a *AMQP) ReservationCreated(ctx context.Context, r beachclub.Reservation) error {
	body, err := json.Marshal(NewReservationCreated(r))
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := a.publish(ctx, ReservationCreatedQueue, body); err != nil {
		a.logger.Error("publishing event", "queue", ReservationCreatedQueue, "reservation_id", r.ID, "error", err)
		return err
	}
	a.logger.Debug("event published", "queue", ReservationCreatedQueue, "reservation_id", r.ID)
	return nil
}

func (a *AMQP) publish(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
