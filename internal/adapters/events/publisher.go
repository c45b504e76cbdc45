// Package events announces paid bookings on a RabbitMQ fanout exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"staybook/internal/domain"
)

const ExchangeBookingPaid = "booking_paid"

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// Dial connects and declares the exchange. An empty url yields a Publisher
// that drops every event.
func Dial(url string) (*Publisher, error) {
	if url == "" {
		return &Publisher{}, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	p, err := newPublisher(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(ExchangeBookingPaid, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeBookingPaid, err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Enabled() bool { return p.ch != nil }

func (p *Publisher) PublishBookingPaid(ctx context.Context, ev domain.BookingPaid) error {
	if p.ch == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// amqp.Channel is not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(ExchangeBookingPaid, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.PaymentIntentID,
		Timestamp:    ev.PaidAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ExchangeBookingPaid, err)
	}
	log.Debug().Str("booking_id", ev.BookingID).Bool("recorded", ev.Recorded).Msg("booking_paid published")
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
