package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers rejection events.  Callers treat errors as advisory:
// a broker outage must never fail the request being audited.
type Publisher interface {
	Publish(ctx context.Context, ev RejectionEvent) error
}

// NopPublisher drops every event.  It is used when auditing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RejectionEvent) error { return nil }

// AMQPPublisher publishes events to a durable RabbitMQ queue.  It dials per
// publish; rejections are rare enough that a pooled channel is not needed.
type AMQPPublisher struct {
	URL   string
	Queue string
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue}
}

// Publish implements Publisher.  Any error is logged and returned.
// Messages are marked as persistent.
func (p *AMQPPublisher) Publish(ctx context.Context, ev RejectionEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// PublishAsync hands ev to p on a background goroutine bounded by timeout so
// the HTTP response is not held up by the broker.
func PublishAsync(p Publisher, ev RejectionEvent, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = p.Publish(ctx, ev)
	}()
}
