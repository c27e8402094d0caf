package queue

import (
	"context"
	"encoding/json"
	"log"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
)

const refreshQueueName = "countries.refreshed"

// brokerURL returns the configured broker address, or "" when the broker is
// disabled.
func brokerURL() string {
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		return url
	}
	return os.Getenv("AMQP_URL")
}

// PublishCountriesRefreshed publishes a CountriesRefreshedEvent to the
// countries.refreshed queue. Messages are persistent and the queue is
// declared durable. Errors are logged and returned so the caller can ignore
// them: a failed publish must never fail an already-committed sync.
func PublishCountriesRefreshed(ctx context.Context, event CountriesRefreshedEvent) error {
	url := brokerURL()
	if url == "" {
		return nil // broker not configured
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		log.Printf("queue: dial broker failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("queue: open channel failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(refreshQueueName, true, false, false, false, nil); err != nil {
		log.Printf("queue: declare %s failed: %v", refreshQueueName, err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("queue: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", refreshQueueName, false, false, pub); err != nil {
		log.Printf("queue: publish failed: %v", err)
		return err
	}
	return nil
}
