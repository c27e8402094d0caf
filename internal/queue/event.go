// Package queue defines the message payloads exchanged over the broker plus
// the publisher and background consumer for refresh notifications. The
// broker is optional: when no RABBITMQ_URL / AMQP_URL is configured both
// sides become no-ops so the service runs standalone.
package queue

// CountriesRefreshedEvent is published after a sync run commits. It carries
// enough information for downstream consumers to log or trigger analytics
// without querying the primary database.
type CountriesRefreshedEvent struct {
	Count       int    `json:"count"`
	RefreshedAt string `json:"refreshed_at"`
}
