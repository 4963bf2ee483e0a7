// Package notify is the registration announcement side-channel. Agent
// registrations get a topic named after the agent plus a published
// announcement; everything here is fire-and-forget from the engine's point
// of view.
package notify

import (
	"context"
	"strings"
)

// Notifier creates topics and publishes messages. Implementations must be
// safe for concurrent use.
type Notifier interface {
	CreateTopic(ctx context.Context, name string) error
	Publish(ctx context.Context, topic string, message any) error
}

// TopicFromName derives a topic name from an agent's display name:
// lowercased, spaces replaced with underscores.
func TopicFromName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// Noop is the disabled notifier used when no broker is configured.
type Noop struct{}

func (Noop) CreateTopic(ctx context.Context, name string) error           { return nil }
func (Noop) Publish(ctx context.Context, topic string, message any) error { return nil }
