package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka publishes announcements to a Kafka-compatible broker.
type Kafka struct {
	client *kgo.Client
	admin  *kadm.Client
}

// NewKafka connects to the given bootstrap servers (comma separated).
func NewKafka(bootstrap string) (*Kafka, error) {
	seeds := strings.Split(bootstrap, ",")
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, admin: kadm.NewClient(client)}, nil
}

// CreateTopic creates a single-partition topic. An already existing topic is
// not an error; registration announcements reuse the agent's topic.
func (k *Kafka) CreateTopic(ctx context.Context, name string) error {
	resp, err := k.admin.CreateTopics(ctx, 1, 1, nil, name)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", name, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %q: %w", name, res.Err)
		}
	}
	return nil
}

// Publish JSON-encodes the message and produces it synchronously so the
// caller's timeout bounds the whole call.
func (k *Kafka) Publish(ctx context.Context, topic string, message any) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message for %q: %w", topic, err)
	}
	record := &kgo.Record{Topic: topic, Value: value}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish to %q: %w", topic, err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (k *Kafka) Close() {
	k.client.Close()
}

var _ Notifier = (*Kafka)(nil)
