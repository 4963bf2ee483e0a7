//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"did-registry/internal/notify"
	"did-registry/pkg/testutil/containers"
)

func TestKafkaNotifier(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t)

	notifier, err := notify.NewKafka(broker.Broker)
	require.NoError(t, err)
	t.Cleanup(notifier.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "bot"
	require.NoError(t, notifier.CreateTopic(ctx, topic))
	// Creating an existing topic must not fail.
	require.NoError(t, notifier.CreateTopic(ctx, topic))

	message := map[string]string{"message": "New Agent registered: Bot"}
	require.NoError(t, notifier.Publish(ctx, topic, message))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.NotEmpty(t, records)

	var got map[string]string
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, "New Agent registered: Bot", got["message"])
}
