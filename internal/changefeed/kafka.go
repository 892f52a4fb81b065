package changefeed

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaProducer produces outbox rows with franz-go, keyed by entity id so
// every change to one entity lands on the same partition.
type KafkaProducer struct {
	client *kgo.Client
}

// NewKafkaProducer connects to brokers.
func NewKafkaProducer(brokers []string, opts ...kgo.Opt) (*KafkaProducer, error) {
	all := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}, opts...)
	client, err := kgo.NewClient(all...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaProducer{client: client}, nil
}

func (p *KafkaProducer) Produce(ctx context.Context, batch []Pending) error {
	records := make([]*kgo.Record, 0, len(batch))
	for _, row := range batch {
		records = append(records, &kgo.Record{
			Topic: row.Topic,
			Key:   []byte(strconv.FormatInt(row.AggregateID, 10)),
			Value: row.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_id", Value: []byte(row.EventID)},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce change events: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaProducer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the client.
func (p *KafkaProducer) Close() {
	p.client.Close()
}

// EnsureTopic creates topic if it does not exist yet.
func (p *KafkaProducer) EnsureTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
