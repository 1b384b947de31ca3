package stream

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher emits trades, forfeits and guard flags on separate topics.
// Messages within a batch share the batch id as key so downstream consumers
// see each batch's output in order on a single partition.
type KafkaPublisher struct {
	trades   *kafka.Writer
	forfeits *kafka.Writer
	flags    *kafka.Writer
}

func NewKafkaPublisher(brokers []string, tradeTopic, forfeitTopic, flagTopic string) *KafkaPublisher {
	mk := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}
	return &KafkaPublisher{
		trades:   mk(tradeTopic),
		forfeits: mk(forfeitTopic),
		flags:    mk(flagTopic),
	}
}

func batchKey(batchID uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, batchID)
	return k
}

func (p *KafkaPublisher) publish(ctx context.Context, w *kafka.Writer, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Key: key, Value: b})
}

func (p *KafkaPublisher) PublishTrade(ctx context.Context, t *domain.Trade) error {
	return p.publish(ctx, p.trades, batchKey(t.BatchID), t)
}

func (p *KafkaPublisher) PublishForfeit(ctx context.Context, f *domain.ForfeitedCommitment) error {
	return p.publish(ctx, p.forfeits, batchKey(f.BatchID), f)
}

func (p *KafkaPublisher) PublishFlag(ctx context.Context, f *domain.FlaggedTrade) error {
	return p.publish(ctx, p.flags, batchKey(f.BatchID), f)
}

func (p *KafkaPublisher) Close() error {
	var first error
	for _, w := range []*kafka.Writer{p.trades, p.forfeits, p.flags} {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
