package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/BRO3886/opensearch-resource-store/internal/queue"
	"github.com/IBM/sarama"
)

var errProducerClosed = errors.New("producer closed")

type KafkaEnqueuer struct {
	// asyncMu keeps one message in flight on the async producer. Each message
	// carries its sequence number as metadata so acknowledgements left behind
	// by a cancelled caller are skipped.
	asyncMu       sync.Mutex
	asyncSeq      uint64
	syncProducer  sarama.SyncProducer
	asyncProducer sarama.AsyncProducer
	cfg           *Config
}

// NewEnqueuer dials the producer the configuration asks for: a sync producer
// when WithSyncProducer is set, an async one otherwise.
func NewEnqueuer(ctx context.Context, c *Config) (queue.Enqueuer, error) {
	if c.IsSync() {
		syncProducer, err := sarama.NewSyncProducer(c.GetBrokers(), c.GetConfig())
		if err != nil {
			return nil, err
		}
		return newEnqueuer(syncProducer, nil, c), nil
	}

	asyncProducer, err := sarama.NewAsyncProducer(c.GetBrokers(), c.GetConfig())
	if err != nil {
		return nil, err
	}
	return newEnqueuer(nil, asyncProducer, c), nil
}

func newEnqueuer(syncProducer sarama.SyncProducer, asyncProducer sarama.AsyncProducer, c *Config) *KafkaEnqueuer {
	return &KafkaEnqueuer{
		syncProducer:  syncProducer,
		asyncProducer: asyncProducer,
		cfg:           c,
	}
}

func (k *KafkaEnqueuer) Enqueue(ctx context.Context, topic string, data []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
	}
	if k.syncProducer != nil {
		return k.enqueueSync(ctx, msg)
	}
	return k.enqueueAsync(ctx, msg)
}

func (k *KafkaEnqueuer) enqueueSync(ctx context.Context, msg *sarama.ProducerMessage) error {
	partition, offset, err := k.syncProducer.SendMessage(msg)
	if err != nil {
		return err
	}
	log.Debugf("[kafka] [%s] message sent to partition %d with offset %d", msg.Topic, partition, offset)
	return nil
}

// enqueueAsync hands msg to the producer and waits for its acknowledgement.
func (k *KafkaEnqueuer) enqueueAsync(ctx context.Context, msg *sarama.ProducerMessage) error {
	k.asyncMu.Lock()
	defer k.asyncMu.Unlock()

	k.asyncSeq++
	msg.Metadata = k.asyncSeq

	select {
	case k.asyncProducer.Input() <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case sent, ok := <-k.asyncProducer.Successes():
			if !ok {
				return errProducerClosed
			}
			if sent.Metadata != msg.Metadata {
				log.Warnf("[kafka] [%s] skipping stale acknowledgement", sent.Topic)
				continue
			}
			log.Debugf("[kafka] [%s] message sent to partition %d with offset %d", sent.Topic, sent.Partition, sent.Offset)
			return nil
		case perr, ok := <-k.asyncProducer.Errors():
			if !ok {
				return errProducerClosed
			}
			if perr.Msg != nil && perr.Msg.Metadata != msg.Metadata {
				log.Warnf("[kafka] [%s] skipping stale error: %v", perr.Msg.Topic, perr.Err)
				continue
			}
			return perr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (k *KafkaEnqueuer) Close() error {
	if k.syncProducer != nil {
		if err := k.syncProducer.Close(); err != nil {
			return err
		}
	}
	if k.asyncProducer != nil {
		if err := k.asyncProducer.Close(); err != nil {
			return err
		}
	}
	return nil
}
