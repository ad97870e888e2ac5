package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/BRO3886/opensearch-resource-store/internal/queue"
	"github.com/IBM/sarama"
)

type groupFactory func(brokers []string, group string, cfg *sarama.Config) (sarama.ConsumerGroup, error)

type KafkaDequeuer struct {
	mu             sync.Mutex
	consumerGroups map[string]sarama.ConsumerGroup
	cfg            *Config
	newGroup       groupFactory
}

func NewDequeuer(ctx context.Context, c *Config) (queue.Dequeuer, error) {
	return newDequeuer(c, sarama.NewConsumerGroup)
}

func newDequeuer(c *Config, newGroup groupFactory) (*KafkaDequeuer, error) {
	k := &KafkaDequeuer{
		consumerGroups: make(map[string]sarama.ConsumerGroup),
		cfg:            c,
		newGroup:       newGroup,
	}
	for _, topic := range c.GetTopics() {
		if _, err := k.group(topic); err != nil {
			_ = k.Close()
			return nil, err
		}
	}
	return k, nil
}

func (k *KafkaDequeuer) group(topic string) (sarama.ConsumerGroup, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cg, ok := k.consumerGroups[topic]; ok {
		return cg, nil
	}
	cg, err := k.newGroup(k.cfg.GetBrokers(), k.cfg.GetGroup(topic), k.cfg.GetConfig())
	if err != nil {
		return nil, err
	}
	k.consumerGroups[topic] = cg
	return cg, nil
}

// Dequeue consumes topic until ctx is cancelled, rejoining the group after
// every rebalance.
func (k *KafkaDequeuer) Dequeue(ctx context.Context, topic string, handler queue.MessageHandler) error {
	consumerGroup, err := k.group(topic)
	if err != nil {
		return err
	}

	go func() {
		for err := range consumerGroup.Errors() {
			log.Errorf("[kafka] [%s] consumer group error: %v", topic, err)
		}
	}()

	for {
		if err := consumerGroup.Consume(ctx, []string{topic}, NewConsumerGroupHandler(handler)); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (k *KafkaDequeuer) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var errs []error
	for topic, cg := range k.consumerGroups {
		if err := cg.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(k.consumerGroups, topic)
	}
	return errors.Join(errs...)
}
