package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

// Config wraps the sarama configuration together with the cluster and topic
// settings the enqueuer and dequeuer need.
type Config struct {
	cfg     *sarama.Config
	brokers []string
	topics  []string
	group   string
	sync    bool
}

type ConfigOpts func(*Config)

func WithSyncProducer() ConfigOpts {
	return func(c *Config) {
		c.sync = true
		c.cfg.Producer.RequiredAcks = sarama.WaitForAll
	}
}

func WithRetry(maxRetries int, backoff time.Duration) ConfigOpts {
	return func(c *Config) {
		if maxRetries > 0 {
			c.cfg.Producer.Retry.Max = maxRetries
		}
		if backoff > 0 {
			c.cfg.Producer.Retry.Backoff = backoff
		}
	}
}

func WithBrokers(brokers ...string) ConfigOpts {
	return func(c *Config) {
		c.brokers = brokers
	}
}

func WithTopics(topics ...string) ConfigOpts {
	return func(c *Config) {
		c.topics = topics
	}
}

// WithConsumerGroup sets the group every dequeued topic is consumed under.
func WithConsumerGroup(group string) ConfigOpts {
	return func(c *Config) {
		c.group = group
	}
}

func WithConsumeOldest() ConfigOpts {
	return func(c *Config) {
		c.cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
}

func NewConfig(opts ...ConfigOpts) *Config {
	s := sarama.NewConfig()
	s.Version = sarama.V2_8_0_0
	s.Producer.RequiredAcks = sarama.WaitForLocal
	s.Producer.Return.Successes = true
	s.Producer.Return.Errors = true
	cfg := &Config{
		cfg: s,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Config) IsSync() bool {
	return c.sync
}

func (c *Config) GetTopics() []string {
	return c.topics
}

func (c *Config) GetBrokers() []string {
	return c.brokers
}

// GetGroup returns the consumer group, falling back to topic when none is set.
func (c *Config) GetGroup(topic string) string {
	if c.group != "" {
		return c.group
	}
	return topic
}

func (c *Config) GetConfig() *sarama.Config {
	return c.cfg
}
