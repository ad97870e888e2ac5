package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BRO3886/opensearch-resource-store/internal/queue"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "feed")

// Publisher writes the changes of a store to the change feed topic.
type Publisher struct {
	enqueuer queue.Enqueuer
	topic    string
}

func NewPublisher(enqueuer queue.Enqueuer, topic string) *Publisher {
	return &Publisher{enqueuer: enqueuer, topic: topic}
}

func (p *Publisher) Notify(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event for %s/%s: %w", event.Op, event.Type, event.ID, err)
	}
	if err := p.enqueuer.Enqueue(ctx, p.topic, data); err != nil {
		return err
	}
	log.Debugf("[feed] published %s of %s/%s", event.Op, event.Type, event.ID)
	return nil
}
