package kafka

import (
	"fmt"

	"github.com/BRO3886/opensearch-resource-store/internal/queue"
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "kafka")

type ConsumerGroupHandler struct {
	handler queue.MessageHandler
}

func NewConsumerGroupHandler(handler queue.MessageHandler) sarama.ConsumerGroupHandler {
	return &ConsumerGroupHandler{
		handler: handler,
	}
}

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *ConsumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim implements sarama.ConsumerGroupHandler. A message is marked
// only once the handler accepted it, so a failed change is redelivered.
func (c *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) (err error) {
	log.Infof("[kafka] [%s/%d] consuming claims", claim.Topic(), claim.Partition())
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[kafka] panic: %v", r)
			err = fmt.Errorf("panic handling message: %v", r)
		}
	}()

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handler(session.Context(), message.Value); err != nil {
				log.Errorf("[kafka] [%s/%d] error handling message at offset %d: %v",
					message.Topic, message.Partition, message.Offset, err)
				return err
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *ConsumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	return nil
}
