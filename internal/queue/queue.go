package queue

import "context"

// Enqueuer publishes raw change events to a topic.
type Enqueuer interface {
	Enqueue(ctx context.Context, topic string, data []byte) error
	Close() error
}

// MessageHandler applies one dequeued message. Returning an error leaves the
// message unacknowledged.
type MessageHandler func(ctx context.Context, data []byte) error

type Dequeuer interface {
	Dequeue(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}
