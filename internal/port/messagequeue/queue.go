// Package messagequeue defines the event-bus port used to publish run
// lifecycle events to downstream consumers.
package messagequeue

import "context"

// Handler processes one delivered message.
type Handler func(subject string, data []byte) error

// Queue is a durable publish/subscribe bus.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) error
	Close()
}
