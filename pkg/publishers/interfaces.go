package publishers

import "context"

// Publisher sends download events to a downstream sink (queue, topic, bucket, webhook).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
