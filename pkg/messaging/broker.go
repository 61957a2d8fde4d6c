package messaging

import "context"

// Broker is the pub/sub surface used for appointment change delivery.
// Delivery guarantees are whatever the backing broker provides; this
// layer contracts nothing beyond that.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
