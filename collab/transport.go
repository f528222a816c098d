package collab

import "context"

// Channel is a connected text-message channel to the relay. Close must be
// safe to call more than once and from any state.
type Channel interface {
	Send(data []byte) error
	Close() error
}

// Events receives what arrives on a channel. The callbacks may run on any
// goroutine.
type Events struct {
	OnMessage func(data []byte)
	// OnClose is called once when the channel stops, with the cause when the
	// close was not requested locally.
	OnClose func(err error)
}

// Dialer opens channels to a relay URL.
type Dialer interface {
	Dial(ctx context.Context, url string, ev Events) (Channel, error)
}
