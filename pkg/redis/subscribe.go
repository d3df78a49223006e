package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is one pub/sub delivery.
type Message struct {
	Channel string
	Payload string
}

// Subscribe confirms the subscription with the server before returning, then
// forwards deliveries until ctx ends or the returned close func runs. The
// message channel is closed once forwarding stops.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (<-chan Message, func() error, error) {
	if c.conn == nil {
		return nil, nil, errNotInitialized
	}
	if len(channels) == 0 {
		return nil, nil, errors.New("at least one channel is required")
	}

	sub := c.conn.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", strings.Join(channels, ","), err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- Message{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}
