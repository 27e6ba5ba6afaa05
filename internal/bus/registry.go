// Package bus adapts Redis Streams into the topic/channel messaging the
// saga needs: publish-to-channel and at-least-once subscription
// delivery.
package bus

import (
	"context"
	"fmt"
	"sort"
)

// HandlerFunc processes one delivered message body.
type HandlerFunc func(ctx context.Context, raw []byte) error

// Registry maps channel names to handler functions. It is built once at
// startup and read-only afterwards.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a channel. Registering the same channel
// twice is a wiring mistake and fails.
func (r *Registry) Register(channel string, handler HandlerFunc) error {
	if channel == "" {
		return fmt.Errorf("channel name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler for channel %q is nil", channel)
	}
	if _, exists := r.handlers[channel]; exists {
		return fmt.Errorf("channel %q already registered", channel)
	}
	r.handlers[channel] = handler
	return nil
}

// Handler returns the handler bound to a channel.
func (r *Registry) Handler(channel string) (HandlerFunc, bool) {
	handler, ok := r.handlers[channel]
	return handler, ok
}

// Channels lists the registered channel names in stable order.
func (r *Registry) Channels() []string {
	channels := make([]string, 0, len(r.handlers))
	for channel := range r.handlers {
		channels = append(channels, channel)
	}
	sort.Strings(channels)
	return channels
}
