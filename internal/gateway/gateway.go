package gateway

import "context"

// Messenger defines the interface for chat gateways.
type Messenger interface {
	// Start runs the message loop until ctx is done or Stop is called.
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}
