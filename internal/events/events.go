package events

import "context"

// Stream carrying identity and purchase events consumed by the ws hub.
const StreamIdentity = "events:identity"

// Event types
const (
	EventRegistrationCompleted = "registration_completed"
	EventPairingCompleted      = "pairing_completed"
	EventPurchaseCaptured      = "purchase_captured"
)

type Event struct {
	Type string `json:"type"`
	// AccountID routes the event to that account's open sockets; empty
	// means broadcast.
	AccountID string         `json:"account_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
