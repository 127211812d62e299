package domain

import "context"

// Gateway delivers a text message to a single phone number.
type Gateway interface {
	Name() string
	Send(ctx context.Context, destination, body string) (Receipt, error)
}

// Receipt describes an accepted message.
type Receipt struct {
	MessageID string
	Status    string
	Cost      string
	Raw       map[string]any
}

// DeliveryError is returned when the gateway refused or failed to deliver.
// Reason is safe to show to API clients.
type DeliveryError struct {
	Provider string
	Reason   string
	Raw      map[string]any
	Err      error
}

func (e *DeliveryError) Error() string {
	return e.Reason
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
