package messaging

import "context"

// Broker publishes scheduling events for downstream consumers (reminder
// workers, the front desk dashboard). Publishing is best-effort: a failed
// publish is logged by the caller, never propagated to the patient-facing
// request.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
