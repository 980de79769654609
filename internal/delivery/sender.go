package delivery

import (
	"context"
	"fmt"
)

// Sender pushes one text message to one recipient on a messaging platform
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// PlatformError is a send the platform answered but rejected
type PlatformError struct {
	StatusCode int
	Body       string
}

func (e *PlatformError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform rejected message: status %d", e.StatusCode)
	}
	return fmt.Sprintf("platform rejected message: status %d: %s", e.StatusCode, e.Body)
}

type deliveryIDKey struct{}

// WithDeliveryID tags ctx with the id shared by every attempt of one delivery.
// Senders whose platform supports idempotent retries use it as the retry key.
func WithDeliveryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deliveryIDKey{}, id)
}

// DeliveryID returns the id set by WithDeliveryID, if any
func DeliveryID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deliveryIDKey{}).(string)
	return id, ok && id != ""
}
