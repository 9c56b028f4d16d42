package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Notification carries one band-transition message.
type Notification struct {
	NetUID string
	Kind   string
	Text   string
	Cost   decimal.Decimal
	At     time.Time
}

// Notifier defines the delivery interface.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Multi fans a notification out to every channel in order.
type Multi []Notifier

// PartialError reports a notification that reached some channels but not all.
type PartialError struct {
	Delivered int
	Failed    int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d of %d channels failed: %v", e.Failed, e.Delivered+e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Notify delivers to all channels. When every channel fails the failures are
// joined; when only some fail a *PartialError is returned.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) < len(m) {
		return &PartialError{Delivered: len(m) - len(errs), Failed: len(errs), Err: errors.Join(errs...)}
	}
	return errors.Join(errs...)
}

var _ Notifier = Multi(nil)
