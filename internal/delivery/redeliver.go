package delivery

import (
	"context"
	"errors"
)

// Deliverer sends one message and reports whether it went through
type Deliverer interface {
	Deliver(ctx context.Context, recipient, text string) bool
}

// Summary counts the outcome of one redelivery run
type Summary struct {
	Delivered int
	Failed    int
	Skipped   int
	Requeued  int
}

// Redeliver delivers drained entries again. Redacted entries cannot be
// addressed and are skipped. If ctx ends before every entry was attempted,
// the rest are appended back to log for the next run.
func Redeliver(ctx context.Context, d Deliverer, log DeadLetterLog, entries []Entry) (Summary, error) {
	var sum Summary
	for i, e := range entries {
		if ctx.Err() != nil {
			return sum, requeue(log, entries[i:], &sum)
		}
		switch {
		case e.Redacted:
			sum.Skipped++
		case d.Deliver(ctx, e.UserID, e.Text):
			sum.Delivered++
		default:
			sum.Failed++
		}
	}
	return sum, nil
}

func requeue(log DeadLetterLog, rest []Entry, sum *Summary) error {
	var errs []error
	for _, e := range rest {
		if e.Redacted {
			sum.Skipped++
			continue
		}
		if err := log.Append(e); err != nil {
			errs = append(errs, err)
			continue
		}
		sum.Requeued++
	}
	return errors.Join(errs...)
}

var _ Deliverer = (*Manager)(nil)
