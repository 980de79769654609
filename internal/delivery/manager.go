// Package delivery sends replies with bounded retries and keeps what could
// not be sent in a dead-letter log.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding-seatbot/internal/metrics"
)

const (
	DefaultMaxRunes       = 4500
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = time.Second
	DefaultBackoffMax     = 30 * time.Second
	DefaultAttemptTimeout = 10 * time.Second

	// TruncationMarker is appended to messages cut down to MaxRunes
	TruncationMarker = "…(訊息過長，已截斷)"
)

type Options struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	AttemptTimeout time.Duration
	MaxRunes       int
	// RedactRecipient masks recipient ids written to the dead-letter log.
	RedactRecipient bool
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:     DefaultMaxRetries,
		BackoffBase:    DefaultBackoffBase,
		BackoffMax:     DefaultBackoffMax,
		AttemptTimeout: DefaultAttemptTimeout,
		MaxRunes:       DefaultMaxRunes,
	}
}

type Manager struct {
	sender     Sender
	deadLetter DeadLetterLog
	opts       Options
	log        zerolog.Logger

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

func NewManager(sender Sender, deadLetter DeadLetterLog, opts Options, logger zerolog.Logger) *Manager {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = DefaultBackoffMax
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = opts.BackoffBase
	}
	if opts.MaxRunes <= 0 {
		opts.MaxRunes = DefaultMaxRunes
	}

	return &Manager{
		sender:     sender,
		deadLetter: deadLetter,
		opts:       opts,
		log:        logger.With().Str("component", "delivery").Logger(),
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// Deliver sends text to recipient, retrying failed attempts with exponential
// backoff. It reports whether the platform accepted the message; when every
// attempt fails the message is dead-lettered and false is returned.
func (m *Manager) Deliver(ctx context.Context, recipient, text string) bool {
	text = Truncate(text, m.opts.MaxRunes)
	ctx = WithDeliveryID(ctx, uuid.NewString())

	attempts := m.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := m.attempt(ctx, recipient, text)
		if err == nil {
			metrics.DeliveryAttempts.WithLabelValues("ok").Inc()
			metrics.Deliveries.WithLabelValues(metrics.OutcomeDelivered).Inc()
			if attempt > 1 {
				m.log.Info().Str("recipient", Redact(recipient)).Int("attempt", attempt).Msg("Message delivered after retry")
			}
			return true
		}

		metrics.DeliveryAttempts.WithLabelValues("error").Inc()
		lastErr = err
		ev := m.log.Warn().Err(err).Str("recipient", Redact(recipient)).Int("attempt", attempt).Int("max_attempts", attempts)
		var perr *PlatformError
		if errors.As(err, &perr) {
			ev = ev.Int("status", perr.StatusCode)
		}

		if attempt == attempts {
			ev.Msg("Send failed, giving up")
			break
		}
		delay := Backoff(m.opts.BackoffBase, m.opts.BackoffMax, attempt)
		ev.Dur("retry_in", delay).Msg("Send failed, retrying")
		m.sleep(ctx, delay)
	}

	m.deadLetterMessage(recipient, text, lastErr)
	return false
}

func (m *Manager) attempt(ctx context.Context, recipient, text string) error {
	if m.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.AttemptTimeout)
		defer cancel()
	}
	return m.sender.Send(ctx, recipient, text)
}

func (m *Manager) deadLetterMessage(recipient, text string, cause error) {
	entry := Entry{
		Timestamp: m.now().UTC(),
		UserID:    recipient,
		Text:      text,
	}
	if m.opts.RedactRecipient {
		entry.UserID = Redact(recipient)
		entry.Redacted = true
	}

	if m.deadLetter == nil {
		metrics.Deliveries.WithLabelValues(metrics.OutcomeDeadLetterFailed).Inc()
		m.log.Error().Err(cause).Str("recipient", Redact(recipient)).Msg("Message undelivered and no dead-letter log configured")
		return
	}

	if err := m.deadLetter.Append(entry); err != nil {
		metrics.Deliveries.WithLabelValues(metrics.OutcomeDeadLetterFailed).Inc()
		m.log.Error().Err(err).AnErr("send_error", cause).Str("recipient", Redact(recipient)).Msg("Failed to write dead letter, message lost")
		return
	}
	metrics.Deliveries.WithLabelValues(metrics.OutcomeDeadLettered).Inc()
	m.log.Error().Err(cause).Str("recipient", Redact(recipient)).Msg("Message dead-lettered")
}

// Backoff returns min(base * 2^(attempt-1), limit) for attempt >= 1
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit || d <= 0 {
			return limit
		}
	}
	return min(d, limit)
}

// Truncate cuts text to at most maxRunes runes, marker included
func Truncate(text string, maxRunes int) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	marker := []rune(TruncationMarker)
	keep := maxRunes - len(marker)
	if keep < 0 {
		return string(marker[:maxRunes])
	}
	return string(r[:keep]) + TruncationMarker
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
