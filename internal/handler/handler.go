// Package handler answers inbound guest messages in the background.
package handler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"wedding-seatbot/internal/dedupe"
	"wedding-seatbot/internal/delivery"
	"wedding-seatbot/internal/eventinfo"
	"wedding-seatbot/internal/intent"
	"wedding-seatbot/internal/metrics"
	"wedding-seatbot/internal/models"
	"wedding-seatbot/internal/reply"
)

const (
	DefaultWorkers   = 8
	DefaultQueueSize = 256
)

// Resolver looks a seat keyword up
type Resolver interface {
	Resolve(ctx context.Context, keyword string) (models.Result, error)
}

// Deliverer sends one reply to one recipient
type Deliverer interface {
	Deliver(ctx context.Context, recipient, text string) bool
}

// Generator answers a free-form question from the event context
type Generator interface {
	Generate(ctx context.Context, eventContext, question string) (string, error)
}

// ContextProvider supplies the public event details
type ContextProvider interface {
	Context() string
	Answer(question string) string
}

type Deps struct {
	Resolver Resolver
	Delivery Deliverer
	// Generator is optional; without it non-seat questions get canned answers.
	Generator Generator
	Info      ContextProvider
	Dedupe    dedupe.Deduper
	Logger    zerolog.Logger
}

type Options struct {
	Workers   int
	QueueSize int
	// SeatingChartURL is sent as a follow-up to every successful seat lookup.
	SeatingChartURL string
	// Debug logs internal failure detail.
	Debug bool
}

type Handler struct {
	resolver  Resolver
	delivery  Deliverer
	generator Generator
	info      ContextProvider
	dedupe    dedupe.Deduper
	opts      Options
	log       zerolog.Logger
	pool      *pool
}

func New(deps Deps, opts Options) *Handler {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	info := deps.Info
	if info == nil {
		info = &eventinfo.Info{}
	}
	dd := deps.Dedupe
	if dd == nil {
		dd = dedupe.Noop{}
	}

	return &Handler{
		resolver:  deps.Resolver,
		delivery:  deps.Delivery,
		generator: deps.Generator,
		info:      info,
		dedupe:    dd,
		opts:      opts,
		log:       deps.Logger.With().Str("component", "handler").Logger(),
		pool:      newPool(opts.Workers, opts.QueueSize),
	}
}

// Submit queues msg for background handling and returns at once. It returns
// false when the queue is full or the handler has been shut down.
func (h *Handler) Submit(msg models.Message) bool {
	err := h.pool.submit(func() {
		h.Process(context.Background(), msg)
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, errPoolClosed):
		h.log.Info().Str("event_id", msg.ID).Msg("Shutting down, message rejected")
	default:
		metrics.DroppedMessages.Inc()
		h.log.Warn().Str("event_id", msg.ID).Msg("Task queue full, message dropped")
	}
	return false
}

// Process answers msg and delivers the reply. Failures of any kind end in
// the apology reply rather than an error.
func (h *Handler) Process(ctx context.Context, msg models.Message) {
	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			h.fail(ctx, msg, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	first, err := h.dedupe.FirstSeen(ctx, msg.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("event_id", msg.ID).Msg("Dedupe check failed, processing anyway")
	}
	if !first {
		h.log.Debug().Str("event_id", msg.ID).Msg("Duplicate event skipped")
		return
	}

	text, followUp, err := h.Answer(ctx, msg.Text)
	if err != nil {
		h.fail(ctx, msg, err, nil)
		return
	}

	h.delivery.Deliver(ctx, msg.Recipient, text)
	if followUp != "" {
		h.delivery.Deliver(ctx, msg.Recipient, followUp)
	}
}

// Answer computes the reply to text without delivering it. followUp is
// empty unless a seating chart link should be sent after the reply.
func (h *Handler) Answer(ctx context.Context, text string) (string, string, error) {
	primary := intent.Classify(text).Primary()
	metrics.Messages.WithLabelValues(string(primary)).Inc()

	if primary == intent.SeatLookup {
		keyword, _ := intent.ExtractKeyword(text)
		res, err := h.resolver.Resolve(ctx, keyword)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve %q: %w", keyword, err)
		}

		var followUp string
		if res.Status == models.StatusOK && h.opts.SeatingChartURL != "" {
			followUp = "座位圖在這裡：" + h.opts.SeatingChartURL
		}
		return reply.Format(res), followUp, nil
	}

	if h.generator == nil {
		return h.info.Answer(text), "", nil
	}
	answer, err := h.generator.Generate(ctx, h.info.Context(), text)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, "", nil
}

// Shutdown stops accepting messages and waits for running tasks
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.pool.shutdown(ctx)
}

func (h *Handler) fail(ctx context.Context, msg models.Message, err error, stack []byte) {
	metrics.TaskFailures.Inc()
	if h.opts.Debug {
		ev := h.log.Error().Err(err).Str("event_id", msg.ID).Str("text", msg.Text)
		if stack != nil {
			ev = ev.Bytes("stack", stack)
		}
		ev.Msg("Task failed")
	} else {
		h.log.Error().Str("event_id", msg.ID).Msg("Task failed")
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("event_id", msg.ID).Msg("Apology delivery panicked")
		}
	}()
	h.delivery.Deliver(ctx, msg.Recipient, reply.ApologyReply)
}

var _ Deliverer = (*delivery.Manager)(nil)
