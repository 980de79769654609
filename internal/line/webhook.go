package line

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/rs/zerolog"

	"wedding-seatbot/internal/models"
)

// Submitter queues a message for background handling
type Submitter interface {
	Submit(msg models.Message) bool
}

type Webhook struct {
	secret    string
	submitter Submitter
	log       zerolog.Logger
}

func NewWebhook(channelSecret string, submitter Submitter, logger zerolog.Logger) *Webhook {
	return &Webhook{
		secret:    channelSecret,
		submitter: submitter,
		log:       logger.With().Str("component", "line").Logger(),
	}
}

// Handle verifies the request signature, queues every text message and
// acknowledges at once. Replies are pushed later by the handler. When any
// message could not be queued it answers 503 so LINE retries the request.
func (w *Webhook) Handle(c echo.Context) error {
	cb, err := webhook.ParseRequest(w.secret, c.Request())
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			w.log.Warn().Msg("Invalid signature detected, request rejected")
			return c.String(http.StatusBadRequest, "Invalid signature.")
		}
		w.log.Warn().Err(err).Msg("Failed to parse webhook")
		return c.String(http.StatusBadRequest, "Bad request.")
	}

	rejected := 0
	for _, event := range cb.Events {
		msg, ok := textMessage(event)
		if !ok {
			continue
		}
		if !w.submitter.Submit(msg) {
			rejected++
		}
	}
	if rejected > 0 {
		// LINE redelivers the whole batch; accepted events are dropped by dedupe
		w.log.Warn().Int("rejected", rejected).Int("events", len(cb.Events)).Msg("Handler busy, asking LINE to redeliver")
		return c.String(http.StatusServiceUnavailable, "Service busy.")
	}
	return c.String(http.StatusOK, "OK")
}

func textMessage(event webhook.EventInterface) (models.Message, bool) {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		return models.Message{}, false
	}
	content, ok := e.Message.(webhook.TextMessageContent)
	if !ok || content.Text == "" {
		return models.Message{}, false
	}
	recipient := sourceID(e.Source)
	if recipient == "" {
		return models.Message{}, false
	}
	return models.Message{
		ID:        e.WebhookEventId,
		Recipient: recipient,
		Text:      content.Text,
	}, true
}

// sourceID is where replies to an event are pushed: the group or room it
// came from, else the user
func sourceID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}
