// Package line connects the bot to the LINE Messaging API.
package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"wedding-seatbot/internal/delivery"
)

// Sender pushes text messages with the Messaging API
type Sender struct {
	api *messaging_api.MessagingApiAPI
}

// NewSender creates a sender. Options are passed to the SDK client, mostly
// to point it at another endpoint in tests.
func NewSender(channelToken string, opts ...messaging_api.MessagingApiAPIOption) (*Sender, error) {
	if channelToken == "" {
		return nil, errors.New("LINE channel access token is required")
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}
	return &Sender{api: api}, nil
}

// Send pushes text to recipient. Every attempt of one delivery carries the
// same retry key, so LINE accepts a retried push at most once.
func (s *Sender) Send(ctx context.Context, recipient, text string) error {
	retryKey, ok := delivery.DeliveryID(ctx)
	if !ok {
		retryKey = uuid.NewString()
	}

	req := &messaging_api.PushMessageRequest{
		To: recipient,
		Messages: []messaging_api.MessageInterface{
			&messaging_api.TextMessage{Text: text},
		},
	}

	resp, _, err := s.api.WithContext(ctx).PushMessageWithHttpInfo(req, retryKey)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err == nil {
		return nil
	}
	if resp == nil {
		return fmt.Errorf("failed to push message: %w", err)
	}
	// Accepted with an unreadable body, or an earlier attempt with this
	// retry key already went through
	if resp.StatusCode/100 == 2 || resp.StatusCode == http.StatusConflict {
		return nil
	}
	return &delivery.PlatformError{StatusCode: resp.StatusCode, Body: err.Error()}
}
