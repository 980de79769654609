package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-seatbot/internal/delivery"
	"wedding-seatbot/internal/models"
	"wedding-seatbot/internal/reply"
)

const DefaultCountryCode = "886"

const apologyTimeout = 10 * time.Second

// Submitter queues a message for background handling
type Submitter interface {
	Submit(msg models.Message) bool
}

type Config struct {
	DataDir string
	// CountryCode replaces the leading 0 of local phone numbers.
	CountryCode string
}

type Service struct {
	client    *whatsmeow.Client
	cfg       *Config
	log       zerolog.Logger
	submitter Submitter
	// send is Send, replaceable in tests
	send func(ctx context.Context, recipient, text string) error
}

// NewService opens the session store in cfg.DataDir and creates the client
func NewService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger.With().Str("component", "whatsapp").Logger(),
	}
	service.send = service.Send

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber strips formatting and turns a local number with a
// leading 0 into international format without the plus sign
func NormalizePhoneNumber(phoneNumber, countryCode string) string {
	var b strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phoneNumber = b.String()

	// 0912345678 -> 886912345678
	if strings.HasPrefix(phoneNumber, "0") && len(phoneNumber) == 10 {
		phoneNumber = countryCode + phoneNumber[1:]
	}

	// 8860912345678 -> 886912345678
	if countryCode != "" && strings.HasPrefix(phoneNumber, countryCode+"0") {
		phoneNumber = countryCode + phoneNumber[len(countryCode)+1:]
	}

	return phoneNumber
}

// Connect connects to WhatsApp, printing a login QR code on first use
func (s *Service) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, _ := s.client.GetQRChannel(ctx)
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Printf("QR Code: %s\n", evt.Code)
			fmt.Println("Please scan this QR code with WhatsApp to connect.")
			continue
		}
		fmt.Println("\n" + q.ToSmallString(false))
		fmt.Println("📱 Please scan the QR code above with WhatsApp:")
		fmt.Println("   1. Open WhatsApp on your phone")
		fmt.Println("   2. Go to Settings > Linked Devices")
		fmt.Println("   3. Tap 'Link a Device'")
		fmt.Println("   4. Scan the QR code shown above")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// Send sends a text message. recipient is either a full JID, as received on
// inbound messages, or a phone number that is checked with IsOnWhatsApp.
func (s *Service) Send(ctx context.Context, recipient, text string) error {
	jid, err := s.resolveJID(ctx, recipient)
	if err != nil {
		return err
	}

	s.log.Debug().Str("jid", jid.String()).Msg("Sending message")
	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Debug().Str("id", sent.ID).Time("timestamp", sent.Timestamp).Msg("Message sent")
	return nil
}

func (s *Service) resolveJID(ctx context.Context, recipient string) (types.JID, error) {
	if strings.Contains(recipient, "@") {
		jid, err := types.ParseJID(recipient)
		if err != nil {
			return types.JID{}, &delivery.PlatformError{StatusCode: http.StatusBadRequest, Body: err.Error()}
		}
		return jid, nil
	}

	phoneNumber := NormalizePhoneNumber(recipient, s.cfg.CountryCode)
	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + phoneNumber})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, &delivery.PlatformError{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("number %s is not registered on WhatsApp", phoneNumber),
		}
	}
	return resp[0].JID, nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Warn().Msg("Logged out from WhatsApp")
	}
}

// handleMessage forwards inbound text messages to the submitter
func (s *Service) handleMessage(evt *events.Message) {
	msg, ok := inboundMessage(evt)
	if !ok {
		return
	}
	if s.submitter == nil {
		s.log.Info().Str("event_id", msg.ID).Msg("Received message with no submitter set")
		return
	}
	if !s.submitter.Submit(msg) {
		go s.apologize(msg)
	}
}

// apologize tells the sender their message could not be queued. It runs
// off the event loop so a slow send does not stall other events.
func (s *Service) apologize(msg models.Message) {
	if s.send == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), apologyTimeout)
	defer cancel()
	if err := s.send(ctx, msg.Recipient, reply.ApologyReply); err != nil {
		s.log.Warn().Err(err).Str("event_id", msg.ID).Msg("Failed to send busy reply")
		return
	}
	s.log.Warn().Str("event_id", msg.ID).Msg("Handler busy, sent apology")
}

// SetSubmitter sets where inbound messages are sent
func (s *Service) SetSubmitter(submitter Submitter) {
	s.submitter = submitter
}

func inboundMessage(evt *events.Message) (models.Message, bool) {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe {
		return models.Message{}, false
	}
	text := evt.Message.GetConversation()
	if text == "" {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, false
	}
	return models.Message{
		ID:        evt.Info.ID,
		Recipient: evt.Info.Chat.String(),
		Text:      text,
	}, true
}
