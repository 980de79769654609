package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wedding-seatbot/internal/config"
	"wedding-seatbot/internal/delivery"
	"wedding-seatbot/internal/line"
	"wedding-seatbot/internal/resolver"
	"wedding-seatbot/internal/storage"
	"wedding-seatbot/internal/whatsapp"
)

func main() {
	root := &cobra.Command{
		Use:           "seatbot",
		Short:         "Wedding seat concierge bot for LINE and WhatsApp",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newLookupCmd(),
		newRedeliverCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the root logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, newLogger(cfg.Debug), nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	var logger zerolog.Logger
	if debug {
		level = zerolog.DebugLevel
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "seatbot").Logger()
}

func openStore(cfg *config.Config, logger zerolog.Logger) (*storage.Storage, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err := storage.Migrate(cfg.DatabaseDriver, cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
	}
	store, err := storage.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	return store, nil
}

func newResolver(cfg *config.Config, store *storage.Storage, logger zerolog.Logger) *resolver.Resolver {
	return resolver.New(store, resolver.Policy{
		RowCap:             cfg.SeatRowCap,
		AmbiguityThreshold: cfg.SeatAmbiguityThreshold,
	}, logger)
}

// platform is the connected messaging platform. wa is nil for LINE.
type platform struct {
	sender delivery.Sender
	wa     *whatsapp.Service
}

// connect logs in to WhatsApp. Set the submitter first so no inbound
// message is missed.
func (p platform) connect(ctx context.Context) error {
	if p.wa == nil {
		return nil
	}
	fmt.Println("Connecting to WhatsApp...")
	if err := p.wa.Connect(ctx); err != nil {
		return fmt.Errorf("error connecting to WhatsApp: %w", err)
	}
	fmt.Println("✅ Connected to WhatsApp!")
	return nil
}

func (p platform) close() {
	if p.wa != nil {
		p.wa.Disconnect()
	}
}

func newPlatform(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (platform, error) {
	if err := cfg.ValidatePlatform(); err != nil {
		return platform{}, err
	}

	switch cfg.Platform {
	case config.PlatformWhatsApp:
		if err := os.MkdirAll(cfg.WhatsAppDataDir, 0o755); err != nil {
			return platform{}, fmt.Errorf("failed to create data directory: %w", err)
		}
		svc, err := whatsapp.NewService(ctx, &whatsapp.Config{
			DataDir:     cfg.WhatsAppDataDir,
			CountryCode: cfg.WhatsAppCountryCode,
		}, logger)
		if err != nil {
			return platform{}, fmt.Errorf("error initializing WhatsApp service: %w", err)
		}
		return platform{sender: svc, wa: svc}, nil
	default:
		sender, err := line.NewSender(cfg.LineChannelAccessToken)
		if err != nil {
			return platform{}, err
		}
		return platform{sender: sender}, nil
	}
}

func newDelivery(cfg *config.Config, sender delivery.Sender, logger zerolog.Logger) *delivery.Manager {
	opts := delivery.DefaultOptions()
	opts.MaxRetries = cfg.DeliveryMaxRetries
	opts.BackoffMax = cfg.DeliveryBackoffMax
	opts.RedactRecipient = cfg.DeadLetterRedact
	return delivery.NewManager(sender, delivery.NewFileLog(cfg.DeadLetterPath), opts, logger)
}
