package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"wedding-seatbot/internal/config"
	"wedding-seatbot/internal/dedupe"
	"wedding-seatbot/internal/eventinfo"
	"wedding-seatbot/internal/generator"
	"wedding-seatbot/internal/handler"
	"wedding-seatbot/internal/keepalive"
	"wedding-seatbot/internal/line"
	"wedding-seatbot/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: webhook server, background workers and delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("💒 Wedding Seat Bot")
	fmt.Println("===================")

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := eventinfo.Load(cfg.EventInfoPath)
	if err != nil {
		return err
	}

	var gen handler.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := generator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		gen = g
	} else {
		logger.Info().Msg("GEMINI_API_KEY not set, answering event questions from the info file")
	}

	p, err := newPlatform(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	h := handler.New(handler.Deps{
		Resolver:  newResolver(cfg, store, logger),
		Delivery:  newDelivery(cfg, p.sender, logger),
		Generator: gen,
		Info:      info,
		Dedupe:    dedupe.Connect(ctx, cfg.RedisURL, cfg.RedisPassword, dedupe.DefaultTTL, logger),
		Logger:    logger,
	}, handler.Options{
		Workers:         cfg.WorkerCount,
		QueueSize:       cfg.QueueSize,
		SeatingChartURL: cfg.SeatingChartURL,
		Debug:           cfg.Debug,
	})

	var webhook echo.HandlerFunc
	if cfg.Platform == config.PlatformLine {
		webhook = line.NewWebhook(cfg.LineChannelSecret, h, logger).Handle
	} else {
		p.wa.SetSubmitter(h)
	}
	if err := p.connect(ctx); err != nil {
		return err
	}

	srv := server.New(cfg.Port, store, webhook, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	if cfg.KeepAliveURL != "" {
		go keepalive.New(cfg.KeepAliveURL, keepalive.DefaultInterval, logger).Run(ctx)
	}

	fmt.Printf("\n✅ Listening on :%d (%s)\n", cfg.Port, cfg.Platform)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	fmt.Println("\n\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown")
	}
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Background tasks did not finish in time")
	}
	fmt.Println("Goodbye! 👋")
	return nil
}
