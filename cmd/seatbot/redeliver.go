package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wedding-seatbot/internal/delivery"
)

func newRedeliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redeliver",
		Short: "Retry every message in the dead letter log",
		Long: "Connects to the platform, moves the dead letter log aside and delivers " +
			"each entry again. Entries that fail again, and entries not attempted " +
			"before an interrupt, are appended to a fresh log. Redacted entries " +
			"cannot be delivered and stay in the archive.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			pending, err := delivery.ReadEntries(cfg.DeadLetterPath)
			if errors.Is(err, fs.ErrNotExist) || (err == nil && len(pending) == 0) {
				fmt.Println("Dead letter log is empty")
				return nil
			}
			if err != nil {
				return err
			}

			// The log is only moved once the platform is ready to send
			p, err := newPlatform(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer p.close()
			if err := p.connect(ctx); err != nil {
				return err
			}

			deadLetter := delivery.NewFileLog(cfg.DeadLetterPath)
			entries, archive, err := deadLetter.Drain(time.Now())
			if err != nil {
				return err
			}

			sum, err := delivery.Redeliver(ctx, newDelivery(cfg, p.sender, logger), deadLetter, entries)
			fmt.Printf("Archived %s\n", archive)
			fmt.Printf("✅ %d delivered, ❌ %d failed, %d redacted skipped, %d requeued\n",
				sum.Delivered, sum.Failed, sum.Skipped, sum.Requeued)
			if err != nil {
				return fmt.Errorf("failed to requeue dead letters, see %s: %w", archive, err)
			}
			return nil
		},
	}
}
