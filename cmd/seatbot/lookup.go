package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wedding-seatbot/internal/eventinfo"
	"wedding-seatbot/internal/generator"
	"wedding-seatbot/internal/handler"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [question]",
		Short: "Answer questions from the terminal without a messaging platform",
		Long: "Answers one question given as arguments, or reads questions from stdin " +
			"until EOF or \"exit\". Replies are printed instead of delivered.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
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
				g, err := generator.NewGemini(cmd.Context(), cfg.GeminiAPIKey, cfg.GeminiModel)
				if err != nil {
					return err
				}
				gen = g
			}

			h := handler.New(handler.Deps{
				Resolver:  newResolver(cfg, store, logger),
				Generator: gen,
				Info:      info,
				Logger:    logger,
			}, handler.Options{Workers: 1, QueueSize: 1, SeatingChartURL: cfg.SeatingChartURL, Debug: cfg.Debug})
			defer h.Shutdown(context.Background())

			if len(args) > 0 {
				return answer(cmd.Context(), h, strings.Join(args, " "), os.Stdout)
			}
			return startCLI(cmd.Context(), h, os.Stdin, os.Stdout)
		},
	}
}

func startCLI(ctx context.Context, h *handler.Handler, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n💬 ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Exiting...")
			return nil
		}

		if err := answer(ctx, h, text, out); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
		}
	}
}

func answer(ctx context.Context, h *handler.Handler, text string, out io.Writer) error {
	reply, followUp, err := h.Answer(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reply)
	if followUp != "" {
		fmt.Fprintln(out, followUp)
	}
	return nil
}
