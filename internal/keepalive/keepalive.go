// Package keepalive pings the bot's public URL so free hosting tiers do not
// put it to sleep.
package keepalive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInterval = 5 * time.Minute
	requestTimeout  = 10 * time.Second
)

type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      zerolog.Logger
}

func New(url string, interval time.Duration, logger zerolog.Logger) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pinger{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: requestTimeout},
		log:      logger.With().Str("component", "keepalive").Logger(),
	}
}

// Run pings immediately and then on every tick until ctx is done
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if status, err := p.Ping(ctx); err != nil {
			p.log.Warn().Err(err).Str("url", p.url).Msg("Keep-alive ping failed")
		} else {
			p.log.Debug().Int("status", status).Msg("Keep-alive ping")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Ping sends one GET and returns the response status
func (p *Pinger) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
