// Package arbiter asserts single-consumer ownership of the inbound long-poll
// channel before normal operation begins. The same procedure backs the bot's
// startup pre-flight and the standalone breaklock command; runtime conflicts
// are not recovered here, they are fatal to the caller.
package arbiter

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-alert-bot/internal/errors"
	"crypto-alert-bot/internal/telegram"
	"crypto-alert-bot/pkg/utils"
)

// Transport is the slice of the Bot API the arbiter drives.
type Transport interface {
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration, limit int) ([]telegram.Update, error)
}

// Config tunes the drain loop.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	PollTimeout time.Duration
	PollLimit   int
}

// DefaultConfig returns the drain-loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 20,
		Backoff:     2 * time.Second,
		PollTimeout: time.Second,
		PollLimit:   100,
	}
}

// Arbiter performs the two-phase exclusivity procedure.
type Arbiter struct {
	transport Transport
	cfg       Config
	logger    zerolog.Logger

	// Progress, when set, receives human-readable status lines. The breaklock
	// command wires it to terminal output; the bot leaves it nil.
	Progress func(format string, args ...interface{})
}

// New creates an arbiter over the given transport.
func New(transport Transport, cfg Config, logger zerolog.Logger) *Arbiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultConfig().Backoff
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}
	if cfg.PollLimit <= 0 {
		cfg.PollLimit = DefaultConfig().PollLimit
	}
	return &Arbiter{transport: transport, cfg: cfg, logger: logger}
}

func (a *Arbiter) report(format string, args ...interface{}) {
	if a.Progress != nil {
		a.Progress(format, args...)
	}
}

// EnsureExclusive clears any webhook, then drains the update stream with
// short-timeout polls until a poll succeeds without a conflict. Consumed
// updates are acknowledged immediately by advancing the offset past the
// highest received id. Exceeding the attempt budget returns an error wrapping
// ErrConflict.
func (a *Arbiter) EnsureExclusive(ctx context.Context) error {
	a.report("Deleting webhook and dropping pending updates...")
	if err := a.transport.DeleteWebhook(ctx, true); err != nil {
		// Not fatal on its own; the drain loop is the real arbiter.
		a.logger.Warn().Err(err).Msg("Failed to delete webhook")
		a.report("Failed to delete webhook: %v", err)
	}

	attempt := 0
	err := utils.Retry(ctx, utils.RetryConfig{
		MaxAttempts:   a.cfg.MaxAttempts,
		InitialDelay:  a.cfg.Backoff,
		MaxDelay:      a.cfg.Backoff,
		BackoffFactor: 1.0,
	}, func() error {
		attempt++
		a.report("Attempt %d/%d: polling for pending updates...", attempt, a.cfg.MaxAttempts)

		updates, err := a.transport.GetUpdates(ctx, 0, a.cfg.PollTimeout, a.cfg.PollLimit)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				a.logger.Warn().Int("attempt", attempt).Msg("Inbound channel still conflicting")
				a.report("Still conflicting, waiting %s...", a.cfg.Backoff)
			} else {
				a.logger.Warn().Err(err).Int("attempt", attempt).Msg("Poll failed")
				a.report("Poll failed: %v", err)
			}
			return err
		}

		if len(updates) > 0 {
			if ackErr := a.acknowledge(ctx, updates); ackErr != nil {
				a.logger.Warn().Err(ackErr).Msg("Failed to acknowledge drained updates")
			}
		}
		a.logger.Info().Int("attempt", attempt).Int("drained", len(updates)).
			Msg("Inbound channel ownership confirmed")
		a.report("No conflict detected; drained %d pending update(s).", len(updates))
		return nil
	})

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperrors.Wrapf(apperrors.ErrConflict,
		"not resolved after %d attempts", a.cfg.MaxAttempts)
}

// acknowledge advances the stream offset past the highest received update.
func (a *Arbiter) acknowledge(ctx context.Context, updates []telegram.Update) error {
	var highest int64
	for _, u := range updates {
		if u.UpdateID > highest {
			highest = u.UpdateID
		}
	}
	_, err := a.transport.GetUpdates(ctx, highest+1, a.cfg.PollTimeout, a.cfg.PollLimit)
	if err == nil {
		a.report("Acknowledged updates up to id %d.", highest)
	}
	return err
}
