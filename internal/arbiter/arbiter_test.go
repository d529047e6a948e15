package arbiter

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-alert-bot/internal/errors"
	"crypto-alert-bot/internal/telegram"
)

// fakeTransport simulates a channel owned by another consumer for the first
// conflictPolls polls.
type fakeTransport struct {
	conflictPolls  int
	pending        []telegram.Update
	polls          int
	webhookDeleted bool
	dropPending    bool
	ackedOffset    int64
}

func (f *fakeTransport) DeleteWebhook(ctx context.Context, dropPending bool) error {
	f.webhookDeleted = true
	f.dropPending = dropPending
	return nil
}

func (f *fakeTransport) GetUpdates(ctx context.Context, offset int64, timeout time.Duration, limit int) ([]telegram.Update, error) {
	f.polls++
	if offset > 0 {
		f.ackedOffset = offset
		return nil, nil
	}
	if f.polls <= f.conflictPolls {
		return nil, apperrors.Wrap(apperrors.ErrConflict, "getUpdates")
	}
	return f.pending, nil
}

func fastConfig() Config {
	return Config{MaxAttempts: 5, Backoff: time.Millisecond, PollTimeout: time.Millisecond, PollLimit: 100}
}

func TestEnsureExclusive_ResolvesAfterRelease(t *testing.T) {
	transport := &fakeTransport{
		conflictPolls: 2,
		pending: []telegram.Update{
			{UpdateID: 10},
			{UpdateID: 12},
			{UpdateID: 11},
		},
	}
	a := New(transport, fastConfig(), zerolog.Nop())

	if err := a.EnsureExclusive(context.Background()); err != nil {
		t.Fatalf("EnsureExclusive error: %v", err)
	}
	if !transport.webhookDeleted || !transport.dropPending {
		t.Error("webhook was not cleared with drop_pending_updates")
	}
	if transport.ackedOffset != 13 {
		t.Errorf("acknowledged offset = %d, want 13 (highest id + 1)", transport.ackedOffset)
	}
}

func TestEnsureExclusive_NoPendingUpdates(t *testing.T) {
	transport := &fakeTransport{}
	a := New(transport, fastConfig(), zerolog.Nop())

	if err := a.EnsureExclusive(context.Background()); err != nil {
		t.Fatalf("EnsureExclusive error: %v", err)
	}
	if transport.ackedOffset != 0 {
		t.Errorf("unexpected acknowledge poll with offset %d", transport.ackedOffset)
	}
}

func TestEnsureExclusive_BudgetExhausted(t *testing.T) {
	transport := &fakeTransport{conflictPolls: 100}
	a := New(transport, fastConfig(), zerolog.Nop())

	err := a.EnsureExclusive(context.Background())
	if !apperrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if transport.polls != 5 {
		t.Errorf("polls = %d, want exactly the attempt budget (5)", transport.polls)
	}
}

func TestEnsureExclusive_ContextCancelled(t *testing.T) {
	transport := &fakeTransport{conflictPolls: 100}
	cfg := fastConfig()
	cfg.Backoff = time.Minute

	a := New(transport, cfg, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := a.EnsureExclusive(ctx)
	if err == nil || apperrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("error = %v, want context deadline error", err)
	}
}
