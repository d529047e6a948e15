package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: journal round-trip consistency. Any recorded gateway action is
// returned by Recent with equivalent fields, newest first.
func TestProperty_JournalRoundTripConsistency(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal_property.db")
	defer os.Remove(dbPath)

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"BTC", "ETH", "DOT", "ATOM", "GMT/GST", "HBAR"}
	operators := []string{">", "<", ">=", "<="}
	actions := []string{ActionCreated, ActionRemoved}

	properties.Property("journal round-trip: record then query returns equivalent entry", prop.ForAll(
		func(symbolIdx, operatorIdx, actionIdx int, userID int64, price float64) bool {
			ctx := context.Background()

			entry := &JournalEntry{
				GUID:        "guid-prop",
				UserID:      userID,
				Action:      actions[actionIdx%len(actions)],
				Kind:        "single",
				Symbol:      symbols[symbolIdx%len(symbols)],
				Price:       price,
				Operator:    operators[operatorIdx%len(operators)],
				Description: "property check",
			}

			if err := store.Record(ctx, entry); err != nil {
				t.Logf("Failed to record entry: %v", err)
				return false
			}
			if entry.ID == 0 {
				t.Log("Record did not set the entry id")
				return false
			}

			recent, err := store.Recent(ctx, 1)
			if err != nil {
				t.Logf("Failed to query journal: %v", err)
				return false
			}
			if len(recent) != 1 {
				t.Logf("Recent returned %d entries, want 1", len(recent))
				return false
			}

			got := recent[0]
			if got.ID != entry.ID || got.UserID != entry.UserID ||
				got.Action != entry.Action || got.Symbol != entry.Symbol ||
				got.Operator != entry.Operator || got.Description != entry.Description {
				t.Logf("Entry mismatch: recorded=%+v, got=%+v", entry, got)
				return false
			}
			if math.Abs(got.Price-entry.Price) > 1e-9 {
				t.Logf("Price mismatch: recorded=%f, got=%f", entry.Price, got.Price)
				return false
			}
			return true
		},
		gen.IntRange(0, len(symbols)-1),
		gen.IntRange(0, len(operators)-1),
		gen.IntRange(0, len(actions)-1),
		gen.Int64Range(1, 1<<40),
		gen.Float64Range(0.0001, 5_000_000),
	))

	properties.TestingRun(t)
}

func TestRecent_OrderAndLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal_order.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &JournalEntry{
			UserID:    7,
			Action:    ActionCreated,
			Kind:      "single",
			Symbol:    "BTC",
			Price:     float64(100 + i),
			Operator:  ">",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d entries, want 3", len(recent))
	}
	if recent[0].Price != 104 || recent[2].Price != 102 {
		t.Errorf("ordering wrong: %+v", recent)
	}
}
