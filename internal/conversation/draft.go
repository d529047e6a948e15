// Package conversation drives one user's alert-creation dialogue: the draft
// being assembled, the per-session state machine, and the registry mapping
// user identities to live sessions.
package conversation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes a single-symbol alert from a two-symbol ratio alert.
type Kind int

const (
	KindSingle Kind = iota
	KindRatio
)

func (k Kind) String() string {
	if k == KindRatio {
		return "ratio"
	}
	return "single"
}

// State is the closed set of conversation states.
type State int

const (
	StateAwaitingSymbol State = iota
	StateAwaitingOperator
	StateAwaitingPrice
	StateAwaitingDescription
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateAwaitingSymbol:
		return "awaiting_symbol"
	case StateAwaitingOperator:
		return "awaiting_operator"
	case StateAwaitingPrice:
		return "awaiting_price"
	case StateAwaitingDescription:
		return "awaiting_description"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// AlertDraft is the mutable alert being assembled by one session. Price is
// populated only on the transition into StateCompleted; a draft is never
// partially sent anywhere.
type AlertDraft struct {
	Kind              Kind
	Symbol            string
	SymbolNumerator   string
	SymbolDenominator string
	Operator          string // canonical symbol: > < >= <=
	RawPrice          string
	Price             decimal.Decimal
	Description       string
}

// DisplaySymbol renders the symbol the user is targeting.
func (d *AlertDraft) DisplaySymbol() string {
	if d.Kind == KindRatio {
		return fmt.Sprintf("%s/%s", d.SymbolNumerator, d.SymbolDenominator)
	}
	return d.Symbol
}

// complete reports whether every required field is populated.
func (d *AlertDraft) complete() bool {
	if d.Operator == "" || d.RawPrice == "" || d.Description == "" {
		return false
	}
	if d.Kind == KindRatio {
		return d.SymbolNumerator != "" && d.SymbolDenominator != ""
	}
	return d.Symbol != ""
}

// Session is one user's in-progress alert conversation. At most one live
// Session exists per user identity; a new entry-point event replaces any
// existing one.
type Session struct {
	UserID    int64
	ChatID    int64
	State     State
	Draft     AlertDraft
	CreatedAt time.Time
}

// NewSession creates a fresh session for the given identity.
func NewSession(userID, chatID int64) *Session {
	return &Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     StateAwaitingSymbol,
		CreatedAt: time.Now(),
	}
}
