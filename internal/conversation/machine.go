package conversation

import (
	"fmt"
	"strings"

	"crypto-alert-bot/internal/parse"
)

// EventType classifies an inbound event.
type EventType int

const (
	// EventText is a free-text message.
	EventText EventType = iota
	// EventCallback is a button press carrying callback data.
	EventCallback
	// EventCancel is the dedicated fallback event (/cancel).
	EventCancel
)

// Event is one inbound event consumed by the machine.
type Event struct {
	Type EventType
	Text string // free text for EventText
	Data string // callback data for EventCallback
}

// Keyboard tells the transport which selectable options to render alongside a
// reply. The machine never emits markup, only this hint.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	// KeyboardSymbols shows the configured common-symbol shortcuts.
	KeyboardSymbols
	// KeyboardOperators shows the four comparison operator buttons.
	KeyboardOperators
	// KeyboardRemove clears any visible reply keyboard.
	KeyboardRemove
)

// Reply is one outbound message. Text is plain, with canonical (non-escaped)
// data values; display escaping is the transport's concern.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Outcome marks whether a step ended the session.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
)

// Step is the result of consuming one event.
type Step struct {
	Replies []Reply
	Outcome Outcome
}

func (s *Step) reply(text string, kb Keyboard) {
	s.Replies = append(s.Replies, Reply{Text: text, Keyboard: kb})
}

// Machine advances sessions through the alert dialogue. It is pure: no I/O,
// no clock, no shared state, so transitions are directly testable.
type Machine struct {
	Normalizer parse.Normalizer
	// Strict aborts a session on an event type the current state cannot
	// consume. The default policy ignores such events so the user can resend.
	Strict bool
}

// Begin starts the free-symbol flow at AwaitingSymbol.
func (m Machine) Begin(s *Session) Step {
	s.Draft = AlertDraft{Kind: KindSingle}
	s.State = StateAwaitingSymbol

	var step Step
	step.reply("Welcome to the Crypto Report Bot!\n"+
		"I will help you to create alert for your specific cryptocurrency.\n"+
		"What is crypto symbol for new alert?\n\n"+
		"You can either:\n"+
		"• Select from the common options below\n"+
		"• Type any crypto symbol you want", KeyboardSymbols)
	return step
}

// BeginRatio starts the fixed-pair flow directly at AwaitingOperator.
func (m Machine) BeginRatio(s *Session, numerator, denominator string) Step {
	s.Draft = AlertDraft{
		Kind:              KindRatio,
		SymbolNumerator:   numerator,
		SymbolDenominator: denominator,
	}
	s.State = StateAwaitingOperator

	var step Step
	step.reply(fmt.Sprintf("You are creating alert for %s ratio.\nWhat operator do you want?",
		s.Draft.DisplaySymbol()), KeyboardRemove)
	step.reply("Please choose:", KeyboardOperators)
	return step
}

// Advance consumes exactly one event. Terminal outcomes destroy the caller's
// registry entry; the machine itself only flips the state tag.
func (m Machine) Advance(s *Session, ev Event) Step {
	if ev.Type == EventCancel {
		return m.cancel(s)
	}
	if s.State.Terminal() {
		return Step{}
	}

	switch s.State {
	case StateAwaitingSymbol:
		return m.consumeSymbol(s, ev)
	case StateAwaitingOperator:
		return m.consumeOperator(s, ev)
	case StateAwaitingPrice:
		return m.consumePrice(s, ev)
	case StateAwaitingDescription:
		return m.consumeDescription(s, ev)
	}
	return Step{}
}

func (m Machine) cancel(s *Session) Step {
	s.State = StateCancelled
	var step Step
	step.Outcome = OutcomeCancelled
	step.reply("Bye! Hope to talk to you again soon.", KeyboardRemove)
	return step
}

// mismatch applies the non-matching-event policy.
func (m Machine) mismatch(s *Session) Step {
	if !m.Strict {
		return Step{}
	}
	s.State = StateCancelled
	var step Step
	step.Outcome = OutcomeCancelled
	step.reply("Unexpected input. Please start the process again.", KeyboardRemove)
	return step
}

func (m Machine) consumeSymbol(s *Session, ev Event) Step {
	if ev.Type != EventText {
		return m.mismatch(s)
	}
	symbol := strings.TrimSpace(ev.Text)
	if symbol == "" {
		return Step{}
	}

	s.Draft.Symbol = symbol
	s.State = StateAwaitingOperator

	var step Step
	step.reply(fmt.Sprintf("You selected %s crypto.\nWhat operator do you want?", symbol), KeyboardRemove)
	step.reply("Please choose:", KeyboardOperators)
	return step
}

func (m Machine) consumeOperator(s *Session, ev Event) Step {
	if ev.Type != EventCallback {
		return m.mismatch(s)
	}
	operator, err := parse.CanonicalOperator(ev.Data)
	if err != nil {
		// Unknown token: not one of ours, let the user press again.
		return Step{}
	}

	s.Draft.Operator = operator
	s.State = StateAwaitingPrice

	var step Step
	step.reply(fmt.Sprintf("You selected %s operator.\nWhat price level do you want to set for %s?",
		operator, s.Draft.DisplaySymbol()), KeyboardNone)
	return step
}

func (m Machine) consumePrice(s *Session, ev Event) Step {
	if ev.Type != EventText {
		return m.mismatch(s)
	}

	s.Draft.RawPrice = strings.TrimSpace(ev.Text)
	s.State = StateAwaitingDescription

	var step Step
	step.reply("Price noted.\nPlease add description:", KeyboardNone)
	return step
}

// consumeDescription stores the final field, validates the whole draft, and
// either completes or aborts. The gateway is the caller's business; a draft
// leaves here either fully populated or cancelled.
func (m Machine) consumeDescription(s *Session, ev Event) Step {
	if ev.Type != EventText {
		return m.mismatch(s)
	}

	s.Draft.Description = strings.TrimSpace(ev.Text)

	var step Step
	step.reply("Description added successfully.\nLet's summarize your selections.", KeyboardNone)

	if !s.Draft.complete() {
		s.State = StateCancelled
		step.Outcome = OutcomeCancelled
		step.reply("❌ Missing required information. Please start the process again.", KeyboardNone)
		return step
	}

	price, err := m.Normalizer.NormalizePrice(s.Draft.RawPrice)
	if err != nil {
		s.State = StateCancelled
		step.Outcome = OutcomeCancelled
		step.reply(fmt.Sprintf("❌ %v", err), KeyboardNone)
		return step
	}

	s.Draft.Price = price
	s.State = StateCompleted
	step.Outcome = OutcomeCompleted
	step.reply(m.summary(s), KeyboardNone)
	return step
}

func (m Machine) summary(s *Session) string {
	d := &s.Draft
	if d.Kind == KindRatio {
		return fmt.Sprintf("Summary:\nSymbol 1: %s\nSymbol 2: %s\nOperator: %s\nPrice: %s\nDescription: %s",
			d.SymbolNumerator, d.SymbolDenominator, d.Operator, d.RawPrice, d.Description)
	}
	return fmt.Sprintf("Summary:\nSymbol: %s\nOperator: %s\nPrice: %s\nDescription: %s",
		d.Symbol, d.Operator, d.RawPrice, d.Description)
}
