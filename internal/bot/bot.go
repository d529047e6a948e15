// Package bot runs the update dispatch loop: it routes inbound events to
// per-user conversation sessions, invokes the alert gateway on completed
// drafts, and reports every terminal outcome back to the user.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crypto-alert-bot/internal/conversation"
	apperrors "crypto-alert-bot/internal/errors"
	"crypto-alert-bot/internal/gateway"
	"crypto-alert-bot/internal/logging"
	"crypto-alert-bot/internal/parse"
	"crypto-alert-bot/internal/store"
	"crypto-alert-bot/internal/telegram"
)

// deleteCallbackPrefix marks removal buttons on the /removealert keyboard.
const deleteCallbackPrefix = "delete_"

// operatorTokens, in keyboard order.
var operatorTokens = []string{"greater", "lower", "greater_or_equal", "lower_or_equal"}

// Transport is the messaging surface the bot drives.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration, limit int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

// Gateway is the remote alert store surface the bot consumes.
type Gateway interface {
	CreateAlert(ctx context.Context, payload gateway.Payload) bool
	ListAlerts(ctx context.Context) ([]gateway.Alert, error)
	DeleteAlert(ctx context.Context, guid string) bool
}

// Config tunes the dispatch loop and the dialogue.
type Config struct {
	PollTimeout time.Duration
	PollLimit   int
	// Symbols shown as shortcuts on the symbol keyboard.
	Symbols []string
	// Fixed pair for the ratio entry point.
	RatioNumerator   string
	RatioDenominator string
	// StrictEvents aborts sessions on input the current step cannot consume.
	StrictEvents bool
	// DecimalComma selects the price-parsing convention.
	DecimalComma bool
}

// Bot consumes the inbound update stream. One worker processes updates in
// arrival order, so events for any single user are strictly serial and a
// draft is never mutated concurrently.
type Bot struct {
	transport Transport
	gw        Gateway
	journal   store.JournalStore // optional
	registry  *conversation.Registry
	machine   conversation.Machine
	cfg       Config
	logger    zerolog.Logger
	offset    int64
}

// New creates a bot over the given collaborators. journal may be nil.
func New(transport Transport, gw Gateway, journal store.JournalStore, cfg Config, logger zerolog.Logger) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.PollLimit <= 0 {
		cfg.PollLimit = 100
	}
	return &Bot{
		transport: transport,
		gw:        gw,
		journal:   journal,
		registry:  conversation.NewRegistry(),
		machine: conversation.Machine{
			Normalizer: parse.Normalizer{DecimalComma: cfg.DecimalComma},
			Strict:     cfg.StrictEvents,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Run polls the inbound stream until ctx is cancelled. A conflict status in
// steady state means another instance is asserting ownership of the channel;
// that is fatal here, recovery happens only in the pre-flight arbiter.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info().Msg("Bot polling loop started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := b.transport.GetUpdates(ctx, b.offset, b.cfg.PollTimeout, b.cfg.PollLimit)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				b.logger.Error().Err(err).Msg("Another bot instance is running. Shutting down...")
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn().Err(err).Msg("Poll failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, update := range updates {
			b.offset = update.UpdateID + 1
			b.dispatch(ctx, update)
		}
	}
}

// dispatch routes one update by user identity.
func (b *Bot) dispatch(ctx context.Context, update telegram.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		logging.LogUpdate(b.logger, update.UpdateID, msg.From.ID, "message")
		if strings.HasPrefix(msg.Text, "/") {
			b.handleCommand(ctx, msg)
			return
		}
		b.handleText(ctx, msg)

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		logging.LogUpdate(b.logger, update.UpdateID, cb.From.ID, "callback")
		b.handleCallback(ctx, cb)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message) {
	command := msg.Text
	if idx := strings.IndexAny(command, " @"); idx > 0 {
		command = command[:idx]
	}

	userID, chatID := msg.From.ID, msg.Chat.ID

	switch command {
	case "/start", "/help":
		b.sendText(ctx, chatID, "I can register price alerts for you.\n\n"+
			"/createalert — alert on any crypto symbol\n"+
			"/creategmtalert — alert on the "+b.ratioPair()+" ratio\n"+
			"/getalerts — list current alerts\n"+
			"/removealert — remove an alert\n"+
			"/cancel — abort the current conversation", nil)

	case "/createalert":
		session := conversation.NewSession(userID, chatID)
		step := b.machine.Begin(session)
		b.registry.Replace(session)
		b.applyStep(ctx, session, step)

	case "/creategmtalert":
		session := conversation.NewSession(userID, chatID)
		step := b.machine.BeginRatio(session, b.cfg.RatioNumerator, b.cfg.RatioDenominator)
		b.registry.Replace(session)
		b.applyStep(ctx, session, step)

	case "/getalerts":
		b.handleListAlerts(ctx, chatID)

	case "/removealert":
		b.handleRemoveAlert(ctx, chatID)

	case "/cancel":
		session, ok := b.registry.Get(userID)
		if !ok {
			b.sendText(ctx, chatID, "Nothing to cancel.", nil)
			return
		}
		step := b.machine.Advance(session, conversation.Event{Type: conversation.EventCancel})
		b.applyStep(ctx, session, step)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *telegram.Message) {
	session, ok := b.registry.Get(msg.From.ID)
	if !ok {
		return
	}
	step := b.machine.Advance(session, conversation.Event{Type: conversation.EventText, Text: msg.Text})
	b.applyStep(ctx, session, step)
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if err := b.transport.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to answer callback query")
	}

	// An active session consumes the button press first; removal buttons
	// only act outside a conversation.
	if session, ok := b.registry.Get(cb.From.ID); ok {
		step := b.machine.Advance(session, conversation.Event{Type: conversation.EventCallback, Data: cb.Data})
		b.applyStep(ctx, session, step)
		return
	}

	if strings.HasPrefix(cb.Data, deleteCallbackPrefix) && cb.Message != nil {
		b.handleDeleteCallback(ctx, cb)
	}
}

// applyStep sends a step's replies and settles terminal outcomes. Exactly one
// confirmation message follows every terminal outcome.
func (b *Bot) applyStep(ctx context.Context, session *conversation.Session, step conversation.Step) {
	for _, reply := range step.Replies {
		b.sendText(ctx, session.ChatID, reply.Text, b.markupFor(reply.Keyboard))
	}

	switch step.Outcome {
	case conversation.OutcomeCompleted:
		b.registry.Remove(session.UserID)
		b.submitDraft(ctx, session)

	case conversation.OutcomeCancelled:
		b.registry.Remove(session.UserID)
		b.logger.Info().Int64("user_id", session.UserID).Msg("Session cancelled")
	}
}

// submitDraft sends a completed draft to the gateway and confirms the result.
func (b *Bot) submitDraft(ctx context.Context, session *conversation.Session) {
	draft := &session.Draft
	payload := gateway.Payload{
		Price:       draft.Price.InexactFloat64(),
		Operator:    draft.Operator,
		Description: draft.Description,
	}
	if draft.Kind == conversation.KindRatio {
		payload.Kind = gateway.KindRatio
		payload.Symbol1 = draft.SymbolNumerator
		payload.Symbol2 = draft.SymbolDenominator
	} else {
		payload.Kind = gateway.KindSingle
		payload.Symbol = draft.Symbol
	}

	if !b.gw.CreateAlert(ctx, payload) {
		b.sendText(ctx, session.ChatID, "❌ Failed to create alert. Please try again later.", nil)
		return
	}

	logging.LogAlertCreated(b.logger, draft.DisplaySymbol(), draft.Operator, payload.Price)
	b.sendText(ctx, session.ChatID, "✅ Alert has been created successfully!", nil)

	b.journalAction(ctx, &store.JournalEntry{
		UserID:      session.UserID,
		Action:      store.ActionCreated,
		Kind:        draft.Kind.String(),
		Symbol:      draft.DisplaySymbol(),
		Price:       payload.Price,
		Operator:    draft.Operator,
		Description: draft.Description,
	})
}

func (b *Bot) handleListAlerts(ctx context.Context, chatID int64) {
	alerts, err := b.gw.ListAlerts(ctx)
	if err != nil || len(alerts) == 0 {
		b.sendText(ctx, chatID, "No alerts found or error fetching alerts.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("Current Alerts:\n\n")
	for _, alert := range alerts {
		fmt.Fprintf(&sb, "Symbol: %s\nPrice: %v\nOperator: %s\nDescription: %s\n-------------------\n",
			alert.Symbol, alert.Price, alert.Operator, alert.Description)
	}
	b.sendText(ctx, chatID, sb.String(), nil)
}

func (b *Bot) handleRemoveAlert(ctx context.Context, chatID int64) {
	alerts, err := b.gw.ListAlerts(ctx)
	if err != nil || len(alerts) == 0 {
		b.sendText(ctx, chatID, "No alerts found to remove.", nil)
		return
	}

	var rows [][]telegram.InlineKeyboardButton
	for _, alert := range alerts {
		label := fmt.Sprintf("%s %s %v", alert.Symbol, alert.Operator, alert.Price)
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         label,
			CallbackData: deleteCallbackPrefix + alert.GUID,
		}})
	}

	b.sendText(ctx, chatID, "Select an alert to remove:",
		telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) handleDeleteCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	guid := strings.TrimPrefix(cb.Data, deleteCallbackPrefix)
	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID

	if !b.gw.DeleteAlert(ctx, guid) {
		b.editText(ctx, chatID, messageID, "❌ Failed to remove alert. Please try again later.")
		return
	}

	b.editText(ctx, chatID, messageID, "✅ Alert has been removed successfully!")
	b.journalAction(ctx, &store.JournalEntry{
		GUID:   guid,
		UserID: cb.From.ID,
		Action: store.ActionRemoved,
	})
}

func (b *Bot) journalAction(ctx context.Context, entry *store.JournalEntry) {
	if b.journal == nil {
		return
	}
	if err := b.journal.Record(ctx, entry); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to journal gateway action")
	}
}

// sendText delivers one message, escaping for HTML parse mode at the last
// moment; the values it receives are always canonical.
func (b *Bot) sendText(ctx context.Context, chatID int64, text string, markup interface{}) {
	_, err := b.transport.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        "<b>" + telegram.EscapeHTML(text) + "</b>",
		ParseMode:   "HTML",
		ReplyMarkup: markup,
	})
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) editText(ctx context.Context, chatID, messageID int64, text string) {
	if err := b.transport.EditMessageText(ctx, chatID, messageID, telegram.EscapeHTML(text)); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to edit message")
	}
}

// markupFor renders a keyboard hint into transport markup.
func (b *Bot) markupFor(kb conversation.Keyboard) interface{} {
	switch kb {
	case conversation.KeyboardSymbols:
		row := make([]telegram.KeyboardButton, 0, len(b.cfg.Symbols))
		for _, symbol := range b.cfg.Symbols {
			row = append(row, telegram.KeyboardButton{Text: symbol})
		}
		return telegram.ReplyKeyboardMarkup{
			Keyboard:              [][]telegram.KeyboardButton{row},
			OneTimeKeyboard:       true,
			ResizeKeyboard:        true,
			InputFieldPlaceholder: "Type any crypto symbol or select below",
		}

	case conversation.KeyboardOperators:
		rows := make([][]telegram.InlineKeyboardButton, 0, len(operatorTokens))
		for _, token := range operatorTokens {
			rows = append(rows, []telegram.InlineKeyboardButton{{
				Text:         parse.OperatorLabel(token),
				CallbackData: token,
			}})
		}
		return telegram.InlineKeyboardMarkup{InlineKeyboard: rows}

	case conversation.KeyboardRemove:
		return telegram.ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	return nil
}

func (b *Bot) ratioPair() string {
	return b.cfg.RatioNumerator + "/" + b.cfg.RatioDenominator
}
