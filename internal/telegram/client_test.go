package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-alert-bot/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithURL("test-token", srv.URL, zerolog.Nop())
}

func TestGetUpdates_DecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getUpdates" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if payload["offset"].(float64) != 42 {
			t.Errorf("offset = %v, want 42", payload["offset"])
		}
		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"from":{"id":7,"first_name":"Ann"},"chat":{"id":7},"text":"/createalert"}},
			{"update_id":101,"callback_query":{"id":"cb1","from":{"id":7,"first_name":"Ann"},"data":"greater"}}
		]}`))
	})

	updates, err := client.GetUpdates(context.Background(), 42, time.Second, 100)
	if err != nil {
		t.Fatalf("GetUpdates error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "/createalert" {
		t.Errorf("first update message = %+v", updates[0].Message)
	}
	if updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "greater" {
		t.Errorf("second update callback = %+v", updates[1].CallbackQuery)
	}
}

func TestGetUpdates_ConflictClassified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"ok":false,"error_code":409,"description":"Conflict: terminated by other getUpdates request"}`))
	})

	_, err := client.GetUpdates(context.Background(), 0, time.Second, 100)
	if !apperrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestCall_UnauthorizedClassified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	})

	_, err := client.GetMe(context.Background())
	if !apperrors.Is(err, apperrors.ErrNotAuthorized) {
		t.Fatalf("error = %v, want ErrNotAuthorized", err)
	}
}

func TestSendMessage_SerializesKeyboard(t *testing.T) {
	var got SendMessageRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":5,"chat":{"id":7}}}`))
	})

	msg, err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:    7,
		Text:      "<b>Please choose:</b>",
		ParseMode: "HTML",
		ReplyMarkup: InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Greater", CallbackData: "greater"}},
		}},
	})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if msg.MessageID != 5 {
		t.Errorf("message id = %d, want 5", msg.MessageID)
	}
	if got.ChatID != 7 || got.ParseMode != "HTML" {
		t.Errorf("request = %+v", got)
	}
}

func TestDeleteWebhook_SendsDropFlag(t *testing.T) {
	var payload map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Write([]byte(`{"ok":true,"result":true}`))
	})

	if err := client.DeleteWebhook(context.Background(), true); err != nil {
		t.Fatalf("DeleteWebhook error: %v", err)
	}
	if payload["drop_pending_updates"] != true {
		t.Errorf("drop_pending_updates = %v, want true", payload["drop_pending_updates"])
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := EscapeHTML(`BTC > 45000 & <rising>`); got != "BTC &gt; 45000 &amp; &lt;rising&gt;" {
		t.Errorf("EscapeHTML = %q", got)
	}
}
