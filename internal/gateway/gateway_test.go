package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "crypto-alert-bot/internal/errors"
)

func testConfig(baseURL string) Config {
	return Config{
		CreateURL: baseURL + "/api/insert_new_alert",
		ListURL:   baseURL + "/api/get_all_alerts",
		DeleteURL: baseURL + "/api/delete_alert",
		AccessKey: "secret-key",
		Timeout:   2 * time.Second,
	}
}

func TestCreateAlert_Success(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "secret-key" {
			t.Errorf("access key missing, query = %s", r.URL.RawQuery)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zerolog.Nop())
	ok := client.CreateAlert(context.Background(), Payload{
		Kind:        KindSingle,
		Symbol:      "BTC",
		Price:       45000.50,
		Operator:    ">",
		Description: "breakout",
	})
	if !ok {
		t.Fatal("CreateAlert returned false, want true")
	}
	if got.Symbol != "BTC" || got.Operator != ">" || got.Price != 45000.50 {
		t.Errorf("payload received = %+v", got)
	}
	if got.Kind != KindSingle {
		t.Errorf("kind = %q, want %q", got.Kind, KindSingle)
	}
}

func TestCreateAlert_FailureModes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zerolog.Nop())
	if client.CreateAlert(context.Background(), Payload{Kind: KindSingle, Symbol: "BTC"}) {
		t.Error("CreateAlert on HTTP 500 returned true, want false")
	}

	// Transport failure: nothing listening.
	srv.Close()
	if client.CreateAlert(context.Background(), Payload{Kind: KindSingle, Symbol: "BTC"}) {
		t.Error("CreateAlert on closed server returned true, want false")
	}
}

func TestListAlerts_ReturnsAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		json.NewEncoder(w).Encode([]Alert{
			{GUID: "g1", Symbol: "BTC", Price: 45000.5, Operator: ">", Description: "breakout"},
			{GUID: "g2", Symbol: "GMT/GST", Price: 2.5, Operator: "<=", Description: "ratio dip"},
		})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zerolog.Nop())
	alerts, err := client.ListAlerts(context.Background())
	if err != nil {
		t.Fatalf("ListAlerts error: %v", err)
	}
	if len(alerts) != 2 || alerts[0].GUID != "g1" || alerts[1].Operator != "<=" {
		t.Errorf("alerts = %+v", alerts)
	}
}

// A remote 500 yields an empty sequence; callers cannot tell it apart from a
// genuinely empty store without looking at the returned error.
func TestListAlerts_ServerErrorYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zerolog.Nop())
	alerts, err := client.ListAlerts(context.Background())
	if len(alerts) != 0 {
		t.Errorf("alerts = %+v, want empty", alerts)
	}
	var gerr *apperrors.GatewayError
	if !apperrors.As(err, &gerr) {
		t.Fatalf("error = %v, want *GatewayError", err)
	}
	if gerr.Status != http.StatusInternalServerError || gerr.IsTransport() {
		t.Errorf("gateway error = %+v", gerr)
	}
}

func TestListAlerts_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zerolog.Nop())
	alerts, err := client.ListAlerts(context.Background())
	if alerts != nil || err == nil {
		t.Errorf("alerts = %v, err = %v; want nil alerts and an error", alerts, err)
	}
}

// Second delete of the same id returns false without raising.
func TestDeleteAlert_Idempotence(t *testing.T) {
	var mu sync.Mutex
	deleted := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding delete body: %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if deleted[body["guid"]] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		deleted[body["guid"]] = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zerolog.Nop())
	if !client.DeleteAlert(context.Background(), "g1") {
		t.Fatal("first DeleteAlert returned false, want true")
	}
	if client.DeleteAlert(context.Background(), "g1") {
		t.Fatal("second DeleteAlert returned true, want false")
	}
}

// countingListener accepts connections, closes them immediately, and counts
// every attempt. A call that reconnects would show more than one accept.
func countingListener(t *testing.T) (addr string, attempts *int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	var count int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&count, 1)
			conn.Close()
		}
	}()
	return "http://" + ln.Addr().String(), &count
}

// Every gateway operation is single-shot: a transport failure is reported,
// never retried.
func TestOperationsAreSingleShot(t *testing.T) {
	addr, attempts := countingListener(t)
	client := NewClient(testConfig(addr), zerolog.Nop())
	ctx := context.Background()

	if client.CreateAlert(ctx, Payload{Kind: KindSingle, Symbol: "BTC"}) {
		t.Error("CreateAlert over a dead transport returned true")
	}
	if got := atomic.LoadInt32(attempts); got != 1 {
		t.Fatalf("CreateAlert made %d connection attempts, want 1", got)
	}

	if _, err := client.ListAlerts(ctx); err == nil {
		t.Error("ListAlerts over a dead transport returned no error")
	}
	if got := atomic.LoadInt32(attempts); got != 2 {
		t.Fatalf("ListAlerts made %d connection attempts, want 1", got-1)
	}

	if client.DeleteAlert(ctx, "g1") {
		t.Error("DeleteAlert over a dead transport returned true")
	}
	if got := atomic.LoadInt32(attempts); got != 3 {
		t.Fatalf("DeleteAlert made %d connection attempts, want 1", got-2)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{CreateURL: "https://x/create", ListURL: "https://x/list", DeleteURL: "https://x/delete"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}

	cfg.ListURL = ""
	if err := cfg.Validate(); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("Validate error = %v, want ErrConfigInvalid", err)
	}
}
