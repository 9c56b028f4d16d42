package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testNote() Notification {
	return Notification{
		NetUID: "20",
		Kind:   "super_low",
		Text:   "💸💸💸 Cost Super Low! Register Now! - 0.3 $TAO",
		Cost:   decimal.RequireFromString("0.3"),
		At:     time.Now(),
	}
}

func TestSlackNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewSlackNotifier("xoxb-token", "#alerts", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNote()); err != nil {
		t.Fatalf("slack notify: %v", err)
	}

	if auth != "Bearer xoxb-token" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if received["channel"] != "#alerts" {
		t.Fatalf("unexpected channel: %#v", received)
	}
	if received["text"] != testNote().Text {
		t.Fatalf("unexpected text %q", received["text"])
	}
}

func TestSlackNotifierNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	notifier := NewSlackNotifier("t", "c", srv.URL, time.Second, testLogger())
	err := notifier.Notify(context.Background(), testNote())
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("ok=false should surface slack error, got %v", err)
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Errorf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNote()); err != nil {
		t.Fatalf("telegram notify: %v", err)
	}
	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id mismatch: %#v", received)
	}
	if !strings.HasPrefix(received["text"], "[SN20] ") {
		t.Fatalf("text should carry subnet prefix: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNote()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

type recordingNotifier struct {
	notes []Notification
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, note Notification) error {
	r.notes = append(r.notes, note)
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("down")}
	ok := &recordingNotifier{}

	err := Multi{failing, ok}.Notify(context.Background(), testNote())
	if err == nil {
		t.Fatal("failure of one channel should be reported")
	}
	if len(ok.notes) != 1 {
		t.Fatal("healthy channel should still receive the notification")
	}

	var partial *PartialError
	if !errors.As(err, &partial) || partial.Delivered != 1 || partial.Failed != 1 {
		t.Fatalf("expected partial delivery, got %v", err)
	}
}

func TestMultiAllChannelsFail(t *testing.T) {
	down := errors.New("down")
	err := Multi{&recordingNotifier{err: down}, &recordingNotifier{err: down}}.Notify(context.Background(), testNote())
	if !errors.Is(err, down) {
		t.Fatalf("expected joined failures, got %v", err)
	}
	var partial *PartialError
	if errors.As(err, &partial) {
		t.Fatal("total failure must not be reported as partial")
	}
	if err := (Multi{&recordingNotifier{}}).Notify(context.Background(), testNote()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
