package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/events"
	"github.com/edgard/zapbot/internal/web"
)

func newTestServer(t *testing.T, broker *events.Broker) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := web.NewServer(config.WebConfig{Addr: "localhost:0"}, broker, func(context.Context) any {
		return map[string]string{"state": "ready"}
	}, log)

	handler, err := srv.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, events.NewBroker())

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload["state"] != "ready" {
		t.Errorf("state = %q", payload["state"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, events.NewBroker())

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body = %s", body)
	}
}

func TestWebSocketStreamsEvents(t *testing.T) {
	t.Parallel()

	broker := events.NewBroker()
	ts := newTestServer(t, broker)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the subscription.
	time.Sleep(50 * time.Millisecond)
	broker.Publish(events.TypeStatus, "ready")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt events.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Type != events.TypeStatus || evt.Data != "ready" {
		t.Errorf("event = %+v", evt)
	}
}

func TestWebSocketReplaysLastEvent(t *testing.T) {
	t.Parallel()

	broker := events.NewBroker()
	ts := newTestServer(t, broker)

	// Publish before anyone connects; a fresh client must still see it.
	broker.Publish(events.TypeQR, "pairing-code")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt events.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Type != events.TypeQR || evt.Data != "pairing-code" {
		t.Errorf("replayed event = %+v", evt)
	}
}
