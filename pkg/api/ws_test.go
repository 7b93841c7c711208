package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/pkg/models"
	"chatrelay/pkg/service"
	"chatrelay/pkg/store"
)

func setupHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	svc := service.New(store.NewMemoryStore(), nil)
	srv := httptest.NewServer(NewServer(svc, hub).Router())
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubRelaysToOtherPeers(t *testing.T) {
	_, url := setupHub(t)
	a := dialWS(t, url)
	b := dialWS(t, url)

	ev := models.ChannelEvent{Type: models.EventTyping, Data: json.RawMessage(`{"user":"a"}`)}
	if err := a.WriteJSON(ev); err != nil {
		t.Fatalf("write: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(time.Second))
	var got models.ChannelEvent
	if err := b.ReadJSON(&got); err != nil {
		t.Fatalf("peer b never received relay: %v", err)
	}
	if got.Type != models.EventTyping {
		t.Fatalf("relayed type = %q", got.Type)
	}

	// The sender must not get its own event back.
	a.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := a.ReadJSON(&got); err == nil {
		t.Fatalf("sender received its own event: %+v", got)
	}
}

func TestHubSkipsMalformedFrames(t *testing.T) {
	_, url := setupHub(t)
	a := dialWS(t, url)
	b := dialWS(t, url)

	if err := a.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := a.WriteJSON(models.ChannelEvent{Type: models.EventType("bogus")}); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}
	// The connection survives both bad frames and keeps relaying.
	if err := a.WriteJSON(models.ChannelEvent{Type: models.EventStopTyping}); err != nil {
		t.Fatalf("write: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(time.Second))
	var got models.ChannelEvent
	if err := b.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != models.EventStopTyping {
		t.Fatalf("got %q, want %q (bad frames must be skipped, not relayed)", got.Type, models.EventStopTyping)
	}
}

func TestHubPeerCount(t *testing.T) {
	hub, url := setupHub(t)
	a := dialWS(t, url)
	_ = dialWS(t, url)

	waitFor := func(n int) {
		deadline := time.Now().Add(time.Second)
		for hub.PeerCount() != n {
			if time.Now().After(deadline) {
				t.Fatalf("peer count = %d, want %d", hub.PeerCount(), n)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	waitFor(2)
	a.Close()
	waitFor(1)
}
