package ws

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

	"github.com/alanyoungcy/crossodds/internal/domain"
)

type fakeBus struct {
	channels map[string]chan []byte
	stream   []domain.StreamMessage
}

func newFakeBus() *fakeBus {
	b := &fakeBus{channels: map[string]chan []byte{}}
	for _, ch := range defaultChannels {
		b.channels[ch] = make(chan []byte, 8)
	}
	return b
}

func (b *fakeBus) Publish(context.Context, string, []byte) error { return nil }
func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	return b.channels[channel], nil
}
func (b *fakeBus) StreamAppend(context.Context, string, []byte) error { return nil }
func (b *fakeBus) StreamRead(_ context.Context, _ string, lastID string, _ int) ([]domain.StreamMessage, error) {
	var out []domain.StreamMessage
	for _, m := range b.stream {
		if m.ID > lastID {
			out = append(out, m)
		}
	}
	return out, nil
}

func httpHandler(h *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.HandleWS)
	return mux
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return e
}

func TestHubHelloReplayAndBroadcast(t *testing.T) {
	bus := newFakeBus()
	bus.stream = []domain.StreamMessage{
		{ID: "1-0", Payload: []byte(`{"id":"old"}`)},
		{ID: "2-0", Payload: []byte(`{"id":"newer"}`)},
	}
	hub := NewHub(bus, "full", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?since=1-0"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if e := readEnvelope(t, conn); e.Type != "hello" {
		t.Fatalf("first frame = %+v, want hello", e)
	}
	replay := readEnvelope(t, conn)
	if replay.Type != "replay" || replay.StreamID != "2-0" || string(replay.Payload) != `{"id":"newer"}` {
		t.Fatalf("replay frame = %+v", replay)
	}

	bus.channels[domain.OpportunityChannel] <- []byte(`{"id":"live"}`)
	live := readEnvelope(t, conn)
	if live.Type != "message" || live.Channel != domain.OpportunityChannel || string(live.Payload) != `{"id":"live"}` {
		t.Errorf("live frame = %+v", live)
	}
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.OpportunityChannel: true, domain.CycleChannel: true}}
	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.CycleChannel}})
	if c.isSubscribed(domain.CycleChannel) {
		t.Error("still subscribed after unsubscribe")
	}
	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{domain.CycleChannel}})
	if !c.isSubscribed(domain.CycleChannel) || !c.isSubscribed(domain.OpportunityChannel) {
		t.Error("subscribe did not restore the channel")
	}
}
