package feed

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/schema"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hub.Handler())
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestBroadcastToSubscribedTopic(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	err := conn.WriteJSON(opMessage{Op: "subscribe", Topics: []string{bus.TopicInstrument("AAPL")}})
	require.NoError(t, err)

	event := bus.Event{
		Header:  schema.NewHeader(schema.EventPoint, 9, 123, 456),
		Topic:   bus.TopicInstrument("AAPL"),
		Payload: map[string]string{"name": "AAPL"},
	}

	// Subscription is applied by the read pump; retry until the frame
	// comes through.
	frames := make(chan Frame, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if json.Unmarshal(data, &frame) == nil {
			frames <- frame
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		hub.Broadcast(event)
		select {
		case frame := <-frames:
			require.Equal(t, bus.TopicInstrument("AAPL"), frame.Topic)
			require.Equal(t, "Point", frame.Type)
			require.Equal(t, uint64(9), frame.Seq)
			return
		case <-deadline:
			t.Fatal("frame not delivered")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestBroadcastSkipsUnsubscribedClient(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.Broadcast(bus.Event{
		Header:  schema.NewHeader(schema.EventPoint, 1, 0, 0),
		Topic:   bus.TopicInstrument("AAPL"),
		Payload: nil,
	})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()

	c := &client{send: make(chan []byte, 1), topics: make(map[string]struct{})}
	c.apply(opMessage{Op: "subscribe", Topics: []string{"account/a"}})
	require.True(t, c.subscribed("account/a"))

	c.apply(opMessage{Op: "unsubscribe", Topics: []string{"account/a"}})
	require.False(t, c.subscribed("account/a"))

	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	hub.mu.Unlock()

	hub.Broadcast(bus.Event{Header: schema.NewHeader(schema.EventTransaction, 1, 0, 0), Topic: "account/a"})
	require.Empty(t, c.send)
}
