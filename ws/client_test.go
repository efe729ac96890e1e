package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan map[string]interface{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		received <- msg
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client := NewWebSocketClient(url, map[string]string{"X-Test": "yes"}).
		WithTimeouts(time.Second, time.Second)

	conn, err := client.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"method": "SUBSCRIBE", "id": 1}))
	select {
	case msg := <-received:
		assert.Equal(t, "SUBSCRIBE", msg["method"])
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the subscribe frame")
	}

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":null,"id":1}`, string(data))
}

func TestDialReadTimeout(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	client := NewWebSocketClient("ws"+strings.TrimPrefix(srv.URL, "http"), nil).
		WithTimeouts(time.Second, 50*time.Millisecond)

	conn, err := client.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestDialFailure(t *testing.T) {
	client := NewWebSocketClient("ws://127.0.0.1:1/ws", nil)
	_, err := client.Dial(context.Background())
	assert.Error(t, err)
}
