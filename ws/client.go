package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultReadTimeout      = 60 * time.Second
	writeTimeout            = 10 * time.Second
)

// Conn is the part of a websocket connection the stream supervisor needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// WebSocketClient dials the market data stream. Each Dial returns a fresh
// connection; reconnect policy belongs to the caller.
type WebSocketClient struct {
	url              string
	Headers          map[string]string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
}

func NewWebSocketClient(url string, headers map[string]string) *WebSocketClient {
	return &WebSocketClient{
		url:              url,
		Headers:          headers,
		handshakeTimeout: DefaultHandshakeTimeout,
		readTimeout:      DefaultReadTimeout,
	}
}

// WithTimeouts overrides the handshake and per-read timeouts. Zero keeps the default.
func (c *WebSocketClient) WithTimeouts(handshake, read time.Duration) *WebSocketClient {
	if handshake > 0 {
		c.handshakeTimeout = handshake
	}
	if read > 0 {
		c.readTimeout = read
	}
	return c
}

func (c *WebSocketClient) URL() string {
	return c.url
}

func (c *WebSocketClient) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.url, c.getHttpHeaders())
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http %d)", c.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}

	// The server pings every few minutes; answering keeps the read deadline fresh.
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})

	return &deadlineConn{conn: conn, readTimeout: c.readTimeout}, nil
}

func (c *WebSocketClient) getHttpHeaders() http.Header {
	headers := http.Header{}
	for key, value := range c.Headers {
		headers.Set(key, value)
	}
	return headers
}

// deadlineConn refreshes the read deadline before every read so a silent
// connection fails instead of blocking forever.
type deadlineConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration
}

func (d *deadlineConn) ReadMessage() (int, []byte, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.readTimeout)); err != nil {
		return 0, nil, err
	}
	return d.conn.ReadMessage()
}

func (d *deadlineConn) WriteJSON(v interface{}) error {
	if err := d.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return d.conn.WriteJSON(v)
}

func (d *deadlineConn) Close() error {
	_ = d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return d.conn.Close()
}
