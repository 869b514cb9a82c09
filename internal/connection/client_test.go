package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testOpenPacket = `0{"sid":"eio-sid","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn, *http.Request)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))

	return server
}

// mockIOServer completes the Engine.IO and socket.io handshakes before
// handing the connection to handler.
func mockIOServer(t *testing.T, open string, handler func(*websocket.Conn)) *httptest.Server {
	return mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(open)); err != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(msg) != "40" {
			t.Errorf("expected socket.io connect %q, got %q", "40", msg)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"io-sid"}`)); err != nil {
			return
		}
		handler(conn)
	})
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(server *httptest.Server) ClientConfig {
	return ClientConfig{
		URL:              wsURL(server),
		PingTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 2 * time.Second,
		BufferSize:       100,
	}
}

func readUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockIOServer(t, testOpenPacket, readUntilClosed)
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	select {
	case msg := <-client.Messages():
		if string(msg.Data) != `0{"sid":"io-sid"}` {
			t.Errorf("first packet = %q, want socket.io connect", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connect packet")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}
}

func TestClient_ConnectSendsHeader(t *testing.T) {
	got := make(chan string, 1)
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		got <- r.Header.Get("User-Agent") + "|" + r.URL.RawQuery
		conn.WriteMessage(websocket.TextMessage, []byte(testOpenPacket))
		readUntilClosed(conn)
	})
	defer server.Close()

	url, err := BuildURL(wsURL(server), "/s/")
	if err != nil {
		t.Fatalf("BuildURL failed: %v", err)
	}
	cfg := testClientConfig(server)
	cfg.URL = url
	cfg.Header = http.Header{"User-Agent": []string{"42 API Bot"}}

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if v := <-got; v != "42 API Bot|EIO=4&transport=websocket" {
		t.Errorf("header|query = %q", v)
	}
}

func TestClient_HandshakeRejected(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`4{"not":"open"}`))
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	if err := client.Connect(context.Background()); err == nil {
		client.Close()
		t.Fatal("expected handshake error")
	}
}

func TestClient_Emit(t *testing.T) {
	var received []byte
	var mu sync.Mutex
	got := make(chan struct{})

	server := mockIOServer(t, testOpenPacket, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		mu.Lock()
		received = msg
		mu.Unlock()
		close(got)
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if err := client.Emit("filters", map[string]int{"per_page": 2500}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for emitted event")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(received) != `42["filters",{"per_page":2500}]` {
		t.Errorf("received %q", received)
	}
}

func TestClient_AnswersPing(t *testing.T) {
	pong := make(chan string, 1)
	server := mockIOServer(t, testOpenPacket, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("2"))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		pong <- string(msg)
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case msg := <-pong:
		if msg != "3" {
			t.Errorf("pong = %q, want %q", msg, "3")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pong")
	}
}

func TestClient_Messages(t *testing.T) {
	events := []string{
		`42["new_item",[{"id":1}]]`,
		`42["auction_update",[{"id":2}]]`,
		`42["timesync",1700000000]`,
	}

	server := mockIOServer(t, testOpenPacket, func(conn *websocket.Conn) {
		for _, e := range events {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(e)); err != nil {
				return
			}
		}
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var received []string
	timeout := time.After(time.Second)
	for len(received) < len(events)+1 {
		select {
		case msg := <-client.Messages():
			received = append(received, string(msg.Data))
			if msg.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d", len(received))
		}
	}

	// received[0] is the socket.io connect packet; Engine.IO framing is stripped.
	for i, e := range events {
		if received[i+1] != e[1:] {
			t.Errorf("message %d: got %q, want %q", i, received[i+1], e[1:])
		}
	}
}

func TestClient_DisconnectReasons(t *testing.T) {
	tests := []struct {
		name    string
		open    string
		handler func(*websocket.Conn)
		want    string
	}{
		{
			name: "server disconnect",
			open: testOpenPacket,
			handler: func(conn *websocket.Conn) {
				conn.WriteMessage(websocket.TextMessage, []byte("41"))
				readUntilClosed(conn)
			},
			want: ReasonServerDisconnect,
		},
		{
			name: "engine.io close",
			open: testOpenPacket,
			handler: func(conn *websocket.Conn) {
				conn.WriteMessage(websocket.TextMessage, []byte("1"))
				readUntilClosed(conn)
			},
			want: ReasonTransportClose,
		},
		{
			name: "websocket closed",
			open: testOpenPacket,
			handler: func(conn *websocket.Conn) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"),
					time.Now().Add(time.Second))
			},
			want: ReasonTransportClose,
		},
		{
			name: "ping timeout",
			open: `0{"sid":"x","upgrades":[],"pingInterval":50,"pingTimeout":50}`,
			handler: func(conn *websocket.Conn) {
				readUntilClosed(conn)
			},
			want: ReasonPingTimeout,
		},
		{
			name: "garbage frame",
			open: testOpenPacket,
			handler: func(conn *websocket.Conn) {
				conn.WriteMessage(websocket.TextMessage, []byte("x"))
				readUntilClosed(conn)
			},
			want: ReasonParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockIOServer(t, tt.open, tt.handler)
			defer server.Close()

			client := NewClient(testClientConfig(server), nil)
			if err := client.Connect(context.Background()); err != nil {
				t.Fatalf("Connect failed: %v", err)
			}
			defer client.Close()

			select {
			case reason := <-client.Disconnects():
				if reason != tt.want {
					t.Errorf("reason = %q, want %q", reason, tt.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for disconnect")
			}

			if client.IsConnected() {
				t.Error("expected IsConnected to return false after disconnect")
			}
		})
	}
}

func TestClient_CloseReportsNoDisconnect(t *testing.T) {
	got := make(chan string, 1)
	server := mockIOServer(t, testOpenPacket, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			got <- string(msg)
		}
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	select {
	case msg := <-got:
		if msg != "41" {
			t.Errorf("server received %q, want socket.io disconnect", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not receive disconnect packet")
	}

	select {
	case reason := <-client.Disconnects():
		t.Errorf("unexpected disconnect reported: %q", reason)
	case <-time.After(100 * time.Millisecond):
	}

	if err := client.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(ClientConfig{URL: "ws://localhost:12345", BufferSize: 1}, nil)

	if err := client.Send([]byte("test")); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := client.Emit("filters", nil); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	if clientCfg.PingTimeout != 60*time.Second {
		t.Errorf("PingTimeout = %v, want 60s", clientCfg.PingTimeout)
	}
	if clientCfg.BufferSize != 1000 {
		t.Errorf("BufferSize = %d, want 1000", clientCfg.BufferSize)
	}

	mgrCfg := DefaultManagerConfig()
	if mgrCfg.WSPath != "/s/" {
		t.Errorf("WSPath = %q, want /s/", mgrCfg.WSPath)
	}
}
