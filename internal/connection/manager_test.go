package connection

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func testManager(t *testing.T, wsURL string) Manager {
	t.Helper()
	cfg := DefaultManagerConfig()
	cfg.WSURL = wsURL
	m := NewManager(cfg, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return m
}

func nextMessage(t *testing.T, m Manager) RawMessage {
	t.Helper()
	select {
	case raw, ok := <-m.Messages():
		if !ok {
			t.Fatal("messages channel closed")
		}
		return raw
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	return RawMessage{}
}

func TestManager_OpenForwardsPackets(t *testing.T) {
	server := mockIOServer(t, testOpenPacket, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`42["timesync",1]`))
		readUntilClosed(conn)
	})
	defer server.Close()

	m := testManager(t, wsURL(server))
	defer m.Stop(context.Background())

	id, err := m.Open(context.Background(), http.Header{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected a session id")
	}

	connect := nextMessage(t, m)
	if string(connect.Data) != `0{"sid":"io-sid"}` {
		t.Errorf("first message = %q", connect.Data)
	}
	event := nextMessage(t, m)
	if string(event.Data) != `2["timesync",1]` {
		t.Errorf("second message = %q", event.Data)
	}
	if event.SessionID != id {
		t.Errorf("SessionID = %v, want %v", event.SessionID, id)
	}

	stats := m.Stats()
	if !stats.Connected || stats.Sessions != 1 || stats.SessionID != id {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestManager_ReportsDisconnect(t *testing.T) {
	server := mockIOServer(t, testOpenPacket, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`42["timesync",1]`))
		conn.WriteMessage(websocket.TextMessage, []byte("41"))
		readUntilClosed(conn)
	})
	defer server.Close()

	m := testManager(t, wsURL(server))
	defer m.Stop(context.Background())

	if _, err := m.Open(context.Background(), http.Header{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	nextMessage(t, m) // connect
	if raw := nextMessage(t, m); raw.Disconnect != "" {
		t.Fatalf("timesync should precede the disconnect, got %+v", raw)
	}
	raw := nextMessage(t, m)
	if raw.Disconnect != ReasonServerDisconnect {
		t.Errorf("Disconnect = %q, want %q", raw.Disconnect, ReasonServerDisconnect)
	}

	if err := m.Emit("filters", nil); err == nil {
		t.Error("Emit on a lost session should fail")
	}
}

func TestManager_CloseSessionIsSilent(t *testing.T) {
	server := mockIOServer(t, testOpenPacket, readUntilClosed)
	defer server.Close()

	m := testManager(t, wsURL(server))

	if _, err := m.Open(context.Background(), http.Header{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	nextMessage(t, m) // connect

	m.CloseSession()

	select {
	case raw := <-m.Messages():
		t.Errorf("unexpected message after CloseSession: %+v", raw)
	case <-time.After(100 * time.Millisecond):
	}

	if err := m.Emit("filters", nil); err != ErrNotConnected {
		t.Errorf("Emit() = %v, want ErrNotConnected", err)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, ok := <-m.Messages(); ok {
		t.Error("messages channel should be closed after Stop")
	}
}

func TestManager_OpenBeforeStart(t *testing.T) {
	m := NewManager(DefaultManagerConfig(), nil)
	if _, err := m.Open(context.Background(), nil); err != ErrNotStarted {
		t.Errorf("Open() = %v, want ErrNotStarted", err)
	}
}

func TestManager_OpenFails(t *testing.T) {
	m := testManager(t, "ws://127.0.0.1:1")
	defer m.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := m.Open(ctx, nil); err == nil {
		t.Error("expected dial error")
	}
	if m.Stats().Connected {
		t.Error("should not be connected")
	}
}
