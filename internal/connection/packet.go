package connection

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioUpgrade = '5'
	eioNoop    = '6'
)

// socket.io packet types.
const (
	PacketConnect      = '0'
	PacketDisconnect   = '1'
	PacketEvent        = '2'
	PacketAck          = '3'
	PacketConnectError = '4'
	PacketBinaryEvent  = '5'
	PacketBinaryAck    = '6'
)

// Packet is a decoded socket.io packet.
type Packet struct {
	Type      byte
	Namespace string // "/" when absent
	AckID     int64  // -1 when absent
	Data      []byte // JSON payload, may be empty
}

// BuildURL returns the websocket URL for an Engine.IO v4 websocket-only
// connection at path on base.
func BuildURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ws url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("ws url must use ws or wss scheme, got %q", u.Scheme)
	}

	if path != "" {
		u.Path = path
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ParsePacket decodes a socket.io packet: type digit, optional "/nsp,",
// optional ack id, then the JSON payload.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, fmt.Errorf("empty packet")
	}
	if data[0] < PacketConnect || data[0] > PacketBinaryAck {
		return Packet{}, fmt.Errorf("unknown packet type %q", data[0])
	}

	p := Packet{Type: data[0], Namespace: "/", AckID: -1}
	rest := data[1:]

	if len(rest) > 0 && rest[0] == '/' {
		end := 0
		for end < len(rest) && rest[end] != ',' {
			end++
		}
		p.Namespace = string(rest[:end])
		if end < len(rest) {
			end++ // skip ','
		}
		rest = rest[end:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.ParseInt(string(rest[:digits]), 10, 64)
		if err != nil {
			return Packet{}, fmt.Errorf("parse ack id: %w", err)
		}
		p.AckID = id
		rest = rest[digits:]
	}

	p.Data = rest
	return p, nil
}

// EncodeEvent encodes an event as an Engine.IO message frame carrying a
// socket.io event packet: 42["event",payload].
func EncodeEvent(event string, payload any) ([]byte, error) {
	args := []any{event}
	if payload != nil {
		args = append(args, payload)
	}

	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event, err)
	}

	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, eioMessage, PacketEvent)
	frame = append(frame, body...)
	return frame, nil
}

// parseHandshake decodes an Engine.IO open packet.
func parseHandshake(data []byte) (Handshake, error) {
	if len(data) == 0 || data[0] != eioOpen {
		return Handshake{}, fmt.Errorf("%w: expected open packet", ErrHandshake)
	}

	var h Handshake
	if err := json.Unmarshal(data[1:], &h); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return h, nil
}
