package router

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rickgao/empire-bidder/internal/connection"
	"github.com/rickgao/empire-bidder/internal/model"
)

// errUnknownEvent marks an event the bidder does not handle.
type errUnknownEvent string

func (e errUnknownEvent) Error() string { return "unknown event: " + string(e) }

// Decode turns a raw stream message into a typed Message.
func Decode(raw connection.RawMessage) (Message, error) {
	msg := Message{
		SessionID:  raw.SessionID,
		ReceivedAt: raw.ReceivedAt,
	}

	if raw.Disconnect != "" {
		msg.Kind = KindDisconnect
		msg.Reason = raw.Disconnect
		return msg, nil
	}

	p, err := connection.ParsePacket(raw.Data)
	if err != nil {
		return Message{}, err
	}

	switch p.Type {
	case connection.PacketConnect:
		msg.Kind = KindConnect
		msg.Raw = p.Data
		return msg, nil
	case connection.PacketConnectError:
		msg.Kind = KindConnectError
		msg.Raw = p.Data
		return msg, nil
	case connection.PacketEvent:
	default:
		return Message{}, fmt.Errorf("unexpected packet type %q", p.Type)
	}

	name, payload, err := splitEvent(p.Data)
	if err != nil {
		return Message{}, err
	}

	switch name {
	case EventInit:
		var w initWire
		if len(payload) > 0 && !isNull(payload) {
			if err := json.Unmarshal(payload, &w); err != nil {
				return Message{}, fmt.Errorf("decode %s: %w", name, err)
			}
		}
		msg.Kind = KindInit
		msg.Init = InitMsg{Authenticated: w.Authenticated, Name: w.Name}

	case EventTimesync:
		msg.Kind = KindTimesync
		msg.Raw = payload

	case EventNewItem:
		wires, skipped, err := decodeBatch[itemWire](payload)
		if err != nil {
			return Message{}, fmt.Errorf("decode %s: %w", name, err)
		}
		msg.Skipped = skipped
		msg.Kind = KindNewItems
		msg.Items = make([]model.Item, 0, len(wires))
		for _, w := range wires {
			msg.Items = append(msg.Items, model.Item{
				ID:          w.ID,
				MarketName:  w.MarketName,
				MarketValue: int64(w.MarketValue),
			})
		}

	case EventAuctionUpdate:
		wires, skipped, err := decodeBatch[auctionUpdateWire](payload)
		if err != nil {
			return Message{}, fmt.Errorf("decode %s: %w", name, err)
		}
		msg.Skipped = skipped
		msg.Kind = KindAuctionUpdates
		msg.Updates = make([]model.AuctionUpdate, 0, len(wires))
		for _, w := range wires {
			msg.Updates = append(msg.Updates, model.AuctionUpdate{
				ID:            w.ID,
				HighestBid:    int64(w.AuctionHighestBid),
				HighestBidder: w.AuctionHighestBidder,
			})
		}

	case EventTradeStatus:
		wires, skipped, err := decodeBatch[tradeStatusWire](payload)
		if err != nil {
			return Message{}, fmt.Errorf("decode %s: %w", name, err)
		}
		msg.Skipped = skipped
		msg.Kind = KindTradeStatuses
		msg.Trades = make([]model.TradeStatus, 0, len(wires))
		for _, w := range wires {
			msg.Trades = append(msg.Trades, model.TradeStatus{
				Type:       w.Type,
				Status:     w.Data.Status,
				TradeID:    w.Data.ID,
				MarketName: w.Data.Item.MarketName,
				TotalValue: int64(w.Data.TotalValue),
				Partner: model.TradePartner{
					SteamName:  w.Data.Metadata.Partner.SteamName,
					SteamLevel: w.Data.Metadata.Partner.SteamLevel,
					SteamID:    string(w.Data.Metadata.Partner.SteamID),
				},
			})
		}

	default:
		return Message{}, errUnknownEvent(name)
	}

	return msg, nil
}

// splitEvent splits ["name", payload] into its parts. payload is empty when
// the event carries no argument.
func splitEvent(data []byte) (string, []byte, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("decode event: empty argument list")
	}

	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}

	if len(args) < 2 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// EntryError describes one batch entry that could not be decoded.
type EntryError struct {
	Index int
	Err   error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

func (e EntryError) Unwrap() error { return e.Err }

// decodeBatch accepts either an array of T or a single T. Array entries are
// decoded one by one so a malformed entry only costs itself; it is reported
// in skipped. err is set only when the payload as a whole is unusable.
func decodeBatch[T any](payload []byte) (out []T, skipped []EntryError, err error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || isNull(payload) {
		return nil, nil, nil
	}

	if payload[0] != '[' {
		var one T
		if err := json.Unmarshal(payload, &one); err != nil {
			return nil, nil, err
		}
		return []T{one}, nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, nil, err
	}

	out = make([]T, 0, len(entries))
	for i, raw := range entries {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			skipped = append(skipped, EntryError{Index: i, Err: err})
			continue
		}
		out = append(out, v)
	}
	return out, skipped, nil
}

func isNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
