package router

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rickgao/empire-bidder/internal/model"
	"github.com/shopspring/decimal"
)

// Stream event names.
const (
	EventInit          = "init"
	EventTimesync      = "timesync"
	EventNewItem       = "new_item"
	EventAuctionUpdate = "auction_update"
	EventTradeStatus   = "trade_status"
	EventIdentify      = "identify"
)

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	QueueSize int // Initial queue capacity. Default: 256
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueSize: 256,
	}
}

// Kind identifies a decoded stream message.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnect
	KindConnectError
	KindInit
	KindTimesync
	KindNewItems
	KindAuctionUpdates
	KindTradeStatuses
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindConnectError:
		return "connect_error"
	case KindInit:
		return EventInit
	case KindTimesync:
		return EventTimesync
	case KindNewItems:
		return EventNewItem
	case KindAuctionUpdates:
		return EventAuctionUpdate
	case KindTradeStatuses:
		return EventTradeStatus
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Wire types for JSON parsing

// minorUnits decodes an amount given as a JSON integer, float or numeric
// string, rounded to a whole minor unit.
type minorUnits int64

func (m *minorUnits) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*m = 0
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", data, err)
	}
	*m = minorUnits(d.Round(0).IntPart())
	return nil
}

// looseString decodes a JSON string or number as a string.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("parse %q as string or number", data)
	}
	*s = looseString(data)
	return nil
}

// initWire is the payload of the init event.
type initWire struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name"`
}

// itemWire is one entry of a new_item batch.
type itemWire struct {
	ID          int64      `json:"id"`
	MarketName  string     `json:"market_name"`
	MarketValue minorUnits `json:"market_value"`
}

// auctionUpdateWire is one entry of an auction_update batch.
type auctionUpdateWire struct {
	ID                   int64      `json:"id"`
	AuctionHighestBid    minorUnits `json:"auction_highest_bid"`
	AuctionHighestBidder int64      `json:"auction_highest_bidder"`
}

// tradeStatusWire is one entry of a trade_status batch.
type tradeStatusWire struct {
	Type string `json:"type"`
	Data struct {
		ID     int64 `json:"id"`
		Status int   `json:"status"`
		Item   struct {
			MarketName string `json:"market_name"`
		} `json:"item"`
		TotalValue minorUnits `json:"total_value"`
		Metadata   struct {
			Partner struct {
				SteamName  string      `json:"steam_name"`
				SteamLevel int         `json:"steam_level"`
				SteamID    looseString `json:"steam_id"`
			} `json:"partner"`
		} `json:"metadata"`
	} `json:"data"`
}

// InitMsg is the decoded init event.
type InitMsg struct {
	Authenticated bool
	Name          string
}

// Message is a decoded stream message. Exactly one payload field is set,
// according to Kind.
type Message struct {
	Kind       Kind
	SessionID  uuid.UUID
	ReceivedAt time.Time

	Init    InitMsg
	Items   []model.Item
	Updates []model.AuctionUpdate
	Trades  []model.TradeStatus
	Reason  string // KindDisconnect
	Raw     []byte // KindTimesync, KindConnect, KindConnectError

	// Skipped lists batch entries dropped because they failed to decode.
	Skipped []EntryError
}
