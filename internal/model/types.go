package model

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Stream Types
// -----------------------------------------------------------------------------

// Item is a listing received on the new_item stream event.
type Item struct {
	ID          int64  // Deposit ID (also the auction ID)
	MarketName  string // Display name, key into the price reference
	MarketValue int64  // Listed value (minor units)
}

// AuctionUpdate is one entry of an auction_update batch.
type AuctionUpdate struct {
	ID            int64 // Deposit ID
	HighestBid    int64 // Current highest bid (minor units)
	HighestBidder int64 // User ID of the current highest bidder
}

// TradeStatus is one entry of a trade_status batch.
type TradeStatus struct {
	Type       string // "deposit" or "withdrawal"
	Status     int
	TradeID    int64
	MarketName string
	TotalValue int64 // Minor units
	Partner    TradePartner
}

// TradePartner identifies the other side of a withdrawal.
type TradePartner struct {
	SteamName  string
	SteamLevel int
	SteamID    string
}

// Trade types.
const (
	TradeTypeDeposit    = "deposit"
	TradeTypeWithdrawal = "withdrawal"
)

// Trade status codes reported by the marketplace.
const (
	TradeStatusError      = -1
	TradeStatusPending    = 0
	TradeStatusReceived   = 1
	TradeStatusProcessing = 2
	TradeStatusSending    = 3
	TradeStatusConfirming = 4
	TradeStatusSent       = 5
	TradeStatusCompleted  = 6
	TradeStatusDeclined   = 7
	TradeStatusCanceled   = 8
	TradeStatusTimedOut   = 9
	TradeStatusCredited   = 10
	TradeStatusReverted   = 11
)

// IsBalanceAffecting reports whether a withdrawal in this status has
// resolved in a way that changes the account balance.
func IsBalanceAffecting(status int) bool {
	switch status {
	case TradeStatusConfirming,
		TradeStatusCanceled,
		TradeStatusTimedOut,
		TradeStatusCredited,
		TradeStatusReverted:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Account Types
// -----------------------------------------------------------------------------

// Auction is an auction the account holds (or held) the top bid in.
type Auction struct {
	ID         int64
	MarketName string
}

// User is the subset of the account model the bidder reads.
type User struct {
	ID      int64
	Balance int64 // Minor units
}

// UserContext is the account snapshot used for socket identification and
// filter sizing. It is replaced wholesale, never mutated.
type UserContext struct {
	User            User
	RawUser         json.RawMessage // Forwarded verbatim as the identify "model"
	SocketToken     string
	SocketSignature string
}

// -----------------------------------------------------------------------------
// Audit Types
// -----------------------------------------------------------------------------

// BidAttempt records one bid request and how the marketplace answered it.
// Requests belonging to the same SubmitBid call share a NegotiationID.
type BidAttempt struct {
	ID            uuid.UUID
	NegotiationID uuid.UUID
	ItemID        int64
	MarketName    string
	Value         int64 // Minor units sent
	Max           int64 // Caller-supplied ceiling
	Result        string
	ErrorKey      string
	Message       string
	SentAt        time.Time
}

// -----------------------------------------------------------------------------
// Money
// -----------------------------------------------------------------------------

// Coins formats a minor-unit amount in major units with two decimals.
func Coins(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
