package api

import "github.com/goccy/go-json"

// SocketMetadataResponse from GET /metadata/socket
type SocketMetadataResponse struct {
	User            json.RawMessage `json:"user"`
	SocketToken     string          `json:"socket_token"`
	SocketSignature string          `json:"socket_signature"`
}

// APIUser is the subset of the user model the bidder reads. The full model
// is kept raw in SocketMetadataResponse.User.
type APIUser struct {
	ID      int64 `json:"id"`
	Balance int64 `json:"balance"` // Minor units
}

// ActiveAuctionsResponse from GET /trading/user/auctions
type ActiveAuctionsResponse struct {
	Success        bool         `json:"success"`
	ActiveAuctions []APIAuction `json:"active_auctions"`
}

// APIAuction represents an auction the account is bidding on.
type APIAuction struct {
	ID                   int64  `json:"id"`
	MarketName           string `json:"market_name"`
	MarketValue          int64  `json:"market_value"`
	AuctionHighestBid    int64  `json:"auction_highest_bid"`
	AuctionHighestBidder int64  `json:"auction_highest_bidder"`
	AuctionNumberOfBids  int    `json:"auction_number_of_bids"`
	AuctionEndsAt        int64  `json:"auction_ends_at"`
}

// BidResponse from POST /trading/deposit/{id}/bid
type BidResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    *BidData `json:"data,omitempty"`
}

// BidData carries the machine-readable rejection details.
type BidData struct {
	ErrorKey string `json:"error_key,omitempty"`
	NextBid  int64  `json:"next_bid,omitempty"`
}

// ErrorKey returns the rejection key, or "" when absent.
func (r *BidResponse) ErrorKey() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.ErrorKey
}

// NextBid returns the minimum acceptable next bid, or 0 when absent.
func (r *BidResponse) NextBid() int64 {
	if r == nil || r.Data == nil {
		return 0
	}
	return r.Data.NextBid
}
