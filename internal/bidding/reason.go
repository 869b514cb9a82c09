package bidding

import "github.com/rickgao/empire-bidder/internal/api"

// Rejection keys and messages returned by the marketplace.
const (
	ErrorKeyBidAlreadyPlaced       = "bid_already_placed"
	ErrorKeyAuctionAlreadyFinished = "auction_already_finished"

	MessageOneTradeAtATime       = "You can only make one trade at a time. Please wait a moment and try again."
	MessageTemporarilyRestricted = "You are temporarily restricted from withdrawing or placing bids."
	MessageNotEnoughBalance      = "You don't have enough balance to do that!"
)

// reason classifies a bid response.
type reason int

const (
	reasonUnknown reason = iota
	reasonAccepted
	reasonOutbid
	reasonContention
	reasonFinished
	reasonRestricted
	reasonNoBalance
)

// String returns the audit label for r.
func (r reason) String() string {
	switch r {
	case reasonAccepted:
		return "accepted"
	case reasonOutbid:
		return "outbid"
	case reasonContention:
		return "contention"
	case reasonFinished:
		return "finished"
	case reasonRestricted:
		return "restricted"
	case reasonNoBalance:
		return "insufficient_balance"
	default:
		return "unknown"
	}
}

// classify checks the error key first, then the exact message.
func classify(resp *api.BidResponse) reason {
	if resp.Success {
		return reasonAccepted
	}

	switch resp.ErrorKey() {
	case ErrorKeyBidAlreadyPlaced:
		return reasonOutbid
	case ErrorKeyAuctionAlreadyFinished:
		return reasonFinished
	}

	switch resp.Message {
	case MessageOneTradeAtATime:
		return reasonContention
	case MessageTemporarilyRestricted:
		return reasonRestricted
	case MessageNotEnoughBalance:
		return reasonNoBalance
	}

	return reasonUnknown
}
