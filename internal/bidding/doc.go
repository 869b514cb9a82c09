// Package bidding negotiates a single bid on an item.
//
// Controller.SubmitBid sends a bid and reacts to the marketplace's answer:
//
//	accepted                          -> Accepted
//	bid_already_placed, next <= max   -> re-bid at next
//	bid_already_placed, next >  max   -> Abandoned
//	one-trade-at-a-time               -> wait cooldown, re-bid same value
//	auction_already_finished          -> Abandoned
//	temporarily restricted            -> Abandoned
//	not enough balance                -> InsufficientBalance
//	anything else, transport failure  -> Abandoned
//
// Both retry paths are bounded. SubmitBid never returns an error; every
// failure is logged and folded into an Outcome.
package bidding
