// Package poller implements the auction reconciler.
//
// The reconciler:
//   - Fetches the account's active auctions on a fixed interval
//   - Replaces the auction store with the result, bounding cache staleness
//     when a bid-accepted refresh is missed
//   - Logs failures and leaves the store unchanged
//   - Is disabled by a negative interval
package poller
