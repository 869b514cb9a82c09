// Package writer implements the bid audit writer.
//
// Every bid request the controller sends is recorded without blocking the
// negotiation, batched, and inserted into bid_attempts with pgx.Batch when
// the batch fills or the flush interval elapses. Rows are append-only and
// keyed by attempt ID. Write failures are logged and counted; they never
// reach the bidding path.
package writer
