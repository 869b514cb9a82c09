// Package model defines shared data types used across the bidder.
//
// Conventions:
//   - Money: int64 minor units (hundredths of a coin), exactly as the marketplace reports them
//   - IDs: int64 marketplace identifiers (deposit/auction IDs, user IDs)
//   - Snapshots: every stream-derived value is immutable once decoded
package model
