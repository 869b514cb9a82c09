// Package database provides the PostgreSQL connection pool.
//
// The pool backs two optional consumers:
//   - the Postgres reference price oracle (item_prices, items)
//   - the bid audit writer (bid_attempts)
//
// It is only opened when at least one of them is configured.
package database
