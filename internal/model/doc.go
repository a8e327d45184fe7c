// Package model defines shared data types used across the tournament feed.
//
// Conventions:
//   - Prices and balances: float64 denominated in the quote currency (USDT)
//   - Symbols: lowercase short tickers ("btc", "eth", "avax", "ada", "bnb")
//   - Participants: platform usernames as they appear in ranking payloads
package model
