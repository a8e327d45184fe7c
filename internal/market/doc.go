// Package market holds the in-memory market data store.
//
// The store tracks a fixed set of instruments decided at construction time.
// Writers are the live-channel event handlers; everyone else reads copies.
package market
