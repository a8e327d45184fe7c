package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// PriceUpdate is the payload of a <symbol>PriceUpdate event.
type PriceUpdate struct {
	Last       float64 `json:"last"`       // Last trade price
	High24h    float64 `json:"high24h"`    // 24-hour high
	Low24h     float64 `json:"low24h"`     // 24-hour low
	Change     float64 `json:"change"`     // 24-hour absolute change
	Percentage float64 `json:"percentage"` // 24-hour relative change (%)
}

// Stats24h holds the rolling 24-hour statistics for an instrument.
// Valid is false until the first price update arrives.
type Stats24h struct {
	High24h    float64
	Low24h     float64
	Change     float64
	Percentage float64
	Valid      bool
}

// InstrumentState is a point-in-time snapshot of a tracked instrument.
type InstrumentState struct {
	Symbol    string    // Short ticker (e.g., "btc")
	Price     float64   // Last trade price, 0 until first update
	Stats     Stats24h  // 24-hour statistics
	UpdatedAt time.Time // Local receive time of the last update
}

// Trade is a single entry in the tournament trade history.
type Trade struct {
	ID         int     `json:"id"`
	Pair       string  `json:"pair"`
	Side       string  `json:"side"` // "buy" or "sell"
	Amount     float64 `json:"amount"`
	Price      float64 `json:"price"`
	ExecutedAt int64   `json:"executedAt"` // Unix seconds
}

// -----------------------------------------------------------------------------
// Ranking Types
// -----------------------------------------------------------------------------

// Balances holds one participant's holdings per instrument, keyed by the
// upper-case asset code ("BTC", "USDT", ...). The quote currency is USDT.
//
// The server encodes balance values both as JSON numbers (live channel) and
// as strings (REST ranking endpoint); UnmarshalJSON accepts either.
type Balances map[string]float64

// UnmarshalJSON converts string-encoded balance values on ingestion.
func (b *Balances) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Balances, len(raw))
	for asset, v := range raw {
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			out[asset] = f
			continue
		}

		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("balance %s: unsupported value %s", asset, v)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("balance %s: parse %q: %w", asset, s, err)
		}
		out[asset] = f
	}

	*b = out
	return nil
}

// RankingSnapshot maps participant → balances for one tournament. Derived
// leaderboard state is recomputed from it; the snapshot itself is replaced
// wholesale, never mutated in place.
type RankingSnapshot map[string]Balances

// -----------------------------------------------------------------------------
// Tournament Types
// -----------------------------------------------------------------------------

// TradingPair is one tradable pair offered by a tournament.
type TradingPair struct {
	ID        int    // Platform identifier
	Name      string // Display name (e.g., "BTC/USDT")
	BaseAsset string // Short name of the base asset (e.g., "btc")
}

// Tournament holds the subset of tournament attributes the feed consumes.
type Tournament struct {
	ID      int
	Name    string
	StartAt time.Time
	EndAt   time.Time
}
