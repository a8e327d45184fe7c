package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tradearena/tournament-feed/internal/model"
)

// ErrUnknownInstrument is returned for updates targeting a symbol outside
// the tracked set. The tracked set is fixed at construction; updates never
// grow it.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Store holds last-known price and 24-hour statistics per tracked
// instrument, plus the latest OHLCV candle series and trade history.
type Store struct {
	mu sync.RWMutex

	// Tracked instruments indexed by symbol.
	instruments map[string]*model.InstrumentState

	// Symbols in configuration order, for deterministic iteration.
	symbols []string

	// Latest candle series, forwarded verbatim from the live channel.
	ohlcv json.RawMessage

	// Latest trade history, forwarded verbatim from the live channel.
	trades []model.Trade
}

// NewStore creates a store tracking exactly the given symbols.
func NewStore(symbols []string) *Store {
	s := &Store{
		instruments: make(map[string]*model.InstrumentState, len(symbols)),
		symbols:     append([]string(nil), symbols...),
	}
	for _, sym := range symbols {
		s.instruments[sym] = &model.InstrumentState{Symbol: sym}
	}
	return s
}

// Symbols returns the tracked symbols in configuration order.
func (s *Store) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Tracks reports whether symbol is in the tracked set.
func (s *Store) Tracks(symbol string) bool {
	_, ok := s.instruments[symbol]
	return ok
}

// Update applies a price update: current price and all four 24h stats are
// written under one lock, so readers never observe price and stats from
// different updates.
func (s *Store) Update(symbol string, p model.PriceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[symbol]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, symbol)
	}

	inst.Price = p.Last
	inst.Stats = model.Stats24h{
		High24h:    p.High24h,
		Low24h:     p.Low24h,
		Change:     p.Change,
		Percentage: p.Percentage,
		Valid:      true,
	}
	inst.UpdatedAt = time.Now()

	return nil
}

// Snapshot returns a copy of the instrument's current state.
func (s *Store) Snapshot(symbol string) (model.InstrumentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instruments[symbol]
	if !ok {
		return model.InstrumentState{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, symbol)
	}
	return *inst, nil
}

// SnapshotAll returns copies of every tracked instrument in tracked order.
func (s *Store) SnapshotAll() []model.InstrumentState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.InstrumentState, 0, len(s.symbols))
	for _, sym := range s.symbols {
		out = append(out, *s.instruments[sym])
	}
	return out
}

// Prices returns current prices for all tracked instruments. Instruments
// with no update yet carry price 0.
func (s *Store) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.instruments))
	for sym, inst := range s.instruments {
		out[sym] = inst.Price
	}
	return out
}

// SetOHLCV stores the latest candle series payload verbatim.
func (s *Store) SetOHLCV(data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ohlcv = data
}

// OHLCV returns the latest candle series payload, nil before first arrival.
func (s *Store) OHLCV() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ohlcv
}

// SetTrades replaces the trade history.
func (s *Store) SetTrades(trades []model.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = trades
}

// Trades returns a copy of the trade history.
func (s *Store) Trades() []model.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Trade(nil), s.trades...)
}
