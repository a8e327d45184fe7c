// Package feed synchronizes live market data and tournament ranking.
//
// It binds the event table onto a connection handle, writes inbound events
// into the market store, recomputes the leaderboard on every relevant
// write, and routes one-shot REST calls when no live channel exists.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/tradearena/tournament-feed/internal/api"
	"github.com/tradearena/tournament-feed/internal/connection"
	"github.com/tradearena/tournament-feed/internal/market"
	"github.com/tradearena/tournament-feed/internal/model"
	"github.com/tradearena/tournament-feed/internal/ranking"
)

// ErrStaleTournament is returned when a fallback result arrives after the
// feed has switched to a different tournament.
var ErrStaleTournament = errors.New("stale tournament")

// Config holds feed parameters.
type Config struct {
	Token        string // Identity token for the live channel
	TournamentID string // Tournament to follow
	Username     string // Participant whose rank is extracted
}

// Feed owns the synchronization state for one tournament at a time.
type Feed struct {
	cfg     Config
	manager *connection.Manager
	rest    *api.Client
	store   *market.Store
	logger  *slog.Logger

	mu           sync.RWMutex
	handle       *connection.Handle
	tournamentID string
	snapshot     model.RankingSnapshot
	result       ranking.Result

	// Per-tournament context; cancelled on switch or stop so in-flight
	// fallback calls cannot write stale data.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Feed. The store's tracked set decides which price events
// get handlers.
func New(cfg Config, manager *connection.Manager, rest *api.Client, store *market.Store, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}

	return &Feed{
		cfg:          cfg,
		manager:      manager,
		rest:         rest,
		store:        store,
		logger:       logger,
		tournamentID: cfg.TournamentID,
		snapshot:     model.RankingSnapshot{},
	}
}

// Start opens the live channel and registers the event table. A channel
// that cannot open (missing token, blocked endpoint) is not fatal: the feed
// keeps serving through the REST fallback.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	f.ctx, f.cancel = context.WithCancel(ctx)
	tournamentID := f.tournamentID
	f.mu.Unlock()

	handle, err := f.manager.Open(f.ctx, f.cfg.Token, tournamentID, func() {
		f.logger.Info("live channel ready", "tournament", tournamentID)
		f.requestInitialData()
	})
	if err != nil {
		if errors.Is(err, connection.ErrConnectionUnavailable) {
			f.logger.Warn("live channel unavailable, serving REST fallback only", "error", err)
			return nil
		}
		return err
	}

	f.mu.Lock()
	f.handle = handle
	f.mu.Unlock()

	f.registerHandlers(handle)

	f.logger.Info("feed started",
		"tournament", tournamentID,
		"symbols", f.store.Symbols(),
	)

	return nil
}

// Stop cancels in-flight work and releases the live channel.
func (f *Feed) Stop() {
	f.mu.Lock()
	handle := f.handle
	f.handle = nil
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if handle != nil {
		f.manager.Close(handle)
	}

	f.logger.Info("feed stopped")
}

// SwitchTournament closes the current channel, discards in-flight fallback
// work for the old tournament, and opens a fresh handle for the new one.
func (f *Feed) SwitchTournament(ctx context.Context, tournamentID string) error {
	f.mu.Lock()
	old := f.tournamentID
	handle := f.handle
	f.handle = nil
	cancel := f.cancel
	f.tournamentID = tournamentID
	f.snapshot = model.RankingSnapshot{}
	f.result = ranking.Result{}
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if handle != nil {
		f.manager.Close(handle)
	}

	f.logger.Info("switching tournament", "from", old, "to", tournamentID)

	return f.Start(ctx)
}

// registerHandlers binds the full event table onto the handle. All handlers
// run sequentially on the handle's dispatch goroutine.
func (f *Feed) registerHandlers(h *connection.Handle) {
	for _, symbol := range f.store.Symbols() {
		symbol := symbol
		f.manager.On(h, symbol+"PriceUpdate", func(data json.RawMessage) {
			f.handlePriceUpdate(symbol, data)
		})
	}

	f.manager.On(h, "btcOHLCV", f.handleOHLCV)
	f.manager.On(h, "refreshTournamentRanking", f.handleRankingRefresh)
	f.manager.On(h, "getTrading", f.handleTrading)
}

// requestInitialData primes the feed once the channel is ready.
func (f *Feed) requestInitialData() {
	f.mu.RLock()
	handle := f.handle
	f.mu.RUnlock()

	if handle == nil {
		return
	}
	if err := handle.RefreshRanking(); err != nil {
		f.logger.Warn("initial ranking request failed", "error", err)
	}
}

// handlePriceUpdate applies one price event and recomputes the leaderboard,
// since every tracked price feeds the valuation.
func (f *Feed) handlePriceUpdate(symbol string, data json.RawMessage) {
	var update model.PriceUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		f.logger.Warn("malformed price update, keeping previous state",
			"symbol", symbol,
			"error", err,
		)
		return
	}

	if err := f.store.Update(symbol, update); err != nil {
		f.logger.Warn("price update rejected", "symbol", symbol, "error", err)
		return
	}

	f.recompute()
}

// handleOHLCV forwards the candle series verbatim.
func (f *Feed) handleOHLCV(data json.RawMessage) {
	f.store.SetOHLCV(data)
}

// handleRankingRefresh replaces the ranking snapshot. Empty payloads mean
// "no update", not "clear": the previous snapshot stays.
func (f *Feed) handleRankingRefresh(data json.RawMessage) {
	var snapshot model.RankingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		f.logger.Warn("malformed ranking refresh, keeping previous snapshot", "error", err)
		return
	}
	if len(snapshot) == 0 {
		return
	}

	f.mu.Lock()
	f.snapshot = snapshot
	f.mu.Unlock()

	f.recompute()
}

// handleTrading forwards the trade history to the store.
func (f *Feed) handleTrading(data json.RawMessage) {
	var trades []model.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		f.logger.Warn("malformed trade list, keeping previous state", "error", err)
		return
	}
	f.store.SetTrades(trades)
}

// recompute derives a fresh leaderboard from the current snapshot and
// prices. The result replaces the previous one wholesale.
func (f *Feed) recompute() {
	prices := f.store.Prices()

	f.mu.Lock()
	f.result = ranking.Rank(f.snapshot, prices, f.cfg.Username)
	f.mu.Unlock()
}

// Rank returns the latest leaderboard derivation.
func (f *Feed) Rank() ranking.Result {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.result
}

// Store exposes read access to market data.
func (f *Feed) Store() *market.Store {
	return f.store
}

// Connected reports whether the live channel is established.
func (f *Feed) Connected() bool {
	return f.manager.Connected()
}

// TournamentID returns the tournament currently followed.
func (f *Feed) TournamentID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tournamentID
}

// Ranking returns the current ranking snapshot. With no live channel it
// falls back to a one-shot REST fetch; a result arriving after a
// tournament switch is discarded.
func (f *Feed) Ranking(ctx context.Context) (model.RankingSnapshot, error) {
	if f.manager.Connected() {
		f.mu.RLock()
		defer f.mu.RUnlock()
		return f.snapshot, nil
	}

	f.mu.RLock()
	tournamentID := f.tournamentID
	fetchCtx := f.ctx
	f.mu.RUnlock()

	if fetchCtx == nil {
		fetchCtx = ctx
	}

	snapshot, err := f.rest.GetTournamentRanking(fetchCtx, tournamentID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Tournament switched while the request was in flight.
	if f.tournamentID != tournamentID {
		return nil, ErrStaleTournament
	}

	if len(snapshot) > 0 {
		f.snapshot = snapshot
		f.result = ranking.Rank(f.snapshot, f.store.Prices(), f.cfg.Username)
	}
	return snapshot, nil
}

// TradingPairs fetches the tournament's pair list over REST; the live
// channel has no equivalent event. Stale results are discarded the same
// way as Ranking's.
func (f *Feed) TradingPairs(ctx context.Context) ([]model.TradingPair, error) {
	f.mu.RLock()
	tournamentID := f.tournamentID
	fetchCtx := f.ctx
	f.mu.RUnlock()

	if fetchCtx == nil {
		fetchCtx = ctx
	}

	pairs, err := f.rest.GetTradingPairs(fetchCtx, tournamentID)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.tournamentID != tournamentID {
		return nil, ErrStaleTournament
	}
	return pairs, nil
}
