package connection

import (
	"context"
	"encoding/json"
)

// Event names emitted client→server.
const (
	EventMakeTrade       = "makeTrade"
	EventGetTrading      = "getTrading"
	EventGetWallets      = "getWallets"
	EventRefreshRanking  = "refreshTournamentRanking"
	EventChangeTimeframe = "changeOHLCVtimeframe"
)

// tournamentScope addresses an emit to a tournament.
type tournamentScope struct {
	Tournament string `json:"tournament"`
}

// MakeTrade submits a trade and waits for the execution reply.
func (h *Handle) MakeTrade(ctx context.Context, trade any) (json.RawMessage, error) {
	return h.EmitWithAck(ctx, EventMakeTrade, trade)
}

// RequestTrading asks the server to push the tournament's trade history and
// waits for the reply.
func (h *Handle) RequestTrading(ctx context.Context, tournamentID string) (json.RawMessage, error) {
	if tournamentID == "" {
		return nil, ErrConnectionUnavailable
	}
	return h.EmitWithAck(ctx, EventGetTrading, tournamentScope{Tournament: tournamentID})
}

// RequestWallets asks the server for the caller's wallet balances and waits
// for the reply.
func (h *Handle) RequestWallets(ctx context.Context, tournamentID string) (json.RawMessage, error) {
	if tournamentID == "" {
		return nil, ErrConnectionUnavailable
	}
	return h.EmitWithAck(ctx, EventGetWallets, tournamentScope{Tournament: tournamentID})
}

// RefreshRanking asks the server to rebroadcast the tournament ranking. The
// result arrives as a refreshTournamentRanking event, not as an ack.
func (h *Handle) RefreshRanking() error {
	return h.Emit(EventRefreshRanking, nil)
}

// ChangeOHLCVTimeframe switches the candle series timeframe; subsequent
// btcOHLCV events carry the new resolution.
func (h *Handle) ChangeOHLCVTimeframe(ctx context.Context, timeframe string) (json.RawMessage, error) {
	payload := struct {
		Timeframe string `json:"timeframe"`
	}{Timeframe: timeframe}
	return h.EmitWithAck(ctx, EventChangeTimeframe, payload)
}
