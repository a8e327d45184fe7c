package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tradearena/tournament-feed/internal/model"
)

// GetTournamentRanking fetches the one-shot equivalent of the live
// refreshTournamentRanking event. An empty tournament ID returns an empty
// snapshot without issuing a network call, matching the live-path behavior
// of "no tournament, no data".
func (c *Client) GetTournamentRanking(ctx context.Context, tournamentID string) (model.RankingSnapshot, error) {
	if tournamentID == "" {
		return model.RankingSnapshot{}, nil
	}

	var snapshot model.RankingSnapshot
	path := fmt.Sprintf("/tournaments/%s/ranking", url.PathEscape(tournamentID))
	if err := c.get(ctx, path, nil, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// tournamentDetailsWire is the populated tournament response.
type tournamentDetailsWire struct {
	Data struct {
		ID         int `json:"id"`
		Attributes struct {
			Name    string `json:"name"`
			StartAt string `json:"start_at"`
			EndAt   string `json:"end_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetTournamentDetails fetches tournament metadata with all relations
// populated.
func (c *Client) GetTournamentDetails(ctx context.Context, tournamentID string) (model.Tournament, error) {
	if tournamentID == "" {
		return model.Tournament{}, fmt.Errorf("tournament id is required")
	}

	query := url.Values{}
	query.Set("populate", "*")

	var wire tournamentDetailsWire
	path := fmt.Sprintf("/tournaments/%s", url.PathEscape(tournamentID))
	if err := c.get(ctx, path, query, &wire); err != nil {
		return model.Tournament{}, err
	}

	t := model.Tournament{
		ID:   wire.Data.ID,
		Name: wire.Data.Attributes.Name,
	}
	if ts, err := time.Parse(time.RFC3339, wire.Data.Attributes.StartAt); err == nil {
		t.StartAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, wire.Data.Attributes.EndAt); err == nil {
		t.EndAt = ts
	}
	return t, nil
}

// tradingPairsWire is the deeply populated tournament response carrying the
// crypto trading-pair list for the tournament's market type.
type tradingPairsWire struct {
	Data struct {
		Attributes struct {
			MarketType []struct {
				CryptoTradingPairs struct {
					Data []tradingPairWire `json:"data"`
				} `json:"crypto_trading_pairs"`
			} `json:"market_type"`
		} `json:"attributes"`
	} `json:"data"`
}

type tradingPairWire struct {
	ID         int `json:"id"`
	Attributes struct {
		Name string `json:"name"`
		Base struct {
			Attributes struct {
				ShortName string `json:"short_name"`
			} `json:"attributes"`
		} `json:"base"`
	} `json:"attributes"`
}

// GetTradingPairs fetches the tradable pair list for a tournament. An empty
// tournament ID returns nil without issuing a network call.
func (c *Client) GetTradingPairs(ctx context.Context, tournamentID string) ([]model.TradingPair, error) {
	if tournamentID == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("populate[market_type][on][market-types.crypto][populate][crypto_trading_pairs][populate]", "*")
	query.Set("populate[participants]", "*")

	var wire tradingPairsWire
	path := fmt.Sprintf("/tournaments/%s", url.PathEscape(tournamentID))
	if err := c.get(ctx, path, query, &wire); err != nil {
		return nil, err
	}

	if len(wire.Data.Attributes.MarketType) == 0 {
		return nil, nil
	}

	raw := wire.Data.Attributes.MarketType[0].CryptoTradingPairs.Data
	pairs := make([]model.TradingPair, 0, len(raw))
	for _, p := range raw {
		pairs = append(pairs, model.TradingPair{
			ID:        p.ID,
			Name:      p.Attributes.Name,
			BaseAsset: p.Attributes.Base.Attributes.ShortName,
		})
	}
	return pairs, nil
}

// JoinTournament enrolls the authenticated user in a tournament.
func (c *Client) JoinTournament(ctx context.Context, tournamentID string) error {
	if tournamentID == "" {
		return fmt.Errorf("tournament id is required")
	}

	path := fmt.Sprintf("/tournaments/%s/join", url.PathEscape(tournamentID))
	return c.put(ctx, path, nil)
}

// balancesWire is the per-user balance listing response.
type balancesWire struct {
	Data []struct {
		ID         int `json:"id"`
		Attributes struct {
			Balances model.Balances `json:"balances"`
			User     struct {
				Data struct {
					Attributes struct {
						Username string `json:"username"`
					} `json:"attributes"`
				} `json:"data"`
			} `json:"user"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetTournamentBalances fetches per-participant balances for a tournament.
func (c *Client) GetTournamentBalances(ctx context.Context, tournamentID string) (model.RankingSnapshot, error) {
	if tournamentID == "" {
		return model.RankingSnapshot{}, nil
	}

	query := url.Values{}
	query.Set("filters[tournament][id]", tournamentID)
	query.Set("populate", "tournament,user")

	var wire balancesWire
	if err := c.get(ctx, "/balances", query, &wire); err != nil {
		return nil, err
	}

	snapshot := make(model.RankingSnapshot, len(wire.Data))
	for _, entry := range wire.Data {
		username := entry.Attributes.User.Data.Attributes.Username
		if username == "" {
			continue
		}
		snapshot[username] = entry.Attributes.Balances
	}
	return snapshot, nil
}
