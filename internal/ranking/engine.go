// Package ranking derives an ordered leaderboard from a ranking snapshot
// and current instrument prices.
package ranking

import (
	"sort"
	"strings"

	"github.com/tradearena/tournament-feed/internal/model"
)

// QuoteAsset is the stable quote currency, valued at 1.
const QuoteAsset = "USDT"

// NotRanked is the SelfRank value when the participant is absent from the
// snapshot. Ranks are 1-based.
const NotRanked = 0

// Entry is one leaderboard row.
type Entry struct {
	Participant string
	TotalValue  float64 // Valuation in quote-currency terms
}

// Result is an immutable leaderboard derivation.
type Result struct {
	Ordered  []Entry // Descending by TotalValue
	SelfRank int     // 1-based position of self, NotRanked if absent
}

// Valuation returns a participant's total value: each held instrument's
// balance times its current price, plus the quote balance at price 1.
// Assets with no known price contribute nothing.
func Valuation(balances model.Balances, prices map[string]float64) float64 {
	total := balances[QuoteAsset]
	for asset, amount := range balances {
		if asset == QuoteAsset {
			continue
		}
		if price, ok := prices[strings.ToLower(asset)]; ok {
			total += amount * price
		}
	}
	return total
}

// Rank orders the snapshot descending by total valuation and extracts the
// 1-based rank of self. Ties are broken by participant ID so the order is
// deterministic regardless of map iteration.
func Rank(snapshot model.RankingSnapshot, prices map[string]float64, self string) Result {
	ordered := make([]Entry, 0, len(snapshot))
	for participant, balances := range snapshot {
		ordered = append(ordered, Entry{
			Participant: participant,
			TotalValue:  Valuation(balances, prices),
		})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TotalValue != ordered[j].TotalValue {
			return ordered[i].TotalValue > ordered[j].TotalValue
		}
		return ordered[i].Participant < ordered[j].Participant
	})

	result := Result{Ordered: ordered, SelfRank: NotRanked}
	for i, e := range ordered {
		if e.Participant == self {
			result.SelfRank = i + 1
			break
		}
	}
	return result
}
