package ranking

import (
	"testing"

	"github.com/tradearena/tournament-feed/internal/model"
)

func TestRank_Ordering(t *testing.T) {
	snapshot := model.RankingSnapshot{
		"A": {"BTC": 1, "USDT": 100},
		"B": {"BTC": 2, "USDT": 0},
	}
	prices := map[string]float64{"btc": 50}

	// A = 1*50 + 100 = 150, B = 2*50 = 100.
	res := Rank(snapshot, prices, "A")
	if res.SelfRank != 1 {
		t.Errorf("SelfRank(A) = %d, want 1", res.SelfRank)
	}

	res = Rank(snapshot, prices, "B")
	if res.SelfRank != 2 {
		t.Errorf("SelfRank(B) = %d, want 2", res.SelfRank)
	}

	if len(res.Ordered) != 2 {
		t.Fatalf("len(Ordered) = %d, want 2", len(res.Ordered))
	}
	if res.Ordered[0].Participant != "A" || res.Ordered[0].TotalValue != 150 {
		t.Errorf("Ordered[0] = %+v, want {A 150}", res.Ordered[0])
	}
	if res.Ordered[1].Participant != "B" || res.Ordered[1].TotalValue != 100 {
		t.Errorf("Ordered[1] = %+v, want {B 100}", res.Ordered[1])
	}
}

func TestRank_MultiAssetValuation(t *testing.T) {
	snapshot := model.RankingSnapshot{
		"carol": {"BTC": 0.5, "ETH": 10, "USDT": 250},
	}
	prices := map[string]float64{"btc": 60000, "eth": 3000}

	res := Rank(snapshot, prices, "carol")
	want := 0.5*60000 + 10*3000 + 250
	if res.Ordered[0].TotalValue != want {
		t.Errorf("TotalValue = %v, want %v", res.Ordered[0].TotalValue, want)
	}
}

func TestRank_UnpricedAssetIgnored(t *testing.T) {
	snapshot := model.RankingSnapshot{
		"dave": {"XRP": 1000, "USDT": 10},
	}
	prices := map[string]float64{"btc": 50000}

	res := Rank(snapshot, prices, "dave")
	if res.Ordered[0].TotalValue != 10 {
		t.Errorf("TotalValue = %v, want 10 (unpriced asset contributes nothing)", res.Ordered[0].TotalValue)
	}
}

func TestRank_SelfAbsent(t *testing.T) {
	snapshot := model.RankingSnapshot{
		"A": {"USDT": 100},
	}

	res := Rank(snapshot, nil, "ghost")
	if res.SelfRank != NotRanked {
		t.Errorf("SelfRank = %d, want NotRanked", res.SelfRank)
	}
}

func TestRank_EmptySnapshot(t *testing.T) {
	res := Rank(model.RankingSnapshot{}, map[string]float64{"btc": 50000}, "A")

	if len(res.Ordered) != 0 {
		t.Errorf("len(Ordered) = %d, want 0", len(res.Ordered))
	}
	if res.SelfRank != NotRanked {
		t.Errorf("SelfRank = %d, want NotRanked", res.SelfRank)
	}
}

func TestRank_TieBrokenByParticipantID(t *testing.T) {
	snapshot := model.RankingSnapshot{
		"zed":   {"USDT": 100},
		"alice": {"USDT": 100},
		"mike":  {"USDT": 100},
	}

	res := Rank(snapshot, nil, "mike")

	want := []string{"alice", "mike", "zed"}
	for i, name := range want {
		if res.Ordered[i].Participant != name {
			t.Errorf("Ordered[%d] = %q, want %q", i, res.Ordered[i].Participant, name)
		}
	}
	if res.SelfRank != 2 {
		t.Errorf("SelfRank = %d, want 2", res.SelfRank)
	}
}

func TestValuation_QuoteOnly(t *testing.T) {
	v := Valuation(model.Balances{"USDT": 123.45}, nil)
	if v != 123.45 {
		t.Errorf("Valuation = %v, want 123.45", v)
	}
}
