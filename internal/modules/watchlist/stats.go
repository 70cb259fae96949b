package watchlist

import (
	"github.com/aristath/trendtrack/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeStats derives aggregate figures from a watchlist.
//
// Totals are summed in decimal so they do not depend on entry order.
// Top gainer and loser are the max and min ChangePercent; on ties the
// first entry in current order wins. ValueChangePercent is relative to the
// implied prior total (TotalValue - ValueChange) and is 0 when that is 0.
func ComputeStats(list []domain.StockSummary) domain.WatchlistStats {
	total := decimal.Zero
	change := decimal.Zero
	gainer, loser := -1, -1

	for i, entry := range list {
		total = total.Add(decimal.NewFromFloat(entry.CurrentPrice))
		change = change.Add(decimal.NewFromFloat(entry.ChangeValue))

		if gainer < 0 || entry.ChangePercent > list[gainer].ChangePercent {
			gainer = i
		}
		if loser < 0 || entry.ChangePercent < list[loser].ChangePercent {
			loser = i
		}
	}

	stats := domain.WatchlistStats{
		TotalValue:   total.InexactFloat64(),
		ValueChange:  change.InexactFloat64(),
		TrackedCount: len(list),
	}

	prior := total.Sub(change)
	if !total.IsZero() && !prior.IsZero() {
		stats.ValueChangePercent = change.Div(prior).Mul(hundred).InexactFloat64()
	}

	if gainer >= 0 {
		g := list[gainer].Clone()
		stats.TopGainer = &g
	}
	if loser >= 0 {
		l := list[loser].Clone()
		stats.TopLoser = &l
	}

	return stats
}
