// Package report ranks stores by net sales, tracks the first-place streak and
// builds the daily report.
package report

import (
	"sort"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/shopspring/decimal"
)

// Entry is one ranked store.
type Entry struct {
	Rank       int             `json:"rank"`
	Store      string          `json:"store"`
	Amount     decimal.Decimal `json:"-"`
	AmountText string          `json:"amount"`
	Formatted  string          `json:"formatted"`
	Outcome    models.Outcome  `json:"outcome"`
	Reason     string          `json:"reason,omitempty"`
}

// Ranking is the ordered list of stores with their total.
type Ranking struct {
	Entries   []Entry         `json:"entries"`
	Total     decimal.Decimal `json:"-"`
	TotalText string          `json:"total"`
	Formatted string          `json:"formattedTotal"`
	// Failed lists the stores whose collection failed. They are also ranked with 0.
	Failed []Entry `json:"failed,omitempty"`
}

// BuildRanking sorts results by amount descending. Ties keep their input order.
// Failed results contribute 0 to the total.
func BuildRanking(results []models.StoreResult) Ranking {
	entries := make([]Entry, len(results))
	for i, r := range results {
		amount := models.RoundCents(r.Amount)
		if r.IsFailed() {
			amount = decimal.Zero
		}
		entries[i] = Entry{
			Store:      r.Store,
			Amount:     amount,
			AmountText: models.FormatAmount(amount),
			Formatted:  common.FormatMoney(amount),
			Outcome:    r.Outcome,
			Reason:     r.Reason,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Amount.GreaterThan(entries[j].Amount)
	})

	total := decimal.Zero
	var failed []Entry
	for i := range entries {
		entries[i].Rank = i + 1
		total = total.Add(entries[i].Amount)
		if entries[i].Outcome == models.OutcomeFailed {
			failed = append(failed, entries[i])
		}
	}

	return Ranking{
		Entries:   entries,
		Total:     total,
		TotalText: models.FormatAmount(total),
		Formatted: common.FormatMoney(total),
		Failed:    failed,
	}
}

// Leader returns the first-ranked store when it made a positive sale.
// Zero or failed leaders do not count toward a streak.
func (r Ranking) Leader() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	top := r.Entries[0]
	if top.Outcome != models.OutcomeSuccess || !top.Amount.IsPositive() {
		return Entry{}, false
	}
	return top, true
}
