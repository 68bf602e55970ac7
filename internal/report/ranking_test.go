package report

import (
	"testing"
	"time"

	"github.com/bobmcallan/storetally/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(store, amount string) models.StoreResult {
	return models.NewStoreResult(store, decimal.RequireFromString(amount), models.SourcePage, models.CollectionFinal, time.Time{})
}

func stores(r Ranking) []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Store
	}
	return out
}

func TestBuildRanking_OrdersDescending(t *testing.T) {
	r := BuildRanking([]models.StoreResult{
		result("a", "50"),
		result("b", "100"),
		result("c", "0"),
	})

	assert.Equal(t, []string{"b", "a", "c"}, stores(r))
	assert.Equal(t, "150.00", r.Total.StringFixed(2))
	assert.Equal(t, "$150.00", r.Formatted)

	require.Len(t, r.Entries, 3)
	assert.Equal(t, 1, r.Entries[0].Rank)
	assert.Equal(t, "$100.00", r.Entries[0].Formatted)
	assert.Equal(t, models.OutcomeZero, r.Entries[2].Outcome)
}

func TestBuildRanking_TiesKeepInputOrder(t *testing.T) {
	r := BuildRanking([]models.StoreResult{
		result("x", "10"),
		result("y", "20"),
		result("z", "10"),
		result("w", "20"),
	})

	assert.Equal(t, []string{"y", "w", "x", "z"}, stores(r))
	assert.Equal(t, []int{1, 2, 3, 4}, []int{r.Entries[0].Rank, r.Entries[1].Rank, r.Entries[2].Rank, r.Entries[3].Rank})
}

func TestBuildRanking_FailedContributesZero(t *testing.T) {
	failed := models.FailedStoreResult("airport", "login failed", models.CollectionFinal, time.Time{})
	failed.Amount = decimal.NewFromInt(999)

	r := BuildRanking([]models.StoreResult{result("a", "7404.52"), failed})

	assert.Equal(t, "7404.52", r.Total.StringFixed(2))
	require.Len(t, r.Failed, 1)
	assert.Equal(t, "airport", r.Failed[0].Store)
	assert.Equal(t, "login failed", r.Failed[0].Reason)
	assert.True(t, r.Entries[1].Amount.IsZero())
}

func TestBuildRanking_Empty(t *testing.T) {
	r := BuildRanking(nil)

	assert.Empty(t, r.Entries)
	assert.True(t, r.Total.IsZero())
	_, ok := r.Leader()
	assert.False(t, ok)
}

func TestRanking_Leader(t *testing.T) {
	r := BuildRanking([]models.StoreResult{result("a", "5"), result("b", "7")})
	leader, ok := r.Leader()
	require.True(t, ok)
	assert.Equal(t, "b", leader.Store)

	zeros := BuildRanking([]models.StoreResult{result("a", "0"), result("b", "0")})
	_, ok = zeros.Leader()
	assert.False(t, ok)
}
