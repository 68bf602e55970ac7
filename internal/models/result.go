package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CollectionType distinguishes the interim and end-of-day runs.
type CollectionType string

const (
	CollectionMidday CollectionType = "midday"
	CollectionFinal  CollectionType = "final"
)

// ParseCollectionType validates a collection type string.
func ParseCollectionType(s string) (CollectionType, error) {
	switch CollectionType(s) {
	case CollectionMidday, CollectionFinal:
		return CollectionType(s), nil
	}
	return "", fmt.Errorf("unknown collection type %q (want midday or final)", s)
}

// Outcome records whether a store's figure is real, a genuine zero, or missing.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeZero    Outcome = "zero"
	OutcomeFailed  Outcome = "failed"
)

// Source records where the figure came from.
type Source string

const (
	SourcePage Source = "page"
	SourceCSV  Source = "csv"
	SourceNone Source = "none"
)

// StoreResult is the latest collected figure for one store.
// It is overwritten on every run for that store.
type StoreResult struct {
	Store       string          `json:"store" badgerhold:"key"`
	Amount      decimal.Decimal `json:"-"`
	CollectedAt time.Time       `json:"timestamp"`
	Type        CollectionType  `json:"type"`
	Outcome     Outcome         `json:"outcome"`
	Source      Source          `json:"source"`
	Reason      string          `json:"reason,omitempty"`
}

// NewStoreResult builds a result and derives the outcome from the amount.
func NewStoreResult(store string, amount decimal.Decimal, source Source, typ CollectionType, at time.Time) StoreResult {
	amount = RoundCents(amount)
	outcome := OutcomeSuccess
	if amount.IsZero() {
		outcome = OutcomeZero
	}
	return StoreResult{
		Store:       store,
		Amount:      amount,
		CollectedAt: at,
		Type:        typ,
		Outcome:     outcome,
		Source:      source,
	}
}

// FailedStoreResult builds a result for a store whose figure could not be collected.
func FailedStoreResult(store, reason string, typ CollectionType, at time.Time) StoreResult {
	return StoreResult{
		Store:       store,
		Amount:      decimal.Zero,
		CollectedAt: at,
		Type:        typ,
		Outcome:     OutcomeFailed,
		Source:      SourceNone,
		Reason:      reason,
	}
}

// IsFailed reports whether the collection failed for this store.
func (r StoreResult) IsFailed() bool {
	return r.Outcome == OutcomeFailed
}

type storeResultJSON struct {
	Store       string         `json:"store"`
	Amount      string         `json:"amount"`
	CollectedAt time.Time      `json:"timestamp"`
	Type        CollectionType `json:"type"`
	Outcome     Outcome        `json:"outcome"`
	Source      Source         `json:"source"`
	Reason      string         `json:"reason,omitempty"`
}

// MarshalJSON writes the amount as a fixed two-decimal string.
func (r StoreResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(storeResultJSON{
		Store:       r.Store,
		Amount:      FormatAmount(r.Amount),
		CollectedAt: r.CollectedAt,
		Type:        r.Type,
		Outcome:     r.Outcome,
		Source:      r.Source,
		Reason:      r.Reason,
	})
}

// UnmarshalJSON reads the fixed two-decimal amount back.
func (r *StoreResult) UnmarshalJSON(data []byte) error {
	var raw storeResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount := decimal.Zero
	if raw.Amount != "" {
		a, err := ParseAmount(raw.Amount)
		if err != nil {
			return fmt.Errorf("store result %s: %w", raw.Store, err)
		}
		amount = a
	}
	*r = StoreResult{
		Store:       raw.Store,
		Amount:      amount,
		CollectedAt: raw.CollectedAt,
		Type:        raw.Type,
		Outcome:     raw.Outcome,
		Source:      raw.Source,
		Reason:      raw.Reason,
	}
	return nil
}
