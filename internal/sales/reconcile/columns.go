package reconcile

import "strings"

// Columns is the header vocabulary used to recognize export layouts.
// Matching is case-insensitive substring matching against header names.
type Columns struct {
	Net      []string
	Fallback []string
	Ticket   []string
	// Gross and NetOffset locate the net column by position when no header names it:
	// Gross Sales, Discounts, Returns, Net Sales.
	Gross     string
	NetOffset int
}

// DefaultColumns matches the portal's summary and line-item exports.
func DefaultColumns() Columns {
	return Columns{
		Net:       []string{"net sales", "net revenue"},
		Fallback:  []string{"revenue", "total"},
		Ticket:    []string{"ticket id", "ticket", "ticket #", "ticket number", "transaction id", "order id"},
		Gross:     "gross sales",
		NetOffset: 3,
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if len(c.Net) == 0 {
		c.Net = d.Net
	}
	if len(c.Fallback) == 0 {
		c.Fallback = d.Fallback
	}
	if len(c.Ticket) == 0 {
		c.Ticket = d.Ticket
	}
	if c.Gross == "" {
		c.Gross = d.Gross
	}
	if c.NetOffset == 0 {
		c.NetOffset = d.NetOffset
	}
	return c
}

// findColumn returns the first header index matching any synonym, trying
// synonyms in priority order.
func findColumn(headers []string, synonyms []string) int {
	for _, syn := range synonyms {
		syn = strings.ToLower(strings.TrimSpace(syn))
		if syn == "" {
			continue
		}
		for i, h := range headers {
			if strings.Contains(normalizeHeader(h), syn) {
				return i
			}
		}
	}
	return -1
}

// findExactColumn is findColumn with whole-header matching. Ticket synonyms use it
// so "Ticket Count" or "Avg Ticket" never read as a transaction id.
func findExactColumn(headers []string, synonyms []string) int {
	for _, syn := range synonyms {
		syn = strings.ToLower(strings.TrimSpace(syn))
		if syn == "" {
			continue
		}
		for i, h := range headers {
			if normalizeHeader(h) == syn {
				return i
			}
		}
	}
	return -1
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(strings.Trim(h, `"`)))
}
