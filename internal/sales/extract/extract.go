// Package extract reads the Net Sales figure out of rendered report summary rows.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bobmcallan/storetally/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultLabels are the summary labels recognized as the net sales figure.
var DefaultLabels = []string{"Net Sales"}

// currencyPattern matches "$1,234.56", "$12.00" and "-$5.00".
var currencyPattern = regexp.MustCompile(`-?\$(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}`)

// Status classifies an extraction result.
type Status int

const (
	// NotFound means no row carried a recognized label with a parsable amount.
	NotFound Status = iota
	// Found is a non-zero amount.
	Found
	// Stale means every matching row showed $0.00, probably before async data arrived.
	Stale
	// Zero is a zero that survived every readiness retry.
	Zero
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Stale:
		return "stale"
	case Zero:
		return "zero"
	default:
		return "not_found"
	}
}

// Result is the outcome of one extraction.
type Result struct {
	Status  Status
	Amount  decimal.Decimal
	Row     string
	Matches int
}

// OK reports whether the amount can be used as the store's figure.
func (r Result) OK() bool {
	return r.Status == Found || r.Status == Zero
}

// Extractor locates a labelled currency value in summary rows.
type Extractor struct {
	labels []string
}

// New creates an extractor for the given labels; DefaultLabels when empty.
func New(labels []string) *Extractor {
	clean := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			clean = append(clean, l)
		}
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultLabels...)
	}
	return &Extractor{labels: clean}
}

// NetSales extracts with DefaultLabels.
func NetSales(rows []models.SummaryRow) Result {
	return New(nil).NetSales(rows)
}

// NetSales scans rows for the configured label and parses the first currency
// value in each matching row. The last non-zero match wins; if all matches are
// zero the result is Stale.
func (e *Extractor) NetSales(rows []models.SummaryRow) Result {
	var (
		matches  int
		lastZero string
	)
	found := Result{Status: NotFound, Amount: decimal.Zero}

	for _, row := range rows {
		if !e.matchesLabel(row.Text) {
			continue
		}
		amount, ok := firstAmount(row.Text)
		if !ok {
			continue
		}
		matches++
		if amount.IsZero() {
			lastZero = row.Text
			continue
		}
		found = Result{Status: Found, Amount: amount, Row: row.Text}
	}

	found.Matches = matches
	if found.Status == Found {
		return found
	}
	if matches > 0 {
		return Result{Status: Stale, Amount: decimal.Zero, Row: lastZero, Matches: matches}
	}
	return found
}

// Currencies returns every currency substring in text.
func Currencies(text string) []string {
	return currencyPattern.FindAllString(text, -1)
}

func (e *Extractor) matchesLabel(text string) bool {
	for _, label := range e.labels {
		if containsLabel(text, label) {
			return true
		}
	}
	return false
}

// containsLabel finds label in text where the next non-space rune is not a
// letter, so "Net Sales Tax" does not count as "Net Sales".
func containsLabel(text, label string) bool {
	offset := 0
	for {
		idx := strings.Index(text[offset:], label)
		if idx < 0 {
			return false
		}
		end := offset + idx + len(label)
		rest := strings.TrimLeftFunc(text[end:], unicode.IsSpace)
		if rest == "" {
			return true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsLetter(r) {
			return true
		}
		offset = end
	}
}

func firstAmount(text string) (decimal.Decimal, bool) {
	m := currencyPattern.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	clean := strings.NewReplacer("$", "", ",", "").Replace(m)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return models.RoundCents(d), true
}
