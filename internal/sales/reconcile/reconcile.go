// Package reconcile computes a store's Net Sales total from a downloaded CSV export.
package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/bobmcallan/storetally/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNoUsableColumn is returned when no header identifies a sales figure.
var ErrNoUsableColumn = errors.New("no usable sales column")

// Mode is the export layout the total was computed from.
type Mode string

const (
	ModeNone            Mode = "none"
	ModeSummary         Mode = "summary"
	ModeSummaryFallback Mode = "summary_fallback"
	ModeLineItem        Mode = "line_item"
)

// TicketAmountMode decides how multi-row tickets are totalled.
type TicketAmountMode string

const (
	// TicketAuto takes one value per ticket when every multi-row ticket repeats a
	// single amount (the export carries ticket totals), and sums lines otherwise.
	TicketAuto TicketAmountMode = "auto"
	// TicketSum adds every line of a ticket.
	TicketSum TicketAmountMode = "sum"
	// TicketOnce counts the ticket amount once.
	TicketOnce TicketAmountMode = "once"
)

// Result is the reconciled total and the bookkeeping behind it.
type Result struct {
	Total       decimal.Decimal
	Mode        Mode
	Column      string
	TicketMode  TicketAmountMode
	RowsUsed    int
	RowsSkipped int
	Tickets     int
}

// Options configures a Reconciler.
type Options struct {
	Columns    Columns
	TicketMode TicketAmountMode
}

// Reconciler turns CSV text into a net sales total.
type Reconciler struct {
	cols       Columns
	ticketMode TicketAmountMode
}

// New creates a reconciler; zero-valued options use the defaults.
func New(opts Options) *Reconciler {
	mode := opts.TicketMode
	switch mode {
	case TicketSum, TicketOnce, TicketAuto:
	default:
		mode = TicketAuto
	}
	return &Reconciler{cols: opts.Columns.withDefaults(), ticketMode: mode}
}

// NetSalesFromCSV reconciles with default options.
func NetSalesFromCSV(text string) (Result, error) {
	return New(Options{}).NetSales(text)
}

// NetSales parses csvText and returns the net sales total. Bad rows are skipped.
// An empty file or a header without any sales column yields a zero total and
// ErrNoUsableColumn.
func (rc *Reconciler) NetSales(csvText string) (Result, error) {
	res := Result{Total: decimal.Zero, Mode: ModeNone}

	headers, records, err := readTable(csvText)
	if err != nil {
		return res, err
	}
	if headers == nil {
		return res, fmt.Errorf("empty csv: %w", ErrNoUsableColumn)
	}

	netIdx := findColumn(headers, rc.cols.Net)
	if netIdx < 0 {
		if g := findColumn(headers, []string{rc.cols.Gross}); g >= 0 && g+rc.cols.NetOffset < len(headers) {
			netIdx = g + rc.cols.NetOffset
		}
	}
	ticketIdx := findExactColumn(headers, rc.cols.Ticket)

	switch {
	case ticketIdx >= 0 && netIdx >= 0 && ticketIdx != netIdx:
		res.Mode = ModeLineItem
		res.Column = strings.TrimSpace(headers[netIdx])
		rc.lineItems(&res, headers, records, ticketIdx, netIdx)
	case netIdx >= 0:
		res.Mode = ModeSummary
		res.Column = strings.TrimSpace(headers[netIdx])
		sumColumn(&res, headers, records, netIdx)
	default:
		idx := findColumn(headers, rc.cols.Fallback)
		if idx < 0 {
			return res, fmt.Errorf("headers %v: %w", headers, ErrNoUsableColumn)
		}
		res.Mode = ModeSummaryFallback
		res.Column = strings.TrimSpace(headers[idx])
		sumColumn(&res, headers, records, idx)
	}

	res.Total = models.RoundCents(res.Total)
	return res, nil
}

func sumColumn(res *Result, headers []string, records [][]string, idx int) {
	for _, rec := range records {
		amount, ok := cellAmount(rec, idx, headers)
		if !ok {
			res.RowsSkipped++
			continue
		}
		res.Total = res.Total.Add(amount)
		res.RowsUsed++
	}
}

type ticketLines struct {
	amounts []decimal.Decimal
}

func (t *ticketLines) sum() decimal.Decimal {
	total := decimal.Zero
	for _, a := range t.amounts {
		total = total.Add(a)
	}
	return total
}

func (t *ticketLines) repeatsOneAmount() bool {
	for _, a := range t.amounts[1:] {
		if !a.Equal(t.amounts[0]) {
			return false
		}
	}
	return true
}

func (rc *Reconciler) lineItems(res *Result, headers []string, records [][]string, ticketIdx, netIdx int) {
	tickets := make(map[string]*ticketLines)

	for _, rec := range records {
		ticket, ok := cellTicket(rec, ticketIdx, headers)
		if !ok {
			res.RowsSkipped++
			continue
		}
		amount, ok := cellAmount(rec, netIdx, headers)
		if !ok {
			res.RowsSkipped++
			continue
		}
		t := tickets[ticket]
		if t == nil {
			t = &ticketLines{}
			tickets[ticket] = t
		}
		t.amounts = append(t.amounts, amount)
		res.RowsUsed++
	}

	mode := rc.ticketMode
	if mode == TicketAuto {
		mode = detectTicketMode(tickets)
	}
	res.TicketMode = mode
	res.Tickets = len(tickets)

	for _, t := range tickets {
		if mode == TicketOnce {
			res.Total = res.Total.Add(t.amounts[0])
			continue
		}
		res.Total = res.Total.Add(t.sum())
	}
}

func detectTicketMode(tickets map[string]*ticketLines) TicketAmountMode {
	multi := 0
	for _, t := range tickets {
		if len(t.amounts) < 2 {
			continue
		}
		multi++
		if !t.repeatsOneAmount() {
			return TicketSum
		}
	}
	if multi == 0 {
		return TicketSum
	}
	return TicketOnce
}

// readTable returns the header row and the data records. Lines before the first
// non-empty line are ignored.
func readTable(text string) ([]string, [][]string, error) {
	text = strings.TrimLeft(text, "\r\n\t \ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var headers []string
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, nil, fmt.Errorf("reading csv: %w", err)
		}
		if headers == nil {
			headers = rec
			continue
		}
		if blankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	return headers, records, nil
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

var amountCleaner = strings.NewReplacer(`"`, "", "$", "", ",", "", " ", "", "\u00a0", "")

// NormalizeAmount strips quotes, currency symbols and grouping, and parses the
// remainder. "(12.00)" is read as -12.00.
func NormalizeAmount(cell string) (decimal.Decimal, bool) {
	s := amountCleaner.Replace(strings.TrimSpace(cell))
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "-" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return models.RoundCents(d), true
}

func cellAmount(rec []string, idx int, headers []string) (decimal.Decimal, bool) {
	if idx >= len(rec) {
		return decimal.Zero, false
	}
	cell := rec[idx]
	if isHeaderLabel(cell, headers[idx]) {
		return decimal.Zero, false
	}
	return NormalizeAmount(cell)
}

var negativeNumber = regexp.MustCompile(`^-\d+(\.\d+)?$`)

func cellTicket(rec []string, idx int, headers []string) (string, bool) {
	if idx >= len(rec) {
		return "", false
	}
	ticket := strings.TrimSpace(strings.Trim(strings.TrimSpace(rec[idx]), `"`))
	if ticket == "" || isHeaderLabel(ticket, headers[idx]) {
		return "", false
	}
	if negativeNumber.MatchString(ticket) {
		return "", false
	}
	for _, r := range ticket {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", false
		}
	}
	return ticket, true
}

// isHeaderLabel catches header rows repeated inside the data (paged exports).
func isHeaderLabel(cell, header string) bool {
	return normalizeHeader(cell) == normalizeHeader(header)
}
