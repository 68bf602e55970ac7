package models

// SummaryRow is the text of one rendered line of a report summary,
// e.g. "Net Sales $7,404.52".
type SummaryRow struct {
	Text       string   `json:"text"`
	Currencies []string `json:"currencies,omitempty"`
}

// RowsFromText wraps raw row strings as SummaryRows.
func RowsFromText(texts []string) []SummaryRow {
	rows := make([]SummaryRow, len(texts))
	for i, t := range texts {
		rows[i] = SummaryRow{Text: t}
	}
	return rows
}
