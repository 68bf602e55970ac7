package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCSV_SummaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	csv := "Gross Sales,Discounts,Returns,Net Sales\n100.00,10.00,0.00,90.00\n1000.00,0.00,0.00,1000.00\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCmd(t, "", "parse-csv", path)
	if err != nil {
		t.Fatalf("parse-csv: %v\n%s", err, out)
	}
	for _, want := range []string{"mode:         summary", "rows used:    2", "net sales:    $1,090.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseCSV_StdinLineItems(t *testing.T) {
	csv := "Ticket ID,Item,Net Sales\nT1,a,12.00\nT1,b,8.00\nT2,c,5.00\n"
	out, err := runCmd(t, csv, "parse-csv", "-", "--ticket-mode", "sum")
	if err != nil {
		t.Fatalf("parse-csv: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ticket mode:  sum (2 tickets)") || !strings.Contains(out, "net sales:    $25.00") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseCSV_NoUsableColumn(t *testing.T) {
	_, err := runCmd(t, "Item,Qty\nA,1\n", "parse-csv", "-")
	if err == nil || !strings.Contains(err.Error(), "no usable sales column") {
		t.Fatalf("err = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "storetally version ") {
		t.Errorf("output = %q", out)
	}
}

func TestCollect_RejectsUnknownType(t *testing.T) {
	_, err := runCmd(t, "", "collect", "--type", "hourly")
	if err == nil || !strings.Contains(err.Error(), "unknown collection type") {
		t.Fatalf("err = %v", err)
	}
}
