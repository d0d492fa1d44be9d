package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ledger-assistant/internal/common/errors"
)

// csvColumns maps header names (lowercased) to their required presence.
// Aliases cover the two header dialects seen in exported ledger files.
var csvAliases = map[string]string{
	"property_name":   "property",
	"property":        "property",
	"tenant_name":     "tenant",
	"tenant":          "tenant",
	"ledger_type":     "ledger_type",
	"ledger_category": "ledger_category",
	"ledger_group":    "ledger_group",
	"year":            "year",
	"quarter":         "quarter",
	"month":           "month",
	"amount":          "amount",
	"profit":          "amount",
}

// LoadCSV reads a ledger export. Headers are matched case-insensitively and
// unknown columns are ignored.
func LoadCSV(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLedgerLoadFailedError(err)
	}
	defer f.Close()

	store, err := readCSV(f)
	if err != nil {
		return nil, errors.NewLedgerLoadFailedError(fmt.Errorf("%s: %w", path, err))
	}
	return store, nil
}

func readCSV(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		if name, ok := csvAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[name] = i
		}
	}
	for _, required := range []string{"property", "ledger_type", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []Row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		amount, err := strconv.ParseFloat(field(record, "amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad amount value: %w", line, err)
		}
		out = append(out, canonicalRow(Row{
			Property:       field(record, "property"),
			Tenant:         field(record, "tenant"),
			LedgerType:     field(record, "ledger_type"),
			LedgerCategory: field(record, "ledger_category"),
			LedgerGroup:    field(record, "ledger_group"),
			Year:           field(record, "year"),
			Quarter:        field(record, "quarter"),
			Month:          field(record, "month"),
			Amount:         amount,
		}))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return NewStore(out), nil
}
