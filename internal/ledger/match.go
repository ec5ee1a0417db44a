package ledger

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"hanapilot/internal/bank"
	"hanapilot/internal/config"
)

// record is a ledger row reduced to the fields the match predicate reads.
type record struct {
	CustomerName  string
	ProductName   string
	AccountDigits string
	Amount        int64
	Status        string
	Row           int
}

func recordFromRow(row []string, cols config.ColumnMapping, idx int) record {
	amount, _ := ParseAmount(cell(row, cols.Amount))
	return record{
		CustomerName:  cell(row, cols.CustomerName),
		ProductName:   cell(row, cols.ProductName),
		AccountDigits: bank.DigitsOnly(cell(row, cols.AccountInfo)),
		Amount:        amount,
		Status:        cell(row, cols.Status),
		Row:           idx,
	}
}

// normalizeName folds a name for comparison: full-width forms narrowed,
// hangul composed, case and whitespace dropped. Sheet cells and form
// echoes disagree on all four.
func normalizeName(s string) string {
	s = width.Narrow.String(norm.NFC.String(s))
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), "")
}

// overlaps is the bidirectional-substring test used for fuzzy fields.
func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// matches applies the reconciliation predicate: names must overlap, products
// must overlap unless either side is blank, account digit strings must
// overlap, and whole-unit amounts must agree within tolerance. Formatting
// and fraction drift ("150,000.00" vs 150000) is already gone after
// ParseAmount, so whole-unit drift is a different transfer, not noise.
func matches(row TransferRow, rec record, tolerance int64) bool {
	if !overlaps(normalizeName(row.CustomerName), normalizeName(rec.CustomerName)) {
		return false
	}
	if rec.ProductName != "" && row.ProductName != "" &&
		!overlaps(normalizeName(row.ProductName), normalizeName(rec.ProductName)) {
		return false
	}
	if !overlaps(bank.DigitsOnly(row.AccountNumber), rec.AccountDigits) {
		return false
	}
	return amountDiff(row.Amount, rec.Amount) <= tolerance
}

func amountDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
