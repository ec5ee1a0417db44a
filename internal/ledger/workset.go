package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"hanapilot/internal/bank"
	"hanapilot/internal/config"
	"hanapilot/internal/logging"
)

// TransferRow is one ledger row admitted into the work set: parsed,
// validated, and carrying its positional back-reference for the fast
// reconciliation path.
type TransferRow struct {
	BankName      string
	AccountNumber string
	CustomerName  string
	ProductName   string
	Amount        int64

	// Label is the passbook memo written on both sides of the transfer.
	Label string

	// RowIndex is the 0-indexed sheet row this record was loaded from.
	RowIndex int
}

// blankRow reports whether a row carries none of the transfer fields.
func blankRow(row []string, cols config.ColumnMapping) bool {
	return cell(row, cols.CustomerName) == "" &&
		cell(row, cols.AccountInfo) == "" &&
		cell(row, cols.Amount) == ""
}

// cell returns row[idx], tolerating short rows.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseAmount converts a free-text amount cell to whole won. Thousands
// separators are stripped; a decimal fraction, when present, is discarded
// rather than folded into the integer.
func ParseAmount(s string) (int64, error) {
	whole, _, _ := strings.Cut(strings.TrimSpace(s), ".")
	digits := bank.DigitsOnly(whole)
	if digits == "" {
		return 0, fmt.Errorf("no digits in amount %q", s)
	}
	return strconv.ParseInt(digits, 10, 64)
}

// ValidResidentNumber reports whether a resident-number cell is acceptable:
// empty is fine (the column is optional), otherwise the digits must come to
// exactly 13 once dashes and spaces are stripped.
func ValidResidentNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(cleaned) != 13 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BuildWorkSet loads the ledger and returns the rows eligible for transfer,
// at most maxRows of them, in sheet order. Rows with any status value are
// skipped, so a re-run after a partial batch picks up exactly the remainder.
// Rows with a malformed resident number are flagged in the sheet's status
// column and excluded without blocking the rest.
func BuildWorkSet(ctx context.Context, src DataSource, cols config.ColumnMapping, maxRows int) ([]TransferRow, error) {
	log := logging.Get(logging.CategoryLedger)

	all, err := src.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger rows: %w", err)
	}

	// Validation pre-pass: every pending row gets its resident number
	// checked and flagged before the batch cap can hide it from this run.
	flagged := make(map[int]bool)
	for i := 1; i < len(all); i++ { // row 0 is the header
		row := all[i]
		if cell(row, cols.Status) != "" || blankRow(row, cols) {
			continue
		}
		if rrn := cell(row, cols.ResidentNumber); !ValidResidentNumber(rrn) {
			log.Warn("row %d: malformed resident number, flagging", i+1)
			if werr := src.WriteCell(ctx, i, cols.Status, StatusResidentNumberError); werr != nil {
				log.Error("row %d: could not flag resident-number error: %v", i+1, werr)
			}
			flagged[i] = true
		}
	}

	var work []TransferRow
	for i := 1; i < len(all); i++ {
		row := all[i]

		if flagged[i] || cell(row, cols.Status) != "" || blankRow(row, cols) {
			continue
		}

		customer := cell(row, cols.CustomerName)
		acctInfo := cell(row, cols.AccountInfo)
		amountCell := cell(row, cols.Amount)

		bankName, account := bank.ParseAccountInfo(acctInfo)
		if account == "" {
			log.Warn("row %d: unparseable account cell %q, skipping", i+1, acctInfo)
			continue
		}

		amount, err := ParseAmount(amountCell)
		if err != nil || amount <= 0 {
			log.Warn("row %d: unparseable amount %q, skipping", i+1, amountCell)
			continue
		}

		product := cell(row, cols.ProductName)
		work = append(work, TransferRow{
			BankName:      bankName,
			AccountNumber: account,
			CustomerName:  customer,
			ProductName:   product,
			Amount:        amount,
			Label:         strings.TrimSpace(customer + " " + product),
			RowIndex:      i,
		})

		if maxRows > 0 && len(work) >= maxRows {
			log.Info("work set capped at %d rows; remainder stays pending", maxRows)
			break
		}
	}

	log.Info("work set: %d transferable rows of %d total", len(work), len(all))
	return work, nil
}
