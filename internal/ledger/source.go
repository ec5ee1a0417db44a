// Package ledger talks to the external spreadsheet acting as source of
// truth and completion record: loading the work set, and reconciling
// terminal status back with a read-verify-write-verify discipline.
package ledger

import "context"

// DataSource supplies raw ledger rows and accepts single-cell writes. The
// sheet may be concurrently edited by other agents; there is no locking,
// only idempotent-by-reread updates.
type DataSource interface {
	// FetchRows returns every row of the sheet, in order. Cells are
	// stringified; short rows stay short.
	FetchRows(ctx context.Context) ([][]string, error)

	// ReadCell returns one cell (0-indexed row and column).
	ReadCell(ctx context.Context, row, col int) (string, error)

	// WriteCell sets one cell (0-indexed row and column).
	WriteCell(ctx context.Context, row, col int, value string) error
}

// Terminal status values written into the ledger's status column.
const (
	// StatusComplete marks a transferred row.
	StatusComplete = "이체완료"

	// StatusResidentNumberError flags a malformed resident number at load
	// time; the row is excluded from the work set.
	StatusResidentNumberError = "주민번호 오류"
)
