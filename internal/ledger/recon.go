package ledger

import (
	"context"
	"fmt"
	"time"

	"hanapilot/internal/config"
	"hanapilot/internal/logging"
)

// Engine marks processed transfers complete in the ledger and verifies each
// write by reading the cell back. It never trusts a write that it has not
// re-read.
type Engine struct {
	src  DataSource
	cols config.ColumnMapping
	log  *logging.Logger

	// Settle is the pause between writing a status and reading it back,
	// giving the backend time to commit.
	Settle time.Duration

	// AmountTolerance is the permitted whole-unit difference between the
	// ledger amount and the amount actually sent. Zero: formatting and
	// fraction drift is removed at parse time, so any remaining difference
	// means a different transfer.
	AmountTolerance int64
}

// Result records the outcome of reconciling one processed transfer.
type Result struct {
	Row      TransferRow
	SheetRow int // 0-indexed ledger row updated; -1 when no match was found
	Matched  bool
	Verified bool
	Err      error
}

// NewEngine returns a reconciliation engine over src with the given column
// layout.
func NewEngine(src DataSource, cols config.ColumnMapping) *Engine {
	return &Engine{
		src:             src,
		cols:            cols,
		log:             logging.Get(logging.CategoryLedger),
		Settle:          500 * time.Millisecond,
		AmountTolerance: 0,
	}
}

// ReconcileAll marks every processed row complete, one at a time. A failure
// on one row is recorded and the batch continues; skipping a ledger update
// is worse for one row than for all of them.
func (e *Engine) ReconcileAll(ctx context.Context, rows []TransferRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		res := e.Reconcile(ctx, row)
		if res.Err != nil {
			e.log.Error("reconcile %s: %v", row.CustomerName, res.Err)
		}
		results = append(results, res)
	}
	return results
}

// Reconcile finds the ledger row for one processed transfer and writes the
// completion status with read-back verification.
func (e *Engine) Reconcile(ctx context.Context, row TransferRow) Result {
	res := Result{Row: row, SheetRow: -1}

	idx, err := e.locate(ctx, row)
	if err != nil {
		res.Err = err
		return res
	}
	res.SheetRow = idx
	res.Matched = true

	if err := e.src.WriteCell(ctx, idx, e.cols.Status, StatusComplete); err != nil {
		res.Err = fmt.Errorf("write status row %d: %w", idx+1, err)
		return res
	}

	time.Sleep(e.Settle)

	got, err := e.src.ReadCell(ctx, idx, e.cols.Status)
	if err != nil {
		res.Err = fmt.Errorf("read back status row %d: %w", idx+1, err)
		return res
	}
	if got != StatusComplete {
		e.log.Error("row %d: wrote %q but read back %q — ledger and reality disagree, fix by hand", idx+1, StatusComplete, got)
		res.Err = fmt.Errorf("row %d: status read-back %q != %q", idx+1, got, StatusComplete)
		return res
	}

	res.Verified = true
	e.log.Info("row %d (%s): marked %s, verified", idx+1, row.CustomerName, StatusComplete)
	return res
}

// locate returns the 0-indexed ledger row for a processed transfer. A row
// loaded this run carries its position and is trusted directly; otherwise
// the sheet is re-fetched and scanned with the fuzzy predicate. Among
// predicate matches the smallest amount difference wins, ties going to the
// earlier row, so near-duplicate rows differing only by amount resolve to
// exactly one.
func (e *Engine) locate(ctx context.Context, row TransferRow) (int, error) {
	if row.RowIndex > 0 {
		return row.RowIndex, nil
	}

	all, err := e.src.FetchRows(ctx)
	if err != nil {
		return -1, fmt.Errorf("fetch for match: %w", err)
	}

	best, bestDiff, count := -1, int64(-1), 0
	for i := 1; i < len(all); i++ {
		rec := recordFromRow(all[i], e.cols, i)
		if rec.Status != "" {
			continue
		}
		if !matches(row, rec, e.AmountTolerance) {
			continue
		}
		count++
		if d := amountDiff(row.Amount, rec.Amount); best == -1 || d < bestDiff {
			best, bestDiff = i, d
		}
	}

	if best == -1 {
		return -1, fmt.Errorf("no ledger row matches %s / %s / %d", row.CustomerName, row.AccountNumber, row.Amount)
	}
	if count > 1 {
		e.log.Warn("%d ledger rows match %s / %d; using row %d", count, row.CustomerName, row.Amount, best+1)
	}
	return best, nil
}
