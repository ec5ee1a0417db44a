package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanapilot/internal/config"
)

func fastEngine(src DataSource) *Engine {
	e := NewEngine(src, config.DefaultColumns())
	e.Settle = 0
	return e
}

func TestReconcileFastPath(t *testing.T) {
	src := newMemorySource([][]string{
		header(),
		ledgerRow("적금", "Kim", "Hana 110-123-456", "", "50000", ""),
	})
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Kim", AccountNumber: "110123456", Amount: 50000, RowIndex: 1,
	})
	require.NoError(t, res.Err)
	assert.True(t, res.Matched)
	assert.True(t, res.Verified)
	assert.Equal(t, 1, res.SheetRow)
	assert.Equal(t, StatusComplete, src.rows[1][16])
	// The fast path must not re-fetch; exactly one write lands.
	assert.Equal(t, []string{"1,16=" + StatusComplete}, src.writes)
}

func TestReconcileFuzzyMatch(t *testing.T) {
	src := newMemorySource([][]string{
		header(),
		ledgerRow("정기적금", "이영희", "국민 222-33-44", "", "70000", ""),
		ledgerRow("적금", "김철수", "Hana 110-123-456", "", "50,000.00", ""),
	})
	e := fastEngine(src)

	// No positional back-reference: form echo carries a partial name and
	// the bare account digits.
	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName:  "김철수",
		ProductName:   "적금",
		AccountNumber: "110123456",
		Amount:        50000,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.SheetRow)
	assert.Equal(t, StatusComplete, src.rows[2][16])
	assert.Equal(t, "", src.rows[1][16], "unrelated row left alone")
}

func TestReconcileAmountDiscriminates(t *testing.T) {
	// Two rows identical except for amount; 50000 must resolve to the
	// first and only the first.
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "50000", ""),
		ledgerRow("", "Kim", "하나 110-1", "", "50001", ""),
	})
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Kim", AccountNumber: "1101", Amount: 50000,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.SheetRow)
	assert.Equal(t, StatusComplete, src.rows[1][16])
	assert.Equal(t, "", src.rows[2][16], "only one row may be marked")
}

func TestReconcileRejectsWholeUnitDrift(t *testing.T) {
	// The only candidate row is off by one won: that is a different
	// transfer, and nothing may be marked.
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "150001", ""),
	})
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Kim", AccountNumber: "1101", Amount: 150000,
	})
	require.Error(t, res.Err)
	assert.Equal(t, -1, res.SheetRow)
	assert.Empty(t, src.writes)
	assert.Equal(t, "", src.rows[1][16], "off-by-one row must stay unmarked")
}

func TestReconcileAcceptsFormattingDrift(t *testing.T) {
	// Thousands separators and a decimal fraction in the cell are parsing
	// noise, not an amount difference.
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "150,000.00", ""),
	})
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Kim", AccountNumber: "1101", Amount: 150000,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.SheetRow)
	assert.True(t, res.Verified)
}

func TestReconcileNoMatch(t *testing.T) {
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "50000", ""),
	})
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Park", AccountNumber: "999", Amount: 1,
	})
	require.Error(t, res.Err)
	assert.False(t, res.Matched)
	assert.Equal(t, -1, res.SheetRow)
	assert.Empty(t, src.writes, "no match, no write")
}

func TestReconcileSkipsAlreadyMarkedRows(t *testing.T) {
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "50000", StatusComplete),
		ledgerRow("", "Kim", "하나 110-1", "", "50000", ""),
	})
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Kim", AccountNumber: "1101", Amount: 50000,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.SheetRow, "terminal rows are not re-matched")
}

func TestReconcileReadBackMismatch(t *testing.T) {
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "50000", ""),
	})
	stale := ""
	src.readOverride = &stale // backend "loses" the write
	e := fastEngine(src)

	res := e.Reconcile(context.Background(), TransferRow{
		CustomerName: "Kim", AccountNumber: "1101", Amount: 50000, RowIndex: 1,
	})
	require.Error(t, res.Err)
	assert.True(t, res.Matched)
	assert.False(t, res.Verified)
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	src := newMemorySource([][]string{
		header(),
		ledgerRow("", "Kim", "하나 110-1", "", "50000", ""),
	})
	e := fastEngine(src)

	results := e.ReconcileAll(context.Background(), []TransferRow{
		{CustomerName: "Nobody", AccountNumber: "000", Amount: 1},
		{CustomerName: "Kim", AccountNumber: "1101", Amount: 50000, RowIndex: 1},
	})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.True(t, results[1].Verified)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct{ a, b string }{
		{"Ｋｉｍ", "kim"},       // full-width latin
		{" 김 철 수 ", "김철수"},  // embedded spaces
		{"KIM MINSU", "kimminsu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.b, normalizeName(tt.a), "normalizeName(%q)", tt.a)
	}
}

func TestMatchesPredicate(t *testing.T) {
	base := TransferRow{CustomerName: "김철수", ProductName: "적금", AccountNumber: "110123456", Amount: 50000}
	tests := []struct {
		name string
		rec  record
		want bool
	}{
		{"exact", record{CustomerName: "김철수", ProductName: "적금", AccountDigits: "110123456", Amount: 50000}, true},
		{"partial name", record{CustomerName: "김철수님", ProductName: "적금", AccountDigits: "110123456", Amount: 50000}, true},
		{"blank product passes", record{CustomerName: "김철수", AccountDigits: "110123456", Amount: 50000}, true},
		{"product conflict", record{CustomerName: "김철수", ProductName: "대출", AccountDigits: "110123456", Amount: 50000}, false},
		{"account digits subset", record{CustomerName: "김철수", ProductName: "적금", AccountDigits: "123456", Amount: 50000}, true},
		{"wrong account", record{CustomerName: "김철수", ProductName: "적금", AccountDigits: "999888777", Amount: 50000}, false},
		{"amount off by one", record{CustomerName: "김철수", ProductName: "적금", AccountDigits: "110123456", Amount: 50001}, false},
		{"amount off by two", record{CustomerName: "김철수", ProductName: "적금", AccountDigits: "110123456", Amount: 50002}, false},
		{"empty name fails", record{ProductName: "적금", AccountDigits: "110123456", Amount: 50000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matches(base, tt.rec, 0))
		})
	}
}
