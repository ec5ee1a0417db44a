package ledger

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"hanapilot/internal/logging"
)

// CredentialsProvider yields an authenticated HTTP client for the sheet
// backend. Injected so tests and alternative credential sources never touch
// the filesystem.
type CredentialsProvider interface {
	Client(ctx context.Context) (*http.Client, error)
}

// ServiceAccountFile is a CredentialsProvider backed by a Google
// service-account JSON key on disk.
type ServiceAccountFile struct {
	Path string
}

func (s ServiceAccountFile) Client(ctx context.Context) (*http.Client, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service-account key: %w", err)
	}
	return cfg.Client(ctx), nil
}

var spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ExtractSpreadsheetID pulls the document id out of a full sheet URL.
func ExtractSpreadsheetID(url string) (string, error) {
	m := spreadsheetIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("no spreadsheet id in %q", url)
	}
	return m[1], nil
}

// GoogleSheets implements DataSource over one tab of a Google spreadsheet.
type GoogleSheets struct {
	svc           *sheets.Service
	spreadsheetID string
	tab           string
	log           *logging.Logger
}

// NewGoogleSheets opens the spreadsheet at url, scoped to the named tab
// (empty means the document's default range resolution applies).
func NewGoogleSheets(ctx context.Context, creds CredentialsProvider, url, tab string) (*GoogleSheets, error) {
	id, err := ExtractSpreadsheetID(url)
	if err != nil {
		return nil, err
	}
	client, err := creds.Client(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &GoogleSheets{
		svc:           svc,
		spreadsheetID: id,
		tab:           tab,
		log:           logging.Get(logging.CategoryLedger),
	}, nil
}

func (g *GoogleSheets) FetchRows(ctx context.Context) ([][]string, error) {
	rng := g.rangeRef("A:Z")
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).
		MajorDimension("ROWS").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("values get %s: %w", rng, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	g.log.Debug("fetched %d rows from %s", len(rows), rng)
	return rows, nil
}

func (g *GoogleSheets) ReadCell(ctx context.Context, row, col int) (string, error) {
	rng := g.rangeRef(cellRef(row, col))
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("values get %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return fmt.Sprint(resp.Values[0][0]), nil
}

func (g *GoogleSheets) WriteCell(ctx context.Context, row, col int, value string) error {
	rng := g.rangeRef(cellRef(row, col))
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("values update %s: %w", rng, err)
	}
	g.log.Debug("wrote %q to %s", value, rng)
	return nil
}

// rangeRef prefixes an A1 reference with the tab name, quoting tabs whose
// names would otherwise break A1 notation.
func (g *GoogleSheets) rangeRef(ref string) string {
	if g.tab == "" {
		return ref
	}
	tab := g.tab
	if !plainTabName(tab) {
		tab = "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	}
	return tab + "!" + ref
}

// plainTabName reports whether a tab name is safe unquoted in A1 notation.
func plainTabName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// cellRef converts 0-indexed row/column to A1 notation.
func cellRef(row, col int) string {
	return columnLetter(col) + strconv.Itoa(row+1)
}

func columnLetter(col int) string {
	s := ""
	for col >= 0 {
		s = string(rune('A'+col%26)) + s
		col = col/26 - 1
	}
	return s
}
