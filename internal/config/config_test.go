package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "hanapilot", cfg.Name)
	assert.Equal(t, 10, cfg.Transfer.MaxRows)
	assert.False(t, cfg.Transfer.AutoSubmit)
}

func TestLoadYAMLOverridesAndColumnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
name: office
default_sheet_name: 입금요청내역
transfer:
  max_rows: 5
  auto_submit: true
sheets:
  - name: 입금요청내역
    url: https://docs.google.com/spreadsheets/d/abc123/edit
    sheet_name: 시트1
  - name: custom
    url: https://docs.google.com/spreadsheets/d/def456/edit
    sheet_name: 시트1
    columns:
      product_name: 2
      customer_name: 3
      account_info: 6
      resident_number: 7
      amount: 8
      status: 12
auth:
  cert_store_keywords: ["Seagate", "외장하드"]
  owner_name: 홍길동
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "office", cfg.Name)
	assert.Equal(t, 5, cfg.Transfer.MaxRows)
	assert.True(t, cfg.Transfer.AutoSubmit)

	// Sheet without explicit columns gets the standard layout.
	assert.Equal(t, DefaultColumns(), cfg.Sheets[0].Columns)
	// Explicit columns survive.
	assert.Equal(t, 12, cfg.Sheets[1].Columns.Status)

	assert.Equal(t, []string{"Seagate", "외장하드"}, cfg.Auth.CertStoreKeywords)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("HANAPILOT_CERT_PASSWORD", "from-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.CertPassword)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no sheets", func(c *Config) { c.Sheets = nil }, "no sheets"},
		{"missing url", func(c *Config) { c.Sheets[0].URL = "" }, "url required"},
		{"zero max rows", func(c *Config) { c.Transfer.MaxRows = 0 }, "max_rows"},
		{"missing login url", func(c *Config) { c.LoginURL = "" }, "login_url"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Sheets = []SheetConfig{{Name: "s", URL: "https://example", Columns: DefaultColumns()}}
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSheetByName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sheets = []SheetConfig{
		{Name: "first", URL: "u1"},
		{Name: "second", URL: "u2"},
	}
	s, ok := cfg.SheetByName("second")
	assert.True(t, ok)
	assert.Equal(t, "u2", s.URL)

	// Empty name falls back to the first sheet.
	s, ok = cfg.SheetByName("")
	assert.True(t, ok)
	assert.Equal(t, "first", s.Name)

	// Unknown name also yields the first sheet but reports the miss.
	s, ok = cfg.SheetByName("ghost")
	assert.False(t, ok)
	assert.Equal(t, "first", s.Name)
}
