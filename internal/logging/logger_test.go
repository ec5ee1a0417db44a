package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func reset() {
	Close()
	logsDir = ""
	settings = Settings{}
	logLevel = LevelInfo
}

func TestInitializeDisabledIsNoOp(t *testing.T) {
	defer reset()
	if err := Initialize("", Settings{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	l := Get(CategoryBrowser)
	l.Info("should go nowhere")
	if l.logger != nil {
		t.Fatal("expected no-op logger when debug mode is off")
	}
}

func TestCategoryFiltering(t *testing.T) {
	defer reset()
	dir := t.TempDir()
	err := Initialize(dir, Settings{
		DebugMode:  true,
		Categories: map[string]bool{"transfer": false},
		Level:      "debug",
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	tests := []struct {
		name     string
		category Category
		enabled  bool
	}{
		{"disabled category", CategoryTransfer, false},
		{"unlisted category defaults on", CategoryLedger, true},
		{"boot always listed on", CategoryBoot, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCategoryEnabled(tc.category); got != tc.enabled {
				t.Errorf("IsCategoryEnabled(%s) = %v, want %v", tc.category, got, tc.enabled)
			}
		})
	}
}

func TestLogFileWritten(t *testing.T) {
	defer reset()
	dir := t.TempDir()
	if err := Initialize(dir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Get(CategoryWatchdog).Warn("popup lingered: %s", "w2ui-popup_0")
	Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var found bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "watchdog") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !strings.Contains(string(data), "popup lingered: w2ui-popup_0") {
				t.Errorf("log file missing expected line, got: %s", data)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("no watchdog log file created")
	}
}

func TestLevelGate(t *testing.T) {
	defer reset()
	dir := t.TempDir()
	if err := Initialize(dir, Settings{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	l := Get(CategoryAuth)
	l.Debug("below threshold")
	l.Info("also below")
	l.Error("kept")
	Close()

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !strings.Contains(e.Name(), "auth") {
			continue
		}
		data, _ := os.ReadFile(filepath.Join(dir, e.Name()))
		if strings.Contains(string(data), "below") {
			t.Errorf("level gate leaked low-severity lines: %s", data)
		}
		if !strings.Contains(string(data), "kept") {
			t.Errorf("error line missing: %s", data)
		}
	}
}
