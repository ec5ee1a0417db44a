package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hanapilot/internal/logging"
)

// Dumper serializes document markup to timestamped debug files for offline
// inspection. Used by the resolver on degraded resolution and by the
// operator's debug command.
type Dumper struct {
	Dir string
	log *logging.Logger
}

// NewDumper returns a Dumper writing under dir.
func NewDumper(dir string) *Dumper {
	return &Dumper{Dir: dir, log: logging.Get(logging.CategoryBrowser)}
}

// Save writes c's markup to a debug-*.html file and returns its path. When
// c is detached it falls back to the nearest live ancestor, so a dump is
// produced even mid-navigation.
func (d *Dumper) Save(c Context, label string) (string, error) {
	target := c
	for target != nil && !target.Alive() {
		target = target.Parent()
	}
	if target == nil {
		return "", ErrContextDetached
	}

	html, err := target.HTML()
	if err != nil {
		// One level up may still be serializable when the frame died
		// between the liveness check and the read.
		if parent := target.Parent(); parent != nil && parent.Alive() {
			if html, err = parent.HTML(); err != nil {
				return "", err
			}
		} else {
			return "", err
		}
	}

	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}
	name := fmt.Sprintf("debug-%s-%s-%s.html",
		label, time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to write dump: %w", err)
	}
	d.log.Info("document snapshot saved: %s", path)
	return path, nil
}
