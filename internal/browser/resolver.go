package browser

import (
	"context"
	"time"

	"hanapilot/internal/logging"
)

// Resolver locates the live scope hosting a target UI region. Resolution
// never fails hard: when the wanted child scope cannot be found, the parent
// itself is returned in degraded mode and the caller's verification step
// carries the correctness burden.
type Resolver struct {
	// Wait bounds how long to wait for a child scope's container to appear.
	Wait time.Duration

	// Dumper, when set, receives the parent document for a diagnostic
	// snapshot whenever resolution degrades.
	Dumper *Dumper

	log *logging.Logger
}

// NewResolver returns a Resolver with the standard wait window.
func NewResolver(dumper *Dumper) *Resolver {
	return &Resolver{
		Wait:   30 * time.Second,
		Dumper: dumper,
		log:    logging.Get(logging.CategoryBrowser),
	}
}

// Resolve finds the child scope named identity under parent. Tries, in
// order: known child scopes by name/URL, then a bounded wait for an
// embedded container to appear and descend into. On exhaustion it returns
// the parent itself, flagged degraded, after snapshotting the parent's
// markup for post-hoc debugging.
func (r *Resolver) Resolve(ctx context.Context, parent Context, identity string) Resolution {
	if parent == nil {
		return Resolution{Context: parent, Degraded: true}
	}
	if !parent.Alive() {
		r.log.Warn("resolve %q: parent already detached", identity)
		return Resolution{Context: parent, Degraded: true}
	}

	for _, child := range parent.Children() {
		if child.Alive() && child.Identity() == identity {
			r.log.Debug("resolve %q: matched known child", identity)
			return Resolution{Context: child}
		}
	}

	child, err := parent.Descend(ctx, identity, r.Wait)
	if err == nil && child != nil {
		r.log.Debug("resolve %q: descended into container", identity)
		return Resolution{Context: child}
	}

	r.log.Warn("resolve %q: not found, degrading to parent (%v)", identity, err)
	if r.Dumper != nil {
		if path, derr := r.Dumper.Save(parent, "resolve-"+identity); derr == nil {
			r.log.Info("resolve %q: parent markup dumped to %s", identity, path)
		}
	}
	return Resolution{Context: parent, Degraded: true}
}
