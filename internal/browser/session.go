package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"hanapilot/internal/config"
	"hanapilot/internal/logging"
)

// Session owns one browser process and its top-level page for the duration
// of a run. One run, one session; there is no pooling.
type Session struct {
	cfg config.BrowserConfig

	// UserDataDir is the profile directory handed to the browser.
	UserDataDir string

	// ID identifies this run in logs and dump file names.
	ID string

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page

	log *logging.Logger
}

// NewSession returns an unstarted Session.
func NewSession(cfg config.BrowserConfig, userDataDir string) *Session {
	return &Session{
		cfg:         cfg,
		UserDataDir: userDataDir,
		ID:          uuid.NewString(),
		log:         logging.Get(logging.CategoryBrowser),
	}
}

// Start launches the browser and connects to it.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return nil
	}

	launch := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.BinPath != "" {
		launch = launch.Bin(s.cfg.BinPath)
	}
	if s.UserDataDir != "" {
		launch = launch.UserDataDir(s.UserDataDir)
	}
	for _, rawFlag := range s.cfg.LaunchFlags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = browser
	s.log.Info("session %s: browser connected (profile %s)", s.ID, s.UserDataDir)
	return nil
}

// Open navigates the session's page to url and returns its top-level
// Context.
func (s *Session) Open(ctx context.Context, url string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil, errors.New("session not started")
	}

	if s.page == nil {
		page, err := s.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, fmt.Errorf("create page: %w", err)
		}
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.ViewportWidth,
			Height:            s.cfg.ViewportHeight,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			s.log.Warn("failed to set viewport: %v", err)
		}
		s.page = page
	}

	if err := s.page.Context(ctx).Timeout(60 * time.Second).Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	_ = s.page.Timeout(60 * time.Second).WaitLoad()
	s.log.Info("session %s: opened %s", s.ID, url)
	return NewContext(s.page, "main"), nil
}

// Shutdown closes the page and the browser.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	return err
}
