package browser

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/models"
)

// Session states. Transitions: uninitialized → launching → ready → closed.
// A failed launch returns to uninitialized so a later request can retry.
const (
	stateUninitialized int32 = iota
	stateLaunching
	stateReady
	stateClosed
)

func stateName(s int32) string {
	switch s {
	case stateLaunching:
		return "launching"
	case stateReady:
		return "ready"
	case stateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// launchPollInterval is how often waiters re-check an in-flight launch.
// Launches are rare relative to request volume, so a short busy-wait is
// cheaper than a blocking lock held across the whole launch.
const launchPollInterval = 50 * time.Millisecond

// launchFunc starts a browser process and returns a connected handle.
// Injectable so tests can count launches without starting Chrome.
type launchFunc func() (*rod.Browser, error)

// Manager owns the process-wide shared browser session. The browser is
// launched lazily on the first Acquire and intentionally never torn down
// between requests, since relaunch cost dominates total latency. Only an
// explicit Close ends it.
//
// Manager is safe for concurrent use; concurrent Acquire calls during an
// in-flight launch wait for it instead of racing to start a second process.
type Manager struct {
	state   atomic.Int32
	browser atomic.Pointer[rod.Browser]

	cfg     config.BrowserConfig
	profile config.RuntimeProfile
	launch  launchFunc

	activePages atomic.Int32
	launches    atomic.Int32
}

// NewManager creates a Manager. No browser process is started until the
// first Acquire.
func NewManager(cfg config.BrowserConfig, profile config.RuntimeProfile) *Manager {
	m := &Manager{cfg: cfg, profile: profile}
	m.launch = m.launchBrowser
	return m
}

// newManagerWithLaunch is the test seam for injecting a stub launcher.
func newManagerWithLaunch(cfg config.BrowserConfig, profile config.RuntimeProfile, launch launchFunc) *Manager {
	m := &Manager{cfg: cfg, profile: profile}
	m.launch = launch
	return m
}

// Acquire returns the shared browser handle, launching it if needed.
//
// If a live handle exists it is returned immediately. If another caller is
// mid-launch, Acquire polls until the launch settles. Otherwise this caller
// claims the launch slot, starts the browser, and publishes the handle. The
// launching flag is always cleared, even when the launch fails.
func (m *Manager) Acquire(ctx context.Context) (*rod.Browser, error) {
	for {
		switch m.state.Load() {
		case stateReady:
			return m.browser.Load(), nil

		case stateClosed:
			return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch,
				"browser session is closed", nil)

		case stateLaunching:
			select {
			case <-ctx.Done():
				return nil, models.NewScrapeError(models.ErrCodeTimeout,
					"gave up waiting for browser launch", ctx.Err())
			case <-time.After(launchPollInterval):
			}

		case stateUninitialized:
			if !m.state.CompareAndSwap(stateUninitialized, stateLaunching) {
				continue // someone else claimed the launch; wait for them
			}

			b, err := m.doLaunch()
			if err != nil {
				// Clear the in-progress flag so a later request can retry,
				// unless Close won the race in the meantime.
				m.state.CompareAndSwap(stateLaunching, stateUninitialized)
				return nil, err
			}
			m.browser.Store(b)
			if !m.state.CompareAndSwap(stateLaunching, stateReady) {
				// Closed while we were launching; don't resurrect.
				_ = b.Close()
				return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch,
					"browser session closed during launch", nil)
			}
			return b, nil
		}
	}
}

// doLaunch runs the injected launch function and records the attempt.
func (m *Manager) doLaunch() (*rod.Browser, error) {
	start := time.Now()
	b, err := m.launch()
	if err != nil {
		slog.Error("browser launch failed", "error", err)
		return nil, err
	}
	m.launches.Add(1)
	slog.Info("browser launched",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"serverless", m.profile.Serverless,
	)
	return b, nil
}

// launchBrowser tries each configured executable candidate in order and
// connects to the first one that starts.
func (m *Manager) launchBrowser() (*rod.Browser, error) {
	var lastErr error
	for _, bin := range m.profile.BrowserBinCandidates {
		if bin != "" {
			if _, err := os.Stat(bin); err != nil {
				continue
			}
		}

		controlURL, err := m.buildLauncher(bin).Launch()
		if err != nil {
			slog.Warn("browser candidate failed to start", "bin", bin, "error", err)
			lastErr = err
			continue
		}

		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			slog.Warn("browser candidate refused connection", "bin", bin, "error", err)
			lastErr = err
			continue
		}
		return b, nil
	}

	return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch,
		"no usable browser executable found", lastErr)
}

// buildLauncher configures a rod launcher for one executable candidate.
func (m *Manager) buildLauncher(bin string) *launcher.Launcher {
	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox)

	if bin != "" {
		l = l.Bin(bin)
	}

	// ── Anti-automation-detection flags ─────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	return l
}

// NewPage creates a single-use tab from the shared session, pre-configured
// with the spoofed user-agent, a constrained viewport, stealth JS, and a
// request interceptor that drops images, fonts, stylesheets, and analytics.
//
// The returned cleanup func must run on every exit path; it stops the
// interceptor and closes the tab even when the request context has expired.
func (m *Manager) NewPage(ctx context.Context) (*rod.Page, func(), error) {
	b, err := m.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserLaunch,
			"failed to create page", err)
	}
	m.activePages.Add(1)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      m.cfg.UserAgent,
		AcceptLanguage: "ko-KR,ko;q=0.9,en-US;q=0.8",
	}); err != nil {
		slog.Warn("failed to override user-agent", "error", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("failed to set viewport", "error", err)
	}

	// Stealth must be installed before navigation to take effect.
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without it", "error", err)
	}

	router := setupHijack(page)

	// Cleanup uses the original page reference (no request context) so it
	// still succeeds after a deadline has expired. Tab leakage is the main
	// long-running failure mode; this is the single close point.
	cleanup := func() {
		if router != nil {
			_ = router.Stop()
		}
		if err := page.Close(); err != nil {
			slog.Warn("failed to close page", "error", err)
		}
		m.activePages.Add(-1)
	}

	return page, cleanup, nil
}

// Stats returns a snapshot of the session state for the health endpoint.
func (m *Manager) Stats() models.BrowserStats {
	return models.BrowserStats{
		State:       stateName(m.state.Load()),
		ActivePages: int(m.activePages.Load()),
		Launches:    int(m.launches.Load()),
	}
}

// Close shuts the session down permanently. Call on graceful shutdown to
// avoid zombie Chrome processes.
func (m *Manager) Close() {
	prev := m.state.Swap(stateClosed)
	if prev != stateReady {
		return
	}
	if b := m.browser.Load(); b != nil {
		slog.Info("closing browser session")
		if err := b.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
	}
}
