// Package browser manages headless Chrome sessions for crawl attempts via
// chromedp. One tab context is opened per attempt and torn down on every
// exit path.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adpick/place-crawler/internal/crawl"
)

// Config controls the headless browser pool.
type Config struct {
	MaxParallel int
	UserAgent   string
	NavTimeout  time.Duration
	DomainQPS   float64
}

func (c Config) withDefaults() Config {
	if c.MaxParallel <= 0 {
		c.MaxParallel = 2
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	return c
}

// Manager implements crawl.SessionManager on top of a shared exec allocator
// and a warm browser process. Tabs are cheap; the browser is launched once.
type Manager struct {
	allocCancel    context.CancelFunc
	browserCtx     context.Context
	browserCancel  context.CancelFunc
	sem            chan struct{}
	domainLimiters sync.Map
	cfg            Config
	logger         *zap.Logger
}

// NewManager launches the shared browser process. Callers must Shutdown the
// manager when done.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Manager{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sem:           make(chan struct{}, cfg.MaxParallel),
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Shutdown tears down the browser process and allocator.
func (m *Manager) Shutdown() {
	if m == nil {
		return
	}
	m.browserCancel()
	m.allocCancel()
}

// Open acquires a concurrency slot and a fresh tab. The returned session must
// be released with Close.
func (m *Manager) Open(ctx context.Context) (crawl.Session, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &crawl.LaunchError{Err: fmt.Errorf("wait for browser slot: %w", ctx.Err())}
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	s := &session{
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		release:   func() { <-m.sem },
	}
	// Opening the tab eagerly surfaces browser-process failures as a
	// LaunchError instead of a confusing navigation error later.
	if err := s.run(ctx, chromedp.ActionFunc(func(context.Context) error { return nil })); err != nil {
		s.close()
		return nil, &crawl.LaunchError{Err: fmt.Errorf("open tab: %w", err)}
	}
	return s, nil
}

// Navigate loads the URL and waits for the adapter's ready condition. The
// per-host rate limiter bounds pressure on third-party platforms.
func (m *Manager) Navigate(ctx context.Context, sess crawl.Session, url, readySelector string, bypassCache bool) error {
	s, err := m.own(sess)
	if err != nil {
		return err
	}
	if err := m.waitDomainBudget(ctx, url); err != nil {
		return fmt.Errorf("navigation rate limit: %w", err)
	}

	timeout := m.cfg.NavTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	actions := []chromedp.Action{
		network.Enable(),
		network.SetCacheDisabled(bypassCache),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if m.cfg.UserAgent != "" {
		actions = append([]chromedp.Action{emulation.SetUserAgentOverride(m.cfg.UserAgent)}, actions...)
	}
	if readySelector != "" {
		actions = append(actions, chromedp.WaitVisible(readySelector, chromedp.ByQuery))
	}

	if err := s.run(navCtx, actions...); err != nil {
		return &crawl.NavigationTimeoutError{URL: url, Timeout: timeout, Err: err}
	}
	return nil
}

// Capture takes a full-page screenshot of the session's current page.
func (m *Manager) Capture(ctx context.Context, sess crawl.Session) ([]byte, error) {
	s, err := m.own(sess)
	if err != nil {
		return nil, err
	}
	var shot []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&shot, 85)); err != nil {
		return nil, fmt.Errorf("full screenshot: %w", err)
	}
	return shot, nil
}

// Close releases the tab and its concurrency slot. Safe to call repeatedly.
func (m *Manager) Close(sess crawl.Session) {
	if s, ok := sess.(*session); ok && s != nil {
		s.close()
	}
}

func (m *Manager) own(sess crawl.Session) (*session, error) {
	s, ok := sess.(*session)
	if !ok || s == nil {
		return nil, fmt.Errorf("session does not belong to this manager")
	}
	return s, nil
}

func (m *Manager) waitDomainBudget(ctx context.Context, rawURL string) error {
	if m.cfg.DomainQPS <= 0 {
		return nil
	}
	host := hostOf(rawURL)
	val, _ := m.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(m.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	return limiter.Wait(ctx)
}

func hostOf(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.ToLower(rest)
}
