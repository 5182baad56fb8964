package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adpick/place-crawler/internal/telemetry"
)

// state tracks where an orchestration run is in its lifecycle.
type state string

const (
	stateIdle       state = "idle"
	stateNavigating state = "navigating"
	stateExtracting state = "extracting"
	stateSucceeded  state = "succeeded"
	stateFailed     state = "failed"
)

// OrchestratorConfig controls the retry/backoff loop.
type OrchestratorConfig struct {
	DefaultTimeout    time.Duration
	DefaultMaxRetries int
	RetryBackoff      time.Duration
	ScreenshotPrefix  string
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 60 * time.Second
	}
	if c.DefaultMaxRetries < 0 {
		c.DefaultMaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 3 * time.Second
	}
	if c.ScreenshotPrefix == "" {
		c.ScreenshotPrefix = "screenshots"
	}
	return c
}

// Orchestrator drives the navigate+extract cycle for one request, retrying
// transient failures under a single overall deadline. Attempt errors never
// escape; callers see exactly one terminal outcome.
type Orchestrator struct {
	sessions SessionManager
	adapters map[Platform]Adapter
	blobs    BlobStore
	clock    Clock
	ids      IDGenerator
	cfg      OrchestratorConfig
	logger   *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. The blob store is optional;
// without one, debug captures are skipped.
func NewOrchestrator(
	sessions SessionManager,
	adapters []Adapter,
	blobs BlobStore,
	clock Clock,
	ids IDGenerator,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := make(map[Platform]Adapter, len(adapters))
	for _, a := range adapters {
		registry[a.Platform()] = a
	}
	if _, ok := registry[PlatformGeneral]; !ok {
		return nil, fmt.Errorf("general adapter is required as the universal fallback")
	}
	return &Orchestrator{
		sessions: sessions,
		adapters: registry,
		blobs:    blobs,
		clock:    clock,
		ids:      ids,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}, nil
}

// Run executes the crawl for an already-normalized URL against the adapter
// registered for platform. It returns exactly one Result or one terminal
// error from the taxonomy in errors.go.
func (o *Orchestrator) Run(ctx context.Context, url string, platform Platform, opts Options) (Result, error) {
	adapter, ok := o.adapters[platform]
	if !ok {
		adapter = o.adapters[PlatformGeneral]
		platform = PlatformGeneral
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = o.cfg.DefaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = o.cfg.DefaultMaxRetries
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	telemetry.CrawlStarted(string(platform))
	defer telemetry.CrawlFinished(string(platform))

	bypass := opts.BypassCache
	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if attempt > 1 {
			// Retries always bypass the browser cache so a cached failure
			// path is not replayed.
			bypass = true
			if err := sleepCtx(ctx, o.cfg.RetryBackoff); err != nil {
				break
			}
		}
		result, err := o.attempt(ctx, url, adapter, opts, bypass, attempt)
		if err == nil {
			result.Metadata.Attempts = attempt
			telemetry.ObserveCrawl(string(platform), "success")
			return result, nil
		}
		lastErr = err
		o.logger.Warn("crawl attempt failed",
			zap.String("url", url),
			zap.String("platform", string(platform)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if !retryable(err) {
			break
		}
	}
	telemetry.ObserveCrawl(string(platform), "failure")
	return Result{}, lastErr
}

// attempt runs one navigate+extract cycle. The session is released on every
// exit path; Close is idempotent so the deferred call is always safe.
func (o *Orchestrator) attempt(
	ctx context.Context,
	url string,
	adapter Adapter,
	opts Options,
	bypassCache bool,
	attempt int,
) (Result, error) {
	platform := adapter.Platform()
	start := o.clock.Now()
	st := stateIdle

	session, err := o.sessions.Open(ctx)
	if err != nil {
		telemetry.ObserveAttempt(string(platform), "launch_error", o.clock.Now().Sub(start))
		return Result{}, asLaunchError(url, err)
	}
	defer o.sessions.Close(session)

	st = stateNavigating
	if err := o.sessions.Navigate(ctx, session, url, adapter.ReadySelector(), bypassCache); err != nil {
		telemetry.ObserveAttempt(string(platform), "navigation_timeout", o.clock.Now().Sub(start))
		return Result{}, asNavigationError(url, err)
	}

	st = stateExtracting
	fields, err := adapter.Extract(ctx, session)
	if err != nil {
		telemetry.ObserveAttempt(string(platform), "extraction_error", o.clock.Now().Sub(start))
		return Result{}, wrapExtractionError(url, platform, err)
	}

	meta := Metadata{
		CrawledAt:    o.clock.Now().UTC(),
		SourceURL:    url,
		UsedHeadless: true,
	}
	if final, locErr := session.Location(ctx); locErr == nil && final != "" {
		meta.FinalURL = final
	}
	if opts.DebugCapture {
		meta.ScreenshotURI = o.captureScreenshot(ctx, session, url)
	}

	st = stateSucceeded
	o.logger.Debug("crawl attempt succeeded",
		zap.String("url", url),
		zap.String("platform", string(platform)),
		zap.Int("attempt", attempt),
		zap.String("state", string(st)),
	)
	telemetry.ObserveAttempt(string(platform), "success", o.clock.Now().Sub(start))
	return Result{
		Platform: platform,
		Fields:   fields,
		Metadata: meta,
	}, nil
}

// captureScreenshot is best-effort: failures are logged, never surfaced.
func (o *Orchestrator) captureScreenshot(ctx context.Context, session Session, url string) string {
	if o.blobs == nil {
		return ""
	}
	shot, err := o.sessions.Capture(ctx, session)
	if err != nil || len(shot) == 0 {
		o.logger.Warn("debug capture failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	id, err := o.ids.NewID()
	if err != nil {
		o.logger.Warn("screenshot id generation failed", zap.Error(err))
		return ""
	}
	path := fmt.Sprintf("%s/%s.png", o.cfg.ScreenshotPrefix, id)
	uri, err := o.blobs.PutObject(ctx, path, "image/png", bytes.NewReader(shot))
	if err != nil {
		o.logger.Warn("screenshot upload failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return uri
}

// retryable reports whether an attempt error warrants another attempt.
// Launch and navigation-timeout failures are transient; extraction errors
// mean the page structure does not match and retrying cannot help.
func retryable(err error) bool {
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return true
	}
	var navErr *NavigationTimeoutError
	return errors.As(err, &navErr)
}

func asLaunchError(url string, err error) error {
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return err
	}
	return &LaunchError{URL: url, Err: err}
}

func asNavigationError(url string, err error) error {
	var navErr *NavigationTimeoutError
	if errors.As(err, &navErr) {
		return err
	}
	return &NavigationTimeoutError{URL: url, Err: err}
}

func wrapExtractionError(url string, platform Platform, err error) error {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}
	return &ExtractionError{URL: url, Platform: platform, Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
