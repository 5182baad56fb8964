package crawl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDOM struct {
	texts    map[string]string
	attrs    map[string]string
	title    string
	location string
}

func (d *fakeDOM) Exists(_ context.Context, selector string) (bool, error) {
	_, ok := d.texts[selector]
	return ok, nil
}

func (d *fakeDOM) Text(_ context.Context, selector string) (string, error) {
	return d.texts[selector], nil
}

func (d *fakeDOM) Attr(_ context.Context, selector, name string) (string, error) {
	return d.attrs[selector+"|"+name], nil
}

func (d *fakeDOM) Title(context.Context) (string, error) {
	return d.title, nil
}

func (d *fakeDOM) Location(context.Context) (string, error) {
	return d.location, nil
}

func (d *fakeDOM) HTML(context.Context) (string, error) {
	return "<html></html>", nil
}

type fakeManager struct {
	mu          sync.Mutex
	dom         *fakeDOM
	openErrs    []error
	navErrs     []error
	opens       int
	navigates   int
	closes      int
	bypassFlags []bool
	captureData []byte
	captureErr  error
}

func (m *fakeManager) Open(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if len(m.openErrs) > 0 {
		err := m.openErrs[0]
		m.openErrs = m.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	dom := m.dom
	if dom == nil {
		dom = &fakeDOM{}
	}
	return dom, nil
}

func (m *fakeManager) Navigate(_ context.Context, _ Session, url, _ string, bypassCache bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigates++
	m.bypassFlags = append(m.bypassFlags, bypassCache)
	if len(m.navErrs) > 0 {
		err := m.navErrs[0]
		m.navErrs = m.navErrs[1:]
		if err != nil {
			return &NavigationTimeoutError{URL: url, Timeout: time.Second, Err: err}
		}
	}
	return nil
}

func (m *fakeManager) Capture(context.Context, Session) ([]byte, error) {
	return m.captureData, m.captureErr
}

func (m *fakeManager) Close(Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
}

type fakeAdapter struct {
	platform Platform
	ready    string
	fields   Fields
	err      error
}

func (a *fakeAdapter) Platform() Platform    { return a.platform }
func (a *fakeAdapter) ReadySelector() string { return a.ready }
func (a *fakeAdapter) Extract(context.Context, DOM) (Fields, error) {
	if a.err != nil {
		return Fields{}, a.err
	}
	return a.fields, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fakeIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *fakeIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n), nil
}

func newTestOrchestrator(t *testing.T, manager SessionManager, adapters []Adapter) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(
		manager,
		adapters,
		nil,
		&fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		&fakeIDGen{},
		OrchestratorConfig{RetryBackoff: time.Millisecond},
		zap.NewNop(),
	)
	require.NoError(t, err)
	return o
}

func generalOnly(fields Fields) []Adapter {
	return []Adapter{&fakeAdapter{platform: PlatformGeneral, fields: fields}}
}

func TestOrchestrator_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{dom: &fakeDOM{location: "https://example.com/final"}}
	o := newTestOrchestrator(t, manager, generalOnly(Fields{General: &GeneralFields{Title: "hello"}}))

	result, err := o.Run(context.Background(), "https://example.com", PlatformGeneral, Options{MaxRetries: 2})
	require.NoError(t, err)
	require.Equal(t, PlatformGeneral, result.Platform)
	require.Equal(t, "hello", result.Fields.General.Title)
	require.Equal(t, 1, result.Metadata.Attempts)
	require.Equal(t, "https://example.com", result.Metadata.SourceURL)
	require.Equal(t, "https://example.com/final", result.Metadata.FinalURL)
	require.True(t, result.Metadata.UsedHeadless)
	require.Equal(t, 1, manager.opens)
	require.Equal(t, 1, manager.closes)
}

func TestOrchestrator_RetryBound(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		navErrs: []error{
			errors.New("slow page"),
			errors.New("slow page"),
			errors.New("slow page"),
			errors.New("slow page"),
		},
	}
	o := newTestOrchestrator(t, manager, generalOnly(Fields{General: &GeneralFields{}}))

	_, err := o.Run(context.Background(), "https://example.com", PlatformGeneral, Options{MaxRetries: 2})
	require.Error(t, err)
	var navErr *NavigationTimeoutError
	require.True(t, errors.As(err, &navErr))

	// initial attempt + 2 retries, one close per attempt
	require.Equal(t, 3, manager.opens)
	require.Equal(t, 3, manager.navigates)
	require.Equal(t, 3, manager.closes)
}

func TestOrchestrator_RetriesForceBypassCache(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{navErrs: []error{errors.New("first try fails")}}
	o := newTestOrchestrator(t, manager, generalOnly(Fields{General: &GeneralFields{}}))

	_, err := o.Run(context.Background(), "https://example.com", PlatformGeneral, Options{MaxRetries: 2})
	require.NoError(t, err)
	require.Equal(t, []bool{false, true}, manager.bypassFlags)
}

func TestOrchestrator_LaunchErrorRetried(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		openErrs: []error{&LaunchError{URL: "https://example.com", Err: errors.New("no browser")}},
	}
	o := newTestOrchestrator(t, manager, generalOnly(Fields{General: &GeneralFields{Title: "ok"}}))

	result, err := o.Run(context.Background(), "https://example.com", PlatformGeneral, Options{MaxRetries: 2})
	require.NoError(t, err)
	require.Equal(t, 2, result.Metadata.Attempts)
	require.Equal(t, 2, manager.opens)
	// The failed open never produced a session, but close is still balanced:
	// one close per successful open.
	require.Equal(t, 1, manager.closes)
}

func TestOrchestrator_ExtractionErrorNotRetried(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{}
	adapters := []Adapter{
		&fakeAdapter{platform: PlatformGeneral, fields: Fields{General: &GeneralFields{}}},
		&fakeAdapter{platform: PlatformNaverPlace, err: errors.New("panel never appeared")},
	}
	o := newTestOrchestrator(t, manager, adapters)

	_, err := o.Run(context.Background(), "https://naver.me/x", PlatformNaverPlace, Options{MaxRetries: 2})
	require.Error(t, err)
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	require.Equal(t, PlatformNaverPlace, extErr.Platform)
	require.Equal(t, 1, manager.opens)
	require.Equal(t, 1, manager.closes)
}

func TestOrchestrator_UnknownPlatformFallsBackToGeneral(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{}
	o := newTestOrchestrator(t, manager, generalOnly(Fields{General: &GeneralFields{Title: "fallback"}}))

	result, err := o.Run(context.Background(), "https://example.com", Platform("unknown"), Options{})
	require.NoError(t, err)
	require.Equal(t, PlatformGeneral, result.Platform)
}

// chaosManager injects random failures at every stage while keeping strict
// open/close accounting.
type chaosManager struct {
	mu     sync.Mutex
	rng    *rand.Rand
	opens  int
	closes int
}

func (m *chaosManager) Open(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng.Intn(5) == 0 {
		return nil, &LaunchError{Err: errors.New("injected launch failure")}
	}
	m.opens++
	return &fakeDOM{}, nil
}

func (m *chaosManager) Navigate(_ context.Context, _ Session, url, _ string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng.Intn(4) == 0 {
		return &NavigationTimeoutError{URL: url, Timeout: time.Second, Err: errors.New("injected timeout")}
	}
	return nil
}

func (m *chaosManager) Capture(context.Context, Session) ([]byte, error) {
	return nil, errors.New("injected capture failure")
}

func (m *chaosManager) Close(Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
}

func TestOrchestrator_ResourceSafetyUnderInjectedFailures(t *testing.T) {
	t.Parallel()

	manager := &chaosManager{rng: rand.New(rand.NewSource(42))}
	adapters := []Adapter{
		&fakeAdapter{platform: PlatformGeneral, fields: Fields{General: &GeneralFields{}}},
		&fakeAdapter{platform: PlatformNaverPlace, err: errors.New("injected extraction failure")},
	}
	o := newTestOrchestrator(t, manager, adapters)

	platforms := []Platform{PlatformGeneral, PlatformNaverPlace}
	for i := 0; i < 1000; i++ {
		platform := platforms[i%len(platforms)]
		_, _ = o.Run(context.Background(), "https://example.com", platform, Options{MaxRetries: 2, DebugCapture: i%3 == 0})
	}

	require.Equal(t, manager.opens, manager.closes,
		"every successful open must be balanced by exactly one close")
}
