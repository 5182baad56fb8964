package browser

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/chromedp/chromedp"
)

// session is one live tab. DOM reads go through JavaScript evaluation so a
// missing node yields a zero value instead of blocking on a wait.
type session struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	release   func()
	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.tabCancel()
		if s.release != nil {
			s.release()
		}
	})
}

// run executes chromedp actions on the tab while honoring the caller's
// context cancellation.
func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return err
	}
	return nil
}

func (s *session) Exists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", strconv.Quote(selector))
	if err := s.run(ctx, chromedp.Evaluate(expr, &exists)); err != nil {
		return false, fmt.Errorf("evaluate exists: %w", err)
	}
	return exists, nil
}

func (s *session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	expr := fmt.Sprintf(
		"(() => { const n = document.querySelector(%s); return n ? n.innerText.trim() : \"\"; })()",
		strconv.Quote(selector),
	)
	if err := s.run(ctx, chromedp.Evaluate(expr, &text)); err != nil {
		return "", fmt.Errorf("evaluate text: %w", err)
	}
	return text, nil
}

func (s *session) Attr(ctx context.Context, selector, name string) (string, error) {
	var value string
	expr := fmt.Sprintf(
		"(() => { const n = document.querySelector(%s); return n ? (n.getAttribute(%s) || \"\") : \"\"; })()",
		strconv.Quote(selector), strconv.Quote(name),
	)
	if err := s.run(ctx, chromedp.Evaluate(expr, &value)); err != nil {
		return "", fmt.Errorf("evaluate attr: %w", err)
	}
	return value, nil
}

func (s *session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (s *session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read outer html: %w", err)
	}
	return html, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
