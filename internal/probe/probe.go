// Package probe implements a plain-HTTP first pass for general pages using
// gocolly, plus the heuristic that decides when a page needs headless
// rendering instead.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/adpick/place-crawler/internal/adapter"
	"github.com/adpick/place-crawler/internal/crawl"
)

// Config controls probe behavior.
type Config struct {
	UserAgent           string
	Timeout             time.Duration
	BodyLengthThreshold int
	SnippetLimit        int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.BodyLengthThreshold <= 0 {
		c.BodyLengthThreshold = 2048
	}
	if c.SnippetLimit <= 0 {
		c.SnippetLimit = 300
	}
	return c
}

// Prober fetches pages without a browser and extracts general fields from
// static HTML.
type Prober struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Prober.
func New(cfg Config) *Prober {
	cfg = cfg.withDefaults()
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	return &Prober{cfg: cfg, baseCollector: c}
}

// Probe executes a single HTTP GET and returns the raw body.
func (p *Prober) Probe(ctx context.Context, url string) ([]byte, error) {
	collector := p.baseCollector.Clone()
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(url); err != nil && fetchErr == nil {
			fetchErr = err
		}
		collector.Wait()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("probe canceled: %w", ctx.Err())
	}

	if fetchErr != nil {
		return nil, fmt.Errorf("probe %s: %w", url, fetchErr)
	}
	if status != 0 && status != 200 {
		return nil, fmt.Errorf("probe %s: unexpected status %d", url, status)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("probe %s: empty body", url)
	}
	return body, nil
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

// ShouldPromote decides whether the probed body needs headless rendering.
// Short script-heavy bodies and SPA shells get promoted.
func (p *Prober) ShouldPromote(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	if len(body) < p.cfg.BodyLengthThreshold {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// ExtractGeneral parses the static HTML into general fields.
func (p *Prober) ExtractGeneral(body []byte) (crawl.GeneralFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawl.GeneralFields{}, fmt.Errorf("parse probed html: %w", err)
	}
	desc, _ := doc.Find("meta[name='description']").Attr("content")
	return crawl.GeneralFields{
		Title:       doc.Find("title").First().Text(),
		Description: desc,
		Snippet:     adapter.Snippet(doc.Find("body").Text(), p.cfg.SnippetLimit),
	}, nil
}
