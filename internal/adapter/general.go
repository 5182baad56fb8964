package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/adpick/place-crawler/internal/crawl"
)

const (
	generalDescriptionMeta = "meta[name='description']"
	generalSnippetLimit    = 300
)

// General is the best-effort fallback for arbitrary pages. It waits only for
// document-ready and never reports a structural extraction failure.
type General struct{}

// NewGeneral returns the General adapter.
func NewGeneral() *General {
	return &General{}
}

// Platform identifies this adapter.
func (a *General) Platform() crawl.Platform {
	return crawl.PlatformGeneral
}

// ReadySelector is empty: document-ready is enough for generic extraction.
func (a *General) ReadySelector() string {
	return ""
}

// Extract reads the page title, meta description, and a truncated snippet of
// the visible text. Missing pieces yield empty strings.
func (a *General) Extract(ctx context.Context, dom crawl.DOM) (crawl.Fields, error) {
	title, err := dom.Title(ctx)
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("read page title: %w", err)
	}
	desc, err := dom.Attr(ctx, generalDescriptionMeta, "content")
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("read description meta: %w", err)
	}
	body, err := dom.Text(ctx, "body")
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("read body text: %w", err)
	}

	return crawl.Fields{General: &crawl.GeneralFields{
		Title:       title,
		Description: desc,
		Snippet:     Snippet(body, generalSnippetLimit),
	}}, nil
}

// Snippet collapses whitespace and truncates text to at most limit runes.
func Snippet(text string, limit int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	return string(runes[:limit])
}
