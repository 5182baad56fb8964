package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/adpick/place-crawler/internal/crawl"
)

// Selectors for the Instagram profile page.
const (
	igHeaderSelector = "header section"
	igHandleSelector = "header section h2"
	igFeedSelector   = "main article"
	igOGTitleMeta    = "meta[property='og:title']"
	igOGDescMeta     = "meta[property='og:description']"
)

var igHandlePattern = regexp.MustCompile(`\(@([A-Za-z0-9._]+)\)`)

// Instagram extracts profile-header data. Gated profiles yield a partial
// result with Restricted set, never an error.
type Instagram struct{}

// NewInstagram returns the Instagram adapter.
func NewInstagram() *Instagram {
	return &Instagram{}
}

// Platform identifies this adapter.
func (a *Instagram) Platform() crawl.Platform {
	return crawl.PlatformInstagram
}

// ReadySelector waits for the profile header.
func (a *Instagram) ReadySelector() string {
	return igHeaderSelector
}

// Extract reads the handle and follower count from the profile header. The
// follower count comes from the og:description meta tag, which renders
// abbreviated numbers ("12.3K followers"); parsing is best-effort.
func (a *Instagram) Extract(ctx context.Context, dom crawl.DOM) (crawl.Fields, error) {
	headerPresent, err := dom.Exists(ctx, igHeaderSelector)
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("check profile header: %w", err)
	}
	if !headerPresent {
		return crawl.Fields{}, fmt.Errorf("profile header %q never appeared", igHeaderSelector)
	}

	fields := &crawl.InstagramFields{}
	fields.Handle, err = a.handle(ctx, dom)
	if err != nil {
		return crawl.Fields{}, err
	}

	desc, err := dom.Attr(ctx, igOGDescMeta, "content")
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("read profile description meta: %w", err)
	}
	fields.Followers = followerCount(desc)

	feedPresent, err := dom.Exists(ctx, igFeedSelector)
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("check profile feed: %w", err)
	}
	fields.Restricted = !feedPresent

	return crawl.Fields{Instagram: fields}, nil
}

func (a *Instagram) handle(ctx context.Context, dom crawl.DOM) (string, error) {
	title, err := dom.Attr(ctx, igOGTitleMeta, "content")
	if err != nil {
		return "", fmt.Errorf("read profile title meta: %w", err)
	}
	if match := igHandlePattern.FindStringSubmatch(title); len(match) == 2 {
		return match[1], nil
	}
	heading, err := dom.Text(ctx, igHandleSelector)
	if err != nil {
		return "", fmt.Errorf("read profile heading: %w", err)
	}
	return strings.TrimPrefix(heading, "@"), nil
}

// followerCount pulls the leading follower figure out of og:description
// content like "12.3K Followers, 80 Following, 512 Posts".
func followerCount(desc string) int64 {
	lower := strings.ToLower(desc)
	idx := strings.Index(lower, "follower")
	if idx < 0 {
		return 0
	}
	prefix := strings.TrimSpace(desc[:idx])
	parts := strings.Fields(prefix)
	if len(parts) == 0 {
		return 0
	}
	n, err := ParseAbbreviatedCount(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return n
}
