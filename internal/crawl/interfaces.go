package crawl

import (
	"context"
	"io"
	"time"
)

// DOM exposes the page accessors adapters use to read a live document.
// Implementations back it with a real browser tab; tests use fakes.
type DOM interface {
	// Exists reports whether at least one node matches the selector right now.
	Exists(ctx context.Context, selector string) (bool, error)
	// Text returns the visible text of the first node matching the selector.
	// A missing node yields an empty string, not an error.
	Text(ctx context.Context, selector string) (string, error)
	// Attr returns the value of an attribute on the first matching node.
	Attr(ctx context.Context, selector, name string) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
	// Location returns the current URL after any redirects.
	Location(ctx context.Context) (string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
}

// Session is one live browser tab owned by a SessionManager.
type Session interface {
	DOM
}

// SessionManager owns the browser lifecycle for crawl attempts. Close is
// idempotent and must be invoked on every exit path.
type SessionManager interface {
	Open(ctx context.Context) (Session, error)
	Navigate(ctx context.Context, s Session, url string, readySelector string, bypassCache bool) error
	Capture(ctx context.Context, s Session) ([]byte, error)
	Close(s Session)
}

// Adapter is a platform-specific extraction strategy.
type Adapter interface {
	Platform() Platform
	// ReadySelector is the CSS selector navigation waits for before
	// extraction runs. Empty means document-ready only.
	ReadySelector() string
	Extract(ctx context.Context, dom DOM) (Fields, error)
}

// RecordStore persists crawl records. Records are append-only.
type RecordStore interface {
	SaveRecord(ctx context.Context, record Record) error
	ListRecords(ctx context.Context, clientID string) ([]Record, error)
}

// ClientStore is the narrow surface onto the externally owned client
// aggregate used for status-tag merges.
type ClientStore interface {
	GetClient(ctx context.Context, clientID string) (Client, error)
	// MergeTags unions tags into the client's existing tag set. It never
	// removes tags and never introduces duplicates.
	MergeTags(ctx context.Context, clientID string, tags []string) error
}

// BlobStore writes binary artifacts (debug screenshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes crawl-completed events to interested collaborators.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
