// Package crawl defines the core types and interfaces for the external-data
// crawling engine: requests, platform results, the orchestration loop, and
// the contracts its collaborators implement.
package crawl

import "time"

// Platform identifies which extraction adapter handles a page.
type Platform string

// Supported extraction platforms.
const (
	PlatformNaverPlace Platform = "naver_place"
	PlatformInstagram  Platform = "instagram"
	PlatformGeneral    Platform = "general"
)

// KnownPlatform reports whether p is a supported adapter identifier.
func KnownPlatform(p Platform) bool {
	switch p {
	case PlatformNaverPlace, PlatformInstagram, PlatformGeneral:
		return true
	}
	return false
}

// Options captures per-request knobs supplied by the caller.
type Options struct {
	Timeout      time.Duration `json:"timeout_ms"`
	MaxRetries   int           `json:"max_retries"`
	DebugCapture bool          `json:"debug_capture"`
	BypassCache  bool          `json:"bypass_cache"`
}

// Request is one crawl invocation. It is created per call and never persisted.
type Request struct {
	RawURL       string
	PlatformHint Platform
	ClientID     string
	Options      Options
}

// PlaceFields is the payload extracted from a business-listing profile page.
type PlaceFields struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	HasCoupon        bool   `json:"has_coupon"`
	CouponTitle      string `json:"coupon_title,omitempty"`
	HasNews          bool   `json:"has_news"`
	NewsTitle        string `json:"news_title,omitempty"`
	HasReservation   bool   `json:"has_reservation"`
	ReservationTitle string `json:"reservation_title,omitempty"`
}

// InstagramFields is the payload extracted from a profile header.
// Restricted marks gated profiles; the remaining fields are then best-effort.
type InstagramFields struct {
	Handle     string `json:"handle"`
	Followers  int64  `json:"followers"`
	Restricted bool   `json:"restricted"`
}

// GeneralFields is the best-effort payload for arbitrary pages.
type GeneralFields struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// Fields is a closed union of per-platform payloads. Exactly one variant is
// non-nil on a well-formed value.
type Fields struct {
	Place     *PlaceFields     `json:"place,omitempty"`
	Instagram *InstagramFields `json:"instagram,omitempty"`
	General   *GeneralFields   `json:"general,omitempty"`
}

// Platform returns the variant tag, or empty when no variant is set.
func (f Fields) Platform() Platform {
	switch {
	case f.Place != nil:
		return PlatformNaverPlace
	case f.Instagram != nil:
		return PlatformInstagram
	case f.General != nil:
		return PlatformGeneral
	}
	return ""
}

// Metadata describes how and when a result was produced.
type Metadata struct {
	CrawledAt     time.Time `json:"crawled_at"`
	SourceURL     string    `json:"source_url"`
	FinalURL      string    `json:"final_url,omitempty"`
	ScreenshotURI string    `json:"screenshot_uri,omitempty"`
	Attempts      int       `json:"attempts"`
	UsedHeadless  bool      `json:"used_headless"`
}

// Result is the terminal output of one successful orchestration run.
type Result struct {
	Platform Platform `json:"platform"`
	Fields   Fields   `json:"fields"`
	Metadata Metadata `json:"metadata"`
}

// Record is the append-only persisted form of a crawl result.
type Record struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id,omitempty"`
	URL       string    `json:"url"`
	Platform  Platform  `json:"platform"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is the slice of the client aggregate this core reads and updates.
type Client struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

// ErrorKind classifies a failed outcome for callers.
type ErrorKind string

// Error kinds reported in failed outcomes.
const (
	ErrKindInvalidInput      ErrorKind = "invalid_input"
	ErrKindLaunch            ErrorKind = "launch_failed"
	ErrKindNavigationTimeout ErrorKind = "navigation_timeout"
	ErrKindExtraction        ErrorKind = "extraction_failed"
	ErrKindPersistence       ErrorKind = "persistence_failed"
	ErrKindUnknown           ErrorKind = "unknown"
)

// Outcome is the response shape returned to callers.
type Outcome struct {
	Success   bool      `json:"success"`
	Data      *Result   `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
}

// Status tags derived from crawl results and merged onto client records.
const (
	TagCouponInUse        = "coupon-in-use"
	TagNewsPublished      = "news-published"
	TagReservationEnabled = "reservation-enabled"
	TagCrawlComplete      = "crawl-complete"
)
