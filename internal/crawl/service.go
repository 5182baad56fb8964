package crawl

import (
	"context"

	"go.uber.org/zap"
)

// Prober fetches a page over plain HTTP without a browser. Used as a cheap
// first pass for General pages before paying for a headless session.
type Prober interface {
	// Probe returns the raw page body, or an error when the page could not
	// be fetched without a browser.
	Probe(ctx context.Context, url string) ([]byte, error)
	// ShouldPromote decides whether the probed body needs headless
	// rendering to be extracted faithfully.
	ShouldPromote(body []byte) bool
	// ExtractGeneral parses a probed body into general fields.
	ExtractGeneral(body []byte) (GeneralFields, error)
}

// Sink persists a successful result and applies follow-on client updates.
type Sink interface {
	Persist(ctx context.Context, clientID, url string, result Result) (Record, error)
}

// Service is the inbound entrypoint: normalize, classify, orchestrate, sink.
type Service struct {
	orchestrator *Orchestrator
	sink         Sink
	prober       Prober
	clock        Clock
	logger       *zap.Logger
}

// NewService wires the crawl pipeline. The prober is optional; without one,
// every platform goes through the headless path.
func NewService(orchestrator *Orchestrator, sink Sink, prober Prober, clock Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orchestrator: orchestrator,
		sink:         sink,
		prober:       prober,
		clock:        clock,
		logger:       logger,
	}
}

// Crawl executes one crawl request end to end and returns a single terminal
// outcome. Invalid input fails before any browser resource is touched.
// Persistence failures are reported as the outcome error while the crawl
// itself succeeded; callers can retry storage without re-crawling.
func (s *Service) Crawl(ctx context.Context, req Request) Outcome {
	url, err := NormalizeURL(req.RawURL)
	if err != nil {
		return failure(err, req.RawURL)
	}
	platform := Classify(url, req.PlatformHint)

	result, err := s.fetch(ctx, url, platform, req.Options)
	if err != nil {
		return failure(err, url)
	}

	if s.sink != nil {
		if _, err := s.sink.Persist(ctx, req.ClientID, url, result); err != nil {
			s.logger.Error("crawl succeeded but persistence failed",
				zap.String("url", url),
				zap.String("client_id", req.ClientID),
				zap.Error(err),
			)
			return Outcome{
				Success:   false,
				Error:     err.Error(),
				ErrorKind: ErrKindPersistence,
				SourceURL: url,
				Data:      &result,
			}
		}
	}

	return Outcome{Success: true, Data: &result, SourceURL: url}
}

// fetch picks the cheapest path that can serve the platform. General pages
// try a plain HTTP probe first and are promoted to headless only when the
// body looks script-rendered.
func (s *Service) fetch(ctx context.Context, url string, platform Platform, opts Options) (Result, error) {
	if platform == PlatformGeneral && s.prober != nil && !opts.DebugCapture {
		if result, ok := s.probeGeneral(ctx, url); ok {
			return result, nil
		}
	}
	return s.orchestrator.Run(ctx, url, platform, opts)
}

func (s *Service) probeGeneral(ctx context.Context, url string) (Result, bool) {
	body, err := s.prober.Probe(ctx, url)
	if err != nil {
		s.logger.Debug("probe failed, promoting to headless", zap.String("url", url), zap.Error(err))
		return Result{}, false
	}
	if s.prober.ShouldPromote(body) {
		s.logger.Debug("probe promoted to headless", zap.String("url", url))
		return Result{}, false
	}
	fields, err := s.prober.ExtractGeneral(body)
	if err != nil {
		return Result{}, false
	}
	return Result{
		Platform: PlatformGeneral,
		Fields:   Fields{General: &fields},
		Metadata: Metadata{
			CrawledAt:    s.clock.Now().UTC(),
			SourceURL:    url,
			Attempts:     1,
			UsedHeadless: false,
		},
	}, true
}

func failure(err error, url string) Outcome {
	return Outcome{Success: false, Error: err.Error(), ErrorKind: KindOf(err), SourceURL: url}
}
