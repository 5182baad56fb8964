// Package sink persists crawl results and applies follow-on status tags to
// the owning client record.
package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/adpick/place-crawler/internal/crawl"
	"github.com/adpick/place-crawler/internal/telemetry"
)

// Config controls sink behavior.
type Config struct {
	EventTopic string
}

// Sink writes records through the injected storage collaborators. Records are
// append-only; only client tags mutate, and only by set union.
type Sink struct {
	records   crawl.RecordStore
	clients   crawl.ClientStore
	publisher crawl.Publisher
	clock     crawl.Clock
	ids       crawl.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Sink. The publisher is optional.
func New(
	records crawl.RecordStore,
	clients crawl.ClientStore,
	publisher crawl.Publisher,
	clock crawl.Clock,
	ids crawl.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) (*Sink, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
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
	if cfg.EventTopic == "" {
		cfg.EventTopic = "crawl-completed"
	}
	return &Sink{
		records:   records,
		clients:   clients,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// CompletedEvent is published after a record is persisted.
type CompletedEvent struct {
	RecordID string         `json:"record_id"`
	ClientID string         `json:"client_id,omitempty"`
	URL      string         `json:"url"`
	Platform crawl.Platform `json:"platform"`
}

// Persist stores the result as an append-only record and, for place results
// owned by a client, merges the derived status tags onto the client. Storage
// failures surface as PersistenceError; the crawl itself already succeeded.
func (s *Sink) Persist(ctx context.Context, clientID, url string, result crawl.Result) (crawl.Record, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return crawl.Record{}, &crawl.PersistenceError{URL: url, Err: fmt.Errorf("generate record id: %w", err)}
	}
	record := crawl.Record{
		ID:        id,
		ClientID:  clientID,
		URL:       url,
		Platform:  result.Platform,
		Result:    result,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.records.SaveRecord(ctx, record); err != nil {
		return crawl.Record{}, &crawl.PersistenceError{URL: url, Err: err}
	}

	if clientID != "" && result.Platform == crawl.PlatformNaverPlace && s.clients != nil {
		if err := s.mergeTags(ctx, clientID, result); err != nil {
			return crawl.Record{}, &crawl.PersistenceError{URL: url, Err: err}
		}
	}

	s.publishCompleted(ctx, record)
	return record, nil
}

func (s *Sink) mergeTags(ctx context.Context, clientID string, result crawl.Result) error {
	if _, err := s.clients.GetClient(ctx, clientID); err != nil {
		telemetry.ObserveTagMerge("client_missing")
		return fmt.Errorf("load client %s: %w", clientID, err)
	}
	delta := TagDelta(result)
	if err := s.clients.MergeTags(ctx, clientID, delta); err != nil {
		telemetry.ObserveTagMerge("failure")
		return fmt.Errorf("merge tags onto client %s: %w", clientID, err)
	}
	telemetry.ObserveTagMerge("success")
	s.logger.Debug("merged status tags",
		zap.String("client_id", clientID),
		zap.Strings("tags", delta),
	)
	return nil
}

// publishCompleted is best-effort; event failures are logged, never surfaced.
func (s *Sink) publishCompleted(ctx context.Context, record crawl.Record) {
	if s.publisher == nil {
		return
	}
	event := CompletedEvent{
		RecordID: record.ID,
		ClientID: record.ClientID,
		URL:      record.URL,
		Platform: record.Platform,
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.EventTopic, event); err != nil {
		s.logger.Warn("publish crawl-completed event failed",
			zap.String("record_id", record.ID),
			zap.Error(err),
		)
	}
}

// TagDelta derives the status tags a result adds to its owning client. The
// delta is a set: tags are never removed and merging is idempotent.
func TagDelta(result crawl.Result) []string {
	if result.Fields.Place == nil {
		return nil
	}
	place := result.Fields.Place
	tags := make([]string, 0, 4)
	if place.HasCoupon {
		tags = append(tags, crawl.TagCouponInUse)
	}
	if place.HasNews {
		tags = append(tags, crawl.TagNewsPublished)
	}
	if place.HasReservation {
		tags = append(tags, crawl.TagReservationEnabled)
	}
	tags = append(tags, crawl.TagCrawlComplete)
	return tags
}
