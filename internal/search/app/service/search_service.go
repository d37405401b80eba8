package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/motortribe/motortribe/internal/platform/cache"
	"github.com/motortribe/motortribe/internal/platform/config"
	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/platform/metrics"
	"github.com/motortribe/motortribe/internal/search/domain/model"
	"github.com/motortribe/motortribe/internal/search/domain/repository"
	"github.com/motortribe/motortribe/internal/shared/events"
)

const cacheKeyPrefix = "query"

// SearchService answers free-text post queries and keeps the index current
type SearchService struct {
	engine  repository.Engine
	posts   repository.PostSource
	cache   *cache.RedisCache
	metrics *metrics.Metrics
	logger  logger.Logger
	cfg     config.SearchConfig
}

// NewSearchService creates a new search service. The cache is optional.
func NewSearchService(
	engine repository.Engine,
	posts repository.PostSource,
	queryCache *cache.RedisCache,
	m *metrics.Metrics,
	log logger.Logger,
	cfg config.SearchConfig,
) *SearchService {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &SearchService{
		engine:  engine,
		posts:   posts,
		cache:   queryCache,
		metrics: m,
		logger:  log,
		cfg:     cfg,
	}
}

// Search returns a ranked, deduplicated result set for a free-text query.
// Index failures degrade to an empty result set; they are logged and
// counted but never crash the serving path.
func (s *SearchService) Search(ctx context.Context, query string, maxResults int) []model.SearchHit {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
		}
	}()
	if s.metrics != nil {
		s.metrics.SearchesTotal.Inc()
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}

	cacheKey := fmt.Sprintf("%s:%d:%s", cacheKeyPrefix, maxResults, query)
	if s.cache != nil {
		var cached []model.SearchHit
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.SearchCacheHits.Inc()
			}
			return cached
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("search cache read failed", "error", err)
		}
	}

	hits, err := s.engine.Search(query, maxResults)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SearchErrors.Inc()
		}
		s.logger.Error("search failed", "query", query, "error", err)
		return nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, hits, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("search cache write failed", "error", err)
		}
	}

	s.logger.Debug("search completed",
		"query", query,
		"hits", len(hits),
		"took_ms", time.Since(start).Milliseconds(),
	)
	return hits
}

// Index upserts documents into the live index and invalidates cached queries
func (s *SearchService) Index(ctx context.Context, docs []model.PostDocument) error {
	if err := s.engine.Index(docs); err != nil {
		if s.metrics != nil {
			s.metrics.IndexingErrors.Inc()
		}
		return fmt.Errorf("failed to index documents: %w", err)
	}

	s.invalidateCache(ctx)
	if s.metrics != nil {
		s.metrics.IndexedDocuments.Set(float64(s.engine.Size()))
	}
	return nil
}

// Remove drops a document from the live index
func (s *SearchService) Remove(ctx context.Context, postID int64) error {
	if err := s.engine.Remove(postID); err != nil {
		if s.metrics != nil {
			s.metrics.IndexingErrors.Inc()
		}
		return fmt.Errorf("failed to remove document: %w", err)
	}

	s.invalidateCache(ctx)
	if s.metrics != nil {
		s.metrics.IndexedDocuments.Set(float64(s.engine.Size()))
	}
	return nil
}

// Rebuild re-fetches the full post set and replaces the index, the
// recovery path behind the periodic schedule
func (s *SearchService) Rebuild(ctx context.Context) error {
	docs, err := s.posts.FetchPostsForIndexing(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch posts for indexing: %w", err)
	}

	if err := s.engine.Rebuild(docs); err != nil {
		if s.metrics != nil {
			s.metrics.IndexingErrors.Inc()
		}
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	s.invalidateCache(ctx)
	if s.metrics != nil {
		s.metrics.IndexRebuilds.Inc()
		s.metrics.IndexedDocuments.Set(float64(s.engine.Size()))
	}

	s.logger.Info("search index rebuilt", "documents", len(docs))
	return nil
}

// HandleEvent applies a post lifecycle event to the live index
func (s *SearchService) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.PostCreated, events.PostUpdated:
		var payload events.PostPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("malformed post payload: %w", err)
		}
		return s.Index(ctx, []model.PostDocument{{
			PostID:      payload.PostID,
			Title:       payload.Title,
			Description: payload.Description,
		}})

	case events.PostDeleted:
		var payload events.PostPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("malformed post payload: %w", err)
		}
		return s.Remove(ctx, payload.PostID)

	case events.ContentBlocked:
		var payload events.ContentBlockedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("malformed block payload: %w", err)
		}
		if payload.PostID == 0 {
			// Blocked comments are not indexed
			return nil
		}
		return s.Remove(ctx, payload.PostID)

	default:
		s.logger.Debug("ignoring event", "event_type", event.EventType)
		return nil
	}
}

func (s *SearchService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cacheKeyPrefix); err != nil {
		s.logger.Warn("search cache invalidation failed", "error", err)
	}
}
