// Package services – CacheService
//
// This file implements the CacheService, the read/write surface of the
// analysis cache. Every analysis run costs money (visual search + AI
// extraction are billed per request), so callers always consult Lookup
// before computing and Store after. Entries are partitioned by country
// and expire logically after a configurable number of days.
//
// Degradation contract: when the store is disabled or a query fails,
// every method returns its neutral value (nil entry, empty id) and logs
// at warn. Nothing in this service returns an error to the caller.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/urlnorm"
)

// DefaultTTLDays is the cache lifetime applied when a caller does not
// override it.
const DefaultTTLDays = 30

// CacheService answers "have we analyzed this image for this country
// already?" and records fresh analyses with a TTL.
type CacheService struct {
	// Store is the backing store handle; may be nil/disabled.
	Store *repo.Store

	// TTLDays is the default entry lifetime in days (0 means
	// DefaultTTLDays).
	TTLDays int

	// DefaultCountry is used when a request carries no or an invalid
	// country code (empty means "US").
	DefaultCountry string

	// Now returns the current instant; overridable in tests to simulate
	// clock advance for expiry checks. Defaults to time.Now UTC.
	Now func() time.Time
}

// StoreParams carries the inputs for persisting one fresh analysis.
type StoreParams struct {
	ImageURL          string
	ImageHash         string
	ProcessedImageURL string
	DetectedItems     []domain.DetectedItem
	SearchResults     []domain.SearchResult
	Country           string
	TTLDays           int // 0 = service default
}

func (s *CacheService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *CacheService) ttlDays(override int) int {
	if override > 0 {
		return override
	}
	if s.TTLDays > 0 {
		return s.TTLDays
	}
	return DefaultTTLDays
}

// Country validates a country code as an ISO region and upper-cases it,
// falling back to the service default for empty or unparseable input.
func (s *CacheService) Country(code string) string {
	fallback := s.DefaultCountry
	if fallback == "" {
		fallback = "US"
	}
	if code == "" {
		return fallback
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		log.Warn().Str("country", code).Msg("invalid country code, using default")
		return fallback
	}
	return region.String()
}

// Lookup returns the live cache entry for (imageURL|imageHash, country),
// or nil on miss. The URL is tried first because it is indexed and
// avoids a hashing step upstream; the hash is a fallback for inputs
// whose URL changed but whose bytes did not. A hit bumps the entry's hit
// counter (best effort).
func (s *CacheService) Lookup(ctx context.Context, imageURL, imageHash, country string) *domain.AnalysisCache {
	if !s.Store.Enabled() {
		return nil
	}
	country = s.Country(country)
	now := s.now()

	if imageURL != "" {
		entry, err := repo.FindLiveAnalysisByURL(ctx, s.Store.DB, imageURL, country, now)
		if err == nil {
			log.Info().Str("country", country).Str("key", "url").Msg("analysis cache HIT")
			s.RecordHit(ctx, entry.ID)
			return entry
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("analysis cache lookup by url failed")
			return nil
		}
	}

	if imageHash != "" {
		entry, err := repo.FindLiveAnalysisByHash(ctx, s.Store.DB, imageHash, country, now)
		if err == nil {
			log.Info().Str("country", country).Str("key", "hash").Msg("analysis cache HIT")
			s.RecordHit(ctx, entry.ID)
			return entry
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("analysis cache lookup by hash failed")
			return nil
		}
	}

	log.Info().Str("country", country).Msg("analysis cache MISS")
	return nil
}

// LookupBySource returns the live cache entry behind the newest recorded
// search for a social post URL (original or normalized form), or nil.
// A hit here lets a repeat share skip both source resolution and the
// paid analysis.
func (s *CacheService) LookupBySource(ctx context.Context, sourceURL string) *domain.AnalysisCache {
	if !s.Store.Enabled() || sourceURL == "" {
		return nil
	}
	normalized := urlnorm.Normalize(sourceURL)

	entry, err := repo.FindLiveAnalysisBySourceURL(ctx, s.Store.DB, sourceURL, normalized, s.now())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("analysis cache lookup by source failed")
		}
		return nil
	}
	log.Info().Str("source_url", normalized).Msg("analysis cache HIT via source url")
	s.RecordHit(ctx, entry.ID)
	return entry
}

// StoreResult persists a fresh analysis and returns the new entry id, or
// the empty string when the store is disabled or the insert fails.
// At least one of ImageURL/ImageHash must be set; violating inputs are
// dropped with a warning rather than stored unkeyed.
func (s *CacheService) StoreResult(ctx context.Context, p StoreParams) string {
	if !s.Store.Enabled() {
		return ""
	}
	if p.ImageURL == "" && p.ImageHash == "" {
		log.Warn().Msg("refusing to cache analysis without image url or hash")
		return ""
	}

	entry, err := repo.InsertAnalysis(ctx, s.Store.DB, &domain.AnalysisCache{
		ImageURL:          p.ImageURL,
		ImageHash:         p.ImageHash,
		Country:           s.Country(p.Country),
		ProcessedImageURL: p.ProcessedImageURL,
		DetectedItems:     p.DetectedItems,
		SearchResults:     p.SearchResults,
	}, s.ttlDays(p.TTLDays), s.now())
	if err != nil {
		log.Warn().Err(err).Msg("analysis cache store failed")
		return ""
	}
	return entry.ID
}

// RecordHit increments the entry's hit counter. Telemetry only; failures
// are swallowed.
func (s *CacheService) RecordHit(ctx context.Context, id string) {
	if !s.Store.Enabled() || id == "" {
		return
	}
	if err := repo.IncrementAnalysisHit(ctx, s.Store.DB, id); err != nil {
		log.Warn().Err(err).Str("cache_id", id).Msg("cache hit increment failed")
	}
}
