// Package services – ResolverService
//
// This file implements the ResolverService, the cached mapping from a
// social-media post URL to the direct image URL scraped out of it.
// Scraping is slow and rate-limited by the platforms, so every
// successful resolution is persisted keyed on the normalized URL and
// answered from the store on repeats.
//
// Degradation contract: a disabled or failing store turns Resolve into a
// guaranteed miss and StoreResolution into a no-op; neither returns an
// error to the caller.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/urlnorm"
)

// ResolverService caches source-URL → image-URL resolutions.
type ResolverService struct {
	// Store is the backing store handle; may be nil/disabled.
	Store *repo.Store

	// Now returns the current instant; overridable in tests.
	Now func() time.Time
}

func (s *ResolverService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Resolve returns the cached direct image URL for a post URL, or the
// empty string on miss. A hit bumps the entry's access telemetry.
func (s *ResolverService) Resolve(ctx context.Context, originalURL string) string {
	if !s.Store.Enabled() || originalURL == "" {
		return ""
	}
	normalized := urlnorm.Normalize(originalURL)

	entry, err := repo.FindSourceURL(ctx, s.Store.DB, originalURL, normalized)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("source url cache lookup failed")
		} else {
			log.Info().Str("source_url", normalized).Msg("source url cache MISS")
		}
		return ""
	}

	log.Info().Str("source_url", normalized).Msg("source url cache HIT")
	if terr := repo.TouchSourceURLAccess(ctx, s.Store.DB, entry.ID, s.now()); terr != nil {
		log.Warn().Err(terr).Msg("source url access touch failed")
	}
	return entry.ResolvedImageURL
}

// StoreResolution persists a resolution keyed on the normalized URL and
// returns the written row id, or the empty string when the store is
// disabled or the write fails. Repeat writes for the same normalized URL
// update the existing row in place (see repo.UpsertSourceURL for the
// missing-constraint fallback).
func (s *ResolverService) StoreResolution(ctx context.Context, originalURL, resolvedImageURL, extractionMethod string) string {
	if !s.Store.Enabled() || originalURL == "" || resolvedImageURL == "" {
		return ""
	}
	normalized := urlnorm.Normalize(originalURL)

	id, err := repo.UpsertSourceURL(ctx, s.Store.DB, originalURL, normalized, resolvedImageURL, extractionMethod, s.now())
	if err != nil {
		log.Warn().Err(err).Msg("source url cache store failed")
		return ""
	}
	log.Info().Str("source_url", normalized).Str("method", extractionMethod).Msg("stored source url resolution")
	return id
}
