// Package services – IdentifyService
//
// This file implements the IdentifyService, which orchestrates one
// identification end to end: resolve a social post URL to an image,
// answer from the analysis cache when possible, otherwise run the paid
// visual-search + AI-extraction collaborators, cache their output, and
// record the event in the user's history.
//
// Unlike the cache subsystem (which degrades silently), collaborator
// failures here are real errors for the caller: without a search or
// extraction result there is nothing to return.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-ident-backend/internal/domain"
	"github.com/tbourn/go-ident-backend/internal/lens"
)

// IdentifyInput carries one identification request.
type IdentifyInput struct {
	UserID         string
	ImageURL       string // direct image URL, if the client has one
	ImageHash      string // optional content fingerprint
	SourceURL      string // social post URL, when the image came from a share
	SourceUsername string
	SearchType     string // e.g. "image", "instagram"
	Country        string // ISO code; defaulted/validated by CacheService
}

// IdentifyResult is the outcome: the (possibly freshly created) cache
// entry, whether it was served from cache, and the user's history row.
type IdentifyResult struct {
	Entry    *domain.AnalysisCache `json:"entry"`
	Cached   bool                  `json:"cached"`
	SearchID string                `json:"search_id,omitempty"`
}

// IdentifyService runs the identification pipeline.
type IdentifyService struct {
	Cache    *CacheService
	Resolver *ResolverService
	History  *HistoryService

	// Collaborators; Scraper may be nil when source-URL inputs are not
	// supported by the deployment.
	Scraper   lens.Resolver
	Searcher  lens.Searcher
	Extractor lens.Extractor
}

// Identify executes the pipeline for one request.
//
// Order matters for cost: the source-URL shortcut can answer without
// touching either the scraper or the paid analysis; the analysis-cache
// lookup can answer without the paid analysis; only a full miss pays.
func (s *IdentifyService) Identify(ctx context.Context, in IdentifyInput) (*IdentifyResult, error) {
	if in.ImageURL == "" && in.SourceURL == "" {
		return nil, ErrNoImage
	}
	if in.SearchType == "" {
		if in.SourceURL != "" {
			in.SearchType = "social"
		} else {
			in.SearchType = "image"
		}
	}

	// 1) Repeat share of a known post: answer entirely from cache.
	if in.SourceURL != "" {
		if entry := s.Cache.LookupBySource(ctx, in.SourceURL); entry != nil {
			searchID := s.History.RecordOrTouch(ctx, in.UserID, entry.ID, in.SearchType, in.SourceURL, in.SourceUsername)
			return &IdentifyResult{Entry: entry, Cached: true, SearchID: searchID}, nil
		}
	}

	// 2) Make sure we have a direct image URL.
	imageURL := in.ImageURL
	if imageURL == "" {
		imageURL = s.Resolver.Resolve(ctx, in.SourceURL)
		if imageURL == "" {
			if s.Scraper == nil {
				return nil, ErrResolveFailed
			}
			resolved, method, err := s.Scraper.ResolveImage(ctx, in.SourceURL)
			if err != nil {
				log.Warn().Err(err).Str("source_url", in.SourceURL).Msg("source url scrape failed")
				return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
			}
			s.Resolver.StoreResolution(ctx, in.SourceURL, resolved, method)
			imageURL = resolved
		}
	}

	// 3) Cached analysis for this image + country?
	if entry := s.Cache.Lookup(ctx, imageURL, in.ImageHash, in.Country); entry != nil {
		searchID := s.History.RecordOrTouch(ctx, in.UserID, entry.ID, in.SearchType, in.SourceURL, in.SourceUsername)
		return &IdentifyResult{Entry: entry, Cached: true, SearchID: searchID}, nil
	}

	// 4) Full miss: pay for search + extraction.
	rawText, err := s.Searcher.Search(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	extraction, err := s.Extractor.Extract(ctx, rawText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}

	// 5) Cache the result. A disabled store yields an empty id; the
	// response is still served, just never cached (always-miss mode).
	country := s.Cache.Country(in.Country)
	cacheID := s.Cache.StoreResult(ctx, StoreParams{
		ImageURL:          imageURL,
		ImageHash:         in.ImageHash,
		ProcessedImageURL: imageURL,
		DetectedItems:     extraction.DetectedItems,
		SearchResults:     extraction.SearchResults,
		Country:           country,
	})

	entry := &domain.AnalysisCache{
		ID:                cacheID,
		ImageURL:          imageURL,
		ImageHash:         in.ImageHash,
		Country:           country,
		ProcessedImageURL: imageURL,
		DetectedItems:     extraction.DetectedItems,
		SearchResults:     extraction.SearchResults,
		ResultCount:       len(extraction.SearchResults),
		ExpiresAt:         s.Cache.now().Add(time.Duration(s.Cache.ttlDays(0)) * 24 * time.Hour),
	}

	var searchID string
	if cacheID != "" {
		searchID = s.History.RecordOrTouch(ctx, in.UserID, cacheID, in.SearchType, in.SourceURL, in.SourceUsername)
	}
	return &IdentifyResult{Entry: entry, Cached: false, SearchID: searchID}, nil
}
