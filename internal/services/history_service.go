// Package services – HistoryService
//
// This file implements the HistoryService, the per-user recency-ordered
// view of past analyses. History is a set, not a log: recording a search
// the user has already run refreshes the existing row's timestamp so it
// moves to the top, instead of inserting a duplicate.
//
// Degradation contract: a disabled or failing store makes RecordOrTouch
// a no-op and List an empty slice; neither returns an error.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/urlnorm"
)

// HistoryService records and lists per-user search history.
type HistoryService struct {
	// Store is the backing store handle; may be nil/disabled.
	Store *repo.Store

	// Now returns the current instant; overridable in tests.
	Now func() time.Time
}

func (s *HistoryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// RecordOrTouch upserts the history entry for (userID, cacheID) and
// returns its id, or the empty string when the store is disabled or the
// write fails. An existing entry only has its created_at refreshed to
// the current UTC instant; source metadata from the first recording is
// kept. The source URL is normalized before storage so later
// lookups-by-source match regardless of tracking parameters.
func (s *HistoryService) RecordOrTouch(ctx context.Context, userID, cacheID, searchType, sourceURL, sourceUsername string) string {
	if !s.Store.Enabled() || userID == "" || cacheID == "" {
		return ""
	}
	now := s.now()

	existing, err := repo.FindUserSearch(ctx, s.Store.DB, userID, cacheID)
	switch {
	case err == nil:
		if terr := repo.TouchUserSearch(ctx, s.Store.DB, existing.ID, now); terr != nil {
			log.Warn().Err(terr).Msg("history touch failed")
			return ""
		}
		log.Info().Str("search_id", existing.ID).Msg("history entry moved to top")
		return existing.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
		normalized := ""
		if sourceURL != "" {
			normalized = urlnorm.Normalize(sourceURL)
		}
		created, cerr := repo.CreateUserSearch(ctx, s.Store.DB, &domain.UserSearch{
			UserID:          userID,
			AnalysisCacheID: cacheID,
			SearchType:      searchType,
			SourceURL:       normalized,
			SourceUsername:  sourceUsername,
		}, now)
		if cerr != nil {
			log.Warn().Err(cerr).Msg("history record failed")
			return ""
		}
		log.Info().Str("search_id", created.ID).Msg("recorded history entry")
		return created.ID
	default:
		log.Warn().Err(err).Msg("history lookup failed")
		return ""
	}
}

// List returns a page of the user's history, newest first, joined with
// each entry's cached results. Always returns a non-nil slice; a
// disabled store or a failing query yields an empty one.
func (s *HistoryService) List(ctx context.Context, userID string, limit, offset int) []repo.HistoryRow {
	if !s.Store.Enabled() || userID == "" {
		return []repo.HistoryRow{}
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := repo.ListUserSearches(ctx, s.Store.DB, userID, limit, offset)
	if err != nil {
		log.Warn().Err(err).Msg("history list failed")
		return []repo.HistoryRow{}
	}
	if rows == nil {
		rows = []repo.HistoryRow{}
	}
	return rows
}
