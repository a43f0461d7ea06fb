// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// UserSearch model: a per-user, recency-ordered history of analyses.
//
// History is a set, not a log. At most one logical row exists per
// (user_id, analysis_cache_id); recording a repeat search refreshes the
// existing row's created_at so the entry moves to the top of the list
// without duplicating.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// HistoryRow is the denormalized shape returned by history listings:
// one search joined with its cache entry's display data.
type HistoryRow struct {
	SearchID          string                `json:"search_id"`
	UserID            string                `json:"user_id"`
	AnalysisCacheID   string                `json:"analysis_cache_id"`
	SearchType        string                `json:"search_type"`
	SourceURL         string                `json:"source_url,omitempty"`
	SourceUsername    string                `json:"source_username,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	Country           string                `json:"country"`
	ProcessedImageURL string                `json:"processed_image_url"`
	DetectedItems     []domain.DetectedItem `json:"detected_items" gorm:"serializer:json"`
	SearchResults     []domain.SearchResult `json:"search_results" gorm:"serializer:json"`
	ResultCount       int                   `json:"result_count"`
	ExpiresAt         time.Time             `json:"expires_at"`
}

// FindUserSearch returns the history row for (userID, cacheID), or
// ErrNotFound.
func FindUserSearch(ctx context.Context, db *gorm.DB, userID, cacheID string) (*domain.UserSearch, error) {
	var s domain.UserSearch
	err := db.WithContext(ctx).
		Where("user_id = ? AND analysis_cache_id = ?", userID, cacheID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateUserSearch inserts a new history row with a UUID primary key and
// the given UTC timestamp.
func CreateUserSearch(ctx context.Context, db *gorm.DB, s *domain.UserSearch, now time.Time) (*domain.UserSearch, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = now
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// TouchUserSearch refreshes created_at on an existing history row,
// moving it to the top of the recency ordering. Returns ErrNotFound when
// the row does not exist.
func TouchUserSearch(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.UserSearch{}).
		Where("id = ?", id).
		UpdateColumn("created_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListUserSearches returns a page of the user's history, newest first,
// each row joined with its cache entry. The join replaces the
// denormalized read view the mobile clients used previously, so no view
// migration is required.
func ListUserSearches(ctx context.Context, db *gorm.DB, userID string, limit, offset int) ([]HistoryRow, error) {
	var rows []HistoryRow
	err := db.WithContext(ctx).
		Table("user_searches").
		Select(`user_searches.id AS search_id,
			user_searches.user_id,
			user_searches.analysis_cache_id,
			user_searches.search_type,
			user_searches.source_url,
			user_searches.source_username,
			user_searches.created_at,
			analysis_cache.country,
			analysis_cache.processed_image_url,
			analysis_cache.detected_items,
			analysis_cache.search_results,
			analysis_cache.result_count,
			analysis_cache.expires_at`).
		Joins("JOIN analysis_cache ON analysis_cache.id = user_searches.analysis_cache_id").
		Where("user_searches.user_id = ?", userID).
		Order("user_searches.created_at desc").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	return rows, err
}

// CountUserSearches returns the total history rows for a user, used for
// pagination metadata and conditional responses.
func CountUserSearches(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.UserSearch{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
