// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// AnalysisCache model.
//
// All functions are context-aware and accept a *gorm.DB handle, making
// them safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition. Expiry is logical — rows are never
// deleted; live-entry queries filter on expires_at at read time.
//
// Error semantics:
//   - When no live entry matches, lookup functions return ErrNotFound.
//   - On DB errors (connectivity, missing table, etc.), the raw gorm
//     error is propagated; the service layer decides whether to degrade.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// FindLiveAnalysisByURL returns the newest non-expired cache entry for
// (imageURL, country), or ErrNotFound. Country is always an equality
// filter: results for the same image are kept distinct per country code.
func FindLiveAnalysisByURL(ctx context.Context, db *gorm.DB, imageURL, country string, now time.Time) (*domain.AnalysisCache, error) {
	var entry domain.AnalysisCache
	err := db.WithContext(ctx).
		Where("image_url = ? AND country = ? AND expires_at > ?", imageURL, country, now).
		Order("created_at desc").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindLiveAnalysisByHash returns the newest non-expired cache entry for
// (imageHash, country), or ErrNotFound. Used as a fallback when the
// image bytes are unchanged but the URL differs.
func FindLiveAnalysisByHash(ctx context.Context, db *gorm.DB, imageHash, country string, now time.Time) (*domain.AnalysisCache, error) {
	var entry domain.AnalysisCache
	err := db.WithContext(ctx).
		Where("image_hash = ? AND country = ? AND expires_at > ?", imageHash, country, now).
		Order("created_at desc").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetAnalysis returns a cache entry by id regardless of expiry. Used when
// replaying an idempotent request whose result is already persisted.
func GetAnalysis(ctx context.Context, db *gorm.DB, id string) (*domain.AnalysisCache, error) {
	var entry domain.AnalysisCache
	if err := db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// InsertAnalysis stores a freshly computed analysis with a TTL. It always
// inserts: a repeat analysis for the same key before expiry is expected
// to have been caught by lookup upstream, and duplicate live rows are
// tolerated (lookups return the newest).
func InsertAnalysis(ctx context.Context, db *gorm.DB, entry *domain.AnalysisCache, ttlDays int, now time.Time) (*domain.AnalysisCache, error) {
	entry.ID = uuid.NewString()
	entry.ResultCount = len(entry.SearchResults)
	entry.ExpiresAt = now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	entry.HitCount = 0
	entry.CreatedAt = now
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// IncrementAnalysisHit bumps hit_count by one using a server-side
// expression, so concurrent hits never lose increments. Telemetry only:
// callers may ignore the error.
func IncrementAnalysisHit(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.AnalysisCache{}).
		Where("id = ?", id).
		UpdateColumn("hit_count", gorm.Expr("hit_count + ?", 1)).Error
}

// FindLiveAnalysisBySourceURL returns the live cache entry behind the
// newest user search whose source_url matches either the original or the
// normalized form of a post URL. This lets a repeat share of the same
// post skip both resolution and analysis. Returns ErrNotFound when no
// matching search exists or its cache entry has expired.
func FindLiveAnalysisBySourceURL(ctx context.Context, db *gorm.DB, sourceURL, normalizedURL string, now time.Time) (*domain.AnalysisCache, error) {
	var search domain.UserSearch
	err := db.WithContext(ctx).
		Where("source_url = ? OR source_url = ?", sourceURL, normalizedURL).
		Order("created_at desc").
		First(&search).Error
	if err != nil {
		return nil, err
	}

	var entry domain.AnalysisCache
	err = db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", search.AnalysisCacheID, now).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
