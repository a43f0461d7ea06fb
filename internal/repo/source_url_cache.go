// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SourceURLCache model, which maps social-media post URLs to already
// resolved direct image URLs.
//
// Write path: UpsertSourceURL keys the upsert on normalized_url. Some
// deployments predate the unique constraint on that column, in which
// case the store reports the missing conflict target; the repository
// surfaces that condition as ErrNoUniqueConstraint and callers fall back
// to read-then-write. The fallback has a benign race window between the
// existence check and the insert: a concurrent duplicate row is a
// harmless extra cache entry, and reads always take the newest match.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// FindSourceURL returns the newest resolution entry matching either the
// exact original URL or the normalized URL (rows written before
// normalization existed only carry the original form), or ErrNotFound.
func FindSourceURL(ctx context.Context, db *gorm.DB, originalURL, normalizedURL string) (*domain.SourceURLCache, error) {
	var entry domain.SourceURLCache
	err := db.WithContext(ctx).
		Where("original_url = ? OR normalized_url = ?", originalURL, normalizedURL).
		Order("created_at desc").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// TouchSourceURLAccess bumps access_count server-side and refreshes
// last_accessed_at. Telemetry only: callers may ignore the error.
func TouchSourceURLAccess(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.SourceURLCache{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"access_count":     gorm.Expr("access_count + ?", 1),
			"last_accessed_at": now,
		}).Error
}

// UpsertSourceURL writes a resolution entry keyed on normalized_url:
// insert when new, refresh the resolved URL / extraction method in place
// when a row for the same normalized URL already exists. Returns the id
// of the written row.
//
// When the table lacks the unique constraint required by the conflict
// clause, it falls back to read-then-write (see the package comment).
// Any other store failure aborts the call.
func UpsertSourceURL(ctx context.Context, db *gorm.DB, originalURL, normalizedURL, resolvedImageURL, extractionMethod string, now time.Time) (string, error) {
	entry := &domain.SourceURLCache{
		ID:               uuid.NewString(),
		OriginalURL:      originalURL,
		NormalizedURL:    normalizedURL,
		ResolvedImageURL: resolvedImageURL,
		ExtractionMethod: extractionMethod,
		AccessCount:      1,
		LastAccessedAt:   now,
		CreatedAt:        now,
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "normalized_url"}},
			DoUpdates: clause.Assignments(map[string]any{
				"original_url":       originalURL,
				"resolved_image_url": resolvedImageURL,
				"extraction_method":  extractionMethod,
				"last_accessed_at":   now,
				"updated_at":         now,
			}),
		}).
		Create(entry).Error
	if err == nil {
		// On conflict the insert id was discarded in favor of the
		// existing row; read it back by key.
		existing, ferr := FindSourceURL(ctx, db, originalURL, normalizedURL)
		if ferr == nil {
			return existing.ID, nil
		}
		return entry.ID, nil
	}

	if !errors.Is(classifyConstraintErr(err), ErrNoUniqueConstraint) {
		return "", err
	}

	// Fallback: detect-and-merge without a conflict clause.
	existing, ferr := FindSourceURL(ctx, db, originalURL, normalizedURL)
	switch {
	case ferr == nil:
		uerr := db.WithContext(ctx).
			Model(&domain.SourceURLCache{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"original_url":       originalURL,
				"resolved_image_url": resolvedImageURL,
				"extraction_method":  extractionMethod,
				"last_accessed_at":   now,
			}).Error
		if uerr != nil {
			return "", uerr
		}
		return existing.ID, nil
	case errors.Is(ferr, gorm.ErrRecordNotFound):
		if cerr := db.WithContext(ctx).Create(entry).Error; cerr != nil {
			return "", cerr
		}
		return entry.ID, nil
	default:
		return "", ferr
	}
}
