// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SavedSearch model, which follows the same idempotent-uniqueness
// pattern as favorites, keyed on (user_id, search_id).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// CreateSavedSearch pins a history entry for a user. The
// (user_id, search_id) pair is unique; a duplicate insert returns
// ErrDuplicate.
func CreateSavedSearch(ctx context.Context, db *gorm.DB, userID, searchID, name string, now time.Time) (*domain.SavedSearch, error) {
	s := &domain.SavedSearch{
		ID:        uuid.NewString(),
		UserID:    userID,
		SearchID:  searchID,
		Name:      name,
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, classifyConstraintErr(err)
	}
	return s, nil
}

// DeleteSavedSearch removes a saved search by id, scoped to its owner.
// Deleting a row that does not exist is not an error.
func DeleteSavedSearch(ctx context.Context, db *gorm.DB, userID, savedSearchID string) error {
	return db.WithContext(ctx).
		Where("id = ? AND user_id = ?", savedSearchID, userID).
		Delete(&domain.SavedSearch{}).Error
}

// ListSavedSearches returns a page of the user's saved searches, newest
// first.
func ListSavedSearches(ctx context.Context, db *gorm.DB, userID string, limit, offset int) ([]domain.SavedSearch, error) {
	var out []domain.SavedSearch
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}
