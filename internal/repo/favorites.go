// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Favorite model.
//
// Error semantics:
//   - CreateFavorite returns ErrDuplicate when the (user_id, product_id)
//     pair already exists; the service layer treats that as an idempotent
//     no-op, not a failure.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// CreateFavorite inserts a favorite row. The (user_id, product_id) pair
// is unique; a duplicate insert returns ErrDuplicate.
func CreateFavorite(ctx context.Context, db *gorm.DB, f *domain.Favorite, now time.Time) (*domain.Favorite, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = now
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, classifyConstraintErr(err)
	}
	return f, nil
}

// GetFavorite returns the favorite for (userID, productID), or
// ErrNotFound.
func GetFavorite(ctx context.Context, db *gorm.DB, userID, productID string) (*domain.Favorite, error) {
	var f domain.Favorite
	err := db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFavorite removes a favorite by id, scoped to its owner so a user
// cannot remove another user's favorite by id guessing. Deleting a row
// that does not exist is not an error.
func DeleteFavorite(ctx context.Context, db *gorm.DB, userID, favoriteID string) error {
	return db.WithContext(ctx).
		Where("id = ? AND user_id = ?", favoriteID, userID).
		Delete(&domain.Favorite{}).Error
}

// ListFavorites returns a page of the user's favorites, newest first.
func ListFavorites(ctx context.Context, db *gorm.DB, userID string, limit, offset int) ([]domain.Favorite, error) {
	var out []domain.Favorite
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// FavoritedProductIDs returns the subset of productIDs the user has
// already favorited, in one round trip. Callers use it to annotate a
// result list without a query per item.
func FavoritedProductIDs(ctx context.Context, db *gorm.DB, userID string, productIDs []string) ([]string, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Pluck("product_id", &ids).Error
	return ids, err
}
