// Package services – FavoritesService
//
// This file implements the FavoritesService, covering both favorites
// (bookmarked products with denormalized display fields) and saved
// searches (pinned history entries). Both collections enforce per-user
// uniqueness, and a duplicate add is an idempotent no-op rather than an
// error: "already favorited" is not a failure condition for the caller.
//
// Degradation contract: a disabled or failing store degrades every
// method to its neutral value (empty id, false, empty slice).
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-ident-backend/internal/domain"
	"github.com/tbourn/go-ident-backend/internal/repo"
)

// FavoritesService manages a user's favorites and saved searches.
type FavoritesService struct {
	// Store is the backing store handle; may be nil/disabled.
	Store *repo.Store

	// Now returns the current instant; overridable in tests.
	Now func() time.Time
}

func (s *FavoritesService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// FavoriteParams carries the denormalized display fields stored with a
// favorite so the favorites screen renders without touching the cache.
type FavoriteParams struct {
	ProductID   string
	ProductName string
	Brand       string
	Price       float64
	ImageURL    string
	PurchaseURL string
	Category    string
}

// Add favorites a product for the user and returns the new row id.
// Adding a product the user already favorited returns the empty string
// without error (idempotent no-op), as does a disabled store.
func (s *FavoritesService) Add(ctx context.Context, userID string, p FavoriteParams) string {
	if !s.Store.Enabled() || userID == "" || p.ProductID == "" {
		return ""
	}

	f, err := repo.CreateFavorite(ctx, s.Store.DB, &domain.Favorite{
		UserID:      userID,
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
		Brand:       p.Brand,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		PurchaseURL: p.PurchaseURL,
		Category:    p.Category,
	}, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			log.Info().Str("product_id", p.ProductID).Msg("product already favorited")
			return ""
		}
		log.Warn().Err(err).Msg("add favorite failed")
		return ""
	}
	return f.ID
}

// Remove deletes a favorite by id, scoped to its owner. It reports
// whether the delete executed without a store error, not whether a row
// existed.
func (s *FavoritesService) Remove(ctx context.Context, userID, favoriteID string) bool {
	if !s.Store.Enabled() || userID == "" || favoriteID == "" {
		return false
	}
	if err := repo.DeleteFavorite(ctx, s.Store.DB, userID, favoriteID); err != nil {
		log.Warn().Err(err).Msg("remove favorite failed")
		return false
	}
	return true
}

// List returns a page of the user's favorites, newest first. Always
// returns a non-nil slice.
func (s *FavoritesService) List(ctx context.Context, userID string, limit, offset int) []domain.Favorite {
	if !s.Store.Enabled() || userID == "" {
		return []domain.Favorite{}
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out, err := repo.ListFavorites(ctx, s.Store.DB, userID, limit, offset)
	if err != nil {
		log.Warn().Err(err).Msg("list favorites failed")
		return []domain.Favorite{}
	}
	if out == nil {
		out = []domain.Favorite{}
	}
	return out
}

// CheckFavorited returns the subset of productIDs already favorited by
// the user, in one round trip. Callers use it to annotate result lists
// without one query per item.
func (s *FavoritesService) CheckFavorited(ctx context.Context, userID string, productIDs []string) []string {
	if !s.Store.Enabled() || userID == "" || len(productIDs) == 0 {
		return []string{}
	}
	ids, err := repo.FavoritedProductIDs(ctx, s.Store.DB, userID, productIDs)
	if err != nil {
		log.Warn().Err(err).Msg("check favorited failed")
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// SaveSearch pins a history entry for the user, with an optional name,
// and returns the new row id. Saving an already saved search is an
// idempotent no-op returning the empty string.
func (s *FavoritesService) SaveSearch(ctx context.Context, userID, searchID, name string) string {
	if !s.Store.Enabled() || userID == "" || searchID == "" {
		return ""
	}
	saved, err := repo.CreateSavedSearch(ctx, s.Store.DB, userID, searchID, name, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			log.Info().Str("search_id", searchID).Msg("search already saved")
			return ""
		}
		log.Warn().Err(err).Msg("save search failed")
		return ""
	}
	return saved.ID
}

// UnsaveSearch removes a saved search by id, scoped to its owner. It
// reports whether the delete executed without a store error.
func (s *FavoritesService) UnsaveSearch(ctx context.Context, userID, savedSearchID string) bool {
	if !s.Store.Enabled() || userID == "" || savedSearchID == "" {
		return false
	}
	if err := repo.DeleteSavedSearch(ctx, s.Store.DB, userID, savedSearchID); err != nil {
		log.Warn().Err(err).Msg("unsave search failed")
		return false
	}
	return true
}

// ListSaved returns a page of the user's saved searches, newest first.
func (s *FavoritesService) ListSaved(ctx context.Context, userID string, limit, offset int) []domain.SavedSearch {
	if !s.Store.Enabled() || userID == "" {
		return []domain.SavedSearch{}
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out, err := repo.ListSavedSearches(ctx, s.Store.DB, userID, limit, offset)
	if err != nil {
		log.Warn().Err(err).Msg("list saved searches failed")
		return []domain.SavedSearch{}
	}
	if out == nil {
		out = []domain.SavedSearch{}
	}
	return out
}
