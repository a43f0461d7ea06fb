// Favorites and saved-search HTTP handlers.
//
// This file exposes the bookmark surface of the API:
//   - POST   /favorites            (favorite a product)
//   - GET    /favorites            (list favorites, newest first)
//   - DELETE /favorites/:id        (remove a favorite)
//   - POST   /favorites/check      (batch membership check)
//   - POST   /saved-searches       (pin a history entry)
//   - GET    /saved-searches       (list saved searches)
//   - DELETE /saved-searches/:id   (unpin)
//
// Adding something the user already has is not an error: both POST endpoints
// answer 200 instead of 409 for duplicates, so clients can fire-and-forget.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ident-backend/internal/http/middleware"
	"github.com/tbourn/go-ident-backend/internal/services"
)

// AddFavoriteRequest is the JSON payload for POST /favorites. The display
// fields are denormalized from the identification result so the favorites
// screen renders without touching the analysis cache.
type AddFavoriteRequest struct {
	ProductID   string  `json:"product_id" binding:"required"`
	ProductName string  `json:"product_name"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	PurchaseURL string  `json:"purchase_url"`
	Category    string  `json:"category"`
}

// AddFavorite favorites a product for the user. Responds 201 with the new id,
// or 200 when the product was already favorited.
func (h *Handlers) AddFavorite(c *gin.Context) {
	var req AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product_id is required")
		return
	}
	uid := middleware.UserIDFrom(c)

	id := h.favs.Add(c.Request.Context(), uid, services.FavoriteParams{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Brand:       req.Brand,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		PurchaseURL: req.PurchaseURL,
		Category:    req.Category,
	})
	if id == "" {
		ok(c, http.StatusOK, gin.H{"already_favorited": true})
		return
	}
	ok(c, http.StatusCreated, gin.H{"id": id})
}

// RemoveFavorite deletes one of the user's favorites by id. Always 204: the
// delete is scoped to the owner, so a foreign or unknown id removes nothing.
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if !h.favs.Remove(c.Request.Context(), uid, c.Param("id")) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "favorite removal failed")
		return
	}
	noContent(c)
}

// ListFavorites returns a page of the user's favorites, newest first.
// Query parameters: limit (default 50, max 200) and offset.
func (h *Handlers) ListFavorites(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 1<<30)

	items := h.favs.List(c.Request.Context(), uid, limit, offset)
	ok(c, http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// CheckFavoritesRequest is the JSON payload for POST /favorites/check.
type CheckFavoritesRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required"`
}

// CheckFavorites returns the subset of the given product ids the user has
// favorited, in one round trip. Clients use it to annotate result lists.
func (h *Handlers) CheckFavorites(c *gin.Context) {
	var req CheckFavoritesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product_ids is required")
		return
	}
	uid := middleware.UserIDFrom(c)

	favorited := h.favs.CheckFavorited(c.Request.Context(), uid, req.ProductIDs)
	ok(c, http.StatusOK, gin.H{"favorited": favorited})
}

// SaveSearchRequest is the JSON payload for POST /saved-searches.
type SaveSearchRequest struct {
	SearchID string `json:"search_id" binding:"required"`
	Name     string `json:"name"`
}

// SaveSearch pins one of the user's history entries. Responds 201 with the
// new id, or 200 when the search was already saved.
func (h *Handlers) SaveSearch(c *gin.Context) {
	var req SaveSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "search_id is required")
		return
	}
	uid := middleware.UserIDFrom(c)

	id := h.favs.SaveSearch(c.Request.Context(), uid, req.SearchID, req.Name)
	if id == "" {
		ok(c, http.StatusOK, gin.H{"already_saved": true})
		return
	}
	ok(c, http.StatusCreated, gin.H{"id": id})
}

// ListSavedSearches returns a page of the user's saved searches.
func (h *Handlers) ListSavedSearches(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 1<<30)

	items := h.favs.ListSaved(c.Request.Context(), uid, limit, offset)
	ok(c, http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// UnsaveSearch removes a saved search by id, scoped to the owner.
func (h *Handlers) UnsaveSearch(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	if !h.favs.UnsaveSearch(c.Request.Context(), uid, c.Param("id")) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "saved search removal failed")
		return
	}
	noContent(c)
}
