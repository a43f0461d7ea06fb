// Identification HTTP handlers.
//
// This file exposes the endpoints that run or shortcut the identification
// pipeline:
//   - POST /identify  (identify products in an image or social post)
//   - POST /resolve   (resolve a social post URL from the resolution cache)
//
// Handlers are transport-thin: they validate input, delegate to the
// IdentifyService, and translate service errors into HTTP results. POST
// /identify honors the Idempotency-Key header: a replayed key returns the
// originally persisted result without re-running the paid pipeline.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ident-backend/internal/http/middleware"
	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/services"
)

// Handlers groups the HTTP endpoints for identification, history, favorites,
// and saved searches. It depends on the service layer to keep transport
// concerns separate from business logic; the store handle is used only for
// idempotency records.
type Handlers struct {
	identify *services.IdentifyService
	history  *services.HistoryService
	favs     *services.FavoritesService
	resolver *services.ResolverService
	store    *repo.Store
	idemTTL  time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(identify *services.IdentifyService, history *services.HistoryService, favs *services.FavoritesService, resolver *services.ResolverService, store *repo.Store, idemTTL time.Duration) *Handlers {
	return &Handlers{
		identify: identify,
		history:  history,
		favs:     favs,
		resolver: resolver,
		store:    store,
		idemTTL:  idemTTL,
	}
}

// IdentifyRequest is the JSON payload for POST /identify. At least one of
// ImageURL or SourceURL must be set.
type IdentifyRequest struct {
	ImageURL       string `json:"image_url,omitempty"`
	ImageHash      string `json:"image_hash,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	SourceUsername string `json:"source_username,omitempty"`
	SearchType     string `json:"search_type,omitempty"`
	Country        string `json:"country,omitempty"`
}

// Identify runs the identification pipeline for the request.
//
// Responses:
//   - 200 with the identification result (cached=true when served from the
//     analysis cache or an idempotent replay)
//   - 400 for an unusable payload, 422 when neither input yields an image
//   - 502 when an upstream collaborator (search, extraction, scrape) fails
func (h *Handlers) Identify(c *gin.Context) {
	var req IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	uid := middleware.UserIDFrom(c)

	// Serve a stored result when this is a retry of a completed request.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && middleware.IsReplay(c) {
		if res := h.replay(c, uid, key); res != nil {
			ok(c, http.StatusOK, res)
			return
		}
		// Stored record disappeared between lookup and read; fall
		// through and run the pipeline again.
	}

	res, err := h.identify.Identify(c.Request.Context(), services.IdentifyInput{
		UserID:         uid,
		ImageURL:       req.ImageURL,
		ImageHash:      req.ImageHash,
		SourceURL:      req.SourceURL,
		SourceUsername: req.SourceUsername,
		SearchType:     req.SearchType,
		Country:        req.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoImage):
			fail(c, http.StatusBadRequest, ErrCodeNoImage, "request carries no image url or source url")
		case errors.Is(err, services.ErrResolveFailed):
			fail(c, http.StatusUnprocessableEntity, ErrCodeResolveFailed, "source url could not be resolved to an image")
		case errors.Is(err, services.ErrSearchFailed):
			fail(c, http.StatusBadGateway, ErrCodeSearchFailed, "visual search failed")
		case errors.Is(err, services.ErrExtractFailed):
			fail(c, http.StatusBadGateway, ErrCodeExtractFailed, "result extraction failed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Persist the idempotency record so retries replay this result.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && h.store.Enabled() && res.Entry.ID != "" {
		if _, err := repo.CreateIdempotency(c.Request.Context(), h.store.DB, uid, key, res.Entry.ID, http.StatusOK, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record store failed")
		}
	}

	middleware.ObserveCacheLookup("image", res.Cached)
	ok(c, http.StatusOK, res)
}

// replay loads the persisted result for a known (user, key) pair. Returns nil
// when the record or its cache entry cannot be read.
func (h *Handlers) replay(c *gin.Context, uid, key string) *services.IdentifyResult {
	if !h.store.Enabled() {
		return nil
	}
	rec, err := repo.GetIdempotency(c.Request.Context(), h.store.DB, uid, key, time.Now().UTC())
	if err != nil {
		return nil
	}
	entry, err := repo.GetAnalysis(c.Request.Context(), h.store.DB, rec.AnalysisCacheID)
	if err != nil {
		return nil
	}
	middleware.LoggerFrom(c).Info().Str("idempotency_key", key).Msg("serving idempotent replay")
	return &services.IdentifyResult{Entry: entry, Cached: true}
}

// ResolveRequest is the JSON payload for POST /resolve.
type ResolveRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
}

// ResolveResponse is the body returned by POST /resolve on a hit.
type ResolveResponse struct {
	ImageURL string `json:"image_url"`
}

// Resolve answers a source-URL resolution from the cache only; it never
// scrapes. Clients use it to pre-check a share before uploading. Misses
// return 404.
func (h *Handlers) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "source_url is required")
		return
	}

	img := h.resolver.Resolve(c.Request.Context(), req.SourceURL)
	middleware.ObserveCacheLookup("source", img != "")
	if img == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no cached resolution for source url")
		return
	}
	ok(c, http.StatusOK, ResolveResponse{ImageURL: img})
}
