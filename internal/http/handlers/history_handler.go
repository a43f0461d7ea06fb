// Search history HTTP handlers.
//
// This file exposes the read side of the per-user history:
//   - GET /history  (paginated, newest first, joined with cached results)
//
// History pages carry a weak ETag derived from the user's row count and
// latest activity timestamp, so polling clients revalidate with 304s instead
// of re-downloading result payloads.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ident-backend/internal/http/middleware"
	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/utils"
)

// HistoryResponse is the body returned by GET /history.
type HistoryResponse struct {
	Items  []repo.HistoryRow `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ListHistory returns a page of the user's search history, newest first.
// Query parameters: limit (default 20, max 100) and offset (default 0).
func (h *Handlers) ListHistory(c *gin.Context) {
	uid := middleware.UserIDFrom(c)
	limit := intQuery(c, "limit", 20, 100)
	offset := intQuery(c, "offset", 0, 1<<30)

	etag := h.historyETag(c, uid)
	if etag != "" {
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Header("ETag", etag)
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
	}

	items := h.history.List(c.Request.Context(), uid, limit, offset)

	var total int64
	if h.store.Enabled() {
		if n, _, err := repo.HistoryStats(c.Request.Context(), h.store.DB, uid); err == nil {
			total = n
		}
	}

	ok(c, http.StatusOK, HistoryResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

// historyETag derives a weak validator from the user's history stats.
// Returns "" when the store is unavailable, disabling conditional handling.
func (h *Handlers) historyETag(c *gin.Context, uid string) string {
	if !h.store.Enabled() {
		return ""
	}
	count, latest, err := repo.HistoryStats(c.Request.Context(), h.store.DB, uid)
	if err != nil {
		return ""
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf(`W/"h-%d-%d"`, count, ts)
}

// intQuery parses a non-negative integer query parameter with a default and
// an upper bound. Malformed or negative values fall back to the default.
func intQuery(c *gin.Context, name string, def, max int) int {
	return utils.BoundedAtoi(c.Query(name), def, max)
}
