package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tbourn/go-ident-backend/internal/domain"
	"github.com/tbourn/go-ident-backend/internal/http/middleware"
	"github.com/tbourn/go-ident-backend/internal/lens"
	"github.com/tbourn/go-ident-backend/internal/repo"
	"github.com/tbourn/go-ident-backend/internal/services"
)

// Scripted pipeline collaborators.

type stubScraper struct{ img string }

func (s *stubScraper) ResolveImage(context.Context, string) (string, string, error) {
	return s.img, "og_meta", nil
}

type stubSearcher struct {
	calls int
}

func (s *stubSearcher) Search(context.Context, string) (string, error) {
	s.calls++
	return "Acme tote, leather, $129.50", nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string) (*lens.Extraction, error) {
	return &lens.Extraction{
		DetectedItems: []domain.DetectedItem{{Label: "handbag", Category: "bags", Confidence: 0.9}},
		SearchResults: []domain.SearchResult{
			{ProductID: "acme-tote", Name: "Tote", Brand: "Acme", Price: 129.5, Currency: "USD"},
		},
	}, nil
}

type fixture struct {
	engine   *gin.Engine
	store    *repo.Store
	searcher *stubSearcher
}

// newFixture wires the API group (identity, idempotency, handlers) against a
// throwaway store and scripted collaborators.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "handlers_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	store := repo.NewStore(db)

	cacheSvc := &services.CacheService{Store: store}
	resolverSvc := &services.ResolverService{Store: store}
	historySvc := &services.HistoryService{Store: store}
	favsSvc := &services.FavoritesService{Store: store}
	searcher := &stubSearcher{}
	identifySvc := &services.IdentifyService{
		Cache:     cacheSvc,
		Resolver:  resolverSvc,
		History:   historySvc,
		Scraper:   &stubScraper{img: "https://cdn.example.com/resolved.jpg"},
		Searcher:  searcher,
		Extractor: stubExtractor{},
	}
	h := New(identifySvc, historySvc, favsSvc, resolverSvc, store, time.Hour)

	r := gin.New()
	api := r.Group("")
	api.Use(middleware.RequestID(), middleware.RequireUser())
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, store.DB, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		}))
	{
		api.POST("/identify", h.Identify)
		api.POST("/resolve", h.Resolve)
		api.GET("/history", h.ListHistory)
		api.POST("/favorites", h.AddFavorite)
		api.GET("/favorites", h.ListFavorites)
		api.DELETE("/favorites/:id", h.RemoveFavorite)
		api.POST("/favorites/check", h.CheckFavorites)
		api.POST("/saved-searches", h.SaveSearch)
		api.GET("/saved-searches", h.ListSavedSearches)
		api.DELETE("/saved-searches/:id", h.UnsaveSearch)
	}
	return &fixture{engine: r, store: store, searcher: searcher}
}

// do sends a JSON request as the given user and returns the recorder.
func (f *fixture) do(t *testing.T, method, path, user string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, user)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// decode unmarshals a recorder body into a map.
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}
