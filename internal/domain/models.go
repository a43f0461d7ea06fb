// Package domain defines the persistence models for the image analysis
// cache, source-URL resolution cache, per-user search history, favorites,
// and saved searches. These types are mapped with GORM and form the core
// data layer of the identification backend.
package domain

import (
	"time"
)

// DetectedItem is a single structured record produced by the AI extraction
// step: one recognized object within the submitted image.
type DetectedItem struct {
	Label       string  `json:"label"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// SearchResult is a single structured record produced by the visual-search
// step: a candidate product match with market data.
type SearchResult struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	PurchaseURL string  `json:"purchase_url,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// AnalysisCache is one cached analysis run for a specific image in a
// specific country. Results are partitioned per country because prices
// and availability differ by locale; cross-country reuse is disallowed.
//
// At least one of ImageURL/ImageHash must be set. Entries are never
// deleted: expiry is logical, enforced by comparing ExpiresAt at read
// time. The only post-insert mutation is the HitCount increment.
type AnalysisCache struct {
	ID                string         `json:"id"                  gorm:"type:char(36);primaryKey"`
	ImageURL          string         `json:"image_url,omitempty" gorm:"type:text;index:idx_cache_url_country,priority:1"`
	ImageHash         string         `json:"image_hash,omitempty" gorm:"type:varchar(128);index:idx_cache_hash_country,priority:1"`
	Country           string         `json:"country"             gorm:"type:varchar(2);not null;default:'US';index:idx_cache_url_country,priority:2;index:idx_cache_hash_country,priority:2"`
	ProcessedImageURL string         `json:"processed_image_url" gorm:"type:text"`
	DetectedItems     []DetectedItem `json:"detected_items"      gorm:"serializer:json"`
	SearchResults     []SearchResult `json:"search_results"      gorm:"serializer:json"`
	ResultCount       int            `json:"result_count"        gorm:"not null;default:0"`
	ExpiresAt         time.Time      `json:"expires_at"          gorm:"not null;index"`
	HitCount          int64          `json:"hit_count"           gorm:"not null;default:0"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// TableName returns the database table name for AnalysisCache.
func (AnalysisCache) TableName() string { return "analysis_cache" }

// Live reports whether the entry has not yet logically expired at the
// given instant.
func (a *AnalysisCache) Live(now time.Time) bool { return a.ExpiresAt.After(now) }

// SourceURLCache maps an original social-media post URL to the direct
// image URL that was scraped out of it, so a repeat share of the same
// post skips the scraping step entirely.
//
// NormalizedURL (scheme://host/path, volatile query params stripped) is
// the stable cache key. It should be unique among rows; deployments
// missing that constraint are handled by a read-then-write fallback in
// the repository, so the index here is intentionally non-unique to match
// the weakest schema in the wild.
type SourceURLCache struct {
	ID               string    `json:"id"                gorm:"type:char(36);primaryKey"`
	OriginalURL      string    `json:"original_url"      gorm:"type:text;not null;index"`
	NormalizedURL    string    `json:"normalized_url"    gorm:"type:text;not null;index"`
	ResolvedImageURL string    `json:"resolved_image_url" gorm:"type:text;not null"`
	ExtractionMethod string    `json:"extraction_method" gorm:"type:varchar(64);not null;default:'scraper'"`
	AccessCount      int64     `json:"access_count"      gorm:"not null;default:1"`
	LastAccessedAt   time.Time `json:"last_accessed_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for SourceURLCache.
func (SourceURLCache) TableName() string { return "source_url_cache" }

// UserSearch is one entry in a user's search history. It references a
// shared AnalysisCache row rather than owning a copy of the results.
//
// History behaves as a recency-ordered set: at most one logical row per
// (user_id, analysis_cache_id), with repeat searches refreshing
// CreatedAt instead of inserting duplicates.
type UserSearch struct {
	ID              string    `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id"           gorm:"type:varchar(64);not null;index:idx_user_cache,priority:1"`
	AnalysisCacheID string    `json:"analysis_cache_id" gorm:"type:char(36);not null;index:idx_user_cache,priority:2"`
	SearchType      string    `json:"search_type"       gorm:"type:varchar(32);not null"`
	SourceURL       string    `json:"source_url,omitempty"      gorm:"type:text;index"`
	SourceUsername  string    `json:"source_username,omitempty" gorm:"type:varchar(128)"`
	CreatedAt       time.Time `json:"created_at"        gorm:"index"`

	// Cache is the shared analysis entry this search points at.
	Cache AnalysisCache `json:"-" gorm:"foreignKey:AnalysisCacheID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserSearch.
func (UserSearch) TableName() string { return "user_searches" }

// Favorite is a product a user bookmarked from a result list. Display
// fields are denormalized so the favorites screen renders without
// touching the cache tables. A user can favorite a product only once
// (enforced by unique index).
type Favorite struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);not null;index;uniqueIndex:ux_fav_user_product"`
	ProductID   string    `json:"product_id"   gorm:"type:varchar(128);not null;uniqueIndex:ux_fav_user_product"`
	ProductName string    `json:"product_name" gorm:"type:varchar(255);not null"`
	Brand       string    `json:"brand"        gorm:"type:varchar(128)"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url"    gorm:"type:text"`
	PurchaseURL string    `json:"purchase_url,omitempty" gorm:"type:text"`
	Category    string    `json:"category"     gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "user_favorites" }

// SavedSearch pins an entire history entry so it survives scrolling out
// of the recency window. Unique per (user_id, search_id).
type SavedSearch struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"   gorm:"type:varchar(64);not null;index;uniqueIndex:ux_saved_user_search"`
	SearchID  string    `json:"search_id" gorm:"type:char(36);not null;uniqueIndex:ux_saved_user_search"`
	Name      string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`

	// Search is the pinned history entry.
	Search UserSearch `json:"-" gorm:"foreignKey:SearchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SavedSearch.
func (SavedSearch) TableName() string { return "user_saved_searches" }
