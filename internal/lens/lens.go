// Package lens wraps the paid third-party collaborators of the
// identification pipeline: source-URL scraping, visual search, and AI
// extraction. The rest of the application depends only on the small
// interfaces defined here; the concrete clients are thin I/O wrappers.
package lens

import (
	"context"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// Extraction is the structured output of the AI extraction step.
type Extraction struct {
	DetectedItems []domain.DetectedItem `json:"detected_items"`
	SearchResults []domain.SearchResult `json:"search_results"`
}

// Resolver turns a social-media post URL into a direct image URL.
type Resolver interface {
	// ResolveImage returns the direct image URL found in the post and a
	// provenance tag naming the extraction method used.
	ResolveImage(ctx context.Context, postURL string) (imageURL, method string, err error)
}

// Searcher runs a visual search over an image and returns the raw
// descriptive text the search engine produced.
type Searcher interface {
	Search(ctx context.Context, imageURL string) (string, error)
}

// Extractor turns raw visual-search text into structured identification
// records.
type Extractor interface {
	Extract(ctx context.Context, rawText string) (*Extraction, error)
}
