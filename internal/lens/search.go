// Visual-search client.
//
// Calls a hosted visual-search API (SearchAPI.io style) with the image
// URL and a fixed identification prompt, and returns the raw text the
// engine produced. The caller feeds that text to the Extractor.
package lens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultSearchBaseURL = "https://www.searchapi.io/api/v1/search"

const searchQuery = "What product is shown in this image? Identify the item, " +
	"brand, category, and material, and list comparable products with " +
	"current prices and where they can be purchased. Note whether the item " +
	"appears to be an original brand product or a replica."

// SearchAPIClient implements Searcher against a remote search engine.
type SearchAPIClient struct {
	// APIKey authenticates every request.
	APIKey string
	// Engine selects the search mode (default "google_ai_mode").
	Engine string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// HTTPClient defaults to a 30s-timeout client.
	HTTPClient *http.Client
}

func (c *SearchAPIClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// searchResponse mirrors the fields of the API answer we consume: a
// consolidated markdown field when present, otherwise raw text blocks.
type searchResponse struct {
	Markdown   string        `json:"markdown"`
	TextBlocks []searchBlock `json:"text_blocks"`
	AIOverview struct {
		Blocks []searchBlock `json:"blocks"`
	} `json:"ai_overview"`
}

type searchBlock struct {
	Answer string `json:"answer"`
	Text   string `json:"text"`
}

// Search runs the visual search and returns the engine's raw text.
// An empty result is returned as an error so callers treat it as a
// failed (not merely silent) collaborator call.
func (c *SearchAPIClient) Search(ctx context.Context, imageURL string) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultSearchBaseURL
	}
	engine := c.Engine
	if engine == "" {
		engine = "google_ai_mode"
	}

	params := url.Values{}
	params.Set("engine", engine)
	params.Set("api_key", c.APIKey)
	params.Set("q", searchQuery)
	params.Set("url", imageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("visual search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("visual search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("visual search decode: %w", err)
	}

	raw := strings.TrimSpace(parsed.Markdown)
	if raw == "" {
		blocks := parsed.TextBlocks
		if len(blocks) == 0 {
			blocks = parsed.AIOverview.Blocks
		}
		var parts []string
		for _, b := range blocks {
			if t := firstNonEmpty(b.Answer, b.Text); t != "" {
				parts = append(parts, t)
			}
		}
		raw = strings.TrimSpace(strings.Join(parts, "\n"))
	}
	if raw == "" {
		return "", fmt.Errorf("visual search returned no text")
	}
	return raw, nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
