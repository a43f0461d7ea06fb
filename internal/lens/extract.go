// AI extraction client.
//
// Sends the visual-search text to a chat-completion model in JSON mode
// and parses the reply into structured records. Models occasionally
// wrap the JSON in markdown fences despite the instruction, and
// occasionally emit malformed JSON; both cases are handled here (fence
// stripping, then one retry with a stricter prompt).
package lens

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const extractMaxTokens = 1024

const extractPrompt = `You are a product identification expert. Extract structured data from the source text below, then return ONLY valid JSON with these exact keys (no extra keys, no markdown fences):

detected_items: array of {label, category, description, confidence}
search_results: array of {product_id, name, brand, price, currency, image_url, purchase_url, category}

Rules:
- confidence is a number in [0,1].
- price is a number; omit it when the text has no pricing.
- product_id: derive a stable slug from brand and name when the text has no identifier.
- Use empty arrays when nothing can be determined.

Source text:
%s`

const strictExtractPrompt = `The following text describes products in an image. Return ONLY a valid JSON object with keys detected_items and search_results as specified — no markdown, no explanation, no extra keys. detected_items: array of {label, category, description, confidence}. search_results: array of {product_id, name, brand, price, currency, image_url, purchase_url, category}. Use empty arrays when nothing can be determined.

Source text:
%s`

// chatCompleter is the slice of the OpenAI client the extractor uses;
// narrowed for tests.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIExtractor implements Extractor on a chat-completion API.
type OpenAIExtractor struct {
	Client chatCompleter
	Model  string
}

// NewOpenAIExtractor builds an extractor from an API key.
func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	return &OpenAIExtractor{Client: openai.NewClient(apiKey), Model: model}
}

// Extract parses rawText into structured records, retrying once with a
// stricter prompt when the first reply is not valid JSON.
func (e *OpenAIExtractor) Extract(ctx context.Context, rawText string) (*Extraction, error) {
	out, err := e.once(ctx, fmt.Sprintf(extractPrompt, rawText))
	if err == nil {
		return out, nil
	}
	out, rerr := e.once(ctx, fmt.Sprintf(strictExtractPrompt, rawText))
	if rerr != nil {
		return nil, fmt.Errorf("extraction failed after strict retry: %w", rerr)
	}
	return out, nil
}

func (e *OpenAIExtractor) once(ctx context.Context, prompt string) (*Extraction, error) {
	model := e.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	resp, err := e.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: extractMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	text := StripJSONFences(resp.Choices[0].Message.Content)
	var out Extraction
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse extraction json: %w", err)
	}
	return &out, nil
}

// StripJSONFences removes a surrounding markdown code fence (``` or
// ```json) from a model reply, returning the inner text trimmed.
func StripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && strings.EqualFold(strings.TrimSpace(s[:idx]), "json") {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
