// Package enrich suggests categories for uncategorized ledger transactions
// using a generative model. Suggestions are advisory: they are returned to
// the caller and never written back to the ledger.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/nlozovan/bankfeed/internal/ledger"
)

// DefaultModelName is the default Gemini model used for suggestions.
const DefaultModelName = "gemini-2.5-flash"

// Suggestion pairs a transaction with a proposed category slug. Category is
// nil when the model declined to pick one.
type Suggestion struct {
	TransactionID string  `json:"id"`
	Category      *string `json:"category"`
}

// Suggester proposes categories for a batch of transactions against a team
// taxonomy. The interface enables mocking the model in tests.
type Suggester interface {
	Suggest(ctx context.Context, txs []ledger.Transaction, categories []ledger.Category) ([]Suggestion, error)
}

// GeminiSuggester is the concrete Suggester backed by Gemini.
type GeminiSuggester struct {
	model string
}

// NewGeminiSuggester creates a suggester for the given model name; an empty
// name selects the default.
func NewGeminiSuggester(model string) *GeminiSuggester {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiSuggester{model: model}
}

// Suggest sends the batch to the model and returns validated suggestions.
// Slugs outside the taxonomy are nulled out rather than passed through.
func (g *GeminiSuggester) Suggest(ctx context.Context, txs []ledger.Transaction, categories []ledger.Category) ([]Suggestion, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	catPrompt, err := buildCategoryPrompt(categories)
	if err != nil {
		return nil, fmt.Errorf("Suggest: %w", err)
	}
	prompt := buildSuggestionPrompt(txs, catPrompt)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Suggest: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Suggest: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Suggest: empty response from model")
	}

	return parseSuggestions(rawText, categories)
}

// parseSuggestions decodes the model output and validates every slug
// against the taxonomy.
func parseSuggestions(raw string, categories []ledger.Category) ([]Suggestion, error) {
	clean := cleanModelJSON(raw)

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(clean), &suggestions); err != nil {
		return nil, fmt.Errorf("parseSuggestions: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	valid := make(map[string]bool, len(categories))
	for _, c := range categories {
		valid[c.Slug] = true
	}

	for i := range suggestions {
		if suggestions[i].Category != nil && !valid[*suggestions[i].Category] {
			suggestions[i].Category = nil
		}
	}
	return suggestions, nil
}
