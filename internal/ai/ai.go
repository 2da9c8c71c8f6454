package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const (
	DefaultModel     = "gemini-1.5-flash"
	searchToolName   = "search_products"
	maxToolResults   = 10
	maxToolRoundTrip = 5
)

// Catalog is the read-only product query the assistant is allowed to run.
type Catalog interface {
	ListProducts(ctx context.Context, f models.ProductFilter) ([]*models.Product, int, error)
}

// Reply is the assistant's answer and the tokens it consumed.
type Reply struct {
	Message    string `json:"reply"`
	TokensUsed int    `json:"tokensUsed"`
}

// Assistant answers shopping questions with Gemini, grounded on the catalog
// through a single search tool.
type Assistant struct {
	client  *genai.Client
	catalog Catalog
	model   string
	log     zerolog.Logger
}

// NewAssistant initializes the Gemini client.
func NewAssistant(ctx context.Context, apiKey, model string, catalog Catalog, log zerolog.Logger) (*Assistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{client: client, catalog: catalog, model: model, log: log}, nil
}

func (a *Assistant) Close() error {
	return a.client.Close()
}

func searchTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        searchToolName,
				Description: "Searches the store catalog. Returns up to 10 in-stock or out-of-stock products with price and rating.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"search": {
							Type:        genai.TypeString,
							Description: "Free text matched against product name and description.",
						},
						"category": {
							Type:        genai.TypeString,
							Description: "Exact category name, optional.",
						},
						"maxPrice": {
							Type:        genai.TypeNumber,
							Description: "Upper price bound, optional.",
						},
					},
				},
			},
		},
	}
}

const systemPrompt = `You are the storefront shopping assistant.
Use search_products to look up real products before recommending anything.
Never invent products, prices or stock. Quote prices with two decimals.
If nothing matches, say so and suggest a broader search. Be concise.`

// Chat sends one user message and resolves tool calls until the model answers
// with text.
func (a *Assistant) Chat(ctx context.Context, message string) (Reply, error) {
	model := a.client.GenerativeModel(a.model)
	model.Tools = []*genai.Tool{searchTool()}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return Reply{}, fmt.Errorf("error sending message: %w", err)
	}

	tokens := usage(res, 0)
	for round := 0; ; round++ {
		if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
			return Reply{Message: "No response.", TokensUsed: tokens}, nil
		}

		calls := res.Candidates[0].FunctionCalls()
		if len(calls) == 0 {
			return Reply{Message: textOf(res.Candidates[0].Content), TokensUsed: tokens}, nil
		}
		if round >= maxToolRoundTrip {
			return Reply{}, errors.New("assistant exceeded tool call limit")
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.callTool(ctx, call),
			})
		}
		res, err = cs.SendMessage(ctx, parts...)
		if err != nil {
			return Reply{}, fmt.Errorf("tool response error: %w", err)
		}
		tokens = usage(res, tokens)
	}
}

// usage keeps the latest cumulative token count reported by the API.
func usage(res *genai.GenerateContentResponse, prev int) int {
	if res.UsageMetadata == nil {
		return prev
	}
	return int(res.UsageMetadata.TotalTokenCount)
}

func textOf(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

func (a *Assistant) callTool(ctx context.Context, call genai.FunctionCall) map[string]any {
	if call.Name != searchToolName {
		return map[string]any{"error": fmt.Sprintf("unknown function: %s", call.Name)}
	}

	f := searchFilter(call.Args)
	a.log.Debug().Str("search", f.Search).Str("category", f.Category).Msg("assistant catalog search")

	products, total, err := a.catalog.ListProducts(ctx, f)
	if err != nil {
		a.log.Error().Err(err).Msg("assistant catalog search failed")
		return map[string]any{"error": "catalog search failed"}
	}
	return map[string]any{"total": total, "products": summarize(products)}
}

// searchFilter turns model-provided arguments into a catalog filter. Unknown
// or mistyped arguments are ignored.
func searchFilter(args map[string]any) models.ProductFilter {
	f := models.ProductFilter{
		SortBy:    models.SortByRating,
		SortOrder: "desc",
		Limit:     maxToolResults,
	}
	if s, ok := args["search"].(string); ok {
		f.Search = strings.TrimSpace(s)
	}
	if c, ok := args["category"].(string); ok {
		f.Category = strings.TrimSpace(c)
	}
	if p, ok := args["maxPrice"].(float64); ok && p > 0 {
		f.MaxPrice = &p
	}
	return f
}

func summarize(products []*models.Product) []map[string]any {
	out := make([]map[string]any, 0, len(products))
	for _, p := range products {
		out = append(out, map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"category": p.Category,
			"price":    p.Price,
			"inStock":  p.Stock > 0,
			"rating":   p.AverageRating,
			"reviews":  p.TotalReviews,
		})
	}
	return out
}
