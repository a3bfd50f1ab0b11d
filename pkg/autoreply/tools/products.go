package tools

import (
	"context"
	"fmt"
)

const (
	// maxProductResults caps how many products one search returns.
	maxProductResults = 5

	// maxVariantSummaries caps how many variants are reported per product.
	maxVariantSummaries = 10
)

// NewProductSearchTool builds the product-search tool. The keyword is
// required; matches run against title, description, short description, and
// SKU. Long descriptions are windowed around the first keyword hit. An empty
// result is a named error so the LLM can tell the user nothing was found.
func NewProductSearchTool(products ProductStore) *Tool {
	return &Tool{
		Name:        "product_info",
		Description: "Search the product catalog by keyword. Returns matching products with price, stock, categories, tags, and variants.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keyword": map[string]any{
					"type":        "string",
					"description": "Search term matched against product title, description, and SKU.",
				},
			},
			"required": []string{"keyword"},
		},
		Validate: func(args map[string]any) error {
			if stringArg(args, "keyword") == "" {
				return fmt.Errorf("keyword is required")
			}
			return nil
		},
		Handler: func(ctx context.Context, args map[string]any, call CallContext) (any, error) {
			keyword := stringArg(args, "keyword")

			list, err := products.SearchProducts(ctx, keyword, maxProductResults)
			if err != nil {
				return nil, fmt.Errorf("searching products: %w", err)
			}
			if len(list) == 0 {
				return nil, fmt.Errorf("%w: no products match %q", ErrNoResults, keyword)
			}

			for i := range list {
				list[i].Description = snippet(list[i].Description, keyword)
				if len(list[i].Variants) > maxVariantSummaries {
					list[i].Variants = list[i].Variants[:maxVariantSummaries]
				}
			}

			return map[string]any{
				"success":  true,
				"products": list,
				"total":    len(list),
			}, nil
		},
	}
}
