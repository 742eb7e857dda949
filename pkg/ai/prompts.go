package ai

import (
	"context"
	"fmt"
	"strings"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

const CatalogReportSystemPrompt = `You are a merchandising analyst for an online store.
You receive per-category catalog figures: product count, units in stock, and
average, minimum and maximum price. Point out categories that are thin on stock
or unusually priced and suggest where to focus restocking.
Answer in at most two short paragraphs of plain text.`

func formatCatalogPrompt(categories []models.CategorySummary) string {
	var b strings.Builder
	b.WriteString("Catalog by category:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %d products, %d in stock, price avg %.2f (min %.2f, max %.2f)\n",
			c.Category, c.Count, c.Stock, c.AvgPrice, c.MinPrice, c.MaxPrice)
	}
	return b.String()
}

// GenerateCatalogReport writes a short narrative for the category figures.
func (c *Client) GenerateCatalogReport(ctx context.Context, categories []models.CategorySummary) (string, error) {
	if len(categories) == 0 {
		return "", &Error{Message: "no catalog data to describe"}
	}
	return c.complete(ctx, CatalogReportSystemPrompt, formatCatalogPrompt(categories))
}
