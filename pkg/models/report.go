package models

import "time"

// CategorySummary aggregates the catalog per category.
type CategorySummary struct {
	Category string  `json:"category" bson:"_id"`
	Count    int     `json:"count" bson:"count"`
	Stock    int     `json:"stock" bson:"stock"`
	AvgPrice float64 `json:"avg_price" bson:"avg_price"`
	MinPrice float64 `json:"min_price" bson:"min_price"`
	MaxPrice float64 `json:"max_price" bson:"max_price"`
}

// CatalogReport is the analytics response. Narrative is only set when a
// language model is configured.
type CatalogReport struct {
	Categories    []CategorySummary `json:"categories"`
	TotalProducts int               `json:"total_products"`
	TotalStock    int               `json:"total_stock"`
	Narrative     string            `json:"narrative,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

func NewCatalogReport(categories []CategorySummary) *CatalogReport {
	if categories == nil {
		categories = []CategorySummary{}
	}
	report := &CatalogReport{Categories: categories, GeneratedAt: time.Now().UTC()}
	for _, c := range categories {
		report.TotalProducts += c.Count
		report.TotalStock += c.Stock
	}
	return report
}
