// Package memory holds process-local stores with the same behaviour as the
// MongoDB repositories. They back STORE_DRIVER=memory and the tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// Catalog keeps products in insertion order.
type Catalog struct {
	mu       sync.RWMutex
	products []models.Product
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

func (c *Catalog) indexOf(id bson.ObjectID) int {
	for i := range c.products {
		if c.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) codeTaken(code string, except bson.ObjectID) bool {
	for i := range c.products {
		if c.products[i].Code == code && c.products[i].ID != except {
			return true
		}
	}
	return false
}

func (c *Catalog) Insert(ctx context.Context, product *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	if c.codeTaken(product.Code, bson.NilObjectID) {
		return models.ErrDuplicateCode
	}
	c.products = append(c.products, clone(*product))
	return nil
}

func (c *Catalog) FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, models.ErrNotFound
	}
	p := clone(c.products[i])
	return &p, nil
}

func (c *Catalog) FindAll(ctx context.Context) ([]models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, clone(p))
	}
	return out, nil
}

// findMany returns the products among ids that exist.
func (c *Catalog) findMany(ids []bson.ObjectID) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Product
	for _, id := range ids {
		if i := c.indexOf(id); i >= 0 {
			out = append(out, clone(c.products[i]))
		}
	}
	return out
}

func (c *Catalog) Count(ctx context.Context, filter models.ProductFilter) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, p := range c.products {
		if filter.Matches(p) {
			n++
		}
	}
	return n, nil
}

func (c *Catalog) List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	c.mu.RLock()
	matched := make([]models.Product, 0)
	for _, p := range c.products {
		if q.Filter.Matches(p) {
			matched = append(matched, clone(p))
		}
	}
	c.mu.RUnlock()

	switch q.Sort {
	case models.SortPriceAsc:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price < matched[j].Price })
	case models.SortPriceDesc:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price > matched[j].Price })
	}

	total := int64(len(matched))
	start := q.Skip()
	if start >= total {
		return []models.Product{}, total, nil
	}
	end := start + int64(q.Limit)
	if end < start || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (c *Catalog) Update(ctx context.Context, id bson.ObjectID, update *models.ProductUpdate) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, models.ErrNotFound
	}
	if update.Code != nil && c.codeTaken(*update.Code, id) {
		return nil, models.ErrDuplicateCode
	}
	update.Apply(&c.products[i])
	p := clone(c.products[i])
	return &p, nil
}

func (c *Catalog) Delete(ctx context.Context, id bson.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return models.ErrNotFound
	}
	c.products = append(c.products[:i], c.products[i+1:]...)
	return nil
}

func (c *Catalog) CategorySummaries(ctx context.Context) ([]models.CategorySummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byCategory := map[string]*models.CategorySummary{}
	sums := map[string]float64{}
	for _, p := range c.products {
		s, ok := byCategory[p.Category]
		if !ok {
			s = &models.CategorySummary{Category: p.Category, MinPrice: p.Price, MaxPrice: p.Price}
			byCategory[p.Category] = s
		}
		s.Count++
		s.Stock += p.Stock
		sums[p.Category] += p.Price
		if p.Price < s.MinPrice {
			s.MinPrice = p.Price
		}
		if p.Price > s.MaxPrice {
			s.MaxPrice = p.Price
		}
	}

	out := make([]models.CategorySummary, 0, len(byCategory))
	for category, s := range byCategory {
		s.AvgPrice = roundCents(sums[category] / float64(s.Count))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func clone(p models.Product) models.Product {
	if p.Thumbnails != nil {
		p.Thumbnails = append([]string{}, p.Thumbnails...)
	}
	return p
}
