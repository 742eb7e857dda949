package memory

import (
	"context"
	"math"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// Carts resolves references against the Catalog it was built with.
type Carts struct {
	mu      sync.RWMutex
	carts   map[bson.ObjectID]*models.Cart
	catalog *Catalog
}

func NewCarts(catalog *Catalog) *Carts {
	return &Carts{
		carts:   make(map[bson.ObjectID]*models.Cart),
		catalog: catalog,
	}
}

func (s *Carts) Create(ctx context.Context) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := models.NewCart()
	s.carts[cart.ID] = cart
	return cloneCart(cart), nil
}

func (s *Carts) FindByID(ctx context.Context, id bson.ObjectID) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneCart(cart), nil
}

func (s *Carts) FindPopulated(ctx context.Context, id bson.ObjectID) (*models.PopulatedCart, error) {
	cart, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]bson.ObjectID, 0, len(cart.Products))
	for _, item := range cart.Products {
		ids = append(ids, item.Product)
	}
	populated := models.Populate(*cart, s.catalog.findMany(ids))
	return &populated, nil
}

func (s *Carts) AddProduct(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
	return s.mutate(cartID, func(cart *models.Cart) error {
		cart.AddOne(productID)
		return nil
	})
}

func (s *Carts) ReplaceProducts(ctx context.Context, cartID bson.ObjectID, items []models.CartItem) (*models.Cart, error) {
	return s.mutate(cartID, func(cart *models.Cart) error {
		cart.Products = append([]models.CartItem{}, items...)
		return nil
	})
}

func (s *Carts) SetQuantity(ctx context.Context, cartID, productID bson.ObjectID, quantity int) (*models.Cart, error) {
	return s.mutate(cartID, func(cart *models.Cart) error {
		if !cart.SetQuantity(productID, quantity) {
			return models.ErrNotInCart
		}
		return nil
	})
}

func (s *Carts) RemoveProduct(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
	return s.mutate(cartID, func(cart *models.Cart) error {
		if !cart.Remove(productID) {
			return models.ErrNotInCart
		}
		return nil
	})
}

func (s *Carts) Empty(ctx context.Context, cartID bson.ObjectID) (*models.Cart, error) {
	return s.ReplaceProducts(ctx, cartID, nil)
}

// mutate applies fn to a copy and stores it only when fn succeeds, so a
// failed operation leaves the cart as it was.
func (s *Carts) mutate(cartID bson.ObjectID, fn func(*models.Cart) error) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.carts[cartID]
	if !ok {
		return nil, models.ErrNotFound
	}
	next := cloneCart(current)
	if err := fn(next); err != nil {
		return nil, err
	}
	s.carts[cartID] = next
	return cloneCart(next), nil
}

func cloneCart(c *models.Cart) *models.Cart {
	out := &models.Cart{ID: c.ID, Products: make([]models.CartItem, len(c.Products))}
	copy(out.Products, c.Products)
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
