package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// CartItem is a weak reference to a product plus a quantity.
type CartItem struct {
	Product  bson.ObjectID `json:"product" bson:"product"`
	Quantity int           `json:"quantity" bson:"quantity"`
}

// Cart is the stored form: ids and quantities only.
type Cart struct {
	ID       bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Products []CartItem    `json:"products" bson:"products"`
}

func NewCart() *Cart {
	return &Cart{ID: bson.NewObjectID(), Products: []CartItem{}}
}

func (c *Cart) indexOf(productID bson.ObjectID) int {
	for i, item := range c.Products {
		if item.Product == productID {
			return i
		}
	}
	return -1
}

// AddOne increments the entry for productID or appends it with quantity 1.
func (c *Cart) AddOne(productID bson.ObjectID) {
	if i := c.indexOf(productID); i >= 0 {
		c.Products[i].Quantity++
		return
	}
	c.Products = append(c.Products, CartItem{Product: productID, Quantity: 1})
}

func (c *Cart) SetQuantity(productID bson.ObjectID, quantity int) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Products[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(productID bson.ObjectID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Products = append(c.Products[:i], c.Products[i+1:]...)
	return true
}

// CheckItems rejects a replacement list that names a product twice or holds
// a quantity below one.
func CheckItems(items []CartItem) error {
	seen := make(map[bson.ObjectID]struct{}, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: quantity for product %s must be a positive integer", ErrInvalidItems, item.Product.Hex())
		}
		if _, dup := seen[item.Product]; dup {
			return fmt.Errorf("%w: product %s appears more than once", ErrInvalidItems, item.Product.Hex())
		}
		seen[item.Product] = struct{}{}
	}
	return nil
}

// CartItemRequest is one entry of a wholesale cart replacement.
type CartItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type CartProductsRequest struct {
	Products []CartItemRequest `json:"products"`
}

type QuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type PopulatedItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// PopulatedCart is a cart with every reference resolved against the catalog
// at read time. Entries whose product no longer exists are left out of
// Products and reported in Unresolved.
type PopulatedCart struct {
	ID         bson.ObjectID   `json:"_id"`
	Products   []PopulatedItem `json:"products"`
	Unresolved []bson.ObjectID `json:"unresolved"`
	Total      string          `json:"total"`
}

// Populate joins cart against the products found for its references,
// keeping the cart's entry order.
func Populate(cart Cart, found []Product) PopulatedCart {
	byID := make(map[bson.ObjectID]Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := PopulatedCart{
		ID:         cart.ID,
		Products:   []PopulatedItem{},
		Unresolved: []bson.ObjectID{},
	}
	total := decimal.Zero
	for _, item := range cart.Products {
		p, ok := byID[item.Product]
		if !ok {
			out.Unresolved = append(out.Unresolved, item.Product)
			continue
		}
		out.Products = append(out.Products, PopulatedItem{Product: p, Quantity: item.Quantity})
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	out.Total = total.StringFixed(2)
	return out
}
