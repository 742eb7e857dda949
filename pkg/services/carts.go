package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

const cartNotFound = "cart not found"

// CartService is a thin layer over CartStore. It does not check that the
// products it is given exist; see CartWorkflow.
type CartService struct {
	store CartStore
}

func NewCartService(store CartStore) *CartService {
	return &CartService{store: store}
}

func parseIDs(cid, pid string) (bson.ObjectID, bson.ObjectID, *Failure) {
	cartID, err := bson.ObjectIDFromHex(cid)
	if err != nil {
		return bson.NilObjectID, bson.NilObjectID, &Failure{Kind: NotFound, Message: cartNotFound}
	}
	if pid == "" {
		return cartID, bson.NilObjectID, nil
	}
	productID, err := bson.ObjectIDFromHex(pid)
	if err != nil {
		return cartID, bson.NilObjectID, &Failure{Kind: NotFound, Message: productNotFound}
	}
	return cartID, productID, nil
}

func (s *CartService) AddCart(ctx context.Context) Result[*models.Cart] {
	ctx, span := tracer.Start(ctx, "CartService.AddCart")
	defer span.End()

	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cart, err := s.store.Create(ctx)
	if err != nil {
		f := classify(err, cartNotFound)
		record(span, f)
		return FailWith[*models.Cart](f)
	}
	return Ok(cart)
}

// GetCartByID returns the cart with its references resolved against the
// current catalog.
func (s *CartService) GetCartByID(ctx context.Context, cid string) Result[*models.PopulatedCart] {
	ctx, span := tracer.Start(ctx, "CartService.GetCartByID")
	defer span.End()

	cartID, _, f := parseIDs(cid, "")
	if f != nil {
		record(span, f)
		return FailWith[*models.PopulatedCart](f)
	}

	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cart, err := s.store.FindPopulated(ctx, cartID)
	if err != nil {
		f := classify(err, cartNotFound)
		record(span, f)
		return FailWith[*models.PopulatedCart](f)
	}
	return Ok(cart)
}

func (s *CartService) AddProductToCart(ctx context.Context, cid, pid string) Result[*models.Cart] {
	return s.mutate(ctx, "CartService.AddProductToCart", cid, pid, func(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
		return s.store.AddProduct(ctx, cartID, productID)
	})
}

// UpdateProductsFromCart replaces the cart's entries. Each product may
// appear once, with a quantity of at least one.
func (s *CartService) UpdateProductsFromCart(ctx context.Context, cid string, items []models.CartItem) Result[*models.Cart] {
	if items == nil {
		items = []models.CartItem{}
	}
	if err := models.CheckItems(items); err != nil {
		return Fail[*models.Cart](ValidationFailed, err.Error())
	}
	return s.mutate(ctx, "CartService.UpdateProductsFromCart", cid, "", func(ctx context.Context, cartID, _ bson.ObjectID) (*models.Cart, error) {
		return s.store.ReplaceProducts(ctx, cartID, items)
	})
}

// UpdateProductQuantityFromCart stores quantity as given, with no lower bound.
func (s *CartService) UpdateProductQuantityFromCart(ctx context.Context, cid, pid string, quantity int) Result[*models.Cart] {
	return s.mutate(ctx, "CartService.UpdateProductQuantityFromCart", cid, pid, func(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
		return s.store.SetQuantity(ctx, cartID, productID, quantity)
	})
}

func (s *CartService) DeleteProductFromCart(ctx context.Context, cid, pid string) Result[*models.Cart] {
	return s.mutate(ctx, "CartService.DeleteProductFromCart", cid, pid, func(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
		return s.store.RemoveProduct(ctx, cartID, productID)
	})
}

func (s *CartService) EmptyCartByID(ctx context.Context, cid string) Result[*models.Cart] {
	return s.mutate(ctx, "CartService.EmptyCartByID", cid, "", func(ctx context.Context, cartID, _ bson.ObjectID) (*models.Cart, error) {
		return s.store.Empty(ctx, cartID)
	})
}

func (s *CartService) mutate(ctx context.Context, name, cid, pid string, fn func(context.Context, bson.ObjectID, bson.ObjectID) (*models.Cart, error)) Result[*models.Cart] {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	cartID, productID, f := parseIDs(cid, pid)
	if f != nil {
		record(span, f)
		return FailWith[*models.Cart](f)
	}

	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cart, err := fn(ctx, cartID, productID)
	if err != nil {
		f := classify(err, cartNotFound)
		record(span, f)
		return FailWith[*models.Cart](f)
	}
	return Ok(cart)
}

// CartWorkflow checks product references before handing a mutation to
// CartService. Check and mutation are separate store calls, so a product
// deleted in between still ends up referenced; reads report it as
// unresolved.
type CartWorkflow struct {
	products *ProductService
	carts    *CartService
}

func NewCartWorkflow(products *ProductService, carts *CartService) *CartWorkflow {
	return &CartWorkflow{products: products, carts: carts}
}

func (w *CartWorkflow) AddProduct(ctx context.Context, cid, pid string) Result[*models.Cart] {
	if res, _ := w.products.GetProductByID(ctx, pid); res.Failed() {
		return FailWith[*models.Cart](res.Err)
	}
	return w.carts.AddProductToCart(ctx, cid, pid)
}

// ReplaceProducts resolves every product id in order and stops at the first
// one that fails. The cart is only written once all of them resolve, and
// duplicates are rejected rather than merged.
func (w *CartWorkflow) ReplaceProducts(ctx context.Context, cid string, items []models.CartItemRequest) Result[*models.Cart] {
	entries := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return Fail[*models.Cart](ValidationFailed, fmt.Sprintf("quantity for product %s must be a positive integer", item.Product))
		}
		res, _ := w.products.GetProductByID(ctx, item.Product)
		if res.Failed() {
			if res.Err.Kind == NotFound {
				return Fail[*models.Cart](NotFound, fmt.Sprintf("product %s not found", item.Product))
			}
			return FailWith[*models.Cart](res.Err)
		}
		entries = append(entries, models.CartItem{Product: res.Value.ID, Quantity: item.Quantity})
	}
	return w.carts.UpdateProductsFromCart(ctx, cid, entries)
}
