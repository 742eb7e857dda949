package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// CartRepository stores carts as one document each; every mutation is a
// single atomic update of that document.
type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(collection *mongo.Collection) *CartRepository {
	return &CartRepository{collection: collection}
}

func (r *CartRepository) Create(ctx context.Context) (*models.Cart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cart := models.NewCart()
	if _, err := r.collection.InsertOne(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "insert cart")
	}
	return cart, nil
}

func (r *CartRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Cart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	var cart models.Cart
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cart); err != nil {
		if isNoDocuments(err) {
			return nil, models.ErrNotFound
		}
		return nil, errors.Wrap(err, "find cart")
	}
	return &cart, nil
}

type populatedCartDoc struct {
	models.Cart `bson:",inline"`
	Resolved    []models.Product `bson:"resolved"`
}

// FindPopulated joins the cart's references against the products collection
// in one aggregation and resolves them in entry order.
func (r *CartRepository) FindPopulated(ctx context.Context, id bson.ObjectID) (*models.PopulatedCart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ProductsCollection},
			{Key: "localField", Value: "products.product"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "resolved"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "populate cart")
	}
	defer cursor.Close(ctx)

	var docs []populatedCartDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if len(docs) == 0 {
		return nil, models.ErrNotFound
	}

	populated := models.Populate(docs[0].Cart, docs[0].Resolved)
	return &populated, nil
}

// AddProduct increments the entry for productID, or appends it with quantity
// 1 when the cart does not hold it yet. If a concurrent request appends the
// same product between the two updates, the loop goes round once more and
// increments instead.
func (r *CartRepository) AddProduct(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		cart, err := r.findOneAndUpdate(ctx,
			bson.M{"_id": cartID, "products.product": productID},
			bson.M{"$inc": bson.M{"products.$.quantity": 1}},
		)
		if err == nil || !isNoDocuments(err) {
			return cart, wrapUpdate(err, "increment cart item")
		}

		cart, err = r.findOneAndUpdate(ctx,
			bson.M{"_id": cartID, "products.product": bson.M{"$ne": productID}},
			bson.M{"$push": bson.M{"products": models.CartItem{Product: productID, Quantity: 1}}},
		)
		if err == nil || !isNoDocuments(err) {
			return cart, wrapUpdate(err, "append cart item")
		}

		exists, err := r.exists(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, models.ErrNotFound
		}
	}
	return nil, errors.New("cart changed concurrently, try again")
}

func (r *CartRepository) ReplaceProducts(ctx context.Context, cartID bson.ObjectID, items []models.CartItem) (*models.Cart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	if items == nil {
		items = []models.CartItem{}
	}
	cart, err := r.findOneAndUpdate(ctx, bson.M{"_id": cartID}, bson.M{"$set": bson.M{"products": items}})
	if isNoDocuments(err) {
		return nil, models.ErrNotFound
	}
	return cart, wrapUpdate(err, "replace cart items")
}

func (r *CartRepository) SetQuantity(ctx context.Context, cartID, productID bson.ObjectID, quantity int) (*models.Cart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cart, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": cartID, "products.product": productID},
		bson.M{"$set": bson.M{"products.$.quantity": quantity}},
	)
	if isNoDocuments(err) {
		return nil, r.missingEntry(ctx, cartID)
	}
	return cart, wrapUpdate(err, "set cart item quantity")
}

func (r *CartRepository) RemoveProduct(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cart, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": cartID, "products.product": productID},
		bson.M{"$pull": bson.M{"products": bson.M{"product": productID}}},
	)
	if isNoDocuments(err) {
		return nil, r.missingEntry(ctx, cartID)
	}
	return cart, wrapUpdate(err, "remove cart item")
}

func (r *CartRepository) Empty(ctx context.Context, cartID bson.ObjectID) (*models.Cart, error) {
	return r.ReplaceProducts(ctx, cartID, []models.CartItem{})
}

func (r *CartRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Cart, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var cart models.Cart
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *CartRepository) exists(ctx context.Context, cartID bson.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": cartID}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "count carts")
	}
	return n > 0, nil
}

// missingEntry tells a missing cart apart from a cart without the product.
func (r *CartRepository) missingEntry(ctx context.Context, cartID bson.ObjectID) error {
	exists, err := r.exists(ctx, cartID)
	if err != nil {
		return err
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrNotInCart
}

func wrapUpdate(err error, action string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, action)
}
