package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(collection *mongo.Collection) *ProductRepository {
	return &ProductRepository{collection: collection}
}

// Insert relies on the unique code index to reject duplicates.
func (r *ProductRepository) Insert(ctx context.Context, product *models.Product) error {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateCode
		}
		return errors.Wrap(err, "insert product")
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	var product models.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if isNoDocuments(err) {
			return nil, models.ErrNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	return &product, nil
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context, filter models.ProductFilter) (int64, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, productFilter(filter))
	if err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return total, nil
}

// List returns one page of products and the number of products matching the
// filter. Both queries run concurrently.
func (r *ProductRepository) List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	filter := productFilter(q.Filter)

	var total int64
	products := make([]models.Product, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.collection.CountDocuments(gctx, filter)
		if err != nil {
			return errors.Wrap(err, "count products")
		}
		total = n
		return nil
	})
	g.Go(func() error {
		findOptions := options.Find().
			SetSkip(q.Skip()).
			SetLimit(int64(q.Limit))
		if sort := priceSort(q.Sort); sort != nil {
			findOptions.SetSort(sort)
		}

		cursor, err := r.collection.Find(gctx, filter, findOptions)
		if err != nil {
			return errors.Wrap(err, "find products")
		}
		defer cursor.Close(gctx)

		return errors.Wrap(cursor.All(gctx, &products), "decode products")
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Update(ctx context.Context, id bson.ObjectID, update *models.ProductUpdate) (*models.Product, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update.Fields()}, opts).Decode(&product)
	if err != nil {
		if isNoDocuments(err) {
			return nil, models.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrDuplicateCode
		}
		return nil, errors.Wrap(err, "update product")
	}
	return &product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
