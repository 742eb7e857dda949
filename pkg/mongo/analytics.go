package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// CategorySummaries groups the catalog by category, sorted by category name.
func (r *ProductRepository) CategorySummaries(ctx context.Context) ([]models.CategorySummary, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	pipeline := bson.A{
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$category"},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "stock", Value: bson.D{{Key: "$sum", Value: "$stock"}}},
				{Key: "avg_price", Value: bson.D{{Key: "$avg", Value: "$price"}}},
				{Key: "min_price", Value: bson.D{{Key: "$min", Value: "$price"}}},
				{Key: "max_price", Value: bson.D{{Key: "$max", Value: "$price"}}},
			}},
		},
		bson.D{
			{Key: "$project", Value: bson.D{
				{Key: "count", Value: 1},
				{Key: "stock", Value: 1},
				{Key: "min_price", Value: 1},
				{Key: "max_price", Value: 1},
				{Key: "avg_price", Value: bson.D{{Key: "$round", Value: bson.A{"$avg_price", 2}}}},
			}},
		},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate categories")
	}
	defer cursor.Close(ctx)

	summaries := make([]models.CategorySummary, 0)
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, errors.Wrap(err, "decode categories")
	}
	return summaries, nil
}
