package mongo

import (
	stderrors "errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

func isNoDocuments(err error) bool {
	return stderrors.Is(err, mongo.ErrNoDocuments)
}

func productFilter(f models.ProductFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	} else if f.Stock != nil {
		filter["stock"] = *f.Stock
	}
	return filter
}

// priceSort returns nil for store-native order.
func priceSort(order models.SortOrder) bson.D {
	switch order {
	case models.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}}
	case models.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}}
	default:
		return nil
	}
}
