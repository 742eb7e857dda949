package mongo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/mongo"
)

func startMongo(ctx context.Context) (*tcmongo.MongoDBContainer, string, error) {
	container, err := tcmongo.Run(ctx, "mongo:7.0")
	if err != nil {
		return nil, "", fmt.Errorf("tcmongo.Run: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("container.ConnectionString: %w", err)
	}
	return container, uri, nil
}

type repositorySuite struct {
	suite.Suite

	container *tcmongo.MongoDBContainer
	store     *mongo.Store
	products  *mongo.ProductRepository
	carts     *mongo.CartRepository
	messages  *mongo.MessageRepository
}

// entry point to run the tests in the suite
func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	suite.Run(t, new(repositorySuite))
}

// before all tests in the suite
func (s *repositorySuite) SetupSuite() {
	ctx := s.T().Context()

	container, uri, err := startMongo(ctx)
	s.Require().NoError(err)
	s.container = container

	s.store, err = mongo.Open(ctx, uri, "storefront_test")
	s.Require().NoError(err)
	s.Require().NoError(s.store.EnsureIndexes(ctx))

	s.products = s.store.Products()
	s.carts = s.store.Carts()
	s.messages = s.store.Messages()
}

// after all tests in the suite
func (s *repositorySuite) TearDownSuite() {
	if s.store != nil {
		s.NoError(s.store.Close(context.Background()))
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *repositorySuite) TearDownTest() {
	ctx := context.Background()
	for _, name := range []string{mongo.ProductsCollection, mongo.CartsCollection, mongo.MessagesCollection} {
		_, err := s.store.Collection(name).DeleteMany(ctx, bson.M{})
		s.Require().NoError(err)
	}
}

func randomProduct(category string, price float64) *models.Product {
	return &models.Product{
		ID:          bson.NewObjectID(),
		Title:       gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Code:        gofakeit.UUID(),
		Price:       price,
		Stock:       gofakeit.IntRange(0, 50),
		Category:    category,
		Status:      true,
		Thumbnails:  []string{},
	}
}

func (s *repositorySuite) TestInsertAndFind() {
	ctx := s.T().Context()
	p := randomProduct("books", 12.5)

	s.Require().NoError(s.products.Insert(ctx, p))

	got, err := s.products.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	if diff := cmp.Diff(*p, *got, cmpopts.EquateEmpty()); diff != "" {
		s.Failf("product mismatch", "(-want +got):\n%s", diff)
	}

	_, err = s.products.FindByID(ctx, bson.NewObjectID())
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *repositorySuite) TestInsertDuplicateCode() {
	ctx := s.T().Context()
	first := randomProduct("books", 1)
	s.Require().NoError(s.products.Insert(ctx, first))

	dup := randomProduct("toys", 2)
	dup.Code = first.Code
	s.ErrorIs(s.products.Insert(ctx, dup), models.ErrDuplicateCode)

	total, err := s.products.Count(ctx, models.ProductFilter{})
	s.Require().NoError(err)
	s.EqualValues(1, total)
}

func (s *repositorySuite) TestListFiltersSortsAndPages() {
	ctx := s.T().Context()
	for i := 0; i < 25; i++ {
		category := "books"
		if i%5 == 0 {
			category = "toys"
		}
		s.Require().NoError(s.products.Insert(ctx, randomProduct(category, float64(gofakeit.IntRange(1, 500)))))
	}

	page, total, err := s.products.List(ctx, models.ProductQuery{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(25, total)
	s.Len(page, 10)

	page, _, err = s.products.List(ctx, models.ProductQuery{Page: 3, Limit: 10})
	s.Require().NoError(err)
	s.Len(page, 5)

	asc, _, err := s.products.List(ctx, models.ProductQuery{Sort: models.SortPriceAsc, Page: 1, Limit: 25})
	s.Require().NoError(err)
	for i := 1; i < len(asc); i++ {
		s.LessOrEqual(asc[i-1].Price, asc[i].Price)
	}

	desc, _, err := s.products.List(ctx, models.ProductQuery{Sort: models.SortPriceDesc, Page: 1, Limit: 25})
	s.Require().NoError(err)
	for i := 1; i < len(desc); i++ {
		s.GreaterOrEqual(desc[i-1].Price, desc[i].Price)
	}

	toys, total, err := s.products.List(ctx, models.ProductQuery{Filter: models.ProductFilter{Category: "toys"}, Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.EqualValues(5, total)
	for _, p := range toys {
		s.Equal("toys", p.Category)
	}
}

func (s *repositorySuite) TestUpdateAndDelete() {
	ctx := s.T().Context()
	p := randomProduct("books", 10)
	s.Require().NoError(s.products.Insert(ctx, p))

	title := "Renamed"
	updated, err := s.products.Update(ctx, p.ID, &models.ProductUpdate{Title: &title})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Title)
	s.Equal(p.Code, updated.Code)

	_, err = s.products.Update(ctx, bson.NewObjectID(), &models.ProductUpdate{Title: &title})
	s.ErrorIs(err, models.ErrNotFound)

	s.Require().NoError(s.products.Delete(ctx, p.ID))
	s.ErrorIs(s.products.Delete(ctx, p.ID), models.ErrNotFound)
}

func (s *repositorySuite) TestCartLifecycle() {
	ctx := s.T().Context()
	a := randomProduct("books", 2.5)
	b := randomProduct("books", 4)
	s.Require().NoError(s.products.Insert(ctx, a))
	s.Require().NoError(s.products.Insert(ctx, b))

	cart, err := s.carts.Create(ctx)
	s.Require().NoError(err)
	s.Empty(cart.Products)

	_, err = s.carts.AddProduct(ctx, cart.ID, a.ID)
	s.Require().NoError(err)
	got, err := s.carts.AddProduct(ctx, cart.ID, a.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Products, 1)
	s.Equal(2, got.Products[0].Quantity)

	got, err = s.carts.AddProduct(ctx, cart.ID, b.ID)
	s.Require().NoError(err)
	s.Len(got.Products, 2)

	got, err = s.carts.SetQuantity(ctx, cart.ID, b.ID, 7)
	s.Require().NoError(err)
	s.Equal(7, got.Products[1].Quantity)

	_, err = s.carts.SetQuantity(ctx, cart.ID, bson.NewObjectID(), 1)
	s.ErrorIs(err, models.ErrNotInCart)
	_, err = s.carts.SetQuantity(ctx, bson.NewObjectID(), b.ID, 1)
	s.ErrorIs(err, models.ErrNotFound)

	populated, err := s.carts.FindPopulated(ctx, cart.ID)
	s.Require().NoError(err)
	s.Require().Len(populated.Products, 2)
	s.Equal(a.Title, populated.Products[0].Product.Title)
	s.Equal("33.00", populated.Total)

	s.Require().NoError(s.products.Delete(ctx, a.ID))
	populated, err = s.carts.FindPopulated(ctx, cart.ID)
	s.Require().NoError(err)
	s.Len(populated.Products, 1)
	s.Equal([]bson.ObjectID{a.ID}, populated.Unresolved)

	got, err = s.carts.RemoveProduct(ctx, cart.ID, b.ID)
	s.Require().NoError(err)
	s.Len(got.Products, 1)
	_, err = s.carts.RemoveProduct(ctx, cart.ID, b.ID)
	s.ErrorIs(err, models.ErrNotInCart)

	got, err = s.carts.Empty(ctx, cart.ID)
	s.Require().NoError(err)
	s.Equal(cart.ID, got.ID)
	s.Empty(got.Products)

	_, err = s.carts.AddProduct(ctx, bson.NewObjectID(), b.ID)
	s.ErrorIs(err, models.ErrNotFound)
	_, err = s.carts.FindPopulated(ctx, bson.NewObjectID())
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *repositorySuite) TestReplaceProducts() {
	ctx := s.T().Context()
	cart, err := s.carts.Create(ctx)
	s.Require().NoError(err)

	items := []models.CartItem{
		{Product: bson.NewObjectID(), Quantity: 1},
		{Product: bson.NewObjectID(), Quantity: 3},
	}
	got, err := s.carts.ReplaceProducts(ctx, cart.ID, items)
	s.Require().NoError(err)
	s.Equal(items, got.Products)

	_, err = s.carts.ReplaceProducts(ctx, bson.NewObjectID(), items)
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *repositorySuite) TestCategorySummaries() {
	ctx := s.T().Context()
	s.Require().NoError(s.products.Insert(ctx, randomProduct("books", 10)))
	s.Require().NoError(s.products.Insert(ctx, randomProduct("books", 20)))
	s.Require().NoError(s.products.Insert(ctx, randomProduct("toys", 5)))

	summaries, err := s.products.CategorySummaries(ctx)
	s.Require().NoError(err)
	s.Require().Len(summaries, 2)
	s.Equal("books", summaries[0].Category)
	s.Equal(2, summaries[0].Count)
	s.Equal(15.0, summaries[0].AvgPrice)
	s.Equal(10.0, summaries[0].MinPrice)
	s.Equal(20.0, summaries[0].MaxPrice)
}

func (s *repositorySuite) TestMessagesAppendAndList() {
	ctx := s.T().Context()
	for i := 0; i < 3; i++ {
		req := models.CreateMessageRequest{User: gofakeit.Username(), Message: fmt.Sprintf("hello %d", i)}
		s.Require().NoError(s.messages.Append(ctx, req.ToMessage()))
	}

	got, err := s.messages.List(ctx)
	s.Require().NoError(err)
	require.Len(s.T(), got, 3)
	s.Equal("hello 0", got[0].Message)
	s.Equal("hello 2", got[2].Message)
}
