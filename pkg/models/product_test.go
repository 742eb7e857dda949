package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validRequest() CreateProductRequest {
	return CreateProductRequest{
		Title:       "Mate",
		Description: "Calabaza",
		Code:        "MATE-01",
		Price:       ptr(0.0),
		Stock:       ptr(0),
		Category:    "kitchen",
	}
}

func TestCreateProductRequestValidate(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate(), "zero price and stock are present values")

	missing := validRequest()
	missing.Price = nil
	missing.Code = ""
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code is required")
	assert.Contains(t, err.Error(), "price is required")

	negative := validRequest()
	negative.Stock = ptr(-1)
	assert.ErrorContains(t, negative.Validate(), "stock must be greater than or equal to 0")
}

func TestToProductDefaults(t *testing.T) {
	req := validRequest()
	p := req.ToProduct()

	assert.False(t, p.ID.IsZero())
	assert.True(t, p.Status)
	assert.NotNil(t, p.Thumbnails)
	assert.Empty(t, p.Thumbnails)

	req.Status = ptr(false)
	assert.False(t, req.ToProduct().Status)
}

func TestProductUpdate(t *testing.T) {
	empty := ProductUpdate{}
	assert.ErrorContains(t, empty.Validate(), "no fields to update")

	bad := ProductUpdate{Price: ptr(-2.5)}
	assert.Error(t, bad.Validate())

	u := ProductUpdate{Title: ptr("Bombilla"), Stock: ptr(7)}
	require.NoError(t, u.Validate())
	assert.Len(t, u.Fields(), 2)

	p := Product{Title: "Mate", Stock: 1, Price: 3}
	u.Apply(&p)
	assert.Equal(t, "Bombilla", p.Title)
	assert.Equal(t, 7, p.Stock)
	assert.Equal(t, 3.0, p.Price)

	thumbs := []string{"a.png"}
	withThumbs := ProductUpdate{Thumbnails: &thumbs}
	withThumbs.Apply(&p)
	thumbs[0] = "b.png"
	assert.Equal(t, []string{"a.png"}, p.Thumbnails)
}
