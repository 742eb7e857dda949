package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Product is a catalog entry. Carts only ever hold its ID.
type Product struct {
	ID          bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description" bson:"description"`
	Code        string        `json:"code" bson:"code"`
	Price       float64       `json:"price" bson:"price"`
	Stock       int           `json:"stock" bson:"stock"`
	Category    string        `json:"category" bson:"category"`
	Status      bool          `json:"status" bson:"status"`
	Thumbnails  []string      `json:"thumbnails" bson:"thumbnails"`
}

// CreateProductRequest carries a new product from either a JSON body or a
// multipart form. Numbers are pointers so that an absent field can be told
// apart from zero.
type CreateProductRequest struct {
	Title       string   `json:"title" form:"title" validate:"required"`
	Description string   `json:"description" form:"description" validate:"required"`
	Code        string   `json:"code" form:"code" validate:"required"`
	Price       *float64 `json:"price" form:"price" validate:"required,gte=0"`
	Stock       *int     `json:"stock" form:"stock" validate:"required,gte=0"`
	Category    string   `json:"category" form:"category" validate:"required"`
	Status      *bool    `json:"status" form:"status"`
	Thumbnails  []string `json:"thumbnails" form:"-"`
}

func (req *CreateProductRequest) Validate() error {
	return describe(validate.Struct(req))
}

func (req *CreateProductRequest) ToProduct() *Product {
	status := true
	if req.Status != nil {
		status = *req.Status
	}
	thumbnails := req.Thumbnails
	if thumbnails == nil {
		thumbnails = []string{}
	}
	return &Product{
		ID:          bson.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Price:       *req.Price,
		Stock:       *req.Stock,
		Category:    req.Category,
		Status:      status,
		Thumbnails:  thumbnails,
	}
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Title       *string   `json:"title" validate:"omitempty,min=1"`
	Description *string   `json:"description" validate:"omitempty,min=1"`
	Code        *string   `json:"code" validate:"omitempty,min=1"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	Category    *string   `json:"category" validate:"omitempty,min=1"`
	Status      *bool     `json:"status"`
	Thumbnails  *[]string `json:"thumbnails"`
}

func (u *ProductUpdate) Validate() error {
	if err := describe(validate.Struct(u)); err != nil {
		return err
	}
	if u.IsEmpty() {
		return fmt.Errorf("no fields to update")
	}
	return nil
}

func (u *ProductUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Fields returns the update keyed by stored field name.
func (u *ProductUpdate) Fields() bson.M {
	set := bson.M{}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Code != nil {
		set["code"] = *u.Code
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.Thumbnails != nil {
		set["thumbnails"] = *u.Thumbnails
	}
	return set
}

// Apply merges the update into p.
func (u *ProductUpdate) Apply(p *Product) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Code != nil {
		p.Code = *u.Code
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Thumbnails != nil {
		p.Thumbnails = append([]string{}, (*u.Thumbnails)...)
	}
}

// describe turns validator output into one readable message.
func describe(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s cannot be empty", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, ", "))
}
