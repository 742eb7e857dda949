package models

import "errors"

// Sentinels shared by every store implementation.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateCode = errors.New("product code already exists")
	ErrNotInCart     = errors.New("product not found in cart")
	ErrInvalidItems  = errors.New("invalid cart products")
)
