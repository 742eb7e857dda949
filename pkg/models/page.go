package models

import (
	"math"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type SortOrder int

const (
	SortNone SortOrder = iota
	SortPriceAsc
	SortPriceDesc
)

func ParseSort(s string) SortOrder {
	switch s {
	case "asc":
		return SortPriceAsc
	case "desc":
		return SortPriceDesc
	default:
		return SortNone
	}
}

// ProductFilter restricts a listing. Category takes precedence over Stock.
type ProductFilter struct {
	Category string
	Stock    *int
}

// NewProductFilter builds a filter from raw query values. A stock value that
// is not an integer is ignored.
func NewProductFilter(category, stock string) ProductFilter {
	if category != "" {
		return ProductFilter{Category: category}
	}
	if stock == "" {
		return ProductFilter{}
	}
	n, err := strconv.Atoi(stock)
	if err != nil {
		return ProductFilter{}
	}
	return ProductFilter{Stock: &n}
}

// Matches is the in-process form of the filter.
func (f ProductFilter) Matches(p Product) bool {
	if f.Category != "" {
		return p.Category == f.Category
	}
	if f.Stock != nil {
		return p.Stock == *f.Stock
	}
	return true
}

type ProductQuery struct {
	Filter ProductFilter
	Sort   SortOrder
	Page   int
	Limit  int
}

// Skip is the number of documents before the requested page. It saturates
// at math.MaxInt64 instead of wrapping for very large pages or limits.
func (q ProductQuery) Skip() int64 {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	pages, limit := int64(q.Page-1), int64(q.Limit)
	if pages > 0 && limit > math.MaxInt64/pages {
		return math.MaxInt64
	}
	return pages * limit
}

// ParsePageParams coerces raw page and limit values to integers, falling back
// to the defaults when a value is missing or not a number. Values with
// trailing garbage such as "2abc" count as not a number. A non-positive page
// is kept as-is so the caller can report it as invalid.
func ParsePageParams(page, limit string, defaultLimit int) (int, int) {
	p, err := strconv.Atoi(page)
	if err != nil {
		p = DefaultPage
	}
	l, err := strconv.Atoi(limit)
	if err != nil || l <= 0 {
		l = defaultLimit
	}
	return p, l
}

// PageInfo is the navigation part of a paginated listing.
type PageInfo struct {
	TotalDocs   int64 `json:"totalDocs"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	Page        int   `json:"page"`
	PrevPage    *int  `json:"prevPage"`
	NextPage    *int  `json:"nextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
	HasNextPage bool  `json:"hasNextPage"`
	IsValid     bool  `json:"isValid"`
}

func NewPageInfo(totalDocs int64, page, limit int) PageInfo {
	if limit <= 0 {
		limit = DefaultLimit
	}
	totalPages := int(totalDocs / int64(limit))
	if totalDocs%int64(limit) != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}

	info := PageInfo{
		TotalDocs:   totalDocs,
		Limit:       limit,
		TotalPages:  totalPages,
		Page:        page,
		HasPrevPage: page > 1,
		HasNextPage: page >= 1 && page < totalPages,
		IsValid:     !(page <= 0 || page > totalPages),
	}
	if info.HasPrevPage {
		prev := page - 1
		info.PrevPage = &prev
	}
	if info.HasNextPage {
		next := page + 1
		info.NextPage = &next
	}
	return info
}

// ProductPage is the listing response.
// CurrentPage mirrors Page for clients that read the older key.
type ProductPage struct {
	Status  string    `json:"status"`
	Payload []Product `json:"payload"`
	PageInfo
	CurrentPage int    `json:"currentPage"`
	PrevLink    string `json:"prevLink"`
	NextLink    string `json:"nextLink"`
}
