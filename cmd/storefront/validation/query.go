package validation

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/SanteonNL/storefront/cmd/storefront/filter"
	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/gorilla/schema"
	"golang.org/x/exp/slices"
)

// CategoryChecker reports which category ids exist.
type CategoryChecker interface {
	ExistingCategoryIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// ListParams is a validated listing request.
type ListParams struct {
	Page    int
	PerPage int
	Filter  *filter.Request
}

type productIndexQuery struct {
	Search   *string  `schema:"search"`
	MinPrice *float64 `schema:"min_price"`
	MaxPrice *float64 `schema:"max_price"`
	PerPage  *int     `schema:"per_page"`
	Page     *int     `schema:"page"`
}

type orderIndexQuery struct {
	Status        *string `schema:"status"`
	SortBy        *string `schema:"sort_by"`
	SortDirection *string `schema:"sort_direction"`
	PerPage       *int    `schema:"per_page"`
	Page          *int    `schema:"page"`
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// scalars keeps the first value of every plain key, matching
// filter.FromQuery. Empty values count as absent.
func scalars(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, v := range values {
		if filter.IsListKey(key) || len(v) == 0 || v[0] == "" {
			continue
		}
		out[key] = v[:1]
	}
	return out
}

// decode fills dst and reports the keys whose value did not convert.
func decode(dst any, values url.Values) (map[string]bool, error) {
	invalid := map[string]bool{}
	err := decoder.Decode(dst, scalars(values))
	if err == nil {
		return invalid, nil
	}

	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return nil, err
	}
	for key, fieldErr := range multi {
		var conv schema.ConversionError
		if !errors.As(fieldErr, &conv) {
			return nil, fieldErr
		}
		invalid[key] = true
	}
	return invalid, nil
}

func validFloat(f *float64) bool {
	return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0)
}

func checkPaging(errs *Errors, invalid map[string]bool, page, perPage *int) (int, int) {
	size := query.DefaultPerPage
	switch {
	case invalid["per_page"]:
		errs.Add("per_page", "Per page must be a number.")
	case perPage != nil && *perPage < 1:
		errs.Add("per_page", "Per page must be at least 1.")
	case perPage != nil && *perPage > query.MaxPerPage:
		errs.Add("per_page", "Per page cannot exceed 100.")
	case perPage != nil:
		size = *perPage
	}

	current := 1
	switch {
	case invalid["page"]:
		errs.Add("page", "Page must be a number.")
	case page != nil && *page < 1:
		errs.Add("page", "Page must be at least 1.")
	case page != nil:
		current = *page
	}
	return current, size
}

// ProductIndex validates a product listing query string.
func ProductIndex(ctx context.Context, values url.Values, categories CategoryChecker) (*ListParams, error) {
	var q productIndexQuery
	invalid, err := decode(&q, values)
	if err != nil {
		return nil, err
	}
	errs := NewErrors()

	if q.Search != nil && utf8.RuneCountInString(*q.Search) > 100 {
		errs.Add("search", "Search term cannot exceed 100 characters.")
	}

	minOK := false
	if invalid["min_price"] || (q.MinPrice != nil && !validFloat(q.MinPrice)) {
		errs.Add("min_price", "Minimum price must be a number.")
	} else if q.MinPrice != nil {
		if *q.MinPrice < 0 {
			errs.Add("min_price", "Minimum price cannot be negative.")
		}
		minOK = true
	}

	if invalid["max_price"] || (q.MaxPrice != nil && !validFloat(q.MaxPrice)) {
		errs.Add("max_price", "Maximum price must be a number.")
	} else if q.MaxPrice != nil {
		if *q.MaxPrice < 0 {
			errs.Add("max_price", "Maximum price cannot be negative.")
		}
		if minOK && *q.MaxPrice < *q.MinPrice {
			errs.Add("max_price", "Maximum price must be greater than or equal to minimum price.")
			errs.Add("max_price", "Maximum price must be greater than minimum price.")
		}
	}

	if err := checkCategoryIDs(ctx, errs, values, categories); err != nil {
		return nil, err
	}

	page, perPage := checkPaging(errs, invalid, q.Page, q.PerPage)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return &ListParams{Page: page, PerPage: perPage, Filter: filter.FromQuery(values)}, nil
}

func checkCategoryIDs(ctx context.Context, errs *Errors, values url.Values, categories CategoryChecker) error {
	list, isList := filter.Lists(values)["category_id"]
	if !isList {
		if scalar := values.Get("category_id"); scalar != "" {
			errs.Add("category_id", "Category ID must be an array.")
		}
		return nil
	}
	if len(list) == 0 {
		errs.Add("category_id", "At least one category ID is required.")
		return nil
	}

	type position struct {
		index int
		id    int64
	}
	var (
		parsed []position
		ids    []int64
	)
	for i, raw := range list {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			errs.Add("category_id."+strconv.Itoa(i), "Each category ID must be a number.")
			continue
		}
		parsed = append(parsed, position{index: i, id: id})
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || categories == nil {
		return nil
	}

	existing, err := categories.ExistingCategoryIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range parsed {
		if !existing[p.id] {
			errs.Add("category_id."+strconv.Itoa(p.index), "One or more selected categories do not exist.")
		}
	}
	return nil
}

var (
	orderSortFields     = []string{"created_at", "total_price", "status"}
	orderSortDirections = []string{"asc", "desc"}
)

// OrderIndex validates an order listing query string.
func OrderIndex(values url.Values) (*ListParams, error) {
	var q orderIndexQuery
	invalid, err := decode(&q, values)
	if err != nil {
		return nil, err
	}
	errs := NewErrors()

	page, perPage := checkPaging(errs, invalid, q.Page, q.PerPage)
	if q.Status != nil && *q.Status != "" && !slices.Contains(shop.OrderStatuses, *q.Status) {
		errs.Add("status", "Status must be one of: pending, processing, shipped, delivered, cancelled.")
	}
	if q.SortBy != nil && *q.SortBy != "" && !slices.Contains(orderSortFields, *q.SortBy) {
		errs.Add("sort_by", "Sort by must be one of: created_at, total_price, status.")
	}
	if q.SortDirection != nil && *q.SortDirection != "" && !slices.Contains(orderSortDirections, *q.SortDirection) {
		errs.Add("sort_direction", "Sort direction must be either asc or desc.")
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return &ListParams{Page: page, PerPage: perPage, Filter: filter.FromQuery(values)}, nil
}
