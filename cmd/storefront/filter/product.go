package filter

import (
	"strconv"
	"strings"

	"github.com/SanteonNL/storefront/cmd/storefront/query"
)

// ProductSpec filters the product catalog.
//
// min_price only applies together with max_price; either one alone adds no
// price predicate.
var ProductSpec = NewSpec(
	Entry{Key: "search", Handle: productSearch},
	Entry{Key: "min_price", Handle: productPriceRange},
	Entry{Key: "max_price", Handle: consumed},
	Entry{Key: "category_id", Handle: productCategories},
)

func productSearch(q *query.Query, v Value, _ *Request) {
	if v.Empty() || v.IsList() {
		return
	}
	q.WhereContains(v.String(), "name", "description")
}

func productPriceRange(q *query.Query, v Value, r *Request) {
	upper, ok := r.Get("max_price")
	if !ok || v.Empty() || upper.Empty() {
		return
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(upper.String()), 64)
	if err != nil {
		return
	}
	q.WhereBetween("price", lo, hi)
}

func productCategories(q *query.Query, v Value, _ *Request) {
	if !v.IsList() || v.Empty() {
		return
	}

	ids := make([]int64, 0, len(v.Strings()))
	for _, s := range v.Strings() {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	q.WhereIn("category_id", ids)
}
