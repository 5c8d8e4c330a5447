package filter

import (
	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"golang.org/x/exp/slices"
)

var OrderSortFields = []string{"created_at", "total_price", "status"}

// OrderSpec filters a user's orders.
//
// sort_direction has no effect of its own: it is read by the sort_by
// handler, so a request with only sort_direction adds no ordering.
var OrderSpec = NewSpec(
	Entry{Key: "status", Handle: orderStatus},
	Entry{Key: "sort_by", Handle: orderSortBy},
	Entry{Key: "sort_direction", Handle: consumed},
)

func orderStatus(q *query.Query, v Value, _ *Request) {
	if v.Empty() || v.IsList() {
		return
	}
	q.Where("status", v.String())
}

func orderSortBy(q *query.Query, v Value, r *Request) {
	direction := query.Desc
	if d, ok := r.Get("sort_direction"); ok && !d.Empty() {
		direction = query.ParseDirection(d.String())
	}

	column := "created_at"
	if slices.Contains(OrderSortFields, v.String()) {
		column = v.String()
	}
	q.OrderBy(column, direction)
}
