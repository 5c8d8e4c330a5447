package filter

import (
	"testing"

	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductSearch(t *testing.T) {
	preds := applyQuery(t, ProductSpec, "search=iphone").Predicates()
	require.Len(t, preds, 1)
	assert.Equal(t, query.Contains, preds[0].Op)
	assert.Equal(t, []string{"name", "description"}, preds[0].Columns)
	assert.Equal(t, []any{"iphone"}, preds[0].Values)
}

func TestProductEmptySearchIsIgnored(t *testing.T) {
	assert.Empty(t, applyQuery(t, ProductSpec, "search=").Predicates())
}

func TestProductPriceRange(t *testing.T) {
	preds := applyQuery(t, ProductSpec, "min_price=100&max_price=500").Predicates()
	require.Len(t, preds, 1)
	assert.Equal(t, query.Between, preds[0].Op)
	assert.Equal(t, []any{100.0, 500.0}, preds[0].Values)
}

func TestProductMinPriceAloneAddsNothing(t *testing.T) {
	assert.Empty(t, applyQuery(t, ProductSpec, "min_price=100").Predicates())
}

func TestProductMaxPriceAloneAddsNothing(t *testing.T) {
	assert.Empty(t, applyQuery(t, ProductSpec, "max_price=100").Predicates())
}

func TestProductCategoryList(t *testing.T) {
	preds := applyQuery(t, ProductSpec, "category_id[]=1&category_id[]=2").Predicates()
	require.Len(t, preds, 1)
	assert.Equal(t, query.In, preds[0].Op)
	assert.Equal(t, []any{[]int64{1, 2}}, preds[0].Values)
}

func TestProductIndexedCategoryList(t *testing.T) {
	preds := applyQuery(t, ProductSpec, "category_id[1]=2&category_id[0]=1").Predicates()
	require.Len(t, preds, 1)
	assert.Equal(t, query.In, preds[0].Op)
	assert.Equal(t, []any{[]int64{1, 2}}, preds[0].Values)
}

func TestProductScalarCategoryIsIgnored(t *testing.T) {
	assert.Empty(t, applyQuery(t, ProductSpec, "category_id=1").Predicates())
}

func TestProductCombinedFilters(t *testing.T) {
	q := applyQuery(t, ProductSpec, "search=air&min_price=100&max_price=500&category_id[]=1&category_id[]=2&per_page=5")
	stmt, args, err := q.Select("id")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE (name LIKE ? OR description LIKE ?) AND price BETWEEN ? AND ? AND category_id IN (?, ?)", stmt)
	assert.Len(t, args, 6)
}
