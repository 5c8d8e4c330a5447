package filter

import (
	"net/url"
	"testing"

	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyQuery(t *testing.T, spec Spec, raw string) *query.Query {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return Apply(spec, FromQuery(values), query.New("t"))
}

func TestFromQuery(t *testing.T) {
	values, err := url.ParseQuery("search=air&category_id[]=1&category_id[]=2&status=a&status=b")
	require.NoError(t, err)

	r := FromQuery(values)
	assert.Equal(t, []string{"category_id", "search", "status"}, r.Keys())

	cat, ok := r.Get("category_id")
	require.True(t, ok)
	assert.True(t, cat.IsList())
	assert.Equal(t, []string{"1", "2"}, cat.Strings())

	status, _ := r.Get("status")
	assert.False(t, status.IsList())
	assert.Equal(t, "a", status.String())
}

func TestFromQueryIndexedList(t *testing.T) {
	values, err := url.ParseQuery("category_id[1]=20&category_id[0]=10&category_id[10]=30&search=air")
	require.NoError(t, err)

	r := FromQuery(values)
	assert.Equal(t, []string{"category_id", "search"}, r.Keys())

	v, ok := r.Get("category_id")
	require.True(t, ok)
	assert.True(t, v.IsList())
	assert.Equal(t, []string{"10", "20", "30"}, v.Strings())
}

func TestFromQueryMixedListForms(t *testing.T) {
	values, err := url.ParseQuery("category_id[]=3&category_id[1]=2&category_id[0]=1")
	require.NoError(t, err)

	v, _ := FromQuery(values).Get("category_id")
	assert.Equal(t, []string{"1", "2", "3"}, v.Strings())
}

func TestIsListKey(t *testing.T) {
	assert.True(t, IsListKey("category_id[]"))
	assert.True(t, IsListKey("category_id[0]"))
	assert.True(t, IsListKey("category_id[12]"))
	assert.False(t, IsListKey("category_id"))
	assert.False(t, IsListKey("category_id[x]"))
	assert.False(t, IsListKey("category_id[-1]"))
	assert.False(t, IsListKey("[]"))
	assert.False(t, IsListKey("[0]"))
}

func TestFromQueryListWinsOverScalar(t *testing.T) {
	values, err := url.ParseQuery("category_id=9&category_id[]=1")
	require.NoError(t, err)

	v, _ := FromQuery(values).Get("category_id")
	assert.True(t, v.IsList())
	assert.Equal(t, []string{"1"}, v.Strings())

	values, err = url.ParseQuery("category_id=9&category_id[0]=1")
	require.NoError(t, err)

	v, _ = FromQuery(values).Get("category_id")
	assert.True(t, v.IsList())
	assert.Equal(t, []string{"1"}, v.Strings())
}

func TestEncodeIsCanonical(t *testing.T) {
	a, _ := url.ParseQuery("search=x&category_id[]=1&min_price=1")
	b, _ := url.ParseQuery("min_price=1&category_id[]=1&search=x")
	assert.Equal(t, FromQuery(a).Encode(), FromQuery(b).Encode())

	c, _ := url.ParseQuery("search=x&category_id[0]=1&min_price=1")
	assert.Equal(t, FromQuery(a).Encode(), FromQuery(c).Encode())
}

func TestUnknownKeysAreIgnored(t *testing.T) {
	q := applyQuery(t, ProductSpec, "foo=bar&page=2&per_page=5&sort=desc")
	assert.Empty(t, q.Predicates())
	assert.False(t, q.HasOrder())

	q = applyQuery(t, OrderSpec, "search=iphone&category_id[]=1")
	assert.Empty(t, q.Predicates())
}

func TestApplyIsRepeatable(t *testing.T) {
	values, _ := url.ParseQuery("search=air&min_price=100&max_price=500&category_id[]=1&category_id[]=2")
	r := FromQuery(values)

	first := Apply(ProductSpec, r, query.New("products"))
	second := Apply(ProductSpec, r, query.New("products"))
	assert.Equal(t, first.Predicates(), second.Predicates())
}

func TestApplyFollowsSpecOrder(t *testing.T) {
	r := NewRequest(map[string]Value{
		"category_id": List("3"),
		"max_price":   Scalar("20"),
		"min_price":   Scalar("10"),
		"search":      Scalar("lamp"),
	})

	preds := Apply(ProductSpec, r, query.New("products")).Predicates()
	require.Len(t, preds, 3)
	assert.Equal(t, query.Contains, preds[0].Op)
	assert.Equal(t, query.Between, preds[1].Op)
	assert.Equal(t, query.In, preds[2].Op)
}
