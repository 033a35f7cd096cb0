package listing

import (
	"strings"

	"devstudio/internal/models"
)

// Filter keeps an item when it matches value. Controllers never call a filter
// with an inactive value.
type Filter[T any] func(item T, value string) bool

const (
	FilterCategory = "category"
	FilterPrice    = "price"
)

// Inactive reports whether a filter value means "show everything".
func Inactive(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, "all")
}

func CategoryFilter[T any](category func(T) string) Filter[T] {
	return func(item T, value string) bool {
		return strings.EqualFold(strings.TrimSpace(category(item)), strings.TrimSpace(value))
	}
}

func PriceFilter[T any](price func(T) string) Filter[T] {
	return func(item T, value string) bool {
		want, ok := ParseBracket(value)
		if !ok {
			return false
		}
		return PriceBracket(price(item)) == want
	}
}

// ProductFilters are the filters of the product catalog.
func ProductFilters() map[string]Filter[models.Product] {
	return map[string]Filter[models.Product]{
		FilterCategory: CategoryFilter(func(p models.Product) string { return p.Category }),
		FilterPrice:    PriceFilter(func(p models.Product) string { return p.Price }),
	}
}

// BlogFilters are the filters of the blog listing.
func BlogFilters() map[string]Filter[models.BlogPost] {
	return map[string]Filter[models.BlogPost]{
		FilterCategory: CategoryFilter(func(b models.BlogPost) string { return b.Category }),
	}
}
