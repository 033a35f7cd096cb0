package apiclient

import (
	"context"
	"net/http"

	"devstudio/internal/models"

	"github.com/ecodeclub/ekit/slice"
)

const productsCacheKey = "products"

// ListProducts fetches the whole catalog. The endpoint is not paginated.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var resp []productDTO
	err := c.cachedGet(ctx, productsCacheKey, request{
		op:       "load products",
		method:   http.MethodGet,
		endpoint: "/api/products",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return slice.Map(resp, func(idx int, src productDTO) models.Product {
		return src.toModel()
	}), nil
}
