package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "stockwatch/pkg/types"
)

// ActiveProductLister queries currently active products.
type ActiveProductLister interface {
	ListActiveProducts(ctx context.Context, limit int) ([]domain.StoredProduct, error)
}

// ProductsHandler handles product listing requests.
type ProductsHandler struct {
	store ActiveProductLister
}

// NewProductsHandler creates a new ProductsHandler.
func NewProductsHandler(s ActiveProductLister) *ProductsHandler {
	return &ProductsHandler{store: s}
}

// ProductsInput holds query parameters for listing products.
type ProductsInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of products to return"`
}

// ProductsOutput is the response for the products endpoint.
type ProductsOutput struct {
	Body struct {
		Products []domain.StoredProduct `json:"products" doc:"Active products, most recently seen first"`
		Count    int                    `json:"count" example:"50" doc:"Number of products returned"`
	}
}

// List returns currently active products.
func (h *ProductsHandler) List(ctx context.Context, input *ProductsInput) (*ProductsOutput, error) {
	products, err := h.store.ListActiveProducts(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list products: " + err.Error())
	}

	resp := &ProductsOutput{}
	resp.Body.Products = products
	resp.Body.Count = len(products)
	return resp, nil
}

// RegisterProductRoutes registers product endpoints with the Huma API.
func RegisterProductRoutes(api huma.API, h *ProductsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List active products",
		Description: "Returns products currently present on the monitored listing, most recently seen first.",
		Tags:        []string{"products"},
	}, h.List)
}
