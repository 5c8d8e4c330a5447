package api

import (
	"errors"
	"net/http"

	"github.com/SanteonNL/storefront/cmd/storefront/catalog"
	"github.com/SanteonNL/storefront/cmd/storefront/validation"
)

func (sr *StorefrontRouter) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := sr.catalog.ListCategories(r.Context())
	if err != nil {
		sr.log.Error().Err(err).Msg("Failed to list categories")
		respondError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}
	respondData(w, http.StatusOK, "", categories)
}

func (sr *StorefrontRouter) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Category not found")
		return
	}

	category, err := sr.catalog.GetCategory(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		sr.log.Error().Err(err).Int64("category_id", id).Msg("Failed to get category")
		respondError(w, http.StatusInternalServerError, "Failed to load category")
		return
	}
	respondData(w, http.StatusOK, "", category)
}

func (sr *StorefrontRouter) handleListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := validation.ProductIndex(r.Context(), r.URL.Query(), sr.lookup)
	if err != nil {
		sr.respondInvalid(w, r, err, "")
		return
	}

	page, err := sr.catalog.ListProducts(r.Context(), params.Filter, params.Page, params.PerPage)
	if err != nil {
		sr.log.Error().Err(err).Str("query", r.URL.RawQuery).Msg("Failed to list products")
		respondError(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	respondPage(w, page.Products, page.Pagination)
}

func (sr *StorefrontRouter) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := sr.catalog.GetProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		sr.log.Error().Err(err).Int64("product_id", id).Msg("Failed to get product")
		respondError(w, http.StatusInternalServerError, "Failed to load product")
		return
	}
	respondData(w, http.StatusOK, "", product)
}

func (sr *StorefrontRouter) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	product, err := validation.StoreProduct(r.Context(), r.Body, sr.lookup)
	if err != nil {
		sr.respondInvalid(w, r, err, "Validation failed")
		return
	}

	if err := sr.catalog.CreateProduct(r.Context(), product); err != nil {
		sr.log.Error().Err(err).Str("name", product.Name).Msg("Failed to create product")
		respondError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	sr.log.Info().Int64("product_id", product.ID).Msg("Created product")
	respondData(w, http.StatusCreated, "Product created successfully", product)
}

func (sr *StorefrontRouter) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	existing, err := sr.lookup.ExistingProductIDs(r.Context(), []int64{id})
	if err != nil {
		sr.log.Error().Err(err).Int64("product_id", id).Msg("Failed to look up product")
		respondError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	if !existing[id] {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	patch, err := validation.UpdateProduct(r.Context(), r.Body, id, sr.lookup)
	if err != nil {
		sr.respondInvalid(w, r, err, "Validation failed")
		return
	}

	product, err := sr.catalog.UpdateProduct(r.Context(), id, *patch)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		sr.log.Error().Err(err).Int64("product_id", id).Msg("Failed to update product")
		respondError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	sr.log.Info().Int64("product_id", id).Msg("Updated product")
	respondData(w, http.StatusOK, "Product updated successfully", product)
}
