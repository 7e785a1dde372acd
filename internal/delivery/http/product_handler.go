package http

import (
	"net/http"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *Handler) handleListProducts(c *gin.Context) {
	filter := entity.ProductFilter{Category: c.Query("category")}
	products, err := h.deps.Products.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(c *gin.Context) {
	product, err := h.deps.Products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) handleCreateProduct(c *gin.Context) {
	var in service.ProductInput
	if !bindAuthenticated(c, &in) {
		return
	}

	product, err := h.deps.Products.CreateProduct(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(c *gin.Context) {
	var in service.ProductInput
	if !bindAuthenticated(c, &in) {
		return
	}

	product, err := h.deps.Products.UpdateProduct(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(c *gin.Context) {
	if err := h.deps.Products.DeleteProduct(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "product deleted")
}
