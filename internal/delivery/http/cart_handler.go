package http

import (
	"net/http"

	"github.com/egannguyen/pharma-storefront/internal/service"
	"github.com/gin-gonic/gin"
)

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleGetCart(c *gin.Context) {
	view, err := h.deps.Carts.GetCart(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *Handler) handleAddCartItem(c *gin.Context) {
	var req service.LineRequest
	if !bindAuthenticated(c, &req) {
		return
	}

	view, err := h.deps.Carts.AddItem(c.Request.Context(), identity(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *Handler) handleSetCartItem(c *gin.Context) {
	var req cartQuantityRequest
	if !bindAuthenticated(c, &req) {
		return
	}

	view, err := h.deps.Carts.SetItem(c.Request.Context(), identity(c), c.Param("productId"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *Handler) handleRemoveCartItem(c *gin.Context) {
	view, err := h.deps.Carts.RemoveItem(c.Request.Context(), identity(c), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *Handler) handleClearCart(c *gin.Context) {
	if err := h.deps.Carts.Clear(c.Request.Context(), identity(c)); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "cart cleared")
}
