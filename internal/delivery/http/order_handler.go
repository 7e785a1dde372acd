package http

import (
	"net/http"

	"github.com/egannguyen/pharma-storefront/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *Handler) handleCreateOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if !bindAuthenticated(c, &req) {
		return
	}

	order, err := h.deps.Orders.PlaceOrder(c.Request.Context(), identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

func (h *Handler) handleGetOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListOrders(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(c *gin.Context) {
	order, err := h.deps.Orders.GetOrder(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

type updateOrderRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateOrder(c *gin.Context) {
	var req updateOrderRequest
	if !bindAuthenticated(c, &req) {
		return
	}

	order, err := h.deps.Orders.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (h *Handler) handleCancelOrder(c *gin.Context) {
	order, err := h.deps.Orders.CancelOrder(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}
