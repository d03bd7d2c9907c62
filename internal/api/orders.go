package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// checkout handles order placement from the caller's cart
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svc.Orders.Checkout(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listMyOrders(c *gin.Context) {
	limit, offset := pageParams(c)
	orders, err := h.svc.Orders.ListUserOrders(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNilOrders(orders))
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := currentActor(c)
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), actor.UserID, id, actor.IsAdmin())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.CancelOrder(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listSellerOrders(c *gin.Context) {
	limit, offset := pageParams(c)
	orders, err := h.svc.Orders.ListSellerOrders(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNilOrders(orders))
}

func (h *Handler) listAllOrders(c *gin.Context) {
	var filter models.OrderFilter
	filter.Limit, filter.Offset = pageParams(c)
	if v := c.Query("status"); v != "" {
		status, ok := models.ParseOrderStatus(v)
		if !ok {
			h.respondError(c, service.ErrOrderInvalidStatus)
			return
		}
		filter.Status = &status
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			abort(c, http.StatusBadRequest, "Request.InvalidQuery", "Invalid user_id")
			return
		}
		filter.UserID = &id
	}

	orders, err := h.svc.Orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNilOrders(orders))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func nonNilOrders(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}
