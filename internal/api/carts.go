package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) replyCart(c *gin.Context, cart *service.CartSummary, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Carts.GetCart(c.Request.Context(), currentUserID(c))
	h.replyCart(c, cart, err)
}

func (h *Handler) clearCart(c *gin.Context) {
	cart, err := h.svc.Carts.Clear(c.Request.Context(), currentUserID(c))
	h.replyCart(c, cart, err)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.svc.Carts.AddItem(c.Request.Context(), currentUserID(c), req.ProductID, req.Quantity)
	h.replyCart(c, cart, err)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}
	var req updateItemRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.svc.Carts.UpdateItem(c.Request.Context(), currentUserID(c), productID, req.Quantity)
	h.replyCart(c, cart, err)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}
	cart, err := h.svc.Carts.RemoveItem(c.Request.Context(), currentUserID(c), productID)
	h.replyCart(c, cart, err)
}

func (h *Handler) applyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if !bind(c, &req) {
		return
	}
	cart, err := h.svc.Carts.ApplyCoupon(c.Request.Context(), currentUserID(c), req.Code)
	h.replyCart(c, cart, err)
}

func (h *Handler) removeCoupon(c *gin.Context) {
	cart, err := h.svc.Carts.RemoveCoupon(c.Request.Context(), currentUserID(c))
	h.replyCart(c, cart, err)
}
