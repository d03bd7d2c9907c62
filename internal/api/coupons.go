package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCoupons(c *gin.Context) {
	coupons, err := h.svc.Coupons.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	c.JSON(http.StatusOK, coupons)
}

func (h *Handler) getCoupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	coupon, err := h.svc.Coupons.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (h *Handler) createCoupon(c *gin.Context) {
	var req service.CouponInput
	if !bind(c, &req) {
		return
	}
	coupon, err := h.svc.Coupons.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

func (h *Handler) updateCoupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CouponInput
	if !bind(c, &req) {
		return
	}
	coupon, err := h.svc.Coupons.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (h *Handler) deleteCoupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Coupons.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
