package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAddresses(c *gin.Context) {
	addresses, err := h.svc.Addresses.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addresses)
}

func (h *Handler) getAddress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	address, err := h.svc.Addresses.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) createAddress(c *gin.Context) {
	var req service.AddressInput
	if !bind(c, &req) {
		return
	}
	address, err := h.svc.Addresses.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *Handler) updateAddress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.AddressInput
	if !bind(c, &req) {
		return
	}
	address, err := h.svc.Addresses.Update(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) setDefaultAddress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	address, err := h.svc.Addresses.SetDefault(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) deleteAddress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Addresses.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
