package api

import (
	"net/http"

	"storefront/internal/paymob"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// paymobWebhook receives processed-transaction callbacks. Paymob signs the
// payload and passes the signature as the hmac query parameter.
func (h *Handler) paymobWebhook(c *gin.Context) {
	signature := c.Query("hmac")
	if signature == "" {
		signature = c.GetHeader("hmac")
	}

	var callback paymob.TransactionCallback
	if err := c.ShouldBindJSON(&callback); err != nil {
		abort(c, http.StatusBadRequest, "Request.Invalid", "Invalid callback body")
		return
	}

	outcome, err := h.svc.Webhooks.ProcessTransaction(c.Request.Context(), &callback, signature)
	if err != nil {
		h.logger.Warn("Paymob callback rejected",
			zap.Int64("transaction_id", callback.Obj.ID),
			zap.Error(err))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": outcome})
}
