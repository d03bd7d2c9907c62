package api

import (
	"bytes"
	"net/http"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxImportSize = 10 << 20

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.svc.Products.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.svc.Products.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req service.CategoryInput
	if !bind(c, &req) {
		return
	}
	category, err := h.svc.Products.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CategoryInput
	if !bind(c, &req) {
		return
	}
	category, err := h.svc.Products.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// productFilter reads listing filters from the query string. Malformed
// values are rejected rather than ignored.
func productFilter(c *gin.Context) (models.ProductFilter, bool) {
	var f models.ProductFilter
	f.Search = c.Query("search")
	f.InStock = c.Query("in_stock") == "true"
	f.Limit, f.Offset = pageParams(c)

	for key, dst := range map[string]**uuid.UUID{"category_id": &f.CategoryID, "seller_id": &f.SellerID} {
		if v := c.Query(key); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				abort(c, http.StatusBadRequest, "Request.InvalidQuery", "Invalid "+key)
				return f, false
			}
			*dst = &id
		}
	}
	for key, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if v := c.Query(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				abort(c, http.StatusBadRequest, "Request.InvalidQuery", "Invalid "+key)
				return f, false
			}
			*dst = &d
		}
	}
	return f, true
}

func (h *Handler) listProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	page, err := h.svc.Products.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	product, err := h.svc.Products.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductInput
	if !bind(c, &req) {
		return
	}
	product, err := h.svc.Products.Create(c.Request.Context(), currentActor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProductInput
	if !bind(c, &req) {
		return
	}
	product, err := h.svc.Products.Update(c.Request.Context(), currentActor(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Products.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Products.ExportXLSX(c.Request.Context(), &buf, filter); err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="products.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) importProducts(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		abort(c, http.StatusBadRequest, "Request.MissingFile", "Upload the spreadsheet in the file field")
		return
	}
	if header.Size > maxImportSize {
		abort(c, http.StatusBadRequest, "Request.FileTooLarge", "File must be at most "+strconv.Itoa(maxImportSize>>20)+" MB")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	result, err := h.svc.Products.ImportXLSX(c.Request.Context(), currentActor(c), file, header.Size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listReviews(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.svc.Reviews.ListProductReviews(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) addReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ReviewInput
	if !bind(c, &req) {
		return
	}
	review, err := h.svc.Reviews.AddReview(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) updateReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ReviewInput
	if !bind(c, &req) {
		return
	}
	review, err := h.svc.Reviews.UpdateReview(c.Request.Context(), currentActor(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) deleteReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Reviews.DeleteReview(c.Request.Context(), currentActor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
