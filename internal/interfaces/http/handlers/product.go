// internal/interfaces/http/handlers/product.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *product.Service
	logger         *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.productService.ListActive(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list products")
		fail(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": products,
	})
}

// GetProduct handles GET /products/:type/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	typ, err := producttype.Parse(c.Param("type"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	prod, err := h.productService.Get(c.Request.Context(), id, typ)
	if errors.Is(err, product.ErrNotFound) {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to get product")
		fail(c, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": prod,
	})
}

// CreateProduct handles POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req product.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	prod, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.WithFields(logrus.Fields{"id": prod.ID, "type": prod.Type}).Info("product created")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"product": prod,
	})
}

// UpdateProduct handles PUT /admin/products/:type/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	typ, err := producttype.Parse(c.Param("type"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req product.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	prod, err := h.productService.Update(c.Request.Context(), id, typ, &req)
	if errors.Is(err, product.ErrNotFound) {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": prod,
	})
}
