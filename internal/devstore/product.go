package devstore

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/logging"
)

type ProductHandler struct {
	DB *gorm.DB
}

// GetProducts returns the whole catalog as a flat array, the shape the
// storefront client consumes.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	var rows []Product
	if err := h.DB.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		l.Error("get_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	out := make([]cart.Product, len(rows))
	for i, row := range rows {
		out[i] = row.toWire()
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var row Product
	if err := h.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("get_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read product")
	}
	return c.JSON(http.StatusOK, row.toWire())
}

type productRequest struct {
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Title == "" || req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "title required, price must be >= 0")
	}

	row := Product{
		Title:       req.Title,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
		Image:       req.Image,
	}
	if err := h.DB.WithContext(ctx).Create(&row).Error; err != nil {
		l.Error("create_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
	}

	l.Info("product_created", "product_id", row.ID)
	return c.JSON(http.StatusCreated, row.toWire())
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Title       *string          `json:"title"`
		Price       *decimal.Decimal `json:"price"`
		Description *string          `json:"description"`
		Category    *string          `json:"category"`
		Image       *string          `json:"image"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var row Product
	if err := h.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("patch_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read product")
	}

	if req.Title != nil {
		row.Title = *req.Title
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
		}
		row.Price = *req.Price
	}
	if req.Description != nil {
		row.Description = *req.Description
	}
	if req.Category != nil {
		row.Category = *req.Category
	}
	if req.Image != nil {
		row.Image = *req.Image
	}

	if err := h.DB.WithContext(ctx).Save(&row).Error; err != nil {
		l.Error("patch_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	l.Info("product_updated", "product_id", row.ID)
	return c.JSON(http.StatusOK, row.toWire())
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	res := h.DB.WithContext(ctx).Delete(&Product{}, id)
	if res.Error != nil {
		l.Error("delete_product_error", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	l.Info("product_deleted", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
