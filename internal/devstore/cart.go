package devstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/logging"
)

type CartHandler struct {
	DB *gorm.DB
}

// callerOwns rejects access to another user's cart.
func callerOwns(c echo.Context, userID int) bool {
	sub, _ := c.Get("user_id").(string)
	return sub == fmt.Sprint(userID)
}

func pathUserID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("userID"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}

func (row Cart) toWire() (cart.Record, error) {
	var lines []cart.Line
	if err := json.Unmarshal([]byte(row.Lines), &lines); err != nil {
		return cart.Record{}, fmt.Errorf("decode stored lines: %w", err)
	}
	return cart.Record{
		UserID:   row.UserID,
		Lines:    lines,
		Revision: strconv.Itoa(row.Revision),
	}, nil
}

// GetCart returns the persisted record, 404 when the user has none yet.
func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := pathUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !callerOwns(c, userID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your cart")
	}

	var row Cart
	if err := h.DB.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart not found")
		}
		l.Error("get_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read cart")
	}

	rec, err := row.toWire()
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "corrupt cart record")
	}
	return c.JSON(http.StatusOK, rec)
}

// PutCart replaces the record wholesale and bumps its revision. The server
// enforces the one-line-per-product invariant so a buggy client cannot
// persist duplicates.
func (h *CartHandler) PutCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.put")

	userID, err := pathUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !callerOwns(c, userID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your cart")
	}

	var req cart.Record
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	seen := make(map[int]bool, len(req.Lines))
	for _, ln := range req.Lines {
		if ln.Quantity < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
		}
		if seen[ln.ProductID] {
			return echo.NewHTTPError(http.StatusBadRequest, "duplicate product in cart")
		}
		seen[ln.ProductID] = true
	}

	if req.Lines == nil {
		req.Lines = []cart.Line{}
	}
	data, err := json.Marshal(req.Lines)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lines")
	}

	var row Cart
	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&row, "user_id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = Cart{UserID: userID, Lines: string(data), Revision: 1}
			return tx.Create(&row).Error
		case err != nil:
			return err
		default:
			row.Lines = string(data)
			row.Revision++
			return tx.Save(&row).Error
		}
	})
	if txErr != nil {
		l.Error("put_cart_error", "status", 500, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot write cart")
	}

	rec, err := row.toWire()
	if err != nil {
		l.Error("put_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "corrupt cart record")
	}

	l.Info("cart_written", "user_id", userID, "lines", len(rec.Lines), "revision", rec.Revision)
	return c.JSON(http.StatusOK, rec)
}

// DeleteCart drops the record entirely; the next read is a 404.
func (h *CartHandler) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := pathUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !callerOwns(c, userID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your cart")
	}

	if err := h.DB.WithContext(ctx).Delete(&Cart{}, "user_id = ?", userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete cart")
	}
	return c.NoContent(http.StatusNoContent)
}
