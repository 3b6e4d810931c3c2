package devstore

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// Register wires the dev store's routes: the same surface the storefront
// client expects from the real remote store.
func Register(e *echo.Echo, d *Deps) {
	auth := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret}
	products := &ProductHandler{DB: d.DB}
	carts := &CartHandler{DB: d.DB}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)

	e.GET("/products", products.GetProducts)
	e.GET("/products/:id", products.GetProduct)

	admin := e.Group("/admin", RequireAdmin(d.JWTSecret))
	admin.POST("/products", products.CreateProduct)
	admin.PATCH("/products/:id", products.PatchProduct)
	admin.DELETE("/products/:id", products.DeleteProduct)

	cartGroup := e.Group("/carts", RequireAuth(d.JWTSecret))
	cartGroup.GET("/:userID", carts.GetCart)
	cartGroup.PUT("/:userID", carts.PutCart)
	cartGroup.DELETE("/:userID", carts.DeleteCart)
}
