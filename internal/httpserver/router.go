package httpserver

import (
	"github.com/labstack/echo/v4"
)

type Deps struct {
	SessionHandler *SessionHandler
	CartHandler    *CartHandler
	ProductHandler *ProductHandler
	SearchHandler  *SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/session/login", d.SessionHandler.Login)
	v1.POST("/session/logout", d.SessionHandler.Logout)

	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)
	v1.GET("/search", d.SearchHandler.Handler)

	v1.GET("/cart", d.CartHandler.GetCart)
	v1.POST("/cart", d.CartHandler.AddToCart)
	v1.POST("/cart/refresh", d.CartHandler.RefreshCart)
	v1.GET("/cart/events", d.CartHandler.Events)
}
