package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	group.Use(authMiddleware)
	{
		group.POST("", h.Create)
		group.GET("", h.ListMine)
		// "owner" must register before ":id" so gin does not swallow it.
		group.GET("/owner", h.ListOwned)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Decide)
	}
}
