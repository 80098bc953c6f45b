package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itemshare/item-share-backend/internal/auth"
	"github.com/itemshare/item-share-backend/internal/booking"
	bookingHttp "github.com/itemshare/item-share-backend/internal/booking/http"
	"github.com/itemshare/item-share-backend/internal/item"
	itemHttp "github.com/itemshare/item-share-backend/internal/item/http"
	"github.com/itemshare/item-share-backend/internal/metrics"
	"github.com/itemshare/item-share-backend/internal/user"
	userHttp "github.com/itemshare/item-share-backend/internal/user/http"
)

// Config holds the services and settings required to assemble the router.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	RateRPS        float64
	RateBurst      int
	UserService    user.Service
	ItemService    item.Service
	BookingService booking.Service
	JWTManager     *auth.JWTManager
	Metrics        *metrics.Metrics
}

// NewRouter initializes the HTTP router engine: middleware (recovery, CORS,
// request id, rate limiting, metrics) and the per-module routes.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(RequestID())
	r.Use(cfg.Metrics.Handler())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.Use(RateLimit(cfg.RateRPS, cfg.RateBurst))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	authHandler := NewAuthHandler(cfg.UserService, cfg.JWTManager)
	userHandler := userHttp.NewHandler(cfg.UserService)
	itemHandler := itemHttp.NewHandler(cfg.ItemService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)

	v1 := r.Group("/v1")
	{
		RegisterAuthRoutes(v1, authHandler)
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		itemHttp.RegisterRoutes(v1, itemHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}
