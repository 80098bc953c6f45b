package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/itemshare/item-share-backend/internal/api"
	"github.com/itemshare/item-share-backend/internal/auth"
	"github.com/itemshare/item-share-backend/internal/booking"
	"github.com/itemshare/item-share-backend/internal/cache"
	"github.com/itemshare/item-share-backend/internal/item"
	"github.com/itemshare/item-share-backend/internal/metrics"
	"github.com/itemshare/item-share-backend/internal/pkg/storage"
	"github.com/itemshare/item-share-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	RedisClient  *redis.Client // nil disables the booking list cache
	CacheTTL     time.Duration
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	StoragePath  string
	RateRPS      float64
	RateBurst    int
	Logger       zerolog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Metrics    *metrics.Metrics
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	m := metrics.New()

	listCache := cache.NewNoop()
	if cfg.RedisClient != nil {
		listCache = cache.NewRedisCache(cfg.RedisClient, cfg.CacheTTL)
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	// User module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, cfg.Logger)

	// Booking repository first: the item module needs it for the
	// finished-booking check behind comments.
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)

	// Item module
	itemRepo := item.NewPgxRepository(cfg.DBPool)
	itemService := item.NewService(itemRepo, bookingRepo, store, storage.NewImageProcessor(), cfg.Logger)

	// Booking module
	bookingService := booking.NewService(bookingRepo, itemService, userService, listCache, m, cfg.Logger)

	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		RateRPS:        cfg.RateRPS,
		RateBurst:      cfg.RateBurst,
		UserService:    userService,
		ItemService:    itemService,
		BookingService: bookingService,
		JWTManager:     jwtManager,
		Metrics:        m,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Metrics:    m,
	}, nil
}
