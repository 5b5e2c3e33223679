// server/internal/api/routes/routes.go
package routes

import (
	"strings"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/api/handlers"
	"car-listing-api-server/internal/api/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// TokenService issues tokens for the auth routes and verifies them for the
// protected ones.
type TokenService interface {
	handlers.TokenIssuer
	middleware.TokenParser
}

// Dependencies holds everything the router hands to handlers and middleware.
type Dependencies struct {
	Cars     handlers.CarService
	Users    handlers.UserStore
	Finder   middleware.UserFinder
	Tokens   TokenService
	DB       handlers.Pinger
	Registry *prometheus.Registry
	Log      *zap.Logger
}

// SetupRouter wires middleware and routes.
func SetupRouter(cfg config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(deps.Log))
	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.NewMetrics(deps.Registry).Handler())
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	carHandler := &handlers.CarHandler{Cars: deps.Cars, Log: deps.Log}
	authHandler := &handlers.AuthHandler{Users: deps.Users, Tokens: deps.Tokens, Log: deps.Log}
	healthHandler := &handlers.HealthHandler{DB: deps.DB}

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		if perMinute := cfg.RateLimit.AuthPerMinute; perMinute > 0 {
			auth.Use(middleware.NewRateLimiter(perMinute, perMinute).Handler())
		}
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Every car route requires a valid token.
		cars := api.Group("/cars")
		cars.Use(middleware.Authenticate(deps.Tokens, deps.Finder))
		{
			cars.POST("", carHandler.CreateCar)
			cars.GET("", carHandler.GetCars)
			cars.GET("/user", carHandler.GetUserCars)
			cars.DELETE("/:id", carHandler.DeleteCar)
		}
	}

	return router
}

func corsConfig(allowed string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}

	var origins []string
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
