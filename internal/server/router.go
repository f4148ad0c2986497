package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepwise/prepwise-backend/internal/handlers"
	"github.com/prepwise/prepwise-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins       []string
	AuthMiddleware     *middleware.AuthMiddleware
	TestHandler        *handlers.TestHandler
	ProgressHandler    *handlers.ProgressHandler
	PerformanceHandler *handlers.PerformanceHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Generation
		api.POST("/tests/custom", cfg.TestHandler.CreateCustom)
		api.POST("/tests/revision", cfg.TestHandler.CreateRevision)
		api.POST("/tests/pyq", cfg.TestHandler.CreatePYQ)
		api.POST("/tests/smart", cfg.TestHandler.CreateSmartMock)

		// Taking
		api.GET("/tests/:id", cfg.TestHandler.GetForTaking)
		api.POST("/tests/:id/progress", cfg.ProgressHandler.RecordPartial)
		api.GET("/tests/:id/progress", cfg.ProgressHandler.Read)
		api.POST("/tests/:id/submit", cfg.TestHandler.Submit)

		// Read
		api.GET("/tests/:id/review", cfg.TestHandler.Review)
		api.GET("/performance", cfg.PerformanceHandler.Snapshot)
	}

	return router
}
