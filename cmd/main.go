package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/prepwise/prepwise-backend/internal/clients/redis"
	"github.com/prepwise/prepwise-backend/internal/clients/vector"
	"github.com/prepwise/prepwise-backend/internal/db"
	"github.com/prepwise/prepwise-backend/internal/handlers"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/middleware"
	"github.com/prepwise/prepwise-backend/internal/repos"
	"github.com/prepwise/prepwise-backend/internal/server"
	"github.com/prepwise/prepwise-backend/internal/services"
	"github.com/prepwise/prepwise-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	port := utils.GetEnv("PORT", "8080", log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis
	rdb, err := redis.NewClient(log)
	if err != nil {
		log.Fatal("Redis init failed", "error", err)
	}

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	examRepo := repos.NewExamRepo(thePG, log)
	taxonomyRepo := repos.NewTaxonomyRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	testInstanceRepo := repos.NewTestInstanceRepo(thePG, log)
	testAnswerRepo := repos.NewTestAnswerRepo(thePG, log)
	performanceRepo := repos.NewPerformanceRepo(thePG, log)
	dailyRepo := repos.NewDailyPerformanceRepo(thePG, log)

	// Services
	log.Info("Setting up services...")
	genCfg := services.LoadGenerationConfig(log)

	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Fatal("Could not init OpenAIClient", "error", err)
	}
	vectorStore := vector.NewStore(log)

	authService := services.NewAuthService(log, jwtSecretKey)
	progressBuffer := services.NewProgressBufferService(rdb, log)
	profileService := services.NewProfileService(thePG, log, genCfg, performanceRepo, taxonomyRepo)
	poolBuilder := services.NewPoolBuilderService(thePG, log, genCfg, questionRepo, testAnswerRepo, performanceRepo, taxonomyRepo, openaiClient, vectorStore)
	curator := services.NewCuratorService(log, openaiClient)
	statsService := services.NewStatsService(thePG, log, performanceRepo, taxonomyRepo, dailyRepo, userRepo)
	testService := services.NewTestService(thePG, log, genCfg, examRepo, questionRepo, testInstanceRepo, testAnswerRepo, poolBuilder, curator, profileService, progressBuffer)
	submissionService := services.NewSubmissionService(thePG, log, examRepo, questionRepo, testInstanceRepo, testAnswerRepo, performanceRepo, progressBuffer, statsService)
	performanceService := services.NewPerformanceService(thePG, log, performanceRepo, taxonomyRepo, userRepo)

	// Handlers
	log.Info("Setting up handlers...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	testHandler := handlers.NewTestHandler(log, testService, submissionService)
	progressHandler := handlers.NewProgressHandler(log, testService)
	performanceHandler := handlers.NewPerformanceHandler(log, performanceService)

	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:       allowOrigins,
		AuthMiddleware:     authMiddleware,
		TestHandler:        testHandler,
		ProgressHandler:    progressHandler,
		PerformanceHandler: performanceHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
