package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/ajquiz-api/internal/config"
	"github.com/yourusername/ajquiz-api/internal/handler"
	"github.com/yourusername/ajquiz-api/internal/middleware"
	pgRepo "github.com/yourusername/ajquiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/ajquiz-api/internal/repository/redis"
	"github.com/yourusername/ajquiz-api/internal/service"
	"github.com/yourusername/ajquiz-api/pkg/auth"
	"github.com/yourusername/ajquiz-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	statsRepo := pgRepo.NewUserStatsRepo(db)
	leaderboardRepo := pgRepo.NewLeaderboardRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Верификатор токенов внешнего провайдера аутентификации
	tokenVerifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Printf("Failed to initialize TokenVerifier: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	txRunner := service.NewGormTxRunner(db)
	userService := service.NewUserService(userRepo)
	metricsService := service.NewMetricsService(attemptRepo, statsRepo, txRunner)
	leaderboardService := service.NewLeaderboardService(attemptRepo, statsRepo, leaderboardRepo, userRepo, cacheRepo, txRunner)
	dashboardService := service.NewDashboardService(attemptRepo)

	questionService, err := service.NewQuestionService(
		cfg.QuestionBank.BaseURL,
		cfg.QuestionBank.AccessToken,
		time.Duration(cfg.QuestionBank.TimeoutSec)*time.Second,
	)
	if err != nil {
		log.Printf("Failed to initialize QuestionService: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	questionHandler := handler.NewQuestionHandler(questionService)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenVerifier)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	writeLimit := rateLimiter.Limit(middleware.DefaultWriteRateLimitConfig())
	reportLimit := rateLimiter.Limit(middleware.ReportRateLimitConfig())

	// Контекст жизни фоновых задач
	ctx, cancel := context.WithCancel(context.Background())

	// Встроенный планировщик пересчёта лидерборда. Внешний cron через
	// HTTP-триггер остаётся основным механизмом, тикер - подстраховка
	// для окружений без внешнего планировщика.
	if cfg.Cron.IntervalMinutes > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.Cron.IntervalMinutes) * time.Minute)
			defer ticker.Stop()

			log.Printf("Запуск встроенного планировщика пересчёта лидерборда (каждые %d мин)", cfg.Cron.IntervalMinutes)

			for {
				select {
				case <-ticker.C:
					if err := leaderboardService.Recompute(ctx); err != nil {
						log.Printf("Ошибка планового пересчёта лидерборда: %v", err)
					}
				case <-ctx.Done():
					log.Println("Завершение работы планировщика пересчёта лидерборда")
					return
				}
			}
		}()
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// В production (GIN_MODE=release): не доверяем прокси (защита от IP spoofing)
	// В development: доверяем localhost
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://ajquiz.vercel.app", "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Лидерборд (публичные маршруты чтения)
		leaderboard := api.Group("/leaderboard")
		{
			leaderboard.GET("", leaderboardHandler.GetLeaderboard)
			leaderboard.GET("/global", leaderboardHandler.GetGlobalTop)
			leaderboard.GET("/subjects", leaderboardHandler.GetSubjectBreakdown)
			leaderboard.GET("/export", leaderboardHandler.ExportLeaderboard)
		}

		// Триггер пересчёта для внешнего cron, закрыт статическим секретом
		cron := api.Group("/cron")
		cron.Use(middleware.RequireCronSecret(cfg.Cron.Secret))
		{
			cron.POST("/leaderboard", leaderboardHandler.TriggerRecompute)
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.POST("/sync", userHandler.SyncUser)
			users.GET("/me", userHandler.GetMe)
		}

		// Попытки прохождения викторин
		quiz := api.Group("/quiz")
		quiz.Use(authMiddleware.RequireAuth())
		{
			quiz.POST("/start", writeLimit, metricsHandler.StartQuiz)
			quiz.POST("/complete", writeLimit, metricsHandler.CompleteQuiz)
			quiz.GET("/history", metricsHandler.GetHistory)
			quiz.GET("/activity", metricsHandler.GetRecentActivity)

			attemptWithID := quiz.Group("/attempts/:id")
			attemptWithID.Use(middleware.ExtractUintParam("id", "attemptID"))
			{
				attemptWithID.GET("", metricsHandler.GetAttemptReview)
			}
		}

		// Накопительная статистика
		metrics := api.Group("/metrics")
		metrics.Use(authMiddleware.RequireAuth())
		{
			metrics.GET("/stats", metricsHandler.GetUserStats)
		}

		// Дашборд
		dashboard := api.Group("/dashboard")
		dashboard.Use(authMiddleware.RequireAuth())
		{
			dashboard.GET("/stats", dashboardHandler.GetStats)
			dashboard.GET("/subjects", dashboardHandler.GetSubjectStats)
			dashboard.GET("/popular", dashboardHandler.GetPopularSubjects)
		}

		// Прокси банка вопросов
		questions := api.Group("/questions")
		questions.Use(authMiddleware.RequireAuth())
		{
			questions.GET("/subjects", questionHandler.GetSubjects)
			questions.GET("", questionHandler.GetQuestions)
			questions.GET("/batch", questionHandler.GetQuestionBatch)
			questions.POST("/report", reportLimit, questionHandler.ReportQuestion)
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Отправляем сигнал завершения для фоновых горутин
	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
