package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"english_bot_backend/internal/config"
	"english_bot_backend/internal/controller"
	"english_bot_backend/internal/repository"
	"english_bot_backend/internal/service"
	"english_bot_backend/pkg/database"
	"english_bot_backend/pkg/logger"
	"english_bot_backend/pkg/monitoring"
	"english_bot_backend/pkg/security"
	"english_bot_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	session *repository.SessionRepository
	lesson  *repository.LessonRepository
}

type services struct {
	whatsapp     *service.WhatsAppService
	ai           *service.AIService
	lesson       *service.LessonService
	auth         *service.AuthService
	conversation *service.ConversationService
}

type controllers struct {
	webhook *controller.WebhookController
	auth    *controller.AuthController
	lesson  *controller.LessonController
	health  *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		session: repository.NewSessionRepository(db),
		lesson:  repository.NewLessonRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.whatsapp = service.NewWhatsAppService(cfg.WhatsApp, rdb)
	s.lesson = service.NewLessonService(repos.lesson, repos.session)
	s.auth = service.NewAuthService(cfg)

	s.ai = service.NewAIService(context.Background(), cfg.AI, rdb)

	engine := service.NewEngine(s.lesson, s.ai, s.whatsapp)
	s.conversation = service.NewConversationService(repos.session, engine, s.whatsapp)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		webhook: controller.NewWebhookController(s.conversation),
		auth:    controller.NewAuthController(s.auth),
		lesson:  controller.NewLessonController(s.lesson),
		health:  controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis 可选：关闭时学习计划和实例状态缓存自动退化为直连
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
			log.Fatalf("Failed to initialize redis: %v", err)
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("english-bot", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	port := a.Config.Server.Port
	if port == "" {
		port = "8000"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
