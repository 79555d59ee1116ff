package app

import (
	"context"
	"lingua_coach_backend/internal/config"
	"lingua_coach_backend/internal/controller"
	"lingua_coach_backend/internal/repository"
	"lingua_coach_backend/internal/service"
	"lingua_coach_backend/pkg/database"
	"lingua_coach_backend/pkg/logger"
	"lingua_coach_backend/pkg/monitoring"
	"lingua_coach_backend/pkg/security"
	"lingua_coach_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	content     *repository.ContentRepository
	mastery     *repository.MasteryRepository
	session     *repository.SessionRepository
	progress    *repository.ProgressRepository
	achievement *repository.AchievementRepository
}

type services struct {
	auth        *service.AuthService
	content     *service.ContentService
	session     *service.SessionService
	progress    *service.ProgressService
	review      *service.ReviewService
	achievement *service.AchievementService
	summary     *service.SummaryService
}

type controllers struct {
	auth        *controller.AuthController
	session     *controller.SessionController
	progress    *controller.ProgressController
	review      *controller.ReviewController
	achievement *controller.AchievementController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置文件热更新回调入口
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("配置已热更新",
		zap.Int64("fastAnswerMs", cfg.Engine.FastAnswerMs),
		zap.String("mode", cfg.Server.Mode))
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		content:     repository.NewContentRepository(db),
		mastery:     repository.NewMasteryRepository(db),
		session:     repository.NewSessionRepository(db, rdb),
		progress:    repository.NewProgressRepository(db),
		achievement: repository.NewAchievementRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}
	clock := service.NewRealClock()

	s.auth = service.NewAuthService(repos.user, cfg)
	s.content = service.NewContentService(repos.content, rdb, logger.Log)
	s.progress = service.NewProgressService(repos.progress, repos.mastery, repos.session,
		s.content, clock, logger.Log, cfg.Engine.FastAnswerMs)
	s.session = service.NewSessionService(repos.session, s.content, s.progress,
		clock, logger.Log, cfg.Engine.FastAnswerMs)
	s.review = service.NewReviewService(repos.mastery, s.content, clock, logger.Log, cfg.Engine.FastAnswerMs)
	s.achievement = service.NewAchievementService(repos.achievement, repos.session,
		repos.mastery, repos.progress, clock, logger.Log)
	s.summary = service.NewSummaryService(cfg.AI, repos.session, logger.Log)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		session:     controller.NewSessionController(s.session, s.content, s.achievement, s.summary),
		progress:    controller.NewProgressController(s.progress),
		review:      controller.NewReviewController(s.review),
		achievement: controller.NewAchievementController(s.achievement),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.MigrateOnStartup())
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("lingua-coach", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
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
