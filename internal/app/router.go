package app

import (
	"lingua_coach_backend/docs"
	"lingua_coach_backend/internal/config"
	"lingua_coach_backend/internal/middleware"
	"lingua_coach_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	router.Use(middleware.RequestID())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 学习会话
		sessions := authGroup.Group("/sessions")
		{
			sessions.POST("/today", c.session.Start)
			sessions.POST("/:id/drill-answers", c.session.AnswerDrill)
			sessions.POST("/:id/vocab-answers", c.session.AnswerVocab)
			sessions.POST("/:id/sentence-submissions", c.session.SubmitSentence)
			sessions.POST("/:id/next-step", c.session.NextStep)
			sessions.POST("/:id/finish", c.session.Finish)
		}

		// 进度
		progress := authGroup.Group("/progress")
		{
			progress.GET("", c.progress.Overview)
			progress.GET("/lessons/:lessonId", c.progress.LessonProgress)
			progress.GET("/history", c.progress.AccuracyHistory)
			progress.POST("/jump", c.progress.JumpToLesson)
		}

		// 复习
		review := authGroup.Group("/review")
		{
			review.GET("/queue", c.review.Queue)
			review.POST("/grammar/:grammarPointId", c.review.RateGrammar)
			review.POST("/vocab/:vocabWordId", c.review.RateVocab)
		}

		// 成就
		authGroup.GET("/achievements", c.achievement.List)
	}
}
