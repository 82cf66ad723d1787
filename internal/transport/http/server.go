package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "studyvoice/internal/app"
	"studyvoice/internal/bootstrap"
	"studyvoice/internal/repository"
	"studyvoice/internal/transport/http/handler"
	"studyvoice/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), middleware.Recovery(app.Logger))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	docService := appsvc.NewDocumentService(
		docRepo,
		app.Blobs,
		app.Cache,
		app.Limiter,
		app.Publisher,
		appsvc.RateLimitConfig{
			ProcessWindow: time.Duration(app.Config.RateLimit.ProcessWindowSeconds) * time.Second,
			ProcessMax:    app.Config.RateLimit.ProcessMaxRequests,
			UploadWindow:  time.Duration(app.Config.RateLimit.UploadWindowSeconds) * time.Second,
			UploadMax:     app.Config.RateLimit.UploadMaxRequests,
		},
		app.Logger,
	)

	usageService := appsvc.NewUsageService(repository.NewUsageRepository(app.MySQL))

	authHandler := handler.NewAuthHandler(authService)
	docHandler := handler.NewDocumentHandler(docService)
	usageHandler := handler.NewUsageHandler(usageService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	docGroup := v1.Group("/documents")
	docGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	docGroup.POST("", docHandler.Upload)
	docGroup.GET("", docHandler.List)
	docGroup.GET("/:id", docHandler.Get)
	docGroup.POST("/:id/process", docHandler.Process)

	usageGroup := v1.Group("/usage")
	usageGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	usageGroup.GET("/today", usageHandler.Today)

	return router
}
