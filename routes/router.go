package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenify/greenify/config"
	"github.com/greenify/greenify/controllers"
	"github.com/greenify/greenify/middleware"
	"github.com/greenify/greenify/repository"
	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin logger disabled: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	locks := services.NewUserLocks()
	cache := repository.NewRedisStreakCache(time.Duration(cfg.StreakCacheTTLSeconds) * time.Second)
	entryService := services.NewEntryService(
		repository.NewUnitOfWork(db),
		services.WithLocks(locks),
		services.WithCache(cache),
		services.WithLogger(utils.L().Named("entries")),
	)

	authController := controllers.NewAuthController(db, locks, cache)
	entryController := controllers.NewEntryController(entryService)
	streakController := controllers.NewStreakController(entryService)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	api := r.Group("/api")

	userGroup := api.Group("/user")
	userGroup.POST("/register", limiter.Middleware(), authController.Register)
	userGroup.POST("/login", limiter.Middleware(), authController.Login)
	userGroup.GET("/captcha", limiter.Middleware(), authController.Captcha)

	me := userGroup.Group("")
	me.Use(middleware.AuthRequired(), limiter.Middleware())
	me.GET("/me", authController.Me)
	me.PUT("/me/username", authController.ChangeUsername)
	me.PUT("/me/password", authController.ChangePassword)
	me.DELETE("/me", authController.Delete)
	me.POST("/logout", authController.Logout)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limiter.Middleware())
	protected.POST("/daily-entry", entryController.Upsert)
	protected.GET("/daily-entry/:date", entryController.Get)
	protected.GET("/streak", streakController.Get)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
