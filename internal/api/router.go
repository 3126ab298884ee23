package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "gw-currency-rates/docs"
	"gw-currency-rates/internal/api/handlers"
	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/api/ws"
	"gw-currency-rates/internal/engine"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RouterDeps зависимости HTTP API
type RouterDeps struct {
	Querier       engine.Querier
	Refresher     handlers.Refresher
	Admin         handlers.AdminCredentials
	JWTMiddleware *middleware.JWTMiddleware
	Limiter       *limiter.Limiter
	Hub           *ws.Hub
	Logger        *logrus.Logger
	GinMode       string
}

// SetupRouter настраивает и возвращает роутер с всеми эндпоинтами
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(deps.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	ratesHandler := handlers.NewRatesHandler(deps.Querier, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.Admin, deps.JWTMiddleware, deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.Refresher, deps.Logger)

	v1 := router.Group("/api/v1")
	if deps.Limiter != nil {
		v1.Use(middleware.RateLimit(deps.Limiter, deps.Logger))
	}
	{
		v1.GET("/currencies", ratesHandler.ListCurrencies)
		v1.GET("/currencies/:code", ratesHandler.GetCurrent)
		v1.GET("/currencies/:code/history", ratesHandler.GetHistory)
		v1.GET("/currencies/:code/history/range", ratesHandler.GetHistoryRange)
		v1.GET("/convert", ratesHandler.Convert)
		if deps.Hub != nil {
			v1.GET("/ws", deps.Hub.Handle)
		}

		v1.POST("/login", authHandler.Login)

		admin := v1.Group("/admin")
		admin.Use(deps.JWTMiddleware.Auth())
		{
			admin.POST("/refresh", adminHandler.Refresh)
			admin.POST("/backfill", adminHandler.Backfill)
		}
	}

	return router
}
