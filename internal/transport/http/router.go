package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smam/backend/internal/config"
	"smam/backend/internal/health"
	"smam/backend/internal/locale"
	"smam/backend/internal/middleware"
	"smam/backend/internal/monitoring"
	"smam/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config  *config.Config
	Relay   *service.RelayService
	Catalog *locale.Catalog
	Metrics *monitoring.Metrics
	Health  *health.Checker
	Logger  *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) (*gin.Engine, error) {
	router := gin.New()

	if len(deps.Config.Server.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
			return nil, err
		}
	}

	mm := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)

	router.Use(middleware.RequestID())
	router.Use(mm.PanicRecovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(mm.HTTPMetrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(gincors.New(corsConfig(deps.Config.CORS)))

	handler := &Handler{
		relay:    deps.Relay,
		catalog:  deps.Catalog,
		language: deps.Config.Locale.Language,
		labels:   deps.Config.Locale.Labels,
		logger:   deps.Logger,
	}

	router.GET("/register", handler.register)
	router.GET("/lang", handler.lang)
	router.GET("/fields", handler.fields)
	router.POST("/send", handler.send)

	// 运维端点
	router.GET("/health/live", gin.WrapH(deps.Health.LiveHandler()))
	router.GET("/health/ready", gin.WrapH(deps.Health.ReadyHandler()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	if dir := deps.Config.Server.StaticDir; dir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(gin.Dir(dir, false))))
	}

	return router, nil
}

// corsConfig 仅允许单个来源，"*" 表示放行任意来源
func corsConfig(cfg config.CORSConfig) gincors.Config {
	c := gincors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if cfg.AllowedOrigin == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = []string{cfg.AllowedOrigin}
	}
	return c
}
