package server

import (
	"errors"
	"net/http"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/cmd/metrics-service/internal/service"
	"propfolio/pkg/auth"
	"propfolio/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 日志接口
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// HTTPServer HTTP 服务器
type HTTPServer struct {
	engine     *gin.Engine
	service    *service.MetricsService
	jwtManager *auth.JWTManager
	rbac       *auth.RBACManager
	logger     Logger
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	srv *service.MetricsService,
	jwtManager *auth.JWTManager,
	rbac *auth.RBACManager,
	logger Logger,
) *HTTPServer {
	// 设置 Gin 模式
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	s := &HTTPServer{
		engine:     engine,
		service:    srv,
		jwtManager: jwtManager,
		rbac:       rbac,
		logger:     logger,
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s
}

// Engine 返回底层引擎
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares() {
	// Recovery 中间件
	s.engine.Use(gin.Recovery())

	// 请求日志中间件
	s.engine.Use(s.requestLogger())

	// CORS 中间件（管理后台跨域调用）
	s.engine.Use(s.corsMiddleware())
}

// requestLogger 请求日志中间件
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	api := s.engine.Group("/api/v1")

	// 指标接口：先过认证，再过管理员权限，任何采集器都不会
	// 在门禁通过之前执行
	metrics := api.Group("/metrics")
	metrics.Use(middleware.AuthMiddleware(s.jwtManager))
	{
		metrics.POST("/snapshot",
			middleware.RequirePermission(s.rbac, auth.PermissionGenerateMetrics),
			s.generateSnapshot,
		)
		metrics.GET("/snapshot/latest",
			middleware.RequirePermission(s.rbac, auth.PermissionReadMetrics),
			s.getLatestSnapshot,
		)
	}

	// 健康检查
	s.engine.GET("/health", s.healthCheck)
	s.engine.GET("/ready", s.readinessCheck)
}

// generateSnapshot 计算并返回一份新快照
func (s *HTTPServer) generateSnapshot(c *gin.Context) {
	userID := c.GetString("user_id")

	snapshot, err := s.service.GenerateSnapshot(c.Request.Context(), userID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// getLatestSnapshot 返回最近一次持久化的快照
func (s *HTTPServer) getLatestSnapshot(c *gin.Context) {
	snapshot, err := s.service.GetLatestSnapshot(c.Request.Context())
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// healthCheck 健康检查
func (s *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessCheck 就绪检查
func (s *HTTPServer) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// handleServiceError 服务错误映射
func (s *HTTPServer) handleServiceError(c *gin.Context, err error) {
	s.logger.Error("Request error",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)

	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		s.respondError(c, http.StatusNotFound, "no snapshot has been generated yet")
	case errors.Is(err, domain.ErrUpstreamBilling):
		s.respondError(c, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrComputation):
		s.respondError(c, http.StatusInternalServerError, err.Error())
	default:
		s.respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// respondError 统一错误响应
func (s *HTTPServer) respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
