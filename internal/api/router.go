package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/reel-slot/internal/database"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/logger"
	"github.com/wfunc/reel-slot/internal/middleware"
	"github.com/wfunc/reel-slot/internal/service"
	"github.com/wfunc/reel-slot/internal/utils"
	ws "github.com/wfunc/reel-slot/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	Manager *game.Manager
	Journal *service.JournalService
	JWT     *utils.JWTManager
	Hub     *ws.Hub
	DB      *gorm.DB
	Logger  *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	manager        *game.Manager
	hub            *ws.Hub
	db             *gorm.DB
	sessionHandler *SessionHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())

	router := &Router{
		engine:         engine,
		manager:        cfg.Manager,
		hub:            cfg.Hub,
		db:             cfg.DB,
		sessionHandler: NewSessionHandler(cfg.Manager, cfg.Journal, cfg.JWT, cfg.Hub, log),
		authMiddleware: middleware.NewAuthMiddleware(cfg.JWT),
		log:            log,
	}
	if cfg.Hub != nil {
		router.wsHandler = NewWebSocketHandler(cfg.Hub, log)
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 接口文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/profiles", r.sessionHandler.Profiles)
		v1.POST("/sessions", r.sessionHandler.Create)

		// 需要会话令牌的路由
		session := v1.Group("/session")
		session.Use(r.authMiddleware.RequireSession())
		{
			session.GET("", r.sessionHandler.Info)
			session.DELETE("", r.sessionHandler.Close)
			session.POST("/deposit", r.sessionHandler.Deposit)
			session.POST("/spin", r.sessionHandler.Spin)
			session.POST("/play", r.sessionHandler.Play)
			session.GET("/history", r.sessionHandler.History)
			session.GET("/summary", r.sessionHandler.Summary)
			session.GET("/rounds/:spin_id", r.sessionHandler.Round)
		}
	}

	// WebSocket路由，浏览器通过 ?token= 认证
	if r.wsHandler != nil {
		r.engine.GET("/ws", r.authMiddleware.RequireSession(), r.wsHandler.GameWebSocket)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		respondError(c, errors.New(errors.ErrNotFound, c.Request.URL.Path))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":   "healthy",
		"sessions": r.manager.Count(),
	}
	if r.hub != nil {
		resp["online"] = r.hub.GetOnlineCount()
	}
	if r.db != nil {
		resp["database"] = database.IsConnected(r.db)
	}
	c.JSON(http.StatusOK, resp)
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// respondError 按错误码返回统一错误响应
func respondError(c *gin.Context, err error) {
	appErr := errors.Wrap(err, errors.ErrUnknown)
	if errors.IsCritical(appErr) || appErr.HTTPStatus() >= http.StatusInternalServerError {
		logger.LogError(appErr, "请求处理失败",
			zap.String("path", c.Request.URL.Path),
			zap.String("stack", appErr.GetStack()))
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, middleware.GetRequestID(c)))
}
