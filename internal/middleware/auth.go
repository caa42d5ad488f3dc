package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/utils"
)

const (
	contextSessionID = "sessionID"
	contextProfile   = "profile"
)

// AuthMiddleware 会话令牌认证中间件
type AuthMiddleware struct {
	jwtManager *utils.JWTManager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *utils.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireSession 需要有效会话令牌
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			abortWithError(c, errors.New(errors.ErrAuthentication, "缺少认证令牌"))
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			code := errors.ErrTokenInvalid
			if stderrors.Is(err, utils.ErrExpiredToken) {
				code = errors.ErrTokenExpired
			}
			abortWithError(c, errors.New(code, err.Error()))
			return
		}

		c.Set(contextSessionID, claims.SessionID)
		c.Set(contextProfile, claims.Profile)

		c.Next()
	}
}

// ExtractToken 从请求中提取令牌
func ExtractToken(c *gin.Context) string {
	// 1. Authorization: Bearer <token>
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. X-Access-Token Header
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 查询参数，浏览器WebSocket无法设置Header
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetSessionID 从上下文获取会话ID
func GetSessionID(c *gin.Context) (string, bool) {
	if sessionID, exists := c.Get(contextSessionID); exists {
		if id, ok := sessionID.(string); ok {
			return id, true
		}
	}
	return "", false
}

// GetProfile 从上下文获取玩法名称
func GetProfile(c *gin.Context) (string, bool) {
	if profile, exists := c.Get(contextProfile); exists {
		if p, ok := profile.(string); ok {
			return p, true
		}
	}
	return "", false
}

func abortWithError(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), errors.NewErrorResponse(err, GetRequestID(c)))
}
