package api

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/game/slot"
	"github.com/wfunc/reel-slot/internal/logger"
	"github.com/wfunc/reel-slot/internal/middleware"
	"github.com/wfunc/reel-slot/internal/service"
	"github.com/wfunc/reel-slot/internal/utils"
	ws "github.com/wfunc/reel-slot/internal/websocket"
	"go.uber.org/zap"
)

// SessionHandler 游戏会话处理器
type SessionHandler struct {
	manager *game.Manager
	journal *service.JournalService
	jwt     *utils.JWTManager
	hub     *ws.Hub
	logger  *zap.Logger
}

// NewSessionHandler 创建会话处理器，hub 为空时不推送结果
func NewSessionHandler(manager *game.Manager, journal *service.JournalService, jwt *utils.JWTManager, hub *ws.Hub, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		journal: journal,
		jwt:     jwt,
		hub:     hub,
		logger:  logger,
	}
}

// ProfilesResponse 玩法列表响应
type ProfilesResponse struct {
	Default  string          `json:"default"`
	Profiles []*slot.Profile `json:"profiles"`
}

// CreateRequest 创建会话请求
type CreateRequest struct {
	Profile string `json:"profile"`
}

// CreateResponse 创建会话响应
type CreateResponse struct {
	SessionID string    `json:"session_id"`
	Profile   string    `json:"profile"`
	MaxLines  int       `json:"max_lines"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"` // 秒
}

// DepositRequest 充值请求
type DepositRequest struct {
	Amount float64 `json:"amount"`
}

// BalanceResponse 余额响应
type BalanceResponse struct {
	SessionID string          `json:"session_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// SpinRequest 旋转请求
type SpinRequest struct {
	Lines int     `json:"lines"`
	Bet   float64 `json:"bet"`
}

// PlayRequest 单按钮请求
type PlayRequest struct {
	Deposit float64 `json:"deposit"`
	Lines   int     `json:"lines"`
	Bet     float64 `json:"bet"`
}

// Profiles 列出可用玩法
// @Summary 玩法列表
// @Description 列出可用玩法及默认玩法
// @Tags Session
// @Produce json
// @Success 200 {object} ProfilesResponse
// @Router /api/v1/profiles [get]
func (h *SessionHandler) Profiles(c *gin.Context) {
	c.JSON(http.StatusOK, ProfilesResponse{
		Default:  h.manager.DefaultProfile(),
		Profiles: h.manager.Profiles(),
	})
}

// Create 创建会话并签发令牌
// @Summary 创建会话
// @Description 按玩法创建会话并签发会话令牌，请求体可省略
// @Tags Session
// @Accept json
// @Produce json
// @Param request body CreateRequest false "玩法"
// @Success 201 {object} CreateResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateRequest
	// 请求体可为空，此时使用默认玩法
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.Wrap(err, errors.ErrInvalidInput))
			return
		}
	}

	session, err := h.manager.Create(req.Profile)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidProfile) {
			// 玩法名来自客户端
			err = errors.New(errors.ErrInvalidInput).WithDetails(err.Error()).WithCause(err)
		}
		respondError(c, err)
		return
	}

	profile := session.Profile()
	token, expiresAt, err := h.jwt.GenerateToken(session.ID, profile.Name)
	if err != nil {
		if rmErr := h.manager.Remove(session.ID); rmErr != nil {
			h.logger.Warn("回收会话失败",
				zap.String("session_id", session.ID),
				zap.Error(rmErr))
		}
		respondError(c, errors.Wrap(err, errors.ErrUnknown, "签发令牌失败"))
		return
	}

	logger.LogGameEvent("session_created", session.ID, map[string]interface{}{
		"profile": profile.Name,
		"ip":      c.ClientIP(),
	})

	c.JSON(http.StatusCreated, CreateResponse{
		SessionID: session.ID,
		Profile:   profile.Name,
		MaxLines:  profile.MaxLines,
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(h.jwt.GetTokenExpiry().Seconds()),
	})
}

// Info 会话快照
// @Summary 会话快照
// @Tags Session
// @Security Bearer
// @Produce json
// @Success 200 {object} game.SessionInfo
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/session [get]
func (h *SessionHandler) Info(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Info())
}

// Deposit 充值
// @Summary 充值
// @Description 按会话的充值模式入账，替换模式下余额须为零
// @Tags Session
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body DepositRequest true "充值金额"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/session/deposit [post]
func (h *SessionHandler) Deposit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidInput))
		return
	}

	balance, err := session.Deposit(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := BalanceResponse{
		SessionID: session.ID,
		Balance:   balance,
	}
	h.push(session.ID, ws.MessageTypeDepositResult, resp)
	c.JSON(http.StatusOK, resp)
}

// Spin 旋转一次
// @Summary 旋转
// @Tags Session
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body SpinRequest true "线数与单线押注"
// @Success 200 {object} game.Round
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/session/spin [post]
func (h *SessionHandler) Spin(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidInput))
		return
	}

	round, err := session.Spin(c.Request.Context(), req.Lines, req.Bet)
	if err != nil {
		respondError(c, err)
		return
	}

	h.push(session.ID, ws.MessageTypeSpinResult, round)
	c.JSON(http.StatusOK, round)
}

// Play 单按钮：余额为零时充值，否则旋转
// @Summary 单按钮操作
// @Description 余额为零时使用 deposit 充值，否则旋转
// @Tags Session
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PlayRequest true "充值金额、线数与押注"
// @Success 200 {object} game.PlayResult
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/session/play [post]
func (h *SessionHandler) Play(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidInput))
		return
	}

	result, err := session.Play(c.Request.Context(), req.Deposit, req.Lines, req.Bet)
	if err != nil {
		respondError(c, err)
		return
	}

	h.push(session.ID, ws.MessageTypePlayResult, result)
	c.JSON(http.StatusOK, result)
}

// History 分页查询回合日志
// @Summary 回合历史
// @Tags Journal
// @Security Bearer
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} service.HistoryPage
// @Failure 501 {object} errors.ErrorResponse
// @Router /api/v1/session/history [get]
func (h *SessionHandler) History(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if h.journal == nil {
		respondError(c, errors.New(errors.ErrNotImplemented, "未启用回合日志"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	history, err := h.journal.History(c.Request.Context(), session.ID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// Summary 回合日志汇总
// @Summary 回合汇总
// @Tags Journal
// @Security Bearer
// @Produce json
// @Success 200 {object} repository.RoundSummary
// @Failure 501 {object} errors.ErrorResponse
// @Router /api/v1/session/summary [get]
func (h *SessionHandler) Summary(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if h.journal == nil {
		respondError(c, errors.New(errors.ErrNotImplemented, "未启用回合日志"))
		return
	}

	summary, err := h.journal.Summary(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Round 查询单个回合
// @Summary 回合详情
// @Tags Journal
// @Security Bearer
// @Produce json
// @Param spin_id path string true "回合ID"
// @Success 200 {object} models.RoundRecord
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/session/rounds/{spin_id} [get]
func (h *SessionHandler) Round(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if h.journal == nil {
		respondError(c, errors.New(errors.ErrNotImplemented, "未启用回合日志"))
		return
	}

	record, err := h.journal.Round(c.Request.Context(), session.ID, c.Param("spin_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Close 结束会话并清除其回合日志
// @Summary 结束会话
// @Description 移除会话并清除其回合日志，返回最终快照
// @Tags Session
// @Security Bearer
// @Produce json
// @Success 200 {object} game.SessionInfo
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/session [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	info := session.Info()
	if err := h.manager.Remove(session.ID); err != nil {
		respondError(c, err)
		return
	}

	logger.LogGameEvent("session_closed", session.ID, map[string]interface{}{
		"balance": info.Balance.String(),
		"spins":   info.Stats.Spins,
	})
	c.JSON(http.StatusOK, info)
}

// session 根据令牌中的会话ID查找会话
func (h *SessionHandler) session(c *gin.Context) (*game.Session, bool) {
	sessionID, exists := middleware.GetSessionID(c)
	if !exists {
		respondError(c, errors.New(errors.ErrAuthentication))
		return nil, false
	}

	session, err := h.manager.Get(sessionID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	// 令牌签发后玩法不会改变
	if profile, _ := middleware.GetProfile(c); profile != session.Profile().Name {
		respondError(c, errors.New(errors.ErrTokenInvalid, "令牌玩法与会话不符"))
		return nil, false
	}
	return session, true
}

// push 将结果推送到会话的 WebSocket 连接
func (h *SessionHandler) push(sessionID, msgType string, payload interface{}) {
	if h.hub == nil {
		return
	}

	msg, err := ws.NewMessage(msgType, payload)
	if err == nil {
		msg.SessionID = sessionID
		err = h.hub.SendToSession(sessionID, msg)
	}
	if err != nil && !stderrors.Is(err, ws.ErrSessionNotConnected) {
		h.logger.Warn("推送结果失败",
			zap.String("session_id", sessionID),
			zap.String("type", msgType),
			zap.Error(err))
	}
}
