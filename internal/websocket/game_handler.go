package websocket

import (
	"context"
	"encoding/json"

	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/logger"
	"go.uber.org/zap"
)

// DepositPayload 充值请求数据
type DepositPayload struct {
	Amount float64 `json:"amount"`
}

// SpinPayload 旋转请求数据
type SpinPayload struct {
	Lines int     `json:"lines"`
	Bet   float64 `json:"bet"`
}

// PlayPayload 单按钮请求数据
type PlayPayload struct {
	Deposit float64 `json:"deposit"`
	Lines   int     `json:"lines"`
	Bet     float64 `json:"bet"`
}

// GameHandler 将客户端消息分发到游戏会话
type GameHandler struct {
	manager *game.Manager
	logger  *zap.Logger
}

// NewGameHandler 创建游戏消息处理器
func NewGameHandler(manager *game.Manager, log *zap.Logger) *GameHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameHandler{
		manager: manager,
		logger:  log,
	}
}

// HandleClientMessage 处理客户端消息
func (h *GameHandler) HandleClientMessage(ctx context.Context, client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		h.replyError(client, "", errors.New(errors.ErrMessageFormat, "无法解析消息"))
		return
	}
	logger.LogWebSocketMessage("in", msg.Type, msg.Data)

	session, err := h.manager.Get(client.SessionID)
	if err != nil {
		h.replyError(client, msg.RequestID, errors.Wrap(err, errors.ErrSessionNotFound))
		return
	}

	var (
		replyType string
		result    interface{}
	)

	switch msg.Type {
	case MessageTypeDeposit:
		var p DepositPayload
		if err := decodePayload(msg.Data, &p); err != nil {
			h.replyError(client, msg.RequestID, err)
			return
		}
		balance, err := session.Deposit(p.Amount)
		if err != nil {
			h.replyError(client, msg.RequestID, err)
			return
		}
		replyType, result = MessageTypeDepositResult, map[string]interface{}{"balance": balance}

	case MessageTypeSpin:
		var p SpinPayload
		if err := decodePayload(msg.Data, &p); err != nil {
			h.replyError(client, msg.RequestID, err)
			return
		}
		round, err := session.Spin(ctx, p.Lines, p.Bet)
		if err != nil {
			h.replyError(client, msg.RequestID, err)
			return
		}
		replyType, result = MessageTypeSpinResult, round

	case MessageTypePlay:
		var p PlayPayload
		if err := decodePayload(msg.Data, &p); err != nil {
			h.replyError(client, msg.RequestID, err)
			return
		}
		played, err := session.Play(ctx, p.Deposit, p.Lines, p.Bet)
		if err != nil {
			h.replyError(client, msg.RequestID, err)
			return
		}
		replyType, result = MessageTypePlayResult, played

	case MessageTypeBalance:
		replyType, result = MessageTypeBalanceResult, session.Info()

	default:
		h.replyError(client, msg.RequestID, errors.Newf(errors.ErrMessageFormat, "不支持的消息类型: %s", msg.Type))
		return
	}

	h.reply(client, msg.RequestID, replyType, result)
}

func (h *GameHandler) reply(client *Client, requestID, msgType string, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error("序列化响应失败", zap.String("type", msgType), zap.Error(err))
		return
	}
	msg.RequestID = requestID
	logger.LogWebSocketMessage("out", msgType, payload)

	if err := client.Reply(msg); err != nil {
		h.logger.Warn("发送响应失败",
			zap.String("client_id", client.ID),
			zap.String("type", msgType),
			zap.Int("code", int(errors.GetCode(err))),
			zap.Error(err))
	}
}

func (h *GameHandler) replyError(client *Client, requestID string, err error) {
	h.reply(client, requestID, MessageTypeError, errors.Wrap(err, errors.ErrUnknown).Public())
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrMessageFormat)
	}
	return nil
}
