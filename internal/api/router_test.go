package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game"
	"github.com/wfunc/reel-slot/internal/game/slot"
	"github.com/wfunc/reel-slot/internal/models"
	"github.com/wfunc/reel-slot/internal/repository"
	"github.com/wfunc/reel-slot/internal/service"
	"github.com/wfunc/reel-slot/internal/utils"
	ws "github.com/wfunc/reel-slot/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RouterTestSuite struct {
	suite.Suite
	db      *gorm.DB
	manager *game.Manager
	jwt     *utils.JWTManager
	router  *Router
	cancel  context.CancelFunc
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = repository.SetupTestDB()
	services := service.NewServices(suite.db, zap.NewNop())

	manager, err := game.NewManager(game.ManagerConfig{
		Random: func() slot.RandomSource {
			// 控制台: 第一行 A A A；浏览器: B B B
			return slot.NewSequenceSource(0)
		},
		Journal: services.Journal,
	})
	suite.Require().NoError(err)
	suite.manager = manager

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	hub := ws.NewHub(ws.NewGameHandler(manager, nil), nil)
	go hub.Run(ctx)

	suite.jwt = utils.NewJWTManager("test-secret", "reel-slot", time.Hour)
	suite.router = NewRouter(RouterConfig{
		Manager: manager,
		Journal: services.Journal,
		JWT:     suite.jwt,
		Hub:     hub,
		DB:      suite.db,
	})
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.cancel()
	repository.CleanupTestDB(suite.db)
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.GetEngine().ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *RouterTestSuite) errorCode(w *httptest.ResponseRecorder) errors.ErrorCode {
	var resp errors.ErrorResponse
	suite.decode(w, &resp)
	suite.False(resp.Success)
	suite.Require().NotNil(resp.Error)
	suite.NotEmpty(resp.RequestID)
	return resp.Error.Code
}

func (suite *RouterTestSuite) createSession(profile string) CreateResponse {
	w := suite.do(http.MethodPost, "/api/v1/sessions", "", CreateRequest{Profile: profile})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp CreateResponse
	suite.decode(w, &resp)
	suite.Require().NotEmpty(resp.Token)
	return resp
}

func (suite *RouterTestSuite) TestHealthAndProfiles() {
	suite.createSession("")

	w := suite.do(http.MethodGet, "/health", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var health map[string]interface{}
	suite.decode(w, &health)
	suite.Equal("healthy", health["status"])
	suite.EqualValues(1, health["sessions"])
	suite.EqualValues(0, health["online"])
	suite.Equal(true, health["database"])

	w = suite.do(http.MethodGet, "/api/v1/profiles", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp ProfilesResponse
	suite.decode(w, &resp)
	suite.Equal(slot.ProfileConsole, resp.Default)
	suite.Require().Len(resp.Profiles, 2)
	suite.Equal(slot.ProfileBrowser, resp.Profiles[0].Name)
	suite.Equal(slot.ProfileConsole, resp.Profiles[1].Name)
}

func (suite *RouterTestSuite) TestCreateSession() {
	// 空请求体使用默认玩法
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	suite.router.GetEngine().ServeHTTP(w, req)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var resp CreateResponse
	suite.decode(w, &resp)
	suite.Equal(slot.ProfileConsole, resp.Profile)
	suite.Equal(3, resp.MaxLines)
	suite.EqualValues(3600, resp.ExpiresIn)

	w = suite.do(http.MethodPost, "/api/v1/sessions", "", CreateRequest{Profile: "jackpot"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(errors.ErrInvalidInput, suite.errorCode(w))
}

func (suite *RouterTestSuite) TestConsoleFlow() {
	session := suite.createSession(slot.ProfileConsole)

	w := suite.do(http.MethodPost, "/api/v1/session/deposit", session.Token, DepositRequest{Amount: 100})
	suite.Require().Equal(http.StatusOK, w.Code)
	var balance BalanceResponse
	suite.decode(w, &balance)
	suite.True(decimal.NewFromInt(100).Equal(balance.Balance))

	for i := 0; i < 2; i++ {
		w = suite.do(http.MethodPost, "/api/v1/session/spin", session.Token, SpinRequest{Lines: 1, Bet: 1})
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}
	var round game.Round
	suite.decode(w, &round)
	suite.Equal(2, round.Number)
	suite.True(decimal.NewFromInt(108).Equal(round.BalanceAfter))

	w = suite.do(http.MethodGet, "/api/v1/session", session.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var info game.SessionInfo
	suite.decode(w, &info)
	suite.Equal(session.SessionID, info.ID)
	suite.Equal(2, info.Stats.Spins)

	w = suite.do(http.MethodGet, "/api/v1/session/history?page=1&page_size=1", session.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var history service.HistoryPage
	suite.decode(w, &history)
	suite.EqualValues(2, history.Pagination.Total)
	suite.Require().Len(history.Rounds, 1)
	suite.Equal(2, history.Rounds[0].RoundNumber)

	w = suite.do(http.MethodGet, "/api/v1/session/rounds/"+round.Result.ID, session.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var record models.RoundRecord
	suite.decode(w, &record)
	suite.Equal(round.Result.ID, record.SpinID)
	suite.Equal(2, record.RoundNumber)

	w = suite.do(http.MethodGet, "/api/v1/session/rounds/missing", session.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(errors.ErrNotFound, suite.errorCode(w))

	w = suite.do(http.MethodGet, "/api/v1/session/summary", session.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var summary repository.RoundSummary
	suite.decode(w, &summary)
	suite.EqualValues(2, summary.Rounds)

	w = suite.do(http.MethodDelete, "/api/v1/session", session.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Zero(suite.manager.Count())

	// 会话已删除，令牌仍有效
	w = suite.do(http.MethodGet, "/api/v1/session", session.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(errors.ErrSessionNotFound, suite.errorCode(w))
}

func (suite *RouterTestSuite) TestSpinRejected() {
	session := suite.createSession(slot.ProfileConsole)

	tests := []struct {
		name string
		path string
		body interface{}
		code errors.ErrorCode
	}{
		{"无效充值", "/api/v1/session/deposit", DepositRequest{Amount: 0}, errors.ErrInvalidDeposit},
		{"余额不足", "/api/v1/session/spin", SpinRequest{Lines: 1, Bet: 1}, errors.ErrInsufficientBalance},
		{"线数越界", "/api/v1/session/spin", SpinRequest{Lines: 4, Bet: 1}, errors.ErrInvalidLines},
		{"投注为零", "/api/v1/session/spin", SpinRequest{Lines: 1, Bet: 0}, errors.ErrInvalidBet},
		{"格式错误", "/api/v1/session/spin", map[string]string{"lines": "one"}, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.do(http.MethodPost, tt.path, session.Token, tt.body)
			suite.Equal(http.StatusBadRequest, w.Code)
			suite.Equal(tt.code, suite.errorCode(w))
		})
	}
}

func (suite *RouterTestSuite) TestBrowserPlay() {
	session := suite.createSession(slot.ProfileBrowser)

	w := suite.do(http.MethodPost, "/api/v1/session/play", session.Token, PlayRequest{Deposit: 20, Lines: 3, Bet: 1})
	suite.Require().Equal(http.StatusOK, w.Code)
	var result game.PlayResult
	suite.decode(w, &result)
	suite.Equal(game.ActionDeposit, result.Action)

	// A A A，总投注 3 × 2
	w = suite.do(http.MethodPost, "/api/v1/session/play", session.Token, PlayRequest{Deposit: 20, Lines: 3, Bet: 1})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &result)
	suite.Equal(game.ActionSpin, result.Action)
	suite.True(decimal.NewFromInt(23).Equal(result.Balance))
}

func (suite *RouterTestSuite) TestUnauthorized() {
	w := suite.do(http.MethodGet, "/api/v1/session", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/session", "bogus", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(errors.ErrTokenInvalid, suite.errorCode(w))

	w = suite.do(http.MethodGet, "/nowhere", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestProfileMismatchToken() {
	session := suite.createSession(slot.ProfileConsole)

	token, _, err := suite.jwt.GenerateToken(session.SessionID, slot.ProfileBrowser)
	suite.Require().NoError(err)

	w := suite.do(http.MethodGet, "/api/v1/session", token, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(errors.ErrTokenInvalid, suite.errorCode(w))
}

func (suite *RouterTestSuite) TestOpenAPI() {
	w := suite.do(http.MethodGet, "/openapi", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Header().Get("Content-Type"), "yaml")
	suite.Contains(w.Body.String(), "/api/v1/sessions")
	suite.Contains(w.Body.String(), "/api/v1/session/rounds/{spin_id}")

	w = suite.do(http.MethodGet, "/docs/ui", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "swagger-ui")

	w = suite.do(http.MethodGet, "/docs/redoc", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Redoc.init")
}

func (suite *RouterTestSuite) TestWebSocket() {
	session := suite.createSession(slot.ProfileBrowser)

	server := httptest.NewServer(suite.router.GetEngine())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + session.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	suite.Require().NoError(err)
	defer conn.Close()

	read := func() *ws.Message {
		suite.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
		var msg ws.Message
		suite.Require().NoError(conn.ReadJSON(&msg))
		return &msg
	}

	msg := read()
	suite.Equal(ws.MessageTypeConnected, msg.Type)
	suite.Equal(session.SessionID, msg.SessionID)

	suite.Require().NoError(conn.WriteJSON(map[string]interface{}{
		"type": ws.MessageTypeDeposit,
		"data": ws.DepositPayload{Amount: 10},
	}))
	msg = read()
	suite.Equal(ws.MessageTypeDepositResult, msg.Type)

	// HTTP旋转结果推送到已连接的客户端
	w := suite.do(http.MethodPost, "/api/v1/session/spin", session.Token, SpinRequest{Lines: 1, Bet: 1})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var round game.Round
	suite.decode(w, &round)

	msg = read()
	suite.Equal(ws.MessageTypeSpinResult, msg.Type)
	suite.Equal(session.SessionID, msg.SessionID)
	var pushed game.Round
	suite.Require().NoError(json.Unmarshal(msg.Data, &pushed))
	suite.Equal(round.Result.ID, pushed.Result.ID)

	var health map[string]interface{}
	suite.decode(suite.do(http.MethodGet, "/health", "", nil), &health)
	suite.EqualValues(1, health["online"])

	// 未认证的升级请求被拒绝
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	suite.Error(err)
	suite.Require().NotNil(resp)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
