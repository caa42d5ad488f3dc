package game

import (
	"context"
	stderrors "errors"
	"math"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wfunc/reel-slot/internal/errors"
	"github.com/wfunc/reel-slot/internal/game/slot"
	"go.uber.org/zap"
)

// DepositMode 充值方式
type DepositMode string

const (
	DepositReplace DepositMode = "replace" // 余额为零时充值金额直接作为余额
	DepositAdd     DepositMode = "add"     // 充值金额累加到余额
)

// PlayAction 点击按钮后实际执行的动作
type PlayAction string

const (
	ActionDeposit PlayAction = "deposit"
	ActionSpin    PlayAction = "spin"
)

// Journal 回合日志，会话移除时由管理器清除
type Journal interface {
	Record(ctx context.Context, sessionID string, round *Round) error
	Forget(ctx context.Context, sessionID string) error
}

// Round 一次完整下注回合
type Round struct {
	Number        int              `json:"number"`
	Result        *slot.SpinResult `json:"result"`
	BalanceBefore decimal.Decimal  `json:"balance_before"`
	BalanceAfter  decimal.Decimal  `json:"balance_after"`
	Busted        bool             `json:"busted"`
}

// PlayResult 单按钮操作结果
type PlayResult struct {
	Action  PlayAction      `json:"action"`
	Balance decimal.Decimal `json:"balance"`
	Round   *Round          `json:"round,omitempty"`
}

// Stats 会话统计
type Stats struct {
	Spins        int             `json:"spins"`
	WinningSpins int             `json:"winning_spins"`
	Deposited    decimal.Decimal `json:"deposited"`
	TotalStake   decimal.Decimal `json:"total_stake"`
	TotalWin     decimal.Decimal `json:"total_win"`
}

// SessionInfo 会话快照
type SessionInfo struct {
	ID         string          `json:"session_id"`
	Profile    string          `json:"profile"`
	MaxLines   int             `json:"max_lines"`
	Balance    decimal.Decimal `json:"balance"`
	Stats      Stats           `json:"stats"`
	LastRound  *Round          `json:"last_round,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	LastActive time.Time       `json:"last_active"`
}

// Session 单个玩家的余额账本，回合之间严格串行
type Session struct {
	ID string

	mu          sync.Mutex
	engine      *slot.Engine
	depositMode DepositMode
	balance     decimal.Decimal
	stats       Stats
	lastRound   *Round
	journal     Journal
	logger      *zap.Logger
	clock       quartz.Clock
	createdAt   time.Time
	lastActive  time.Time
}

// SessionOption 会话选项
type SessionOption func(*Session)

// WithDepositMode 设置充值方式
func WithDepositMode(mode DepositMode) SessionOption {
	return func(s *Session) {
		s.depositMode = mode
	}
}

// WithJournal 设置回合日志
func WithJournal(j Journal) SessionOption {
	return func(s *Session) {
		s.journal = j
	}
}

// WithSessionLogger 设置日志器
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithSessionID 指定会话ID
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.ID = id
	}
}

// WithClock 设置时钟，测试中注入模拟时钟
func WithClock(clock quartz.Clock) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSession 创建余额为零的会话
func NewSession(engine *slot.Engine, opts ...SessionOption) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		engine:      engine,
		depositMode: DepositReplace,
		logger:      zap.NewNop(),
		clock:       quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.clock.Now()
	s.lastActive = s.createdAt
	s.logger = s.logger.With(zap.String("session_id", s.ID))
	return s
}

// Profile 当前玩法
func (s *Session) Profile() *slot.Profile {
	return s.engine.Profile()
}

// Balance 当前余额
func (s *Session) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Deposit 充值，金额必须为有限正数。替换模式下余额必须为零
func (s *Session) Deposit(amount float64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deposit(amount)
}

func (s *Session) deposit(amount float64) (decimal.Decimal, error) {
	if !isPositiveFinite(amount) {
		return s.balance, errors.Newf(errors.ErrInvalidDeposit, "充值金额必须为正数: %v", amount)
	}

	if s.depositMode != DepositAdd && s.balance.IsPositive() {
		return s.balance, errors.Newf(errors.ErrInvalidDeposit, "余额 %s 不为零，不能充值", s.balance)
	}

	d := decimal.NewFromFloat(amount)
	s.balance = s.balance.Add(d)
	s.stats.Deposited = s.stats.Deposited.Add(d)
	s.lastActive = s.clock.Now()

	s.logger.Info("充值成功",
		zap.String("amount", d.String()),
		zap.String("balance", s.balance.String()))
	return s.balance, nil
}

// ValidateBet 校验线数与单线投注，失败时不修改任何状态
func (s *Session) ValidateBet(lines int, bet float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.validateBet(lines, bet)
	return err
}

func (s *Session) validateBet(lines int, bet float64) (decimal.Decimal, error) {
	maxLines := s.engine.Profile().MaxLines
	if lines < 1 || lines > maxLines {
		return decimal.Zero, errors.Newf(errors.ErrInvalidLines, "线数必须在1-%d之间: %d", maxLines, lines)
	}
	if !isPositiveFinite(bet) {
		return decimal.Zero, errors.Newf(errors.ErrInvalidBet, "单线投注必须为正数: %v", bet)
	}

	stake := decimal.NewFromFloat(bet).Mul(decimal.NewFromInt(int64(lines)))
	if stake.GreaterThan(s.balance) {
		return decimal.Zero, errors.Newf(errors.ErrInsufficientBalance,
			"总投注 %s 超过余额 %s", stake, s.balance)
	}
	return stake, nil
}

// MaxBet 当前余额下指定线数的最大单线投注
func (s *Session) MaxBet(lines int) decimal.Decimal {
	if lines < 1 {
		return decimal.Zero
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance.Div(decimal.NewFromInt(int64(lines)))
}

// Spin 下注并旋转：扣除总投注 → 旋转 → 派彩
func (s *Session) Spin(ctx context.Context, lines int, bet float64) (*Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spin(ctx, lines, bet)
}

func (s *Session) spin(ctx context.Context, lines int, bet float64) (*Round, error) {
	stake, err := s.validateBet(lines, bet)
	if err != nil {
		return nil, err
	}

	before := s.balance
	s.balance = s.balance.Sub(stake)

	result, err := s.engine.Spin(decimal.NewFromFloat(bet), lines)
	if err != nil {
		// 引擎失败时退还投注
		s.balance = before
		s.logger.Error("旋转失败", zap.Error(err))
		return nil, engineError(err)
	}

	s.balance = s.balance.Add(result.Winnings)
	s.lastActive = s.clock.Now()
	s.stats.Spins++
	if result.IsWin() {
		s.stats.WinningSpins++
	}
	s.stats.TotalStake = s.stats.TotalStake.Add(result.Stake)
	s.stats.TotalWin = s.stats.TotalWin.Add(result.Winnings)

	round := &Round{
		Number:        s.stats.Spins,
		Result:        result,
		BalanceBefore: before,
		BalanceAfter:  s.balance,
		Busted:        !s.balance.IsPositive(),
	}
	s.lastRound = round

	s.logger.Info("回合结束",
		zap.Int("round", round.Number),
		zap.String("stake", result.Stake.String()),
		zap.String("winnings", result.Winnings.String()),
		zap.String("balance", s.balance.String()),
		zap.Bool("busted", round.Busted))

	if s.journal != nil {
		if err := s.journal.Record(ctx, s.ID, round); err != nil {
			s.logger.Warn("回合日志写入失败", zap.Error(err))
		}
	}
	return round, nil
}

// Play 单按钮操作：余额为零时充值，否则旋转
func (s *Session) Play(ctx context.Context, deposit float64, lines int, bet float64) (*PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balance.IsZero() {
		balance, err := s.deposit(deposit)
		if err != nil {
			return nil, err
		}
		return &PlayResult{Action: ActionDeposit, Balance: balance}, nil
	}

	round, err := s.spin(ctx, lines, bet)
	if err != nil {
		return nil, err
	}
	return &PlayResult{Action: ActionSpin, Balance: round.BalanceAfter, Round: round}, nil
}

// Info 会话快照
func (s *Session) Info() *SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.engine.Profile()
	return &SessionInfo{
		ID:         s.ID,
		Profile:    profile.Name,
		MaxLines:   profile.MaxLines,
		Balance:    s.balance,
		Stats:      s.stats,
		LastRound:  s.lastRound,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
	}
}

// LastActive 最后活动时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.clock.Now()
	s.mu.Unlock()
}

func isPositiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// engineError 将引擎错误映射为应用错误码
func engineError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, slot.ErrInvalidBet):
		return errors.Wrap(err, errors.ErrInvalidBet)
	case stderrors.Is(err, slot.ErrInvalidLines):
		return errors.Wrap(err, errors.ErrInvalidLines)
	case stderrors.Is(err, slot.ErrPoolExhausted):
		return errors.Wrap(err, errors.ErrPoolExhausted)
	case stderrors.Is(err, slot.ErrRaggedMatrix),
		stderrors.Is(err, slot.ErrRandomOutOfRange),
		stderrors.Is(err, slot.ErrUnknownSymbol):
		return errors.Wrap(err, errors.ErrInvalidMatrix)
	case stderrors.Is(err, slot.ErrInvalidProfile),
		stderrors.Is(err, slot.ErrInvalidTable),
		stderrors.Is(err, slot.ErrInvalidDimensions):
		return errors.Wrap(err, errors.ErrInvalidProfile)
	default:
		return errors.Wrap(err, errors.ErrUnknown)
	}
}
