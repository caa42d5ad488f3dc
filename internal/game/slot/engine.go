package slot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine 老虎机引擎：卷轴旋转 → 转置 → 赔付
type Engine struct {
	profile *Profile
	table   *SymbolTable
	spinner *ReelSpinner
	rule    PayoutRule
	logger  *zap.Logger
}

// Option 引擎选项
type Option func(*engineOptions)

type engineOptions struct {
	rng    RandomSource
	logger *zap.Logger
}

// WithRandomSource 注入随机源
func WithRandomSource(rng RandomSource) Option {
	return func(o *engineOptions) {
		o.rng = rng
	}
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine 创建引擎，配置无效时立即返回错误
func NewEngine(profile *Profile, opts ...Option) (*Engine, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = NewCryptoSource()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	table, err := profile.Table()
	if err != nil {
		return nil, err
	}
	spinner, err := NewReelSpinner(BuildPool(table), profile.Rows, profile.Cols, profile.DrawMode, o.rng)
	if err != nil {
		return nil, err
	}
	rule, err := profile.NewRule(table)
	if err != nil {
		return nil, err
	}

	return &Engine{
		profile: profile,
		table:   table,
		spinner: spinner,
		rule:    rule,
		logger:  o.logger.With(zap.String("profile", profile.Name)),
	}, nil
}

// Profile 获取配置
func (e *Engine) Profile() *Profile {
	return e.profile
}

// Table 获取符号表
func (e *Engine) Table() *SymbolTable {
	return e.table
}

// Spin 执行一次旋转并计算中奖，不涉及余额
func (e *Engine) Spin(bet decimal.Decimal, lines int) (*SpinResult, error) {
	if !bet.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBet, bet)
	}
	if lines < 1 || lines > e.profile.MaxLines {
		return nil, fmt.Errorf("%w: %d 不在 [1,%d] 内", ErrInvalidLines, lines, e.profile.MaxLines)
	}

	reels, err := e.spinner.Spin()
	if err != nil {
		return nil, err
	}
	rows, err := Transpose(reels)
	if err != nil {
		return nil, err
	}
	winnings, winLines, err := e.rule.Evaluate(rows, bet, lines)
	if err != nil {
		return nil, err
	}

	result := &SpinResult{
		ID:        uuid.NewString(),
		Profile:   e.profile.Name,
		Reels:     reels,
		Rows:      rows,
		Bet:       bet,
		Lines:     lines,
		Stake:     bet.Mul(decimal.NewFromInt(int64(lines))),
		Winnings:  winnings,
		WinLines:  winLines,
		Timestamp: time.Now(),
	}

	e.logger.Debug("旋转完成",
		zap.String("spin_id", result.ID),
		zap.String("stake", result.Stake.String()),
		zap.String("winnings", winnings.String()),
		zap.Int("win_lines", len(winLines)),
	)
	return result, nil
}
