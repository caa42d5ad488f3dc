package slot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Symbol 游戏符号
type Symbol string

const (
	SymbolA Symbol = "A" // 最高赔率
	SymbolB Symbol = "B"
	SymbolC Symbol = "C"
	SymbolD Symbol = "D" // 最常见
)

// Reel 单个卷轴（一列）
type Reel []Symbol

// ReelMatrix 卷轴矩阵，按列存储：[col][row]
type ReelMatrix []Reel

// RowMatrix 行矩阵，按行存储：[row][col]，行下标即支付线编号
type RowMatrix [][]Symbol

// DrawMode 抽取方式
type DrawMode string

const (
	DrawWithoutReplacement DrawMode = "without_replacement" // 每个卷轴从独立的符号池副本中不放回抽取
	DrawWithReplacement    DrawMode = "with_replacement"    // 每格独立均匀抽取
)

// RuleType 中奖规则类型
type RuleType string

const (
	RuleLine     RuleType = "line"      // 逐行全同，按符号赔率计
	RuleMatchAll RuleType = "match_all" // 单行全同，按总投注固定倍率计
)

// WinLine 中奖线
type WinLine struct {
	Line   int             `json:"line"`   // 行下标 (0-based)
	Symbol Symbol          `json:"symbol"` // 中奖符号
	Payout int             `json:"payout"` // 赔率倍数
	Amount decimal.Decimal `json:"amount"` // 中奖金额
}

// SpinResult 旋转结果
type SpinResult struct {
	ID        string          `json:"id"`        // 结果ID
	Profile   string          `json:"profile"`   // 玩法配置名
	Reels     ReelMatrix      `json:"reels"`     // 卷轴结果
	Rows      RowMatrix       `json:"rows"`      // 转置后的行
	Bet       decimal.Decimal `json:"bet"`       // 单线投注
	Lines     int             `json:"lines"`     // 投注线数
	Stake     decimal.Decimal `json:"stake"`     // 总投注
	Winnings  decimal.Decimal `json:"winnings"`  // 总中奖
	WinLines  []WinLine       `json:"win_lines"` // 中奖线
	Timestamp time.Time       `json:"timestamp"` // 时间戳
}

// IsWin 是否中奖
func (r *SpinResult) IsWin() bool {
	return r.Winnings.IsPositive()
}

// RandomSource 随机源接口
type RandomSource interface {
	// Intn 返回 [0, n) 内均匀分布的整数
	Intn(n int) int
}

// PayoutRule 赔付规则接口
type PayoutRule interface {
	// Evaluate 计算行矩阵在给定单线投注和线数下的中奖
	Evaluate(rows RowMatrix, bet decimal.Decimal, lines int) (decimal.Decimal, []WinLine, error)
}
