package slot

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTable      = errors.New("无效的符号表")
	ErrInvalidProfile    = errors.New("无效的玩法配置")
	ErrInvalidDimensions = errors.New("无效的卷轴尺寸")
	ErrInvalidLines      = errors.New("无效的投注线数")
	ErrInvalidBet        = errors.New("无效的下注金额")
	ErrPoolExhausted     = errors.New("符号池不足")
	ErrRaggedMatrix      = errors.New("卷轴长度不一致")
	ErrRandomOutOfRange  = errors.New("随机数越界")
	ErrUnknownSymbol     = errors.New("未知符号")
)

// LinePayout 逐行规则：检查前 lines 行，整行符号相同即中奖，奖金 = 单线投注 × 符号赔率
type LinePayout struct {
	table *SymbolTable
}

// NewLinePayout 创建逐行赔付规则
func NewLinePayout(table *SymbolTable) *LinePayout {
	return &LinePayout{table: table}
}

// Evaluate 计算中奖，lines 之后的行不参与计算
func (p *LinePayout) Evaluate(rows RowMatrix, bet decimal.Decimal, lines int) (decimal.Decimal, []WinLine, error) {
	if lines < 1 || lines > len(rows) {
		return decimal.Zero, nil, fmt.Errorf("%w: %d 不在 [1,%d] 内", ErrInvalidLines, lines, len(rows))
	}

	total := decimal.Zero
	var wins []WinLine
	for r := 0; r < lines; r++ {
		sym, ok := uniformRow(rows[r])
		if !ok {
			continue
		}
		payout, known := p.table.Payout(sym)
		if !known {
			return decimal.Zero, nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
		}
		amount := bet.Mul(decimal.NewFromInt(int64(payout)))
		total = total.Add(amount)
		wins = append(wins, WinLine{Line: r, Symbol: sym, Payout: payout, Amount: amount})
	}
	return total, wins, nil
}

// MatchAllPayout 整排规则：仅检查第一行，全部相同则奖金 = 单线投注 × 线数 × 固定倍率
type MatchAllPayout struct {
	multiplier decimal.Decimal
}

// NewMatchAllPayout 创建整排赔付规则
func NewMatchAllPayout(multiplier int) *MatchAllPayout {
	return &MatchAllPayout{multiplier: decimal.NewFromInt(int64(multiplier))}
}

// Evaluate 计算中奖
func (p *MatchAllPayout) Evaluate(rows RowMatrix, bet decimal.Decimal, lines int) (decimal.Decimal, []WinLine, error) {
	if lines < 1 {
		return decimal.Zero, nil, fmt.Errorf("%w: %d", ErrInvalidLines, lines)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil, nil
	}

	sym, ok := uniformRow(rows[0])
	if !ok {
		return decimal.Zero, nil, nil
	}
	amount := bet.Mul(decimal.NewFromInt(int64(lines))).Mul(p.multiplier)
	return amount, []WinLine{{
		Line:   0,
		Symbol: sym,
		Payout: int(p.multiplier.IntPart()),
		Amount: amount,
	}}, nil
}

// uniformRow 判断整行是否与首个符号相同
func uniformRow(row []Symbol) (Symbol, bool) {
	if len(row) == 0 {
		return "", false
	}
	first := row[0]
	for _, s := range row[1:] {
		if s != first {
			return "", false
		}
	}
	return first, true
}
