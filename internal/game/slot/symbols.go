package slot

import (
	"fmt"
)

// SymbolWeight 符号权重与赔率
type SymbolWeight struct {
	Symbol Symbol `json:"symbol" mapstructure:"symbol"`
	Count  int    `json:"count" mapstructure:"count"`   // 卷轴池中的数量
	Payout int    `json:"payout" mapstructure:"payout"` // 单线赔率倍数
}

// SymbolTable 符号权重表，构造后不可变
type SymbolTable struct {
	entries []SymbolWeight
	index   map[Symbol]int
}

// NewSymbolTable 创建符号权重表
func NewSymbolTable(weights []SymbolWeight) (*SymbolTable, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: 符号表为空", ErrInvalidTable)
	}

	t := &SymbolTable{
		entries: make([]SymbolWeight, len(weights)),
		index:   make(map[Symbol]int, len(weights)),
	}
	for i, w := range weights {
		if w.Symbol == "" {
			return nil, fmt.Errorf("%w: 第%d项符号为空", ErrInvalidTable, i)
		}
		if w.Count <= 0 {
			return nil, fmt.Errorf("%w: 符号 %s 数量必须为正数", ErrInvalidTable, w.Symbol)
		}
		if w.Payout <= 0 {
			return nil, fmt.Errorf("%w: 符号 %s 赔率必须为正数", ErrInvalidTable, w.Symbol)
		}
		if _, dup := t.index[w.Symbol]; dup {
			return nil, fmt.Errorf("%w: 符号 %s 重复", ErrInvalidTable, w.Symbol)
		}
		t.entries[i] = w
		t.index[w.Symbol] = i
	}
	return t, nil
}

// MustSymbolTable 创建符号权重表，失败时panic（仅用于内置配置）
func MustSymbolTable(weights []SymbolWeight) *SymbolTable {
	t, err := NewSymbolTable(weights)
	if err != nil {
		panic(err)
	}
	return t
}

// Entries 返回符号表副本
func (t *SymbolTable) Entries() []SymbolWeight {
	out := make([]SymbolWeight, len(t.entries))
	copy(out, t.entries)
	return out
}

// Symbols 按配置顺序返回所有符号
func (t *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Symbol
	}
	return out
}

// Count 符号数量，未知符号返回0
func (t *SymbolTable) Count(s Symbol) int {
	if i, ok := t.index[s]; ok {
		return t.entries[i].Count
	}
	return 0
}

// Payout 符号赔率
func (t *SymbolTable) Payout(s Symbol) (int, bool) {
	i, ok := t.index[s]
	if !ok {
		return 0, false
	}
	return t.entries[i].Payout, true
}

// TotalCount 符号池总数
func (t *SymbolTable) TotalCount() int {
	total := 0
	for _, e := range t.entries {
		total += e.Count
	}
	return total
}

// DefaultSymbolWeights 控制台版默认符号表
func DefaultSymbolWeights() []SymbolWeight {
	return []SymbolWeight{
		{Symbol: SymbolA, Count: 2, Payout: 5},
		{Symbol: SymbolB, Count: 4, Payout: 4},
		{Symbol: SymbolC, Count: 6, Payout: 3},
		{Symbol: SymbolD, Count: 8, Payout: 2},
	}
}

// UniformSymbolWeights 网页版符号表：每个符号一份，赔率由固定倍率决定
func UniformSymbolWeights() []SymbolWeight {
	return []SymbolWeight{
		{Symbol: SymbolA, Count: 1, Payout: 1},
		{Symbol: SymbolB, Count: 1, Payout: 1},
		{Symbol: SymbolC, Count: 1, Payout: 1},
		{Symbol: SymbolD, Count: 1, Payout: 1},
	}
}
