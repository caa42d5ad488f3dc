package slot

import (
	"fmt"
	"sort"
)

const (
	ProfileConsole = "console" // 3x3 权重卷轴，逐行赔付
	ProfileBrowser = "browser" // 1x3 均匀抽取，整排固定倍率

	DefaultRows            = 3
	DefaultCols            = 3
	DefaultMaxLines        = 3
	DefaultMatchMultiplier = 2
)

// Profile 玩法配置：符号表 + 尺寸 + 抽取方式 + 赔付规则
type Profile struct {
	Name            string         `json:"name"`
	Symbols         []SymbolWeight `json:"symbols"`
	Rows            int            `json:"rows"`
	Cols            int            `json:"cols"`
	MaxLines        int            `json:"max_lines"`
	DrawMode        DrawMode       `json:"draw_mode"`
	Rule            RuleType       `json:"rule"`
	MatchMultiplier int            `json:"match_multiplier,omitempty"`
}

// ConsoleProfile 控制台版默认配置
func ConsoleProfile() *Profile {
	return &Profile{
		Name:     ProfileConsole,
		Symbols:  DefaultSymbolWeights(),
		Rows:     DefaultRows,
		Cols:     DefaultCols,
		MaxLines: DefaultMaxLines,
		DrawMode: DrawWithoutReplacement,
		Rule:     RuleLine,
	}
}

// BrowserProfile 网页版默认配置
func BrowserProfile() *Profile {
	return &Profile{
		Name:            ProfileBrowser,
		Symbols:         UniformSymbolWeights(),
		Rows:            1,
		Cols:            DefaultCols,
		MaxLines:        DefaultMaxLines,
		DrawMode:        DrawWithReplacement,
		Rule:            RuleMatchAll,
		MatchMultiplier: DefaultMatchMultiplier,
	}
}

// BuiltinProfiles 内置配置
func BuiltinProfiles() map[string]*Profile {
	return map[string]*Profile{
		ProfileConsole: ConsoleProfile(),
		ProfileBrowser: BrowserProfile(),
	}
}

// ProfileNames 按字母序返回配置名
func ProfileNames(profiles map[string]*Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate 验证配置
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: 配置为空", ErrInvalidProfile)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: 名称为空", ErrInvalidProfile)
	}
	if p.Rows <= 0 || p.Cols <= 0 {
		return fmt.Errorf("%w: %s rows=%d cols=%d", ErrInvalidDimensions, p.Name, p.Rows, p.Cols)
	}
	if p.MaxLines <= 0 {
		return fmt.Errorf("%w: %s max_lines=%d", ErrInvalidProfile, p.Name, p.MaxLines)
	}

	table, err := NewSymbolTable(p.Symbols)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}

	switch p.Rule {
	case RuleLine:
		// 逐行规则下每条线对应一行
		if p.MaxLines > p.Rows {
			return fmt.Errorf("%w: %s max_lines=%d 超过行数%d", ErrInvalidProfile, p.Name, p.MaxLines, p.Rows)
		}
	case RuleMatchAll:
		if p.MatchMultiplier <= 0 {
			return fmt.Errorf("%w: %s match_multiplier 必须为正数", ErrInvalidProfile, p.Name)
		}
	default:
		return fmt.Errorf("%w: %s 未知规则 %q", ErrInvalidProfile, p.Name, p.Rule)
	}

	switch p.DrawMode {
	case DrawWithoutReplacement:
		if p.Rows > table.TotalCount() {
			return fmt.Errorf("%w: %s 每轴%d个符号，池中仅有%d个", ErrPoolExhausted, p.Name, p.Rows, table.TotalCount())
		}
	case DrawWithReplacement:
	default:
		return fmt.Errorf("%w: %s 未知抽取方式 %q", ErrInvalidProfile, p.Name, p.DrawMode)
	}
	return nil
}

// Table 构建符号表
func (p *Profile) Table() (*SymbolTable, error) {
	return NewSymbolTable(p.Symbols)
}

// NewRule 根据配置创建赔付规则
func (p *Profile) NewRule(table *SymbolTable) (PayoutRule, error) {
	switch p.Rule {
	case RuleLine:
		return NewLinePayout(table), nil
	case RuleMatchAll:
		return NewMatchAllPayout(p.MatchMultiplier), nil
	default:
		return nil, fmt.Errorf("%w: 未知规则 %q", ErrInvalidProfile, p.Rule)
	}
}
