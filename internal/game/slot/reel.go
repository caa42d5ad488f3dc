package slot

import (
	"fmt"
)

// BuildPool 将符号表展开为符号池，每个符号按配置数量重复，顺序与配置一致
func BuildPool(table *SymbolTable) []Symbol {
	pool := make([]Symbol, 0, table.TotalCount())
	for _, e := range table.entries {
		for i := 0; i < e.Count; i++ {
			pool = append(pool, e.Symbol)
		}
	}
	return pool
}

// ReelSpinner 卷轴旋转器
type ReelSpinner struct {
	pool []Symbol
	rows int
	cols int
	mode DrawMode
	rng  RandomSource
}

// NewReelSpinner 创建卷轴旋转器
// 不放回抽取时 rows 不能超过符号池大小
func NewReelSpinner(pool []Symbol, rows, cols int, mode DrawMode, rng RandomSource) (*ReelSpinner, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: rows=%d cols=%d", ErrInvalidDimensions, rows, cols)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: 符号池为空", ErrPoolExhausted)
	}
	if mode == "" {
		mode = DrawWithoutReplacement
	}
	if mode != DrawWithoutReplacement && mode != DrawWithReplacement {
		return nil, fmt.Errorf("%w: 未知抽取方式 %q", ErrInvalidProfile, mode)
	}
	if mode == DrawWithoutReplacement && rows > len(pool) {
		return nil, fmt.Errorf("%w: 每轴需要%d个符号，池中仅有%d个", ErrPoolExhausted, rows, len(pool))
	}
	if rng == nil {
		rng = NewCryptoSource()
	}

	p := make([]Symbol, len(pool))
	copy(p, pool)
	return &ReelSpinner{pool: p, rows: rows, cols: cols, mode: mode, rng: rng}, nil
}

// SpinReel 生成一个卷轴
func (s *ReelSpinner) SpinReel() (Reel, error) {
	// 每个卷轴使用独立副本，不影响其他卷轴
	remaining := make([]Symbol, len(s.pool))
	copy(remaining, s.pool)

	reel := make(Reel, 0, s.rows)
	for i := 0; i < s.rows; i++ {
		if len(remaining) == 0 {
			return nil, ErrPoolExhausted
		}
		idx := s.rng.Intn(len(remaining))
		if idx < 0 || idx >= len(remaining) {
			return nil, fmt.Errorf("%w: %d 不在 [0,%d) 内", ErrRandomOutOfRange, idx, len(remaining))
		}
		reel = append(reel, remaining[idx])
		if s.mode == DrawWithoutReplacement {
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		}
	}
	return reel, nil
}

// Spin 生成全部卷轴
func (s *ReelSpinner) Spin() (ReelMatrix, error) {
	reels := make(ReelMatrix, 0, s.cols)
	for c := 0; c < s.cols; c++ {
		reel, err := s.SpinReel()
		if err != nil {
			return nil, fmt.Errorf("卷轴%d: %w", c, err)
		}
		reels = append(reels, reel)
	}
	return reels, nil
}

// Transpose 将按列存储的卷轴矩阵转为按行存储：out[r][c] = in[c][r]
func Transpose(reels ReelMatrix) (RowMatrix, error) {
	if len(reels) == 0 {
		return RowMatrix{}, nil
	}

	rows := len(reels[0])
	for c, reel := range reels {
		if len(reel) != rows {
			return nil, fmt.Errorf("%w: 卷轴%d长度%d，期望%d", ErrRaggedMatrix, c, len(reel), rows)
		}
	}

	out := make(RowMatrix, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]Symbol, len(reels))
		for c := range reels {
			out[r][c] = reels[c][r]
		}
	}
	return out, nil
}
