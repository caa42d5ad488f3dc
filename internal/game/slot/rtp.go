package slot

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SimulationResult 批量模拟结果
type SimulationResult struct {
	Spins        int             `json:"spins"`
	WinningSpins int             `json:"winning_spins"`
	TotalStake   decimal.Decimal `json:"total_stake"`
	TotalWin     decimal.Decimal `json:"total_win"`
	RTP          float64         `json:"rtp"`
	HitRate      float64         `json:"hit_rate"`
	SymbolHits   map[Symbol]int  `json:"symbol_hits"` // 各符号中奖线次数
}

// cancelCheckInterval 每隔多少次旋转检查一次 ctx
const cancelCheckInterval = 1024

// Simulate 批量模拟（用于估算RTP），不涉及余额
func Simulate(ctx context.Context, e *Engine, spins int, bet decimal.Decimal, lines int) (*SimulationResult, error) {
	res := &SimulationResult{
		TotalStake: decimal.Zero,
		TotalWin:   decimal.Zero,
		SymbolHits: make(map[Symbol]int),
	}

	for i := 0; i < spins; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		r, err := e.Spin(bet, lines)
		if err != nil {
			return nil, err
		}
		res.Spins++
		res.TotalStake = res.TotalStake.Add(r.Stake)
		res.TotalWin = res.TotalWin.Add(r.Winnings)
		if r.IsWin() {
			res.WinningSpins++
		}
		for _, wl := range r.WinLines {
			res.SymbolHits[wl.Symbol]++
		}
	}

	res.finish()
	return res, nil
}

// SimulateParallel 按 workers 拆分旋转次数并行模拟，每个 worker 使用独立引擎和随机源
func SimulateParallel(ctx context.Context, profile *Profile, workers, spins int, bet decimal.Decimal, lines int, newRandom func(worker int) RandomSource) (*SimulationResult, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > spins && spins > 0 {
		workers = spins
	}

	total := &SimulationResult{
		TotalStake: decimal.Zero,
		TotalWin:   decimal.Zero,
		SymbolHits: make(map[Symbol]int),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	perWorker := spins / workers
	remainder := spins % workers

	for w := 0; w < workers; w++ {
		n := perWorker
		if w < remainder {
			n++
		}
		rng := newRandom(w)

		g.Go(func() error {
			engine, err := NewEngine(profile, WithRandomSource(rng))
			if err != nil {
				return err
			}
			res, err := Simulate(ctx, engine, n, bet, lines)
			if err != nil {
				return err
			}

			mu.Lock()
			total.merge(res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	total.finish()
	return total, nil
}

func (r *SimulationResult) merge(o *SimulationResult) {
	r.Spins += o.Spins
	r.WinningSpins += o.WinningSpins
	r.TotalStake = r.TotalStake.Add(o.TotalStake)
	r.TotalWin = r.TotalWin.Add(o.TotalWin)
	for symbol, n := range o.SymbolHits {
		r.SymbolHits[symbol] += n
	}
}

func (r *SimulationResult) finish() {
	r.RTP, r.HitRate = 0, 0
	if r.TotalStake.IsPositive() {
		r.RTP = r.TotalWin.Div(r.TotalStake).InexactFloat64()
	}
	if r.Spins > 0 {
		r.HitRate = float64(r.WinningSpins) / float64(r.Spins)
	}
}
