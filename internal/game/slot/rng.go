package slot

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// CryptoSource 加密安全的随机源
type CryptoSource struct{}

// NewCryptoSource 创建加密随机源
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{}
}

// Intn 返回 [0, n) 内的随机整数
func (CryptoSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// 系统熵源不可用时无法继续
		panic(err)
	}
	return int(v.Int64())
}

// SeededSource 可复现的伪随机源
type SeededSource struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

// NewSeededSource 使用种子创建随机源
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rnd: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn 返回 [0, n) 内的随机整数
func (s *SeededSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// SequenceSource 按固定序列返回下标，序列耗尽后循环
type SequenceSource struct {
	mu   sync.Mutex
	seq  []int
	next int
}

// NewSequenceSource 创建序列随机源
func NewSequenceSource(seq ...int) *SequenceSource {
	return &SequenceSource{seq: seq}
}

// Intn 返回序列中的下一个值，原样返回，越界由调用方检查
func (s *SequenceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seq) == 0 {
		return 0
	}
	v := s.seq[s.next%len(s.seq)]
	s.next++
	return v
}
