package stats

import (
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// 基数草图常量定义
const (
	// sketchBits 位图大小，必须为2的幂
	sketchBits = 1 << 16

	// sketchWords 位图占用的64位字数
	sketchWords = sketchBits / 64
)

// keySketch 基于线性计数的基数草图
//
// 固定大小的位图替代无界的键集合：每个键经xxhash映射到一个位，
// 基数由零位比例估计。写入为O(1)且无锁，估计误差随基数接近
// 位图容量而增大，对统计展示足够。
type keySketch struct {
	words [sketchWords]atomic.Uint64
}

// newKeySketch 创建新的基数草图实例
func newKeySketch() *keySketch {
	return &keySketch{}
}

// Observe 记录一个键的出现
func (s *keySketch) Observe(key string) {
	h := xxhash.Sum64String(key)
	bit := h & (sketchBits - 1)
	s.words[bit/64].Or(1 << (bit % 64))
}

// Estimate 估计观测到的不同键数量
func (s *keySketch) Estimate() int64 {
	var zeros int
	for i := range s.words {
		zeros += 64 - bits.OnesCount64(s.words[i].Load())
	}

	// 位图饱和时退化为容量上限
	if zeros == 0 {
		return sketchBits
	}

	estimate := float64(sketchBits) * math.Log(float64(sketchBits)/float64(zeros))
	return int64(math.Round(estimate))
}

// Reset 清空草图
func (s *keySketch) Reset() {
	for i := range s.words {
		s.words[i].Store(0)
	}
}
