package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler passes num out of every den events. A zero ratio passes everything.
type sampler struct {
	ratio atomic.Uint64 // num<<32 | den
	seen  atomic.Uint64
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *sampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
	} else {
		s.ratio.Store(uint64(min(num, den))<<32 | uint64(den))
	}
	s.seen.Store(0)
}

// Allow reports whether the next event passes.
func (s *sampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	return (s.seen.Add(1)-1)%den < num
}

// parseRatio accepts "n/d", a bare "d" meaning 1/d, and "all" or "0" to
// disable sampling. ok is false for anything else.
func parseRatio(ratio string) (num, den int, ok bool) {
	ratio = strings.ToLower(strings.TrimSpace(ratio))
	switch ratio {
	case "all", "0", "off":
		return 0, 0, true
	}
	if n, d, found := strings.Cut(ratio, "/"); found {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
			return 0, 0, false
		}
		return num, den, true
	}
	d, err := strconv.Atoi(ratio)
	if err != nil || d <= 0 {
		return 0, 0, false
	}
	return 1, d, true
}
