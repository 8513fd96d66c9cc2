package stats

import (
	"sync"
	"time"

	"github.com/mining-pool/pow-ledger/utils"
)

// Stats aggregates the recent nonce searches of a chain.
type Stats struct {
	mu sync.Mutex

	BlocksMined   uint64
	TotalAttempts uint64

	attempts  *window
	durations *window // nanoseconds
}

type Snapshot struct {
	BlocksMined      uint64  `json:"blocksMined"`
	TotalAttempts    uint64  `json:"totalAttempts"`
	Window           int64   `json:"window"`
	AvgAttempts      float64 `json:"avgAttempts"`
	AvgSeconds       float64 `json:"avgSeconds"`
	HashRate         float64 `json:"hashRate"`
	HashRateReadable string  `json:"hashRateReadable"`
}

// NewStats averages over the last size blocks.
func NewStats(size int64) *Stats {
	return &Stats{
		attempts:  newWindow(size),
		durations: newWindow(size),
	}
}

func (s *Stats) Record(attempts uint64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BlocksMined++
	s.TotalAttempts += attempts
	s.attempts.push(int64(attempts))
	s.durations.push(int64(d))
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hashRate float64
	if total := s.durations.sum; total > 0 {
		hashRate = float64(s.attempts.sum) / time.Duration(total).Seconds()
	}

	return Snapshot{
		BlocksMined:      s.BlocksMined,
		TotalAttempts:    s.TotalAttempts,
		Window:           s.attempts.len(),
		AvgAttempts:      s.attempts.avg(),
		AvgSeconds:       s.durations.avg() / float64(time.Second),
		HashRate:         hashRate,
		HashRateReadable: utils.GetReadableHashRateString(hashRate),
	}
}
