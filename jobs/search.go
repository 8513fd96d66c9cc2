package jobs

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

// ErrNonceExhausted is returned when no nonce up to MaxNonce satisfies the difficulty.
var ErrNonceExhausted = errors.New("nonce space exhausted")

const (
	progressInterval = 100000
	ctxCheckInterval = 1024
	firstNonce       = 1
)

type MineOptions struct {
	// Difficulty is the number of leading '0' hex digits the hash needs.
	Difficulty int
	// MaxNonce bounds the search, 0 means no bound below 2^64-1.
	MaxNonce uint64
	// Workers is the number of goroutines searching, at least 1.
	Workers int
}

func (o *MineOptions) maxNonce() uint64 {
	if o.MaxNonce == 0 {
		return math.MaxUint64
	}
	return o.MaxNonce
}

func (o *MineOptions) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Search returns the smallest nonce >= 1 whose header hash meets the
// difficulty, and the number of hashes computed. The result does not
// depend on the number of workers.
func Search(ctx context.Context, header types.Header, opts *MineOptions) (nonce uint64, attempts uint64, err error) {
	if opts.workers() == 1 {
		return searchSequential(ctx, header, opts)
	}

	return searchParallel(ctx, header, opts)
}

func searchSequential(ctx context.Context, header types.Header, opts *MineOptions) (uint64, uint64, error) {
	max := opts.maxNonce()
	var attempts uint64

	for n := uint64(firstNonce); ; n++ {
		if attempts%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, attempts, err
			}
		}

		header.Nonce = n
		hash := header.ComputeHash()
		attempts++

		if types.MeetsDifficulty(hash, opts.Difficulty) {
			return n, attempts, nil
		}

		if n%progressInterval == 0 {
			log.Debugf("nonce: %d | hash: %s...", n, hash[:20])
		}

		if n == max {
			return 0, attempts, errors.Wrapf(ErrNonceExhausted, "no nonce up to %d", max)
		}
	}
}

// searchParallel strides the nonce space over the workers. A worker stops
// once its next nonce is above the best found so far, so every nonce below
// the winner has been checked when all workers are done.
func searchParallel(ctx context.Context, header types.Header, opts *MineOptions) (uint64, uint64, error) {
	max := opts.maxNonce()
	workers := uint64(opts.workers())

	var (
		best     uint64 = math.MaxUint64
		found    uint32
		attempts uint64
		wg       sync.WaitGroup
	)

	for w := uint64(0); w < workers; w++ {
		wg.Add(1)
		go func(start uint64, h types.Header) {
			defer wg.Done()

			var local uint64
			defer func() { atomic.AddUint64(&attempts, local) }()

			for n := start; n <= max; n += workers {
				if n > atomic.LoadUint64(&best) {
					return
				}
				if local%ctxCheckInterval == 0 && ctx.Err() != nil {
					return
				}

				h.Nonce = n
				hash := h.ComputeHash()
				local++

				if types.MeetsDifficulty(hash, opts.Difficulty) {
					for {
						cur := atomic.LoadUint64(&best)
						if n >= cur || atomic.CompareAndSwapUint64(&best, cur, n) {
							break
						}
					}
					atomic.StoreUint32(&found, 1)
					return
				}

				if start == firstNonce && n%progressInterval < workers {
					log.Debugf("nonce: %d | hash: %s...", n, hash[:20])
				}

				if max-n < workers {
					return
				}
			}
		}(firstNonce+w, header)
	}

	wg.Wait()

	// a cancelled worker may have left nonces below best unchecked
	if err := ctx.Err(); err != nil {
		return 0, attempts, err
	}
	if atomic.LoadUint32(&found) == 1 {
		return best, attempts, nil
	}

	return 0, attempts, errors.Wrapf(ErrNonceExhausted, "no nonce up to %d", max)
}
