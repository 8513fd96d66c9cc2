package jobs

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

var log = logging.Logger("jobs")

type State int

const (
	Assembling State = iota
	Mining
	Sealed
)

func (s State) String() string {
	switch s {
	case Assembling:
		return "assembling"
	case Mining:
		return "mining"
	case Sealed:
		return "sealed"
	}
	return "unknown"
}

var ErrNotAssembling = errors.New("job no longer accepts transactions")

// Job is a block under construction. Transactions are collected while
// Assembling, Mine searches the nonce and hands back the sealed block.
type Job struct {
	mu sync.Mutex

	Index        uint64
	PreviousHash string
	Timestamp    float64

	transactions []types.Transaction
	state        State
	result       *Result
}

// Result describes a finished search.
type Result struct {
	Block    *types.Block
	Attempts uint64
	Duration time.Duration
}

func NewJob(index uint64, previousHash string, timestamp float64) *Job {
	return &Job{
		Index:        index,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		transactions: make([]types.Transaction, 0),
		state:        Assembling,
	}
}

func (j *Job) AddTransaction(tx types.Transaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != Assembling {
		return errors.Wrapf(ErrNotAssembling, "job %d is %s", j.Index, j.state)
	}

	j.transactions = append(j.transactions, tx)
	return nil
}

func (j *Job) AddTransactions(txs []types.Transaction) error {
	for i := range txs {
		if err := j.AddTransaction(txs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) Transactions() []types.Transaction {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]types.Transaction, len(j.transactions))
	copy(out, j.transactions)
	return out
}

// Header returns the header as it will be mined, with nonce 0.
func (j *Job) Header() types.Header {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.header()
}

func (j *Job) header() types.Header {
	return types.Header{
		Index:        j.Index,
		PreviousHash: j.PreviousHash,
		Timestamp:    j.Timestamp,
		MerkleRoot:   types.ComputeMerkleRoot(j.transactions),
	}
}

// Mine searches for the nonce and seals the block. A cancelled or exhausted
// search puts the job back into Assembling so it can be retried.
func (j *Job) Mine(ctx context.Context, opts *MineOptions) (*Result, error) {
	j.mu.Lock()
	if j.state != Assembling {
		state := j.state
		j.mu.Unlock()
		return nil, errors.Wrapf(ErrNotAssembling, "job %d is %s", j.Index, state)
	}
	j.state = Mining
	header := j.header()
	txs := j.transactions
	j.mu.Unlock()

	log.Infof("mining block #%d (difficulty: %d, transactions: %d)", header.Index, opts.Difficulty, len(txs))
	start := time.Now()

	nonce, attempts, err := Search(ctx, header, opts)
	if err != nil {
		j.mu.Lock()
		j.state = Assembling
		j.mu.Unlock()
		return nil, err
	}

	header.Nonce = nonce
	block := types.SealBlock(header, txs)
	result := &Result{
		Block:    block,
		Attempts: attempts,
		Duration: time.Since(start),
	}

	j.mu.Lock()
	j.state = Sealed
	j.result = result
	j.mu.Unlock()

	log.Infof("block #%d mined, nonce: %d, time: %.2fs, hash: %s", block.Index(), block.Nonce(), result.Duration.Seconds(), block.Hash())

	return result, nil
}

// Result is the outcome of a successful Mine, nil before that.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}
