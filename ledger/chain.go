package ledger

import (
	"context"
	"math"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/config"
	"github.com/mining-pool/pow-ledger/jobs"
	"github.com/mining-pool/pow-ledger/stats"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

var log = logging.Logger("ledger")

// GenesisTimestamp is the timestamp of block 0 and of its only transaction.
const GenesisTimestamp = 1231006505

// BlockSink receives every block appended to the chain, genesis included.
type BlockSink interface {
	PutBlock(ctx context.Context, block *types.Block) error
}

// Chain owns the blocks and the pending pool. Every mutation goes through
// SubmitTransaction and MinePendingTransactions.
type Chain struct {
	mu       sync.RWMutex
	miningMu sync.Mutex

	blocks  []*types.Block
	pending []types.Transaction
	// known holds the hash of every pending or sealed transaction.
	known map[string]struct{}

	options *config.ChainOptions
	mining  *jobs.MineOptions
	stats   *stats.Stats

	sinksMu sync.RWMutex
	sinks   []BlockSink

	now func() float64
}

// NewChain mines the genesis block at the configured difficulty.
func NewChain(ctx context.Context, options *config.ChainOptions, miningOptions *config.MiningOptions, sinks ...BlockSink) (*Chain, error) {
	if options == nil {
		options = config.DefaultChainOptions()
	}
	if miningOptions == nil {
		miningOptions = config.DefaultMiningOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	c := &Chain{
		blocks:  make([]*types.Block, 0),
		pending: make([]types.Transaction, 0),
		known:   make(map[string]struct{}),
		options: options,
		mining: &jobs.MineOptions{
			Difficulty: options.Difficulty,
			MaxNonce:   miningOptions.MaxNonce,
			Workers:    miningOptions.Workers,
		},
		stats: stats.NewStats(miningOptions.StatsWindow),
		sinks: sinks,
		now:   types.Now,
	}

	if err := c.createGenesisBlock(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Chain) createGenesisBlock(ctx context.Context) error {
	log.Info("creating genesis block")

	job := jobs.NewJob(0, types.GenesisPreviousHash, GenesisTimestamp)
	genesisTx := types.NewTransactionAt(types.GenesisAddress, types.SystemAddress, 0, GenesisTimestamp)
	if err := job.AddTransaction(*genesisTx); err != nil {
		return err
	}

	res, err := job.Mine(ctx, c.mining)
	if err != nil {
		return errors.Wrap(err, "failed to mine genesis block")
	}

	c.mu.Lock()
	c.appendBlockLocked(res.Block)
	c.mu.Unlock()

	c.stats.Record(res.Attempts, res.Duration)
	c.publish(ctx, res.Block)

	return nil
}

// AddSink registers a receiver for blocks appended from now on.
func (c *Chain) AddSink(sink BlockSink) {
	c.sinksMu.Lock()
	defer c.sinksMu.Unlock()
	c.sinks = append(c.sinks, sink)
}

func (c *Chain) publish(ctx context.Context, block *types.Block) {
	c.sinksMu.RLock()
	sinks := c.sinks
	c.sinksMu.RUnlock()

	for _, sink := range sinks {
		if err := sink.PutBlock(ctx, block); err != nil {
			log.Errorf("failed to publish block #%d: %s", block.Index(), err)
		}
	}
}

// AddTransaction enqueues tx and reports whether it was accepted.
func (c *Chain) AddTransaction(tx *types.Transaction) bool {
	return c.SubmitTransaction(tx) == nil
}

// SubmitTransaction enqueues tx or returns a types.RejectReason explaining
// the refusal. A refused transaction leaves the chain untouched.
func (c *Chain) SubmitTransaction(tx *types.Transaction) error {
	if tx == nil || tx.Sender == "" || tx.Recipient == "" {
		log.Warn("invalid transaction: missing sender or recipient")
		return types.RejectMissingParty
	}

	entry := *tx
	if entry.Hash == "" {
		entry.Hash = entry.ComputeHash()
	}

	if err := c.checkTransaction(&entry); err != nil {
		log.Warnf("transaction %s rejected: %s", entry.Hash, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a signed transfer authorises one payment, so its hash is spent once
	if c.options.VerifySignatures {
		if _, ok := c.known[entry.Hash]; ok {
			log.Warnf("transaction %s rejected: already submitted", entry.Hash)
			return types.RejectDuplicate
		}
	}

	if c.options.EnforceBalance {
		if available := c.spendableLocked(entry.Sender); available < entry.Amount {
			log.Warnf("transaction %s rejected: %s has %f, needs %f", entry.Hash, entry.Sender, available, entry.Amount)
			return types.RejectInsufficientBalance
		}
	}

	c.pending = append(c.pending, entry)
	c.known[entry.Hash] = struct{}{}
	log.Infof("transaction added: %s -> %s (%f)", shorten(entry.Sender), shorten(entry.Recipient), entry.Amount)

	return nil
}

func (c *Chain) checkTransaction(tx *types.Transaction) error {
	if !tx.HasValidAmount() {
		return types.RejectInvalidAmount
	}
	if tx.Hash != tx.ComputeHash() {
		return types.RejectHashMismatch
	}
	if c.options.VerifySignatures && !VerifyTransactionSignature(tx) {
		return types.RejectBadSignature
	}
	return nil
}

// MinePendingTransactions seals the pending pool plus a reward for miner
// into the next block. Transactions submitted while the search runs stay
// pending. On error the chain and the pool are unchanged.
func (c *Chain) MinePendingTransactions(ctx context.Context, minerAddress string) (*types.Block, error) {
	if minerAddress == "" {
		return nil, errors.Wrap(types.RejectMissingParty, "no miner address")
	}

	c.miningMu.Lock()
	defer c.miningMu.Unlock()

	c.mu.RLock()
	snapshot := make([]types.Transaction, len(c.pending))
	copy(snapshot, c.pending)
	latest := c.blocks[len(c.blocks)-1]
	reward := c.miningRewardLocked()
	c.mu.RUnlock()

	if len(snapshot) == 0 {
		log.Warn("no pending transactions, mining a block with the reward only")
	}

	timestamp := c.now()
	job := jobs.NewJob(latest.Index()+1, latest.Hash(), timestamp)
	if err := job.AddTransactions(snapshot); err != nil {
		return nil, err
	}
	if err := job.AddTransaction(*types.NewTransactionAt(types.SystemAddress, minerAddress, reward, timestamp)); err != nil {
		return nil, err
	}

	res, err := job.Mine(ctx, c.mining)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to mine block #%d", latest.Index()+1)
	}
	block := res.Block

	c.mu.Lock()
	c.appendBlockLocked(block)
	rest := make([]types.Transaction, len(c.pending)-len(snapshot))
	copy(rest, c.pending[len(snapshot):])
	c.pending = rest
	c.mu.Unlock()

	log.Infof("block #%d added to the chain", block.Index())
	log.Infof("mining reward: %f -> %s", reward, shorten(minerAddress))

	c.stats.Record(res.Attempts, res.Duration)
	c.publish(ctx, block)

	return block, nil
}

func (c *Chain) appendBlockLocked(block *types.Block) {
	c.blocks = append(c.blocks, block)
	for _, tx := range block.Transactions() {
		c.known[tx.Hash] = struct{}{}
	}
}

// GetMiningReward is baseReward / 2^(len(chain) / halvingInterval).
func (c *Chain) GetMiningReward() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.miningRewardLocked()
}

func (c *Chain) miningRewardLocked() float64 {
	halvings := uint64(len(c.blocks)) / c.options.HalvingInterval
	return c.options.Reward() / math.Pow(2, float64(halvings))
}

// IsChainValid walks the chain and reports whether every link holds.
func (c *Chain) IsChainValid() bool {
	c.mu.RLock()
	blocks := c.blocks
	c.mu.RUnlock()

	if err := ValidateChain(blocks, c.options.Difficulty); err != nil {
		log.Warn("chain validation failed: ", err)
		return false
	}

	log.Debug("chain is valid")
	return true
}

// Validate is IsChainValid with the failing block and reason.
func (c *Chain) Validate() error {
	c.mu.RLock()
	blocks := c.blocks
	c.mu.RUnlock()

	return ValidateChain(blocks, c.options.Difficulty)
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

func (c *Chain) LatestBlock() *types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

func (c *Chain) Block(index uint64) (*types.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index >= uint64(len(c.blocks)) {
		return nil, false
	}
	return c.blocks[index], true
}

// Blocks returns the sealed blocks in order. Blocks are immutable, only the
// slice is copied.
func (c *Chain) Blocks() []*types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*types.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

func (c *Chain) Pending() []types.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Transaction, len(c.pending))
	copy(out, c.pending)
	return out
}

func (c *Chain) Difficulty() int {
	return c.options.Difficulty
}

func (c *Chain) Stats() stats.Snapshot {
	return c.stats.Snapshot()
}

// Summary is the chain overview printed by the node and served by the API.
type Summary struct {
	Blocks          int     `json:"blocks"`
	Difficulty      int     `json:"difficulty"`
	Pending         int     `json:"pending"`
	LatestHash      string  `json:"latestHash"`
	MiningReward    float64 `json:"miningReward"`
	BaseReward      float64 `json:"baseReward"`
	HalvingInterval uint64  `json:"halvingInterval"`
	EnforceBalance  bool    `json:"enforceBalance"`
}

func (c *Chain) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Summary{
		Blocks:          len(c.blocks),
		Difficulty:      c.options.Difficulty,
		Pending:         len(c.pending),
		LatestHash:      c.blocks[len(c.blocks)-1].Hash(),
		MiningReward:    c.miningRewardLocked(),
		BaseReward:      c.options.Reward(),
		HalvingInterval: c.options.HalvingInterval,
		EnforceBalance:  c.options.EnforceBalance,
	}
}

func shorten(addr string) string {
	if len(addr) > 16 {
		return addr[:16] + "..."
	}
	return addr
}
