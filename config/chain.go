package config

import (
	"runtime"

	"github.com/pkg/errors"
)

const (
	DefaultDifficulty      = 4
	DefaultBaseReward      = 50.0
	DefaultHalvingInterval = 210000
	DefaultStatsWindow     = 32
)

type ChainOptions struct {
	// Difficulty is the number of leading '0' hex digits a block hash needs.
	Difficulty int `json:"difficulty"`
	// BaseReward is nil when unset, an explicit 0 mines reward-free blocks.
	BaseReward      *float64 `json:"baseReward"`
	HalvingInterval uint64   `json:"halvingInterval"`

	// EnforceBalance refuses transactions the sender cannot cover.
	EnforceBalance bool `json:"enforceBalance"`
	// VerifySignatures refuses unsigned transactions or ones whose key does not own the sender address.
	VerifySignatures bool `json:"verifySignatures"`
}

func DefaultChainOptions() *ChainOptions {
	return &ChainOptions{
		Difficulty:      DefaultDifficulty,
		BaseReward:      Float64(DefaultBaseReward),
		HalvingInterval: DefaultHalvingInterval,
	}
}

// Normalize only fills the reward schedule, difficulty 0 is a legal setting.
func (co *ChainOptions) Normalize() {
	if co.BaseReward == nil {
		co.BaseReward = Float64(DefaultBaseReward)
	}
	if co.HalvingInterval == 0 {
		co.HalvingInterval = DefaultHalvingInterval
	}
}

// Reward is the reward of the first halving era.
func (co *ChainOptions) Reward() float64 {
	if co.BaseReward == nil {
		return DefaultBaseReward
	}
	return *co.BaseReward
}

func Float64(v float64) *float64 {
	return &v
}

func (co *ChainOptions) Validate() error {
	if co.Difficulty < 0 || co.Difficulty > 64 {
		return errors.Errorf("difficulty %d out of range [0, 64]", co.Difficulty)
	}
	if co.Reward() < 0 {
		return errors.Errorf("base reward %f is negative", co.Reward())
	}
	if co.HalvingInterval == 0 {
		return errors.New("halving interval must be positive")
	}
	return nil
}

type MiningOptions struct {
	// MaxNonce bounds every nonce search, 0 means unbounded.
	MaxNonce uint64 `json:"maxNonce"`
	// Workers is the number of search goroutines, 0 means one per CPU.
	Workers int `json:"workers"`
	// StatsWindow is the number of recent blocks kept for mining statistics.
	StatsWindow int64 `json:"statsWindow"`
}

func DefaultMiningOptions() *MiningOptions {
	mo := &MiningOptions{}
	mo.Normalize()
	return mo
}

func (mo *MiningOptions) Normalize() {
	if mo.Workers <= 0 {
		mo.Workers = runtime.NumCPU()
	}
	if mo.StatsWindow <= 0 {
		mo.StatsWindow = DefaultStatsWindow
	}
}
