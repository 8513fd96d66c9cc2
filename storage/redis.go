package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/config"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

var log = logging.Logger("storage")

var ErrBlockNotFound = errors.New("block not found")

// DB archives sealed blocks into redis. The in-memory chain stays the
// source of truth, nothing is read back into it.
type DB struct {
	*redis.Client
	prefix string
}

func NewStorage(ctx context.Context, options *config.RedisOptions) (*DB, error) {
	redisOptions, err := options.ToRedisOptions()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOptions)

	result, err := client.Ping(ctx).Result()
	if err != nil || strings.ToLower(result) != "pong" {
		_ = client.Close()
		return nil, errors.Errorf("failed to connect to the redis server: %s %v", result, err)
	}

	prefix := options.Prefix
	if prefix == "" {
		prefix = config.DefaultStoragePrefix
	}

	return &DB{
		Client: client,
		prefix: prefix,
	}, nil
}

func (s *DB) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

// PutBlock writes the block and its index entries in one pipeline. The last
// transaction of a mined block is the reward, genesis has none.
func (s *DB) PutBlock(ctx context.Context, block *types.Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return errors.Wrapf(err, "failed to encode block #%d", block.Index())
	}

	strIndex := strconv.FormatUint(block.Index(), 10)
	record := &BlockRecord{
		Hash:      block.Hash(),
		Index:     block.Index(),
		Timestamp: block.Timestamp(),
	}

	ppl := s.Pipeline()
	ppl.Set(ctx, s.key("block", strIndex), raw, 0)
	ppl.ZAdd(ctx, s.key("blocks"), &redis.Z{
		Score:  float64(block.Index()),
		Member: block.Hash(),
	})

	if reward, ok := block.Transaction(block.TransactionCount() - 1); ok && block.Index() > 0 && reward.Sender == types.SystemAddress {
		record.Miner = reward.Recipient
		ppl.HIncrByFloat(ctx, s.key("miners"), reward.Recipient, reward.Amount)
	}

	ppl.HSetNX(ctx, s.key("blocks", "records"), block.Hash(), record.String())
	ppl.HIncrBy(ctx, s.key("stats"), "blocks", 1)
	ppl.HIncrBy(ctx, s.key("stats"), "transactions", int64(block.TransactionCount()))

	if _, err := ppl.Exec(ctx); err != nil {
		log.Error(err)
		return errors.Wrapf(err, "failed to archive block #%d", block.Index())
	}

	log.Debugf("block #%d archived", block.Index())
	return nil
}

func (s *DB) GetBlock(ctx context.Context, index uint64) (*types.Block, error) {
	raw, err := s.Get(ctx, s.key("block", strconv.FormatUint(index, 10))).Bytes()
	if err == redis.Nil {
		return nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, err
	}

	var block types.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, errors.Wrapf(err, "failed to decode block #%d", index)
	}

	return &block, nil
}

// GetBlockHashes returns the hashes of the blocks with index in [from, to].
func (s *DB) GetBlockHashes(ctx context.Context, from, to uint64) ([]string, error) {
	return s.ZRangeByScore(ctx, s.key("blocks"), &redis.ZRangeBy{
		Min: strconv.FormatUint(from, 10),
		Max: strconv.FormatUint(to, 10),
	}).Result()
}

func (s *DB) GetBlockRecord(ctx context.Context, hash string) (*BlockRecord, error) {
	str, err := s.HGet(ctx, s.key("blocks", "records"), hash).Result()
	if err == redis.Nil {
		return nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, err
	}

	return NewBlockRecordFromString(hash, str)
}

// GetMinerRewards sums the rewards paid to every miner.
func (s *DB) GetMinerRewards(ctx context.Context) (map[string]float64, error) {
	m, err := s.HGetAll(ctx, s.key("miners")).Result()
	if err != nil {
		return nil, err
	}

	rewards := make(map[string]float64)
	for miner, strReward := range m {
		reward, err := strconv.ParseFloat(strReward, 64)
		if err != nil {
			return nil, err
		}

		rewards[miner] = reward
	}

	return rewards, nil
}

type Stats struct {
	Blocks       uint64 `json:"blocks"`
	Transactions uint64 `json:"transactions"`
}

func (s *DB) GetStats(ctx context.Context) (*Stats, error) {
	m, err := s.HGetAll(ctx, s.key("stats")).Result()
	if err != nil {
		return nil, err
	}

	var stats Stats
	if str, ok := m["blocks"]; ok {
		if stats.Blocks, err = strconv.ParseUint(str, 10, 64); err != nil {
			return nil, err
		}
	}
	if str, ok := m["transactions"]; ok {
		if stats.Transactions, err = strconv.ParseUint(str, 10, 64); err != nil {
			return nil, err
		}
	}

	return &stats, nil
}
