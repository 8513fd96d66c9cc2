package storage

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BlockRecord is the short index entry kept per block hash, so a hash can be
// resolved without loading the whole block.
type BlockRecord struct {
	Hash      string
	Index     uint64
	Miner     string
	Timestamp float64
}

func (br *BlockRecord) String() string {
	return strings.Join([]string{
		strconv.FormatUint(br.Index, 10),
		br.Miner,
		strconv.FormatFloat(br.Timestamp, 'f', 6, 64),
	}, ":")
}

func NewBlockRecordFromString(hash, str string) (*BlockRecord, error) {
	split := strings.Split(str, ":")
	if len(split) != 3 {
		return nil, errors.Errorf("block record %s lacks element(s)", str)
	}

	index, err := strconv.ParseUint(split[0], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "bad block index")
	}

	timestamp, err := strconv.ParseFloat(split[2], 64)
	if err != nil {
		return nil, errors.Wrap(err, "bad block timestamp")
	}

	return &BlockRecord{
		Hash:      hash,
		Index:     index,
		Miner:     split[1],
		Timestamp: timestamp,
	}, nil
}
