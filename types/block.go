package types

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mining-pool/pow-ledger/merkletree"
	"github.com/mining-pool/pow-ledger/utils"
)

// GenesisPreviousHash is the previous hash of block 0.
var GenesisPreviousHash = strings.Repeat("0", 64)

// Header holds every field covered by the block hash.
type Header struct {
	Index        uint64  `json:"index"`
	PreviousHash string  `json:"previous_hash"`
	Timestamp    float64 `json:"timestamp"`
	MerkleRoot   string  `json:"merkle_root"`
	Nonce        uint64  `json:"nonce"`
}

// ComputeHash is SHA-256 over index || previous_hash || timestamp || merkle_root || nonce.
func (h Header) ComputeHash() string {
	return utils.Sha256Hex(strings.Join([]string{
		strconv.FormatUint(h.Index, 10),
		h.PreviousHash,
		utils.FormatTimestamp(h.Timestamp),
		h.MerkleRoot,
		strconv.FormatUint(h.Nonce, 10),
	}, ""))
}

// MeetsDifficulty reports whether hash has at least difficulty leading '0' hex digits.
func MeetsDifficulty(hash string, difficulty int) bool {
	return utils.HasZeroPrefix(hash, difficulty)
}

// TransactionHashes lists the hashes in block order.
func TransactionHashes(txs []Transaction) []string {
	hashes := make([]string, len(txs))
	for i := range txs {
		hashes[i] = txs[i].Hash
	}
	return hashes
}

func ComputeMerkleRoot(txs []Transaction) string {
	return merkletree.ComputeRoot(TransactionHashes(txs))
}

// Block is a sealed block. Its fields can only be read, transactions are
// copied on the way out.
type Block struct {
	header       Header
	transactions []Transaction
	hash         string
}

// SealBlock freezes a header and its transactions, hashing the header as given.
func SealBlock(header Header, txs []Transaction) *Block {
	return &Block{
		header:       header,
		transactions: copyTransactions(txs),
		hash:         header.ComputeHash(),
	}
}

func copyTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

func (b *Block) Header() Header { return b.header }

func (b *Block) Index() uint64 { return b.header.Index }

func (b *Block) PreviousHash() string { return b.header.PreviousHash }

func (b *Block) Timestamp() float64 { return b.header.Timestamp }

func (b *Block) MerkleRoot() string { return b.header.MerkleRoot }

func (b *Block) Nonce() uint64 { return b.header.Nonce }

func (b *Block) Hash() string { return b.hash }

func (b *Block) TransactionCount() int { return len(b.transactions) }

func (b *Block) Transactions() []Transaction { return copyTransactions(b.transactions) }

// Transaction returns a copy of the i-th transaction.
func (b *Block) Transaction(i int) (Transaction, bool) {
	if i < 0 || i >= len(b.transactions) {
		return Transaction{}, false
	}
	return b.transactions[i], true
}

// FindTransaction returns the position of the transaction with the given hash.
func (b *Block) FindTransaction(txHash string) int {
	for i := range b.transactions {
		if b.transactions[i].Hash == txHash {
			return i
		}
	}
	return -1
}

// ComputeHash rehashes the header; compare with Hash to detect tampering.
func (b *Block) ComputeHash() string {
	return b.header.ComputeHash()
}

// ComputeMerkleRoot recomputes the root from the stored transactions.
func (b *Block) ComputeMerkleRoot() string {
	return ComputeMerkleRoot(b.transactions)
}

// MerkleTree builds the full tree over the stored transactions.
func (b *Block) MerkleTree() *merkletree.MerkleTree {
	return merkletree.NewMerkleTree(TransactionHashes(b.transactions))
}

type blockJSON struct {
	Index        uint64        `json:"index"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Timestamp    float64       `json:"timestamp"`
	Nonce        uint64        `json:"nonce"`
	MerkleRoot   string        `json:"merkle_root"`
	Hash         string        `json:"hash"`
}

func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(&blockJSON{
		Index:        b.header.Index,
		Transactions: b.transactions,
		PreviousHash: b.header.PreviousHash,
		Timestamp:    b.header.Timestamp,
		Nonce:        b.header.Nonce,
		MerkleRoot:   b.header.MerkleRoot,
		Hash:         b.hash,
	})
}

// UnmarshalJSON restores a block as stored, including its stored hash, so
// that archived or received blocks can be validated.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.header = Header{
		Index:        raw.Index,
		PreviousHash: raw.PreviousHash,
		Timestamp:    raw.Timestamp,
		MerkleRoot:   raw.MerkleRoot,
		Nonce:        raw.Nonce,
	}
	b.transactions = copyTransactions(raw.Transactions)
	b.hash = raw.Hash

	return nil
}
