package types

import (
	"math"
	"strings"
	"time"

	"github.com/mining-pool/pow-ledger/utils"
)

const (
	// SystemAddress is the sender of mining rewards.
	SystemAddress = "SYSTEM"
	// GenesisAddress is the sender of the genesis transaction.
	GenesisAddress = "GENESIS"
)

// Transaction is a value transfer between two identifiers. Hash is set at
// construction from the other content fields. Signature and PublicKey are
// attached afterwards and are not covered by the hash.
type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Timestamp float64 `json:"timestamp"`
	Hash      string  `json:"tx_hash"`
	Signature string  `json:"signature,omitempty"`
	PublicKey string  `json:"public_key,omitempty"`
}

func NewTransaction(sender, recipient string, amount float64) *Transaction {
	return NewTransactionAt(sender, recipient, amount, Now())
}

func NewTransactionAt(sender, recipient string, amount, timestamp float64) *Transaction {
	tx := &Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Timestamp: timestamp,
	}
	tx.Hash = tx.ComputeHash()

	return tx
}

// ComputeHash is SHA-256 over sender || recipient || amount || timestamp.
func (tx *Transaction) ComputeHash() string {
	return utils.Sha256Hex(strings.Join([]string{
		tx.Sender,
		tx.Recipient,
		utils.FormatAmount(tx.Amount),
		utils.FormatTimestamp(tx.Timestamp),
	}, ""))
}

// SigningBytes is the message a wallet signs for this transaction: the
// content fields as a JSON array, so no field can bleed into its neighbour.
func (tx *Transaction) SigningBytes() []byte {
	return utils.Jsonify([]string{
		tx.Sender,
		tx.Recipient,
		utils.FormatAmount(tx.Amount),
		utils.FormatTimestamp(tx.Timestamp),
	})
}

func (tx *Transaction) IsSigned() bool {
	return tx.Signature != ""
}

func (tx *Transaction) HasValidAmount() bool {
	return !math.IsNaN(tx.Amount) && !math.IsInf(tx.Amount, 0) && tx.Amount >= 0
}

// Now is the current time in fractional seconds since the epoch.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
