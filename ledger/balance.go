package ledger

import "github.com/mining-pool/pow-ledger/types"

// GetBalance folds over every sealed transaction: the sender is debited and
// the recipient credited. Pending transactions do not count.
func (c *Chain) GetBalance(address string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balanceLocked(address)
}

func (c *Chain) balanceLocked(address string) float64 {
	balance := 0.0

	for _, block := range c.blocks {
		for i := 0; i < block.TransactionCount(); i++ {
			tx, _ := block.Transaction(i)
			if tx.Sender == address {
				balance -= tx.Amount
			}
			if tx.Recipient == address {
				balance += tx.Amount
			}
		}
	}

	return balance
}

// spendableLocked is the sealed balance minus what the address already
// sends in the pending pool. Pending incoming value is not spendable yet.
func (c *Chain) spendableLocked(address string) float64 {
	spendable := c.balanceLocked(address)
	for i := range c.pending {
		if c.pending[i].Sender == address {
			spendable -= c.pending[i].Amount
		}
	}
	return spendable
}

// Balances replays the chain once for every address that ever appeared.
func (c *Chain) Balances() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	balances := make(map[string]float64)
	for _, block := range c.blocks {
		for _, tx := range block.Transactions() {
			balances[tx.Sender] -= tx.Amount
			balances[tx.Recipient] += tx.Amount
		}
	}

	return balances
}

// History lists the sealed transactions that involve address, oldest first.
func (c *Chain) History(address string) []types.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]types.Transaction, 0)
	for _, block := range c.blocks {
		for _, tx := range block.Transactions() {
			if tx.Sender == address || tx.Recipient == address {
				history = append(history, tx)
			}
		}
	}

	return history
}
