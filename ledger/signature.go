package ledger

import (
	"github.com/mining-pool/pow-ledger/keys"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/mining-pool/pow-ledger/utils"
)

// VerifyTransactionSignature checks that tx carries a public key owning the
// sender address and a valid signature over the transaction hash.
func VerifyTransactionSignature(tx *types.Transaction) bool {
	if !tx.IsSigned() || tx.PublicKey == "" {
		return false
	}

	pub, ok := utils.HexDecode(tx.PublicKey)
	if !ok || !keys.AddressMatchesPublicKey(tx.Sender, pub) {
		return false
	}

	sig, ok := utils.HexDecode(tx.Signature)
	if !ok {
		return false
	}

	return keys.Verify(tx.SigningBytes(), sig, pub)
}
