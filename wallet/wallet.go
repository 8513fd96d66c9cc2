// Package wallet binds a secp256k1 key pair to signing and export.
package wallet

import (
	"encoding/hex"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/keys"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

var log = logging.Logger("wallet")

// ExportVersion is written into every Export.
const ExportVersion = 1

type Wallet struct {
	privateKey []byte
	publicKey  []byte
	address    string
}

// Export is a plain snapshot of the key material. It is not encrypted.
type Export struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// CreateNew generates a fresh private key and derives its address.
func CreateNew() (*Wallet, error) {
	privateKey, err := keys.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	w, err := fromPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	log.Infof("new wallet created, address: %s", w.address)
	return w, nil
}

// ImportFromPrivateKey re-derives the key pair from a hex scalar, which must
// lie in [1, n-1].
func ImportFromPrivateKey(privateKeyHex string) (*Wallet, error) {
	privateKey, err := keys.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}

	w, err := fromPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	log.Infof("wallet imported, address: %s", w.address)
	return w, nil
}

// FromExport restores a wallet and checks the exported public fields
// against the private key.
func FromExport(e *Export) (*Wallet, error) {
	w, err := ImportFromPrivateKey(e.PrivateKey)
	if err != nil {
		return nil, err
	}

	if e.Address != "" && e.Address != w.address {
		return nil, errors.Wrap(keys.ErrInvalidKeyFormat, "exported address does not match the private key")
	}
	if e.PublicKey != "" && e.PublicKey != w.PublicKeyHex() {
		return nil, errors.Wrap(keys.ErrInvalidKeyFormat, "exported public key does not match the private key")
	}

	return w, nil
}

func fromPrivateKey(privateKey []byte) (*Wallet, error) {
	publicKey, err := keys.DerivePublicKey(privateKey)
	if err != nil {
		return nil, err
	}

	address, err := keys.DeriveAddress(publicKey)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		privateKey: privateKey,
		publicKey:  publicKey,
		address:    address,
	}, nil
}

func (w *Wallet) Address() string {
	return w.address
}

func (w *Wallet) PublicKey() []byte {
	return append([]byte(nil), w.publicKey...)
}

func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.publicKey)
}

// Sign returns a DER signature over SHA-256(data).
func (w *Wallet) Sign(data []byte) ([]byte, error) {
	if w == nil {
		return nil, errors.Wrap(keys.ErrSigning, "wallet not initialized")
	}
	return keys.Sign(data, w.privateKey)
}

// Verify checks a signature against this wallet's public key.
func (w *Wallet) Verify(data, signature []byte) bool {
	return keys.Verify(data, signature, w.publicKey)
}

// NewTransaction builds a signed transfer from this wallet.
func (w *Wallet) NewTransaction(recipient string, amount float64) (*types.Transaction, error) {
	tx := types.NewTransaction(w.address, recipient, amount)
	if err := w.SignTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SignTransaction attaches the signature over the transaction hash and the
// public key needed to check it.
func (w *Wallet) SignTransaction(tx *types.Transaction) error {
	sig, err := w.Sign(tx.SigningBytes())
	if err != nil {
		return err
	}

	tx.Signature = hex.EncodeToString(sig)
	tx.PublicKey = w.PublicKeyHex()
	return nil
}

func (w *Wallet) Export() Export {
	return Export{
		Version:    ExportVersion,
		Address:    w.address,
		PublicKey:  w.PublicKeyHex(),
		PrivateKey: hex.EncodeToString(w.privateKey),
	}
}
