// Package keys turns secp256k1 private scalars into p2pkh identities and
// signs / verifies messages with them.
package keys

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
)

var log = logging.Logger("keys")

const (
	PrivateKeySize            = 32
	CompressedPublicKeySize   = 33
	UncompressedPublicKeySize = 65
)

const (
	pubKeyCompressedEven byte = 0x02
	pubKeyCompressedOdd  byte = 0x03
	pubKeyUncompressed   byte = 0x04
)

var (
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrSigning          = errors.New("signing failed")
)

// GeneratePrivateKey returns 32 random bytes forming a scalar in [1, n-1].
func GeneratePrivateKey() ([]byte, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read entropy for private key")
	}

	return key.Serialize(), nil
}

// ValidatePrivateKey checks the length and that 1 <= k < n.
func ValidatePrivateKey(privateKey []byte) error {
	if len(privateKey) != PrivateKeySize {
		return errors.Wrapf(ErrInvalidKeyFormat, "private key must be %d bytes, got %d", PrivateKeySize, len(privateKey))
	}

	var k secp256k1.ModNScalar
	if overflow := k.SetByteSlice(privateKey); overflow {
		return errors.Wrap(ErrInvalidKeyFormat, "private key is not below the curve order")
	}
	if k.IsZero() {
		return errors.Wrap(ErrInvalidKeyFormat, "private key is zero")
	}

	return nil
}

// ParsePrivateKeyHex decodes and range checks a hex encoded scalar.
func ParsePrivateKeyHex(privateKeyHex string) ([]byte, error) {
	b, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKeyFormat, err.Error())
	}

	if err := ValidatePrivateKey(b); err != nil {
		return nil, err
	}

	return b, nil
}

// DerivePublicKey multiplies the generator by the scalar and returns the
// 33 byte compressed point.
func DerivePublicKey(privateKey []byte) ([]byte, error) {
	if err := ValidatePrivateKey(privateKey); err != nil {
		return nil, err
	}

	return secp256k1.PrivKeyFromBytes(privateKey).PubKey().SerializeCompressed(), nil
}

// Sign hashes msg with SHA-256 and returns a DER encoded RFC6979 signature.
func Sign(msg []byte, privateKey []byte) ([]byte, error) {
	if len(privateKey) == 0 {
		return nil, errors.Wrap(ErrSigning, "no private key")
	}
	if err := ValidatePrivateKey(privateKey); err != nil {
		return nil, errors.Wrap(ErrSigning, err.Error())
	}

	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(secp256k1.PrivKeyFromBytes(privateKey), digest[:])

	return sig.Serialize(), nil
}

// Verify reports whether sig is a valid DER signature over SHA-256(msg)
// for the given compressed or uncompressed public key. Malformed input is
// a failed verification, not an error.
func Verify(msg, sig, publicKey []byte) bool {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		log.Debug("verify: ", err)
		return false
	}

	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		log.Debug("verify: ", err)
		return false
	}

	digest := sha256.Sum256(msg)
	return signature.Verify(digest[:], pub)
}

func parsePublicKey(publicKey []byte) (*secp256k1.PublicKey, error) {
	switch len(publicKey) {
	case CompressedPublicKeySize:
		uncompressed, err := DecompressPublicKey(publicKey)
		if err != nil {
			return nil, err
		}
		return secp256k1.ParsePubKey(uncompressed)
	case UncompressedPublicKeySize:
		return secp256k1.ParsePubKey(publicKey)
	default:
		return nil, errors.Wrapf(ErrInvalidKeyFormat, "public key length %d", len(publicKey))
	}
}
