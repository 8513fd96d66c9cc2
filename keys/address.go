package keys

import (
	"bytes"

	"github.com/mining-pool/pow-ledger/utils"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MainNetVersion is the p2pkh version byte.
const MainNetVersion byte = 0x00

const (
	checksumSize   = 4
	hash160Size    = 20
	addressPayload = 1 + hash160Size + checksumSize
)

var ErrInvalidAddress = errors.New("invalid address")

// DeriveAddress encodes base58(version || hash160(pub) || checksum).
func DeriveAddress(publicKey []byte) (string, error) {
	if len(publicKey) != CompressedPublicKeySize && len(publicKey) != UncompressedPublicKeySize {
		return "", errors.Wrapf(ErrInvalidKeyFormat, "public key length %d", len(publicKey))
	}

	return EncodeAddress(MainNetVersion, utils.Hash160(publicKey)), nil
}

func EncodeAddress(version byte, hash160 []byte) string {
	versioned := append([]byte{version}, hash160...)
	checksum := utils.Sha256d(versioned)[:checksumSize]

	return base58.Encode(append(versioned, checksum...))
}

// DecodeAddress checks the checksum and splits an address into its version
// byte and public key hash.
func DecodeAddress(addr string) (version byte, hash160 []byte, err error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return 0, nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	if len(decoded) != addressPayload {
		return 0, nil, errors.Wrapf(ErrInvalidAddress, "decoded length %d", len(decoded))
	}

	payload := decoded[:len(decoded)-checksumSize]
	if !bytes.Equal(utils.Sha256d(payload)[:checksumSize], decoded[len(decoded)-checksumSize:]) {
		return 0, nil, errors.Wrap(ErrInvalidAddress, "checksum mismatch")
	}

	return payload[0], payload[1:], nil
}

func ValidateAddress(addr string) bool {
	_, _, err := DecodeAddress(addr)
	return err == nil
}

// AddressMatchesPublicKey reports whether addr is the p2pkh address of pub.
func AddressMatchesPublicKey(addr string, publicKey []byte) bool {
	derived, err := DeriveAddress(publicKey)
	if err != nil {
		return false
	}
	return derived == addr
}
