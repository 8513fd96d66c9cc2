package keys

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// DecompressPublicKey recovers y from a 0x02/0x03 prefixed x coordinate and
// returns the 65 byte 0x04 || x || y encoding.
func DecompressPublicKey(compressed []byte) ([]byte, error) {
	if len(compressed) != CompressedPublicKeySize {
		return nil, errors.Wrapf(ErrInvalidKeyFormat, "compressed key length %d", len(compressed))
	}

	prefix := compressed[0]
	if prefix != pubKeyCompressedEven && prefix != pubKeyCompressedOdd {
		return nil, errors.Wrapf(ErrInvalidKeyFormat, "compressed key prefix %#x", prefix)
	}

	var x, y secp256k1.FieldVal
	if overflow := x.SetByteSlice(compressed[1:]); overflow {
		return nil, errors.Wrap(ErrInvalidKeyFormat, "x coordinate not in field")
	}

	// y^2 = x^3 + 7, the root with the parity named by the prefix
	if !secp256k1.DecompressY(&x, prefix == pubKeyCompressedOdd, &y) {
		return nil, errors.Wrap(ErrInvalidKeyFormat, "x coordinate is not on the curve")
	}
	y.Normalize()

	out := make([]byte, UncompressedPublicKeySize)
	out[0] = pubKeyUncompressed
	x.PutBytesUnchecked(out[1:33])
	y.PutBytesUnchecked(out[33:])

	return out, nil
}

// CompressPublicKey is the inverse of DecompressPublicKey.
func CompressPublicKey(uncompressed []byte) ([]byte, error) {
	if len(uncompressed) != UncompressedPublicKeySize || uncompressed[0] != pubKeyUncompressed {
		return nil, errors.Wrap(ErrInvalidKeyFormat, "not an uncompressed public key")
	}

	out := make([]byte, CompressedPublicKeySize)
	out[0] = pubKeyCompressedEven
	if uncompressed[UncompressedPublicKeySize-1]&1 == 1 {
		out[0] = pubKeyCompressedOdd
	}
	copy(out[1:], uncompressed[1:33])

	return out, nil
}
