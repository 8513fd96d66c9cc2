package keys

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// private key 1, i.e. the generator point
	oneKeyHex          = "0000000000000000000000000000000000000000000000000000000000000001"
	generatorHex       = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	generatorAddress   = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"
	curveOrderHex      = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"
	curveOrderMinusOne = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDerivePublicKeyGenerator(t *testing.T) {
	pub, err := DerivePublicKey(mustHex(t, oneKeyHex))
	if err != nil {
		t.Fatal(err)
	}

	if hex.EncodeToString(pub) != generatorHex {
		t.Fatalf("unexpected public key %x", pub)
	}

	addr, err := DeriveAddress(pub)
	if err != nil {
		t.Fatal(err)
	}
	if addr != generatorAddress {
		t.Fatalf("unexpected address %s", addr)
	}
}

func TestDeriveAddressDeterministic(t *testing.T) {
	for i := 0; i < 8; i++ {
		priv, err := GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		if len(priv) != PrivateKeySize {
			t.Fatalf("private key length %d", len(priv))
		}

		pub1, _ := DerivePublicKey(priv)
		pub2, _ := DerivePublicKey(priv)
		if !bytes.Equal(pub1, pub2) || len(pub1) != CompressedPublicKeySize {
			t.Fatal("public key derivation is not deterministic")
		}

		addr1, _ := DeriveAddress(pub1)
		addr2, _ := DeriveAddress(pub2)
		if addr1 != addr2 {
			t.Fatal("address derivation is not deterministic")
		}
		if !ValidateAddress(addr1) {
			t.Fatalf("derived address %s does not validate", addr1)
		}
	}
}

func TestValidatePrivateKey(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		valid bool
	}{
		{"one", oneKeyHex, true},
		{"n-1", curveOrderMinusOne, true},
		{"zero", "0000000000000000000000000000000000000000000000000000000000000000", false},
		{"n", curveOrderHex, false},
		{"above n", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", false},
		{"short", "01", false},
	}

	for _, c := range cases {
		err := ValidatePrivateKey(mustHex(t, c.key))
		if c.valid && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.valid && !errors.Is(err, ErrInvalidKeyFormat) {
			t.Errorf("%s: expected ErrInvalidKeyFormat, got %v", c.name, err)
		}
	}

	if _, err := ParsePrivateKeyHex("not hex"); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("expected ErrInvalidKeyFormat for bad hex, got %v", err)
	}
}

func TestDeriveAddressRejectsBadLength(t *testing.T) {
	if _, err := DeriveAddress(make([]byte, 32)); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("expected ErrInvalidKeyFormat, got %v", err)
	}
}

func TestDecodeAddress(t *testing.T) {
	version, h160, err := DecodeAddress(generatorAddress)
	if err != nil {
		t.Fatal(err)
	}
	if version != MainNetVersion || hex.EncodeToString(h160) != "751e76e8199196d454941c45d1b3a323f1433bd6" {
		t.Fatalf("unexpected payload %x %x", version, h160)
	}

	// last character changed breaks the checksum
	corrupted := generatorAddress[:len(generatorAddress)-1] + "J"
	if ValidateAddress(corrupted) {
		t.Fatal("corrupted address validated")
	}
	if ValidateAddress("0OIl") {
		t.Fatal("non base58 address validated")
	}
}

func TestDecompressPublicKey(t *testing.T) {
	for i := 0; i < 16; i++ {
		key, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			t.Fatal(err)
		}
		pub := key.PubKey()

		got, err := DecompressPublicKey(pub.SerializeCompressed())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, pub.SerializeUncompressed()) {
			t.Fatalf("decompressed %x, want %x", got, pub.SerializeUncompressed())
		}

		odd := got[len(got)-1]&1 == 1
		if odd != (pub.SerializeCompressed()[0] == 0x03) {
			t.Fatal("y parity does not match prefix")
		}

		back, err := CompressPublicKey(got)
		if err != nil || !bytes.Equal(back, pub.SerializeCompressed()) {
			t.Fatal("compress(decompress(pub)) != pub")
		}
	}
}

func TestDecompressPublicKeyFlippedPrefix(t *testing.T) {
	g := mustHex(t, generatorHex)
	even, err := DecompressPublicKey(g)
	if err != nil {
		t.Fatal(err)
	}

	g[0] = 0x03
	odd, err := DecompressPublicKey(g)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(even[33:], odd[33:]) {
		t.Fatal("both prefixes produced the same y")
	}
	if even[64]&1 != 0 || odd[64]&1 != 1 {
		t.Fatal("wrong root selected for prefix")
	}
}

func TestDecompressPublicKeyInvalid(t *testing.T) {
	bad := mustHex(t, generatorHex)
	bad[0] = 0x05
	if _, err := DecompressPublicKey(bad); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("expected ErrInvalidKeyFormat, got %v", err)
	}
	if _, err := DecompressPublicKey(bad[:10]); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("expected ErrInvalidKeyFormat, got %v", err)
	}

	// x = 5 has no point, 5^3 + 7 is not a square mod p
	offCurve := make([]byte, CompressedPublicKeySize)
	offCurve[0] = 0x02
	offCurve[32] = 5
	if _, err := DecompressPublicKey(offCurve); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("expected ErrInvalidKeyFormat for x off the curve, got %v", err)
	}

	// x = p
	outOfField := mustHex(t, "02fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f")
	if _, err := DecompressPublicKey(outOfField); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("expected ErrInvalidKeyFormat for x outside the field, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	priv, _ := GeneratePrivateKey()
	pub, _ := DerivePublicKey(priv)
	msg := []byte("Alice->Bob:25")

	sig, err := Sign(msg, priv)
	if err != nil {
		t.Fatal(err)
	}

	if !Verify(msg, sig, pub) {
		t.Fatal("signature does not verify with the compressed key")
	}

	uncompressed, _ := DecompressPublicKey(pub)
	if !Verify(msg, sig, uncompressed) {
		t.Fatal("signature does not verify with the uncompressed key")
	}

	otherPriv, _ := GeneratePrivateKey()
	otherPub, _ := DerivePublicKey(otherPriv)
	if Verify(msg, sig, otherPub) {
		t.Fatal("signature verified with a foreign key")
	}
}

func TestVerifyRejectsBitFlips(t *testing.T) {
	priv, _ := GeneratePrivateKey()
	pub, _ := DerivePublicKey(priv)
	msg := []byte("transfer 10 to charlie")
	sig, _ := Sign(msg, priv)

	for i := 0; i < len(msg)*8; i++ {
		mutated := append([]byte(nil), msg...)
		mutated[i/8] ^= 1 << (i % 8)
		if Verify(mutated, sig, pub) {
			t.Fatalf("verified message with bit %d flipped", i)
		}
	}

	for i := 0; i < len(sig)*8; i++ {
		mutated := append([]byte(nil), sig...)
		mutated[i/8] ^= 1 << (i % 8)
		if Verify(msg, mutated, pub) {
			t.Fatalf("verified signature with bit %d flipped", i)
		}
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	priv, _ := GeneratePrivateKey()
	pub, _ := DerivePublicKey(priv)

	if Verify([]byte("m"), []byte{0x30, 0x00}, pub) {
		t.Fatal("malformed signature verified")
	}
	if Verify([]byte("m"), nil, nil) {
		t.Fatal("empty input verified")
	}
}

func TestSignErrors(t *testing.T) {
	if _, err := Sign([]byte("m"), nil); !errors.Is(err, ErrSigning) {
		t.Fatalf("expected ErrSigning, got %v", err)
	}
	if _, err := Sign([]byte("m"), []byte{1, 2, 3}); !errors.Is(err, ErrSigning) {
		t.Fatalf("expected ErrSigning, got %v", err)
	}
}
