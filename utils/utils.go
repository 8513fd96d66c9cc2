package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/crypto/ripemd160"
)

var log = logging.Logger("utils")

// AmountPrecision is the number of decimals used when an amount takes part in a hash.
const AmountPrecision = 8

// TimestampPrecision is the number of decimals used when a timestamp takes part in a hash.
const TimestampPrecision = 6

func Sha256(b []byte) []byte {
	b32 := sha256.Sum256(b)
	return b32[:]
}

func Sha256d(b []byte) []byte {
	return Sha256(Sha256(b))
}

// Sha256Hex returns the lowercase hex digest of the string
func Sha256Hex(s string) string {
	return hex.EncodeToString(Sha256([]byte(s)))
}

// Hash160 is RIPEMD160(SHA256(b)), the public key hash of p2pkh addresses
func Hash160(b []byte) []byte {
	h := ripemd160.New()
	_, _ = h.Write(Sha256(b))
	return h.Sum(nil)
}

// FormatAmount renders an amount with a fixed number of decimals so the
// serialization does not depend on float formatting heuristics.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', AmountPrecision, 64)
}

func FormatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', TimestampPrecision, 64)
}

// HasZeroPrefix reports whether the hex string starts with n '0' characters.
func HasZeroPrefix(hexStr string, n int) bool {
	if n <= 0 {
		return true
	}
	if len(hexStr) < n {
		return false
	}
	return strings.Count(hexStr[:n], "0") == n
}

func HexDecode(s string) ([]byte, bool) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

func Jsonify(i interface{}) []byte {
	r, err := json.Marshal(i)
	if err != nil {
		log.Error("Jsonify: ", err)
		return nil
	}

	return r
}

func JsonifyIndentString(i interface{}) string {
	r, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error("JsonifyIndentString: ", err)
		return ""
	}
	return string(r)
}

func GetReadableHashRateString(hashrate float64) string {
	i := 0
	byteUnits := []string{" H", " KH", " MH", " GH", " TH", " PH", " EH", " ZH", " YH"}
	for hashrate > 1000 {
		i++
		hashrate = hashrate / 1000
		if i+1 == len(byteUnits) {
			break
		}
	}

	return strconv.FormatFloat(hashrate, 'f', 7, 64) + byteUnits[i]
}

func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
