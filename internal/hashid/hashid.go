// Package hashid derives short, stable, URL-safe identifiers from message
// content. The identifiers are content-addressed: the same canonical input
// always maps to the same identifier, across processes and restarts.
//
// The digest is MD5, used purely for deterministic short-ID generation.
// No security property is assumed from identifier collision resistance.
package hashid

import (
	"crypto/md5"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
)

// Alphabet is the base-62 alphabet used for identifiers: digits, then
// lowercase, then uppercase ASCII letters.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base = big.NewInt(int64(len(Alphabet)))

// EncodeBase62 re-encodes a hexadecimal digest as a base-62 string using
// exact-precision integer arithmetic.
func EncodeBase62(digestHex string) string {
	n, ok := new(big.Int).SetString(digestHex, 16)
	if !ok || n.Sign() < 0 {
		return ""
	}

	if n.Sign() == 0 {
		return string(Alphabet[0])
	}

	var sb strings.Builder
	rem := new(big.Int)
	for n.Sign() > 0 {
		n.QuoRem(n, base, rem)
		sb.WriteByte(Alphabet[rem.Int64()])
	}

	// Digits were produced least-significant first.
	encoded := []byte(sb.String())
	for i, j := 0, len(encoded)-1; i < j; i, j = i+1, j-1 {
		encoded[i], encoded[j] = encoded[j], encoded[i]
	}
	return string(encoded)
}

// Hash digests a canonical string and returns its base-62 identifier.
// Callers build the canonical form by joining the identity-determining
// fields with ":".
func Hash(canonical string) string {
	sum := md5.Sum([]byte(canonical))
	return EncodeBase62(hex.EncodeToString(sum[:]))
}

// Join builds the canonical ":"-delimited form from identity fields.
func Join(fields ...string) string {
	return strings.Join(fields, ":")
}

// MD5Hex returns the lowercase hexadecimal MD5 digest of b.
func MD5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// FileID computes the identifier for an attachment payload. Two payloads
// share an ID iff they have the same MD5 sum, the same length and the same
// MIME type. The length and type are folded into the same digest stream
// after the payload itself. Returns the identifier, the payload length and
// the MD5 of the payload alone.
func FileID(payload []byte, mimeType string) (id string, length int, payloadMD5 string) {
	length = len(payload)

	h := md5.New()
	h.Write(payload)
	payloadMD5 = hex.EncodeToString(h.Sum(nil))

	h.Write([]byte(":" + strconv.Itoa(length) + ":" + mimeType))
	id = EncodeBase62(hex.EncodeToString(h.Sum(nil)))
	return id, length, payloadMD5
}
