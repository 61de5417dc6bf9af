package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BuildTransferIdempotencyKey scopes a client idempotency key to the sending account.
func BuildTransferIdempotencyKey(accountID string, key string) string {
	return accountID + ":transfer:" + key
}

// signatureLen is the byte length of an r || s || v secp256k1 signature.
const signatureLen = 65

// SignatureDigest returns a fixed-length key for a hex signature. Encodings
// of the same signature share a digest: case, the 0x prefix and V as 27/28
// or 0/1 do not change it. Input that is not a 65-byte signature is hashed
// as normalized text.
func SignatureDigest(signature string) string {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(signature)), "0x")
	raw, err := hex.DecodeString(normalized)
	if err != nil || len(raw) != signatureLen {
		sum := sha256.Sum256([]byte(normalized))
		return hex.EncodeToString(sum[:])
	}
	if raw[signatureLen-1] >= 27 {
		raw[signatureLen-1] -= 27
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
