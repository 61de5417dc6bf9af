package service

import (
	"crypto/ecdsa"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signVote produces a personal_sign style signature with V in {27, 28}.
func signVote(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func newVoter(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestVoteAuthorizer_ValidSignature(t *testing.T) {
	a := NewEthereumVoteAuthorizer()
	key, addr := newVoter(t)
	msg := "vote:p1:yes"
	sig := signVote(t, key, msg)

	assert.True(t, a.Verify(addr, msg, sig))
	assert.True(t, a.Verify(strings.ToLower(addr), msg, sig), "address case must not matter")
	assert.True(t, a.Verify(addr, msg, strings.TrimPrefix(sig, "0x")), "0x prefix is optional")
}

func TestVoteAuthorizer_RawRecoveryID(t *testing.T) {
	a := NewEthereumVoteAuthorizer()
	key, addr := newVoter(t)
	msg := "vote:p1:no"

	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)

	assert.True(t, a.Verify(addr, msg, hexutil.Encode(sig)))
}

func TestVoteAuthorizer_Rejects(t *testing.T) {
	a := NewEthereumVoteAuthorizer()
	key, addr := newVoter(t)
	_, otherAddr := newVoter(t)
	msg := "vote:p1:yes"
	sig := signVote(t, key, msg)

	flipped, _ := hexutil.Decode(sig)
	flipped[10] ^= 0x01

	short, _ := hexutil.Decode(sig)

	tests := []struct {
		name    string
		address string
		message string
		sig     string
	}{
		{"other signer", otherAddr, msg, sig},
		{"different message", addr, "vote:p1:no", sig},
		{"bit flip", addr, msg, hexutil.Encode(flipped)},
		{"truncated", addr, msg, hexutil.Encode(short[:64])},
		{"not hex", addr, msg, "0xzz"},
		{"empty signature", addr, msg, ""},
		{"empty message", addr, "", sig},
		{"bad address", "0x1234", msg, sig},
		{"garbage address", "not-an-address", msg, sig},
		{"bad recovery id", addr, msg, hexutil.Encode(append(short[:64:64], 9))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, a.Verify(tt.address, tt.message, tt.sig))
		})
	}
}

func TestVoteAuthorizer_RejectsHighS(t *testing.T) {
	a := NewEthereumVoteAuthorizer()
	key, addr := newVoter(t)
	msg := "vote:p1:yes"

	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)

	// (r, n-s, v^1) recovers the same key but is the malleable twin.
	n := crypto.S256().Params().N
	s := new(big.Int).SetBytes(sig[32:64])
	highS := new(big.Int).Sub(n, s)
	malleable := make([]byte, 65)
	copy(malleable, sig[:32])
	highS.FillBytes(malleable[32:64])
	malleable[64] = sig[64] ^ 1

	assert.False(t, a.Verify(addr, msg, hexutil.Encode(malleable)))
}
