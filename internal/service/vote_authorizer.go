package service

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthereumVoteAuthorizer implements ports.VoteAuthorizer with EIP-191
// personal_sign recovery over secp256k1.
type EthereumVoteAuthorizer struct{}

// NewEthereumVoteAuthorizer creates a new vote authorizer.
func NewEthereumVoteAuthorizer() *EthereumVoteAuthorizer {
	return &EthereumVoteAuthorizer{}
}

// Verify recovers the signer of message and compares it to voterAddress.
// Malformed input of any kind yields false.
func (a *EthereumVoteAuthorizer) Verify(voterAddress string, message string, signature string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	voterAddress = strings.TrimSpace(voterAddress)
	if message == "" || !common.IsHexAddress(voterAddress) {
		return false
	}

	sig, err := decodeSignature(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit V as 27/28; recovery expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, true) {
		return false
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*pub) == common.HexToAddress(voterAddress)
}

func decodeSignature(signature string) ([]byte, error) {
	signature = strings.TrimSpace(signature)
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	return hexutil.Decode(strings.ToLower(signature))
}
