package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/agentcommerce/x402-a2a/types"
)

// Domain is the EIP-712 signing domain of an EIP-3009 capable token.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

var (
	// keccak256("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)")
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

	// keccak256("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)")
	transferAuthTypeHash = crypto.Keccak256Hash([]byte("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"))
)

// padLeft32 returns a 32-byte right-aligned representation of i.
func padLeft32(i *big.Int) []byte {
	b := i.Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// addressTo32 left-pads an address into a 32-byte word.
func addressTo32(a common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], a.Bytes())
	return out
}

func stringToBig(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal integer string %q", s)
	}
	return n, nil
}

// hexToBytes32 converts hex (with or without 0x) into a 32-byte word,
// left-padding short input.
func hexToBytes32(hexStr string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil {
		return out, err
	}
	if len(b) > 32 {
		return out, fmt.Errorf("value longer than 32 bytes")
	}
	copy(out[32-len(b):], b)
	return out, nil
}

// DomainSeparator hashes the EIP-712 domain:
// keccak256(abi.encode(domainTypeHash, keccak256(name), keccak256(version), chainId, verifyingContract))
func DomainSeparator(d Domain) (common.Hash, error) {
	if d.Name == "" || d.Version == "" || d.ChainID == nil {
		return common.Hash{}, errors.New("incomplete EIP-712 domain")
	}

	joined := make([]byte, 0, 5*32)
	joined = append(joined, domainTypeHash.Bytes()...)
	joined = append(joined, crypto.Keccak256Hash([]byte(d.Name)).Bytes()...)
	joined = append(joined, crypto.Keccak256Hash([]byte(d.Version)).Bytes()...)
	joined = append(joined, padLeft32(d.ChainID)...)
	joined = append(joined, addressTo32(d.VerifyingContract)...)
	return crypto.Keccak256Hash(joined), nil
}

// AuthorizationHash hashes a TransferWithAuthorization struct per EIP-712.
func AuthorizationHash(auth types.EIP3009Authorization) (common.Hash, error) {
	value, err := stringToBig(auth.Value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("authorization value: %w", err)
	}
	validAfter, err := stringToBig(auth.ValidAfter)
	if err != nil {
		return common.Hash{}, fmt.Errorf("authorization validAfter: %w", err)
	}
	validBefore, err := stringToBig(auth.ValidBefore)
	if err != nil {
		return common.Hash{}, fmt.Errorf("authorization validBefore: %w", err)
	}
	nonce, err := hexToBytes32(auth.Nonce)
	if err != nil {
		return common.Hash{}, fmt.Errorf("authorization nonce: %w", err)
	}

	joined := make([]byte, 0, 7*32)
	joined = append(joined, transferAuthTypeHash.Bytes()...)
	joined = append(joined, addressTo32(common.HexToAddress(auth.From))...)
	joined = append(joined, addressTo32(common.HexToAddress(auth.To))...)
	joined = append(joined, padLeft32(value)...)
	joined = append(joined, padLeft32(validAfter)...)
	joined = append(joined, padLeft32(validBefore)...)
	joined = append(joined, nonce[:]...)
	return crypto.Keccak256Hash(joined), nil
}

// SigningHash produces the final EIP-712 digest for an authorization:
// keccak256(0x1901 || domainSeparator || structHash).
func SigningHash(d Domain, auth types.EIP3009Authorization) (common.Hash, error) {
	separator, err := DomainSeparator(d)
	if err != nil {
		return common.Hash{}, err
	}
	structHash, err := AuthorizationHash(auth)
	if err != nil {
		return common.Hash{}, err
	}

	raw := make([]byte, 0, 2+2*32)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, separator.Bytes()...)
	raw = append(raw, structHash.Bytes()...)
	return crypto.Keccak256Hash(raw), nil
}

// SignAuthorization signs an authorization under the given domain and
// returns a 65-byte hex signature with the recovery id normalized to 27/28
// as EIP-3009 contracts expect.
func SignAuthorization(key *ecdsa.PrivateKey, d Domain, auth types.EIP3009Authorization) (string, error) {
	digest, err := SigningHash(d, auth)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign authorization: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return hexutil.Encode(sig), nil
}

// RecoverAuthorizationSigner recovers the address that signed an
// authorization under the given domain.
func RecoverAuthorizationSigner(signature string, d Domain, auth types.EIP3009Authorization) (common.Address, error) {
	digest, err := SigningHash(d, auth)
	if err != nil {
		return common.Address{}, err
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
