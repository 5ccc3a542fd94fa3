// Package identity derives and recovers the secondary agent keypair from a
// primary wallet's signature over a fixed message. Derivation is a pure
// function of the signature bytes, so losing local state is recoverable by
// re-prompting the primary wallet for the same signature. Raw key bytes
// never leave this package.
package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// DerivationMessage is the fixed message the primary wallet signs. Changing
// it would orphan every derived agent wallet.
const DerivationMessage = "Sentinel Finance: derive my agent wallet (v1)"

const encryptionContext = "sentinel-agent-encryption-v1"

// AgentKey is an opaque handle around derived key material.
type AgentKey struct {
	priv    *ecdsa.PrivateKey
	address string
}

// DeriveFromSignature deterministically derives a secp256k1 keypair from
// the signature bytes. The same signature always yields the same keypair.
func DeriveFromSignature(signatureHex string) (*AgentKey, error) {
	sig, err := decodeSignature(signatureHex)
	if err != nil {
		return nil, err
	}

	// Keccak of the signature is the candidate scalar; on the negligible
	// chance it falls outside the curve order, hash again. Deterministic.
	candidate := crypto.Keccak256(sig)
	var priv *ecdsa.PrivateKey
	for {
		priv, err = crypto.ToECDSA(candidate)
		if err == nil {
			break
		}
		candidate = crypto.Keccak256(candidate)
	}

	return &AgentKey{
		priv:    priv,
		address: strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex()),
	}, nil
}

// Address returns the agent's public ledger address.
func (k *AgentKey) Address() string {
	return k.address
}

// Seal encrypts the key material under a key derived from the same
// signature, so only a fresh signature from the primary wallet can open it.
func (k *AgentKey) Seal(signatureHex string) (string, error) {
	sig, err := decodeSignature(signatureHex)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(sig)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	plaintext := crypto.FromECDSA(k.priv)
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Unseal decrypts previously sealed key material. The signature must be the
// same one used to seal it.
func Unseal(signatureHex, encoded string) (*AgentKey, error) {
	sig, err := decodeSignature(signatureHex)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(sig)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt key material: %w", err)
	}

	priv, err := crypto.ToECDSA(plaintext)
	if err != nil {
		return nil, fmt.Errorf("restore key: %w", err)
	}

	return &AgentKey{
		priv:    priv,
		address: strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex()),
	}, nil
}

func newGCM(sig []byte) (cipher.AEAD, error) {
	key := crypto.Keccak256(sig, []byte(encryptionContext))

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

func decodeSignature(signatureHex string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x")
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed signature: %w", err)
	}
	// 65 bytes for a standard eth signature, but any signing capability
	// producing at least 64 bytes of entropy is acceptable here.
	if len(sig) < 64 {
		return nil, fmt.Errorf("malformed signature: %d bytes, want at least 64", len(sig))
	}
	return sig, nil
}
