package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// shareSharedInfo is mixed into the KDF of every share ciphertext.
var shareSharedInfo = []byte("quorum-vault/share/v1")

// EncryptForPublicKey encrypts data with ECIES to an uncompressed secp256k1 public key.
func EncryptForPublicKey(publicKey []byte, data []byte) ([]byte, error) {
	pub, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return EncryptWithPublicKey(pub, data)
}

// EncryptWithPublicKey encrypts data with ECIES to pub.
func EncryptWithPublicKey(pub *ecdsa.PublicKey, data []byte) ([]byte, error) {
	if pub == nil {
		return nil, errors.New("nil public key")
	}

	ciphertext, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pub), data, shareSharedInfo, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return ciphertext, nil
}

// DecryptWithPrivateKey decrypts data encrypted with EncryptWithPublicKey.
func DecryptWithPrivateKey(priv *ecdsa.PrivateKey, encryptedData []byte) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("nil private key")
	}

	plaintext, err := ecies.ImportECDSA(priv).Decrypt(encryptedData, shareSharedInfo, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
