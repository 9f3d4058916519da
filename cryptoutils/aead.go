package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/ruteri/quorum-vault/interfaces"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// CipherAESGCM names AES-256-GCM.
	CipherAESGCM = "aes-256-gcm"
	// CipherXChaCha20 names XChaCha20-Poly1305.
	CipherXChaCha20 = "xchacha20-poly1305"
)

// AESGCMCipher encrypts documents with AES-256-GCM.
type AESGCMCipher struct{}

func (AESGCMCipher) Name() string { return CipherAESGCM }

func (AESGCMCipher) KeySize() int { return 32 }

func (c AESGCMCipher) Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	return seal(aead, plaintext)
}

func (c AESGCMCipher) Decrypt(key, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	return open(aead, ciphertext)
}

func (c AESGCMCipher) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != c.KeySize() {
		return nil, fmt.Errorf("invalid key length %d, expected %d", len(key), c.KeySize())
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// XChaCha20Cipher encrypts documents with XChaCha20-Poly1305.
type XChaCha20Cipher struct{}

func (XChaCha20Cipher) Name() string { return CipherXChaCha20 }

func (XChaCha20Cipher) KeySize() int { return chacha20poly1305.KeySize }

func (c XChaCha20Cipher) Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return seal(aead, plaintext)
}

func (c XChaCha20Cipher) Decrypt(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return open(aead, ciphertext)
}

// CipherByName returns the document cipher registered under name.
func CipherByName(name string) (interfaces.SymmetricCipher, error) {
	switch name {
	case CipherAESGCM, "":
		return AESGCMCipher{}, nil
	case CipherXChaCha20:
		return XChaCha20Cipher{}, nil
	default:
		return nil, fmt.Errorf("unsupported cipher: %s", name)
	}
}

// GenerateKey returns a random key sized for c.
func GenerateKey(c interfaces.SymmetricCipher) ([]byte, error) {
	key := make([]byte, c.KeySize())
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

func seal(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(aead cipher.AEAD, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("encrypted data too short")
	}

	nonce := ciphertext[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, ciphertext[aead.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// WipeBytes zeroes data in place.
func WipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
