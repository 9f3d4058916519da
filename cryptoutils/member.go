package cryptoutils

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/quorum-vault/interfaces"
)

// KeyMember is an interfaces.Member backed by a secp256k1 key pair.
type KeyMember struct {
	id         interfaces.ID
	publicKey  *ecdsa.PublicKey
	privateKey *ecdsa.PrivateKey
}

var _ interfaces.Member = (*KeyMember)(nil)

// GenerateKeyMember creates a member with a fresh identifier and key pair.
func GenerateKeyMember() (*KeyMember, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewPrivateMember(interfaces.NewID(), privateKey), nil
}

// NewPrivateMember creates a member holding privateKey.
func NewPrivateMember(id interfaces.ID, privateKey *ecdsa.PrivateKey) *KeyMember {
	return &KeyMember{
		id:         id,
		publicKey:  &privateKey.PublicKey,
		privateKey: privateKey,
	}
}

// NewPublicMember creates a member from an uncompressed public key without private key material.
func NewPublicMember(id interfaces.ID, publicKey []byte) (*KeyMember, error) {
	pub, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &KeyMember{id: id, publicKey: pub}, nil
}

// ID returns the member identifier.
func (m *KeyMember) ID() interfaces.ID {
	return m.id
}

// PublicKey returns the uncompressed 65-byte public key.
func (m *KeyMember) PublicKey() []byte {
	return crypto.FromECDSAPub(m.publicKey)
}

// HasPrivateKey reports whether a private key is loaded.
func (m *KeyMember) HasPrivateKey() bool {
	return m.privateKey != nil
}

// PrivateKeyBytes returns the raw private scalar, or nil.
func (m *KeyMember) PrivateKeyBytes() []byte {
	if m.privateKey == nil {
		return nil
	}
	return crypto.FromECDSA(m.privateKey)
}

// PublicOnly returns a copy of the member without the private key.
func (m *KeyMember) PublicOnly() *KeyMember {
	return &KeyMember{id: m.id, publicKey: m.publicKey}
}

// WithPrivateKey returns a copy of the member holding privateKey.
// The key must match the member's public key.
func (m *KeyMember) WithPrivateKey(privateKey *ecdsa.PrivateKey) (*KeyMember, error) {
	if !privateKey.PublicKey.Equal(m.publicKey) {
		return nil, fmt.Errorf("private key does not match public key of member %s", m.id)
	}
	return &KeyMember{id: m.id, publicKey: m.publicKey, privateKey: privateKey}, nil
}

// Sign returns a 65-byte recoverable signature over the Keccak-256 hash of data.
func (m *KeyMember) Sign(data []byte) ([]byte, error) {
	if m.privateKey == nil {
		return nil, interfaces.NewError(interfaces.KindMissingPrivateKeys, "member %s cannot sign", m.id).
			With("member_id", m.id.String())
	}
	return crypto.Sign(crypto.Keccak256(data), m.privateKey)
}

// Verify checks a signature produced by Sign.
func (m *KeyMember) Verify(data, signature []byte) bool {
	switch len(signature) {
	case crypto.SignatureLength:
		signature = signature[:crypto.RecoveryIDOffset]
	case crypto.RecoveryIDOffset:
	default:
		return false
	}
	return crypto.VerifySignature(m.PublicKey(), crypto.Keccak256(data), signature)
}

// EncryptShare encrypts a share to the member's public key.
func (m *KeyMember) EncryptShare(share []byte) ([]byte, error) {
	return EncryptWithPublicKey(m.publicKey, share)
}

// DecryptShare decrypts a share with the member's private key.
func (m *KeyMember) DecryptShare(ciphertext []byte) ([]byte, error) {
	if m.privateKey == nil {
		return nil, interfaces.NewError(interfaces.KindMissingPrivateKeys, "member %s has no private key loaded", m.id).
			With("member_id", m.id.String())
	}
	return DecryptWithPrivateKey(m.privateKey, ciphertext)
}
