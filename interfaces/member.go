package interfaces

// Member is a quorum participant able to hold a secret share.
//
// Implementations never persist private key material on behalf of the core;
// a private key is borrowed only for the duration of a call.
type Member interface {
	// ID returns the stable member identifier.
	ID() ID

	// PublicKey returns the serialized public key.
	PublicKey() []byte

	// HasPrivateKey reports whether a private key is loaded.
	HasPrivateKey() bool

	// Sign signs data with the private key.
	Sign(data []byte) ([]byte, error)

	// Verify checks a signature produced by Sign against the public key.
	Verify(data, signature []byte) bool

	// EncryptShare encrypts a share to the member's public key.
	EncryptShare(share []byte) ([]byte, error)

	// DecryptShare decrypts a share with the member's private key.
	DecryptShare(ciphertext []byte) ([]byte, error)
}

// SymmetricCipher is an AEAD used for document payloads.
type SymmetricCipher interface {
	// Name identifies the cipher in configuration.
	Name() string

	// KeySize returns the key length in bytes.
	KeySize() int

	// Encrypt seals plaintext; the result carries its own nonce and tag.
	Encrypt(key, plaintext []byte) ([]byte, error)

	// Decrypt opens a ciphertext produced by Encrypt.
	Decrypt(key, ciphertext []byte) ([]byte, error)
}
