// Package cryptoutils provides the cryptographic primitives used to seal
// documents for a quorum of members.
//
// # Member Share Encryption
//
// Secret shares are encrypted per member with ECIES over secp256k1, using
// github.com/ethereum/go-ethereum/crypto/ecies:
//
//   - ECDH with a fresh ephemeral key for each encryption
//   - NIST SP 800-56 concatenation KDF with SHA-256
//   - AES-128-CTR with HMAC-SHA-256 authentication
//
// The shared-info parameter binds every ciphertext to share encryption, so a
// ciphertext produced for another purpose with the same key does not decrypt.
//
// # Document Encryption
//
// Documents are encrypted under a random one-time key with an AEAD:
//
//   - AESGCMCipher: AES-256-GCM, output nonce(12) || ciphertext || tag(16)
//   - XChaCha20Cipher: XChaCha20-Poly1305, output nonce(24) || ciphertext || tag(16)
//
// # Checksums and Signatures
//
// CalculateChecksum computes the SHA3-512 digest of a record's ciphertext.
// KeyMember signs the Keccak-256 hash of a message with its secp256k1 key and
// verifies recoverable signatures against its public key.
//
// # Key Files
//
// MemberKeyFile is the JSON form of a member identity:
//
//	{"id": "<hex id>", "public_key": "0x04...", "private_key": "0x..."}
//
// The private key is omitted from files meant for distribution.
package cryptoutils
