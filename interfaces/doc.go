// Package interfaces defines core interfaces and types for the quorum vault,
// separating interface definitions from implementations.
//
// # Identity and Members
//
// ID: 16-byte identifier (UUID bytes) used for members and sealed documents.
// Its canonical string form is lowercase hex without separators, which is also
// the form used on the wire and as storage keys.
//
// Member: capability interface for a quorum member. A member exposes its
// identifier and public key, can sign and verify, and can encrypt a secret share
// to itself. Decryption requires a loaded private key.
//
// # Cryptographic Interfaces
//
// SymmetricCipher: authenticated encryption of document payloads under a random
// one-time key.
//
// Checksum: 64-byte SHA3-512 digest of a record's encrypted payload.
//
// # Storage Interfaces
//
// KVStore: key-value persistence without native iteration. Registries built on
// top of it maintain their own iteration indexes.
//
// # Errors
//
// QuorumError is the single error type for domain failures. Each failure kind
// has a sentinel value (ErrNotEnoughMembersToUnlock, ErrInvalidChecksum, ...)
// that matches with errors.Is regardless of the message or context attached.
package interfaces
