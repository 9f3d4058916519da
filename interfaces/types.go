package interfaces

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies members and sealed documents.
type ID [16]byte

// NewID generates a random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// NewIDFromBytes creates an ID from its 16 raw bytes.
func NewIDFromBytes(source []byte) (ID, error) {
	if len(source) != 16 {
		return ID{}, errors.New("invalid ID conversion from bytes: incorrect length")
	}

	var id ID
	copy(id[:], source)
	return id, nil
}

// NewIDFromHex parses the canonical hex form. Dashed UUID strings are accepted too.
func NewIDFromHex(source string) (ID, error) {
	clean := strings.ReplaceAll(strings.TrimPrefix(source, "0x"), "-", "")
	if len(clean) != 32 {
		return ID{}, errors.New("invalid ID length: hex string must be 32 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewIDFromBytes(idBytes)
}

// String returns hex representation.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns raw 16-byte identifier.
func (id ID) Bytes() []byte {
	return id[:]
}

// Equal compares two identifiers.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id[:], other[:])
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ID{}
}

// MarshalText encodes the ID as hex, so IDs can be used as JSON values and map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex ID.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := NewIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ChecksumSize is the length of a SHA3-512 digest.
const ChecksumSize = 64

// Checksum is the SHA3-512 digest of a record's encrypted payload.
type Checksum [ChecksumSize]byte

// NewChecksumFromBytes creates a checksum from raw digest bytes.
func NewChecksumFromBytes(source []byte) (Checksum, error) {
	if len(source) != ChecksumSize {
		return Checksum{}, errors.New("invalid checksum conversion from bytes: incorrect length")
	}

	var sum Checksum
	copy(sum[:], source)
	return sum, nil
}

// NewChecksumFromHex parses the canonical hex encoding of a checksum.
func NewChecksumFromHex(source string) (Checksum, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 2*ChecksumSize {
		return Checksum{}, errors.New("invalid checksum length: hex string must be 128 characters")
	}

	sumBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Checksum{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewChecksumFromBytes(sumBytes)
}

// String returns hex representation.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// Bytes returns the raw digest.
func (c Checksum) Bytes() []byte {
	return c[:]
}

// Equal compares two checksums.
func (c Checksum) Equal(other Checksum) bool {
	return bytes.Equal(c[:], other[:])
}
