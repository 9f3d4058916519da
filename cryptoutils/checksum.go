package cryptoutils

import (
	"github.com/ruteri/quorum-vault/interfaces"
	"golang.org/x/crypto/sha3"
)

// CalculateChecksum returns the SHA3-512 digest of data.
func CalculateChecksum(data []byte) interfaces.Checksum {
	return interfaces.Checksum(sha3.Sum512(data))
}
