package secretsharing

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/quorum-vault/interfaces"
)

// Scheme splits and combines hex-encoded secrets with a fixed field bit-width.
type Scheme struct {
	bits int
}

// BitsFor returns the field bit-width needed to represent maxShares distinct shares.
func BitsFor(maxShares int) (int, error) {
	if maxShares < interfaces.MinShares || maxShares > interfaces.MaxShares {
		return 0, interfaces.NewError(interfaces.KindInvalidBitRange,
			"share count %d outside [%d, %d]", maxShares, interfaces.MinShares, interfaces.MaxShares).
			With("max_shares", maxShares)
	}

	width := max(interfaces.MinBits, bits.Len(uint(maxShares)))
	if width > interfaces.MaxBits {
		return 0, interfaces.NewError(interfaces.KindInvalidBitRange,
			"bit-width %d outside [%d, %d]", width, interfaces.MinBits, interfaces.MaxBits).
			With("bits", width)
	}

	return width, nil
}

// NewScheme creates a scheme able to represent maxShares shares.
func NewScheme(maxShares int) (*Scheme, error) {
	width, err := BitsFor(maxShares)
	if err != nil {
		return nil, err
	}
	return &Scheme{bits: width}, nil
}

// NewSchemeWithBits creates a scheme from an explicit bit-width.
func NewSchemeWithBits(width int) (*Scheme, error) {
	if width < interfaces.MinBits || width > interfaces.MaxBits {
		return nil, interfaces.NewError(interfaces.KindInvalidBitRange,
			"bit-width %d outside [%d, %d]", width, interfaces.MinBits, interfaces.MaxBits).
			With("bits", width)
	}
	return &Scheme{bits: width}, nil
}

// Bits returns the field bit-width.
func (s *Scheme) Bits() int {
	return s.bits
}

// MaxShares returns the number of distinct shares representable under this scheme.
func (s *Scheme) MaxShares() int {
	return min((1<<s.bits)-1, interfaces.MaxShares)
}

// Split divides a hex-encoded secret into n shares, any t of which reconstruct it.
func (s *Scheme) Split(secretHex string, n, t int) ([]string, error) {
	if n < interfaces.MinShares {
		return nil, interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"cannot split into %d shares", n)
	}
	if n > s.MaxShares() {
		return nil, interfaces.NewError(interfaces.KindTooManyMembersToUnlock,
			"%d shares exceed the %d-bit field capacity of %d", n, s.bits, s.MaxShares())
	}
	if t < interfaces.MinShares {
		return nil, interfaces.NewError(interfaces.KindSharesRequiredMustBeAtLeastTwo,
			"threshold %d", t)
	}
	if t > n {
		return nil, interfaces.NewError(interfaces.KindSharesRequiredExceedsMembers,
			"threshold %d exceeds %d shares", t, n)
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "secret is not hex: %v", err)
	}
	if len(secret) == 0 {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "secret is empty")
	}

	raw, err := shamir.Split(secret, n, t)
	if err != nil {
		return nil, fmt.Errorf("failed to split secret: %w", err)
	}

	shares := make([]string, len(raw))
	for i, share := range raw {
		shares[i] = s.encode(share)
		wipeBytes(share)
	}
	wipeBytes(secret)

	return shares, nil
}

// Combine reconstructs the hex-encoded secret from at least threshold shares.
func (s *Scheme) Combine(shares []string) (string, error) {
	if len(shares) < interfaces.MinShares {
		return "", interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"%d shares provided, at least %d needed", len(shares), interfaces.MinShares)
	}

	seen := make(map[byte]struct{}, len(shares))
	parts := make([][]byte, 0, len(shares))
	for i, share := range shares {
		x, part, err := s.decode(share)
		if err != nil {
			return "", err
		}
		if _, ok := seen[x]; ok {
			return "", interfaces.NewError(interfaces.KindInvalidArgument,
				"duplicate share for x-coordinate %d", x).With("index", i)
		}
		if len(parts) > 0 && len(part) != len(parts[0]) {
			return "", interfaces.NewError(interfaces.KindInvalidArgument,
				"share %d has a different length", i)
		}
		seen[x] = struct{}{}
		parts = append(parts, part)
	}

	secret, err := shamir.Combine(parts)
	if err != nil {
		return "", fmt.Errorf("failed to combine shares: %w", err)
	}

	return hex.EncodeToString(secret), nil
}

// idWidth is the number of hex digits used for the x-coordinate. The library
// picks x-coordinates from the whole byte range, so at least two digits are needed.
func idWidth(width int) int {
	return max(2, (width+3)/4)
}

// encode converts a library share (y-values followed by the x-coordinate) into text.
func (s *Scheme) encode(share []byte) string {
	x := share[len(share)-1]
	y := share[:len(share)-1]

	var b strings.Builder
	b.WriteString(strconv.FormatInt(int64(s.bits), 36))
	b.WriteString(fmt.Sprintf("%0*x", idWidth(s.bits), x))
	b.WriteString(hex.EncodeToString(y))
	return b.String()
}

func (s *Scheme) decode(share string) (byte, []byte, error) {
	if len(share) < 2 {
		return 0, nil, interfaces.NewError(interfaces.KindInvalidArgument, "share too short")
	}

	width, err := strconv.ParseInt(share[:1], 36, 8)
	if err != nil {
		return 0, nil, interfaces.NewError(interfaces.KindInvalidArgument, "invalid share header: %v", err)
	}
	if int(width) != s.bits {
		return 0, nil, interfaces.NewError(interfaces.KindInvalidBitRange,
			"share was produced with a %d-bit field, scheme uses %d bits", width, s.bits).
			With("share_bits", int(width))
	}

	digits := idWidth(s.bits)
	if len(share) < 1+digits+2 {
		return 0, nil, interfaces.NewError(interfaces.KindInvalidArgument, "share too short")
	}

	x, err := strconv.ParseUint(share[1:1+digits], 16, 16)
	if err != nil || x == 0 || x > 255 {
		return 0, nil, interfaces.NewError(interfaces.KindInvalidArgument, "invalid share x-coordinate")
	}

	y, err := hex.DecodeString(share[1+digits:])
	if err != nil {
		return 0, nil, interfaces.NewError(interfaces.KindInvalidArgument, "share payload is not hex: %v", err)
	}

	return byte(x), append(y, byte(x)), nil
}

// Securely wipe data from memory
func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
