package secretsharing

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSecretHex(t *testing.T) string {
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return hex.EncodeToString(secret)
}

func TestBitsFor(t *testing.T) {
	tests := []struct {
		name      string
		maxShares int
		bits      int
		wantErr   bool
	}{
		{name: "zero shares", maxShares: 0, wantErr: true},
		{name: "one share", maxShares: 1, wantErr: true},
		{name: "minimum", maxShares: 2, bits: 3},
		{name: "seven fits three bits", maxShares: 7, bits: 3},
		{name: "eight needs four bits", maxShares: 8, bits: 4},
		{name: "ten", maxShares: 10, bits: 4},
		{name: "maximum", maxShares: interfaces.MaxShares, bits: 8},
		{name: "above maximum", maxShares: interfaces.MaxShares + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits, err := BitsFor(tt.maxShares)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidBitRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bits, bits)
		})
	}
}

func TestNewSchemeWithBits(t *testing.T) {
	_, err := NewSchemeWithBits(2)
	assert.ErrorIs(t, err, interfaces.ErrInvalidBitRange)

	_, err = NewSchemeWithBits(21)
	assert.ErrorIs(t, err, interfaces.ErrInvalidBitRange)

	s, err := NewSchemeWithBits(20)
	require.NoError(t, err)
	assert.Equal(t, interfaces.MaxShares, s.MaxShares(), "capacity is bounded by the underlying field")
}

func TestScheme_SplitCombine(t *testing.T) {
	secret := randomSecretHex(t)

	s, err := NewScheme(5)
	require.NoError(t, err)

	shares, err := s.Split(secret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	for _, share := range shares {
		assert.Equal(t, "3", share[:1], "share should carry its bit-width")
	}

	// every 3-subset reconstructs the secret
	for i := 0; i < 5; i++ {
		for j := i + 1; j < 5; j++ {
			for k := j + 1; k < 5; k++ {
				combined, err := s.Combine([]string{shares[i], shares[j], shares[k]})
				require.NoError(t, err)
				assert.Equal(t, secret, combined)
			}
		}
	}

	combined, err := s.Combine(shares)
	require.NoError(t, err)
	assert.Equal(t, secret, combined)
}

func TestScheme_CombineBelowThreshold(t *testing.T) {
	secret := randomSecretHex(t)

	s, err := NewScheme(4)
	require.NoError(t, err)
	shares, err := s.Split(secret, 4, 3)
	require.NoError(t, err)

	combined, err := s.Combine(shares[:2])
	// the primitive cannot detect an insufficient set, it only yields a wrong secret
	if err == nil {
		assert.NotEqual(t, secret, combined)
	}

	_, err = s.Combine(shares[:1])
	assert.ErrorIs(t, err, interfaces.ErrNotEnoughMembersToUnlock)
}

func TestScheme_CombineRejectsDifferentWidth(t *testing.T) {
	secret := randomSecretHex(t)

	small, err := NewScheme(3)
	require.NoError(t, err)
	shares, err := small.Split(secret, 3, 2)
	require.NoError(t, err)

	large, err := NewScheme(20)
	require.NoError(t, err)
	require.NotEqual(t, small.Bits(), large.Bits())

	_, err = large.Combine(shares)
	assert.ErrorIs(t, err, interfaces.ErrInvalidBitRange)
}

func TestScheme_CombineRejectsDuplicates(t *testing.T) {
	s, err := NewScheme(3)
	require.NoError(t, err)
	shares, err := s.Split(randomSecretHex(t), 3, 2)
	require.NoError(t, err)

	_, err = s.Combine([]string{shares[0], shares[0]})
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}

func TestScheme_SplitValidation(t *testing.T) {
	s, err := NewScheme(7)
	require.NoError(t, err)
	secret := randomSecretHex(t)

	_, err = s.Split(secret, 8, 2)
	assert.ErrorIs(t, err, interfaces.ErrTooManyMembersToUnlock)

	_, err = s.Split(secret, 1, 2)
	assert.ErrorIs(t, err, interfaces.ErrNotEnoughMembersToUnlock)

	_, err = s.Split(secret, 3, 1)
	assert.ErrorIs(t, err, interfaces.ErrSharesRequiredMustBeAtLeastTwo)

	_, err = s.Split(secret, 3, 4)
	assert.ErrorIs(t, err, interfaces.ErrSharesRequiredExceedsMembers)

	_, err = s.Split("not-hex", 3, 2)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)

	_, err = s.Split("", 3, 2)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}

func TestScheme_DecodeMalformed(t *testing.T) {
	s, err := NewScheme(3)
	require.NoError(t, err)

	tests := []string{"", "3", "3zz00", "300abcd", "3ffxyz"}
	for _, share := range tests {
		t.Run(share, func(t *testing.T) {
			_, _, err := s.decode(share)
			assert.Error(t, err)
		})
	}
}
