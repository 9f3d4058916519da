package interfaces

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuorumError_Is(t *testing.T) {
	err := NewError(KindMemberNotFound, "member %s", "abc").With("member_id", "abc")

	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.NotErrorIs(t, err, ErrDocumentNotFound)

	wrapped := fmt.Errorf("lookup failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrMemberNotFound)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindMemberNotFound, kind)
	assert.Equal(t, CategoryLookup, kind.Category())
	assert.Equal(t, "MemberNotFound", kind.String())
}

func TestQuorumError_WrapPreservesCause(t *testing.T) {
	cause := errors.New("cipher: message authentication failed")
	err := WrapError(KindFailedToSeal, cause)

	assert.ErrorIs(t, err, ErrFailedToSeal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to seal: cipher: message authentication failed", err.Error())
}

func TestQuorumError_WithDoesNotMutate(t *testing.T) {
	base := NewError(KindNotEnoughMembersToUnlock, "need 3")
	withCtx := base.With("required", 3)

	assert.Empty(t, base.Context)
	assert.Equal(t, 3, withCtx.Context["required"])
	assert.Equal(t, base.Message, withCtx.Message)
}

func TestErrorKind_Categories(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		category ErrorCategory
	}{
		{KindInvalidBitRange, CategoryValidation},
		{KindInvalidChecksum, CategoryIntegrity},
		{KindInvalidSignature, CategoryIntegrity},
		{KindEncryptedShareNotFound, CategoryLookup},
		{KindMissingPrivateKeys, CategoryCapability},
		{KindFailedToSeal, CategoryWrapped},
		{KindUnknown, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.kind.Category())
		})
	}
}

func TestParseErrorKind(t *testing.T) {
	for kind := KindNotEnoughMembersToUnlock; kind <= KindFailedToSeal; kind++ {
		parsed, ok := ParseErrorKind(kind.String())
		require.True(t, ok, kind.String())
		assert.Equal(t, kind, parsed)
	}

	_, ok := ParseErrorKind("Unknown")
	assert.False(t, ok)
}

func TestID_HexRoundTrip(t *testing.T) {
	id := NewID()
	parsed, err := NewIDFromHex(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))

	_, err = NewIDFromHex("abcd")
	assert.Error(t, err)

	_, err = NewIDFromHex("zz" + id.String()[2:])
	assert.Error(t, err)

	text, err := id.MarshalText()
	require.NoError(t, err)
	var decoded ID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}

func TestChecksum_HexRoundTrip(t *testing.T) {
	var sum Checksum
	for i := range sum {
		sum[i] = byte(i)
	}

	parsed, err := NewChecksumFromHex(sum.String())
	require.NoError(t, err)
	assert.True(t, sum.Equal(parsed))

	_, err = NewChecksumFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}
