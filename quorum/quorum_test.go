package quorum

import (
	"context"
	"sync"
	"testing"

	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/sealing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestQuorum(t *testing.T) *Quorum {
	t.Helper()
	return NewQuorum(sealing.NewService(nil, discardLogger()), discardLogger())
}

func TestQuorum_MembersAndSoftDelete(t *testing.T) {
	q := newTestQuorum(t)
	members := generateKeyMembers(t, 3)

	for _, m := range members {
		_, err := q.AddMember(m, MemberMetadata{})
		require.NoError(t, err)
	}
	_, err := q.AddMember(members[0], MemberMetadata{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)

	require.NoError(t, q.RemoveMember(members[0].ID()))
	assert.ErrorIs(t, q.RemoveMember(interfaces.NewID()), interfaces.ErrMemberNotFound)

	removed := q.GetMember(members[0].ID())
	require.NotNil(t, removed)
	assert.False(t, removed.IsActive)
	assert.Nil(t, q.GetMember(interfaces.NewID()))

	listed := q.ListMembers()
	require.Len(t, listed, 2)
	assert.Equal(t, members[1].ID(), listed[0].ID)
	assert.Equal(t, members[2].ID(), listed[1].ID)

	// Returned entries are copies.
	listed[0].IsActive = false
	assert.True(t, q.GetMember(members[1].ID()).IsActive)

	_, err = q.SealDocument(context.Background(), members[1], secretDocument{}, []interfaces.ID{members[0].ID(), members[1].ID()}, 0)
	assert.ErrorIs(t, err, interfaces.ErrMemberNotFound)
}

func TestQuorum_SealUnsealDelete(t *testing.T) {
	ctx := context.Background()
	q := newTestQuorum(t)
	members := generateKeyMembers(t, 4)
	ids := make([]interfaces.ID, len(members))
	for i, m := range members {
		_, err := q.AddMember(m, MemberMetadata{})
		require.NoError(t, err)
		ids[i] = m.ID()
	}

	doc := secretDocument{Name: "in memory", Value: 3}
	sealed, err := q.SealDocument(ctx, members[0], doc, ids, 3)
	require.NoError(t, err)

	_, err = q.SealDocument(ctx, members[0], doc, ids[:1], 0)
	assert.ErrorIs(t, err, interfaces.ErrNotEnoughMembersToUnlock)

	// The quorum keeps public-only members, so the record cannot be opened
	// without the caller's private keys.
	rec, err := q.GetRecord(sealed.DocumentID)
	require.NoError(t, err)
	assert.False(t, rec.Creator().HasPrivateKey())
	_, err = rec.Creator().Sign([]byte("after seal"))
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKeys)
	assert.Equal(t, members[0].PublicKey(), rec.Creator().PublicKey())
	assert.True(t, rec.Creator().Verify(rec.Checksum().Bytes(), rec.Signature()))

	var out secretDocument
	require.NoError(t, q.UnsealDocument(ctx, sealed.DocumentID, asMembers(members[3], members[1], members[2]), &out))
	assert.Equal(t, doc, out)

	shares := make([]string, 0, 3)
	for _, m := range members[:3] {
		ciphertext, ok := rec.EncryptedShare(m.ID())
		require.True(t, ok)
		share, err := m.DecryptShare(ciphertext)
		require.NoError(t, err)
		shares = append(shares, string(share))
	}
	out = secretDocument{}
	require.NoError(t, q.UnsealDocumentWithShares(ctx, sealed.DocumentID, shares, &out))
	assert.Equal(t, doc, out)

	result, err := q.CanUnlock(sealed.DocumentID, ids[2:])
	require.NoError(t, err)
	assert.False(t, result.CanUnlock)
	assert.Equal(t, []interfaces.ID{ids[0], ids[1]}, result.MissingMembers)

	assert.Len(t, q.ListDocumentsForMember(ids[2]), 1)
	assert.Empty(t, q.ListDocumentsForMember(interfaces.NewID()))

	require.NoError(t, q.DeleteDocument(sealed.DocumentID))
	assert.Empty(t, q.ListDocuments())
	assert.NotNil(t, q.GetDocument(sealed.DocumentID))
	assert.ErrorIs(t, q.DeleteDocument(interfaces.NewID()), interfaces.ErrDocumentNotFound)

	err = q.UnsealDocument(ctx, interfaces.NewID(), asMembers(members...), &out)
	assert.ErrorIs(t, err, interfaces.ErrDocumentNotFound)

	_, err = q.CanUnlock(interfaces.NewID(), ids)
	assert.ErrorIs(t, err, interfaces.ErrDocumentNotFound)
	assert.Nil(t, q.GetDocument(interfaces.NewID()))
}

func TestQuorum_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	q := newTestQuorum(t)
	base := generateKeyMembers(t, 2)
	for _, m := range base {
		_, err := q.AddMember(m, MemberMetadata{})
		require.NoError(t, err)
	}
	ids := []interfaces.ID{base[0].ID(), base[1].ID()}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := q.SealDocument(ctx, base[0], secretDocument{Value: i}, ids, 0)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, q.ListDocuments(), 16)
}
