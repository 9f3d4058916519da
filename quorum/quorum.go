package quorum

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/record"
	"github.com/ruteri/quorum-vault/sealing"
)

type memberEntry struct {
	info   QuorumMember
	member interfaces.Member
}

// Quorum is a process-local registry holding records in memory. It keeps the
// same member and document semantics as QuorumService without a store.
type Quorum struct {
	mu sync.RWMutex

	sealer    *sealing.Service
	newMember MemberFactory
	log       *slog.Logger

	members     map[interfaces.ID]*memberEntry
	memberOrder []interfaces.ID

	documents     map[interfaces.ID]*record.QuorumDataRecord
	documentOrder []interfaces.ID
}

// NewQuorum creates an empty in-memory quorum.
func NewQuorum(sealer *sealing.Service, log *slog.Logger) *Quorum {
	if log == nil {
		log = slog.Default()
	}
	if sealer == nil {
		sealer = sealing.NewService(nil, log)
	}
	return &Quorum{
		sealer:    sealer,
		newMember: PublicKeyMember,
		log:       log,
		members:   make(map[interfaces.ID]*memberEntry),
		documents: make(map[interfaces.ID]*record.QuorumDataRecord),
	}
}

// AddMember registers member as active and keeps a public-only copy of it.
func (q *Quorum) AddMember(member interfaces.Member, metadata MemberMetadata) (*QuorumMember, error) {
	if member == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "member is required")
	}
	public, err := q.newMember(member.ID(), member.PublicKey())
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidArgument, err).With("member_id", member.ID().String())
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.members[member.ID()]; ok {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument,
			"member %s already registered", member.ID()).With("member_id", member.ID().String())
	}

	now := time.Now().UTC()
	entry := &memberEntry{
		info: QuorumMember{
			ID:        member.ID(),
			PublicKey: member.PublicKey(),
			Metadata:  metadata,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		member: public,
	}
	q.members[member.ID()] = entry
	q.memberOrder = append(q.memberOrder, member.ID())

	info := entry.info
	return &info, nil
}

// RemoveMember marks a member inactive.
func (q *Quorum) RemoveMember(id interfaces.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.members[id]
	if !ok {
		return memberNotFound(id)
	}
	if entry.info.IsActive {
		entry.info.IsActive = false
		entry.info.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// GetMember returns the member entry or nil.
func (q *Quorum) GetMember(id interfaces.ID) *QuorumMember {
	q.mu.RLock()
	defer q.mu.RUnlock()

	entry, ok := q.members[id]
	if !ok {
		return nil
	}
	info := entry.info
	return &info
}

// ListMembers returns active members in insertion order.
func (q *Quorum) ListMembers() []*QuorumMember {
	q.mu.RLock()
	defer q.mu.RUnlock()

	members := make([]*QuorumMember, 0, len(q.memberOrder))
	for _, id := range q.memberOrder {
		if entry := q.members[id]; entry.info.IsActive {
			info := entry.info
			members = append(members, &info)
		}
	}
	return members
}

// SealDocument seals document for the active members memberIDs.
func (q *Quorum) SealDocument(ctx context.Context, agent interfaces.Member, document any, memberIDs []interfaces.ID, sharesRequired int) (*SealedDocumentResult, error) {
	if len(memberIDs) < interfaces.MinShares {
		return nil, interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"%d members, at least %d required", len(memberIDs), interfaces.MinShares)
	}

	q.mu.RLock()
	members := make([]interfaces.Member, len(memberIDs))
	for i, id := range memberIDs {
		entry, ok := q.members[id]
		if !ok || !entry.info.IsActive {
			q.mu.RUnlock()
			return nil, memberNotFound(id)
		}
		members[i] = entry.member
	}
	q.mu.RUnlock()

	rec, err := q.sealer.QuorumSeal(ctx, agent, document, members, sharesRequired)
	if err != nil {
		return nil, err
	}
	if rec, err = q.withPublicCreator(rec, agent); err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.documents[rec.ID()] = rec
	q.documentOrder = append(q.documentOrder, rec.ID())
	q.mu.Unlock()

	q.log.Debug("Document sealed", slog.String("document_id", rec.ID().String()))
	return sealedResult(rec), nil
}

// withPublicCreator rebuilds rec around a public-only copy of agent so the quorum
// never holds the agent's private key after sealing.
func (q *Quorum) withPublicCreator(rec *record.QuorumDataRecord, agent interfaces.Member) (*record.QuorumDataRecord, error) {
	creator, err := q.newMember(agent.ID(), agent.PublicKey())
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidArgument, err).With("creator_id", agent.ID().String())
	}
	return record.FromDto(rec.ToDto(), func(interfaces.ID) (interfaces.Member, error) {
		return creator, nil
	})
}

// UnsealDocument recovers a document into out with the private keys of members.
func (q *Quorum) UnsealDocument(ctx context.Context, documentID interfaces.ID, members []interfaces.Member, out any) error {
	rec, err := q.GetRecord(documentID)
	if err != nil {
		return err
	}
	return q.sealer.QuorumUnseal(ctx, rec, members, out)
}

// UnsealDocumentWithShares recovers a document into out from decrypted shares.
func (q *Quorum) UnsealDocumentWithShares(ctx context.Context, documentID interfaces.ID, shares []string, out any) error {
	rec, err := q.GetRecord(documentID)
	if err != nil {
		return err
	}
	return q.sealer.QuorumUnsealWithShares(ctx, rec, shares, out)
}

// GetRecord returns the sealed record of a document, including deleted ones.
func (q *Quorum) GetRecord(id interfaces.ID) (*record.QuorumDataRecord, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	rec, ok := q.documents[id]
	if !ok {
		return nil, documentNotFound(id)
	}
	return rec, nil
}

// GetDocument describes a document or returns nil.
func (q *Quorum) GetDocument(id interfaces.ID) *QuorumDocumentInfo {
	rec, err := q.GetRecord(id)
	if err != nil {
		return nil
	}
	return documentInfo(rec)
}

// ListDocuments describes documents that have not been deleted.
func (q *Quorum) ListDocuments() []*QuorumDocumentInfo {
	return q.listDocuments(func(*record.QuorumDataRecord) bool { return true })
}

// ListDocumentsForMember describes the listed documents memberID holds a share of.
func (q *Quorum) ListDocumentsForMember(memberID interfaces.ID) []*QuorumDocumentInfo {
	return q.listDocuments(func(rec *record.QuorumDataRecord) bool { return rec.HasMember(memberID) })
}

// DeleteDocument removes a document from listings only.
func (q *Quorum) DeleteDocument(id interfaces.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.documents[id]; !ok {
		return documentNotFound(id)
	}
	q.documentOrder = slices.DeleteFunc(q.documentOrder, func(indexed interfaces.ID) bool { return indexed == id })
	return nil
}

// CanUnlock reports whether memberIDs hold enough shares of a document.
func (q *Quorum) CanUnlock(documentID interfaces.ID, memberIDs []interfaces.ID) (*CanUnlockResult, error) {
	rec, err := q.GetRecord(documentID)
	if err != nil {
		return nil, err
	}
	return canUnlock(rec, memberIDs), nil
}

func (q *Quorum) listDocuments(include func(*record.QuorumDataRecord) bool) []*QuorumDocumentInfo {
	q.mu.RLock()
	defer q.mu.RUnlock()

	docs := make([]*QuorumDocumentInfo, 0, len(q.documentOrder))
	for _, id := range q.documentOrder {
		if rec := q.documents[id]; include(rec) {
			docs = append(docs, documentInfo(rec))
		}
	}
	return docs
}
