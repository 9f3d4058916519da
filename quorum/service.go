package quorum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/metrics"
	"github.com/ruteri/quorum-vault/record"
	"github.com/ruteri/quorum-vault/sealing"
)

const (
	memberKeyPrefix   = "members/"
	documentKeyPrefix = "documents/"
	memberIndexKey    = "index/members"
	documentIndexKey  = "index/documents"
)

// Config configures a QuorumService. Store is required; the rest have defaults.
type Config struct {
	Store         interfaces.KVStore
	Sealer        *sealing.Service
	MemberFactory MemberFactory
	Metrics       *metrics.QuorumMetrics
	Log           *slog.Logger

	// TrustedCreators are the agents whose signatures are accepted on stored records.
	// Agents sealing through the service are trusted for its lifetime.
	TrustedCreators []interfaces.Member
}

// QuorumService is the persistent registry of members and sealed documents.
type QuorumService struct {
	// mu serializes registry mutation so tables and indexes stay consistent.
	mu sync.RWMutex

	store     interfaces.KVStore
	sealer    *sealing.Service
	newMember MemberFactory
	metrics   *metrics.QuorumMetrics
	log       *slog.Logger
	now       func() time.Time

	// creators holds public-only copies of the trusted agents, guarded by mu.
	creators map[interfaces.ID]interfaces.Member
}

type storedDocument struct {
	Record           record.QuorumDataRecordDto `json:"record"`
	CreatorPublicKey hexutil.Bytes              `json:"creatorPublicKey"`
}

// NewQuorumService creates a registry over cfg.Store.
func NewQuorumService(cfg Config) (*QuorumService, error) {
	if cfg.Store == nil {
		return nil, errors.New("quorum service requires a store")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Sealer == nil {
		cfg.Sealer = sealing.NewService(nil, cfg.Log)
	}
	if cfg.MemberFactory == nil {
		cfg.MemberFactory = PublicKeyMember
	}

	q := &QuorumService{
		store:     cfg.Store,
		sealer:    cfg.Sealer,
		newMember: cfg.MemberFactory,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
		now:       func() time.Time { return time.Now().UTC() },
		creators:  make(map[interfaces.ID]interfaces.Member, len(cfg.TrustedCreators)),
	}
	for _, creator := range cfg.TrustedCreators {
		if err := q.trustCreator(creator); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// trustCreator records the public key of an agent. The caller holds q.mu or owns q.
func (q *QuorumService) trustCreator(agent interfaces.Member) error {
	if agent == nil {
		return interfaces.NewError(interfaces.KindInvalidArgument, "agent is required")
	}
	if known, ok := q.creators[agent.ID()]; ok {
		if !bytes.Equal(known.PublicKey(), agent.PublicKey()) {
			return interfaces.NewError(interfaces.KindInvalidArgument,
				"agent %s is trusted with a different public key", agent.ID()).
				With("creator_id", agent.ID().String())
		}
		return nil
	}

	public, err := q.newMember(agent.ID(), agent.PublicKey())
	if err != nil {
		return interfaces.WrapError(interfaces.KindInvalidArgument, err).With("creator_id", agent.ID().String())
	}
	q.creators[agent.ID()] = public
	return nil
}

// AddMember registers member as active. Only the public key is kept.
func (q *QuorumService) AddMember(ctx context.Context, member interfaces.Member, metadata MemberMetadata) (*QuorumMember, error) {
	if member == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "member is required")
	}
	if _, err := q.newMember(member.ID(), member.PublicKey()); err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidArgument, err).With("member_id", member.ID().String())
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	existing, err := q.loadMember(ctx, member.ID())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument,
			"member %s already registered", member.ID()).With("member_id", member.ID().String())
	}

	now := q.now()
	entry := &QuorumMember{
		ID:        member.ID(),
		PublicKey: member.PublicKey(),
		Metadata:  metadata,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.putIndexed(ctx, memberIndexKey, member.ID(), memberKeyPrefix+member.ID().String(), entry); err != nil {
		return nil, err
	}

	q.metrics.IncMembersAdded()
	q.log.Info("Member added",
		slog.String("member_id", member.ID().String()),
		slog.String("name", metadata.Name))

	return entry, nil
}

// RemoveMember marks a member inactive. The entry itself is kept.
func (q *QuorumService) RemoveMember(ctx context.Context, id interfaces.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, err := q.loadMember(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return memberNotFound(id)
	}
	if !entry.IsActive {
		return nil
	}

	entry.IsActive = false
	entry.UpdatedAt = q.now()
	if err := q.putJSON(ctx, memberKeyPrefix+id.String(), entry); err != nil {
		return err
	}

	q.metrics.IncMembersRemoved()
	q.log.Info("Member deactivated", slog.String("member_id", id.String()))
	return nil
}

// GetMember returns the member entry, active or not, or nil if id is unknown.
func (q *QuorumService) GetMember(ctx context.Context, id interfaces.ID) (*QuorumMember, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loadMember(ctx, id)
}

// ListMembers returns active members in insertion order.
func (q *QuorumService) ListMembers(ctx context.Context) ([]*QuorumMember, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ids, err := q.readIndex(ctx, memberIndexKey)
	if err != nil {
		return nil, err
	}

	members := make([]*QuorumMember, 0, len(ids))
	for _, id := range ids {
		entry, err := q.loadMember(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry != nil && entry.IsActive {
			members = append(members, entry)
		}
	}
	return members, nil
}

// SealDocument seals document for the active members memberIDs and stores the record.
func (q *QuorumService) SealDocument(ctx context.Context, agent interfaces.Member, document any, memberIDs []interfaces.ID, sharesRequired int) (*SealedDocumentResult, error) {
	if len(memberIDs) < interfaces.MinShares {
		return nil, interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"%d members, at least %d required", len(memberIDs), interfaces.MinShares).
			With("member_count", len(memberIDs))
	}

	if agent == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "agent is required")
	}

	members, err := q.resolveActiveMembers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	rec, err := q.sealer.QuorumSeal(ctx, agent, document, members, sharesRequired)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.trustCreator(agent); err != nil {
		return nil, err
	}

	stored := storedDocument{Record: rec.ToDto(), CreatorPublicKey: agent.PublicKey()}
	if err := q.putIndexed(ctx, documentIndexKey, rec.ID(), documentKeyPrefix+rec.ID().String(), stored); err != nil {
		return nil, err
	}

	q.metrics.IncDocumentsSealed()
	q.log.Info("Document sealed",
		slog.String("document_id", rec.ID().String()),
		slog.Int("members", len(members)),
		slog.Int("shares_required", rec.SharesRequired()))

	return sealedResult(rec), nil
}

// UnsealDocument recovers the document into out with the private keys of members.
func (q *QuorumService) UnsealDocument(ctx context.Context, documentID interfaces.ID, members []interfaces.Member, out any) error {
	rec, err := q.GetRecord(ctx, documentID)
	if err != nil {
		return err
	}

	err = q.sealer.QuorumUnseal(ctx, rec, members, out)
	q.recordUnseal(documentID, err)
	return err
}

// UnsealDocumentWithShares recovers the document into out from shares already decrypted
// by their members.
func (q *QuorumService) UnsealDocumentWithShares(ctx context.Context, documentID interfaces.ID, shares []string, out any) error {
	rec, err := q.GetRecord(ctx, documentID)
	if err != nil {
		return err
	}

	err = q.sealer.QuorumUnsealWithShares(ctx, rec, shares, out)
	q.recordUnseal(documentID, err)
	return err
}

// Unseal is UnsealDocument returning the document as a T.
func Unseal[T any](ctx context.Context, q *QuorumService, documentID interfaces.ID, members []interfaces.Member) (T, error) {
	var out T
	if err := q.UnsealDocument(ctx, documentID, members, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// GetDocument describes a document, or returns nil if id is unknown. Deleted documents
// are still returned.
func (q *QuorumService) GetDocument(ctx context.Context, id interfaces.ID) (*QuorumDocumentInfo, error) {
	rec, err := q.GetRecord(ctx, id)
	if errors.Is(err, interfaces.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return documentInfo(rec), nil
}

// GetRecord loads and verifies the sealed record of a document.
func (q *QuorumService) GetRecord(ctx context.Context, id interfaces.ID) (*record.QuorumDataRecord, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loadRecord(ctx, id)
}

// GetEncryptedShare returns memberID's share ciphertext of a document, for decryption
// on the member's side.
func (q *QuorumService) GetEncryptedShare(ctx context.Context, documentID, memberID interfaces.ID) ([]byte, error) {
	rec, err := q.GetRecord(ctx, documentID)
	if err != nil {
		return nil, err
	}

	share, ok := rec.EncryptedShare(memberID)
	if !ok {
		return nil, interfaces.NewError(interfaces.KindEncryptedShareNotFound,
			"member %s holds no share of document %s", memberID, documentID).
			With("member_id", memberID.String()).
			With("document_id", documentID.String())
	}
	return share, nil
}

// ListDocuments describes every document that has not been deleted.
func (q *QuorumService) ListDocuments(ctx context.Context) ([]*QuorumDocumentInfo, error) {
	return q.listDocuments(ctx, func(*record.QuorumDataRecord) bool { return true })
}

// ListDocumentsForMember describes the listed documents memberID holds a share of.
func (q *QuorumService) ListDocumentsForMember(ctx context.Context, memberID interfaces.ID) ([]*QuorumDocumentInfo, error) {
	return q.listDocuments(ctx, func(rec *record.QuorumDataRecord) bool { return rec.HasMember(memberID) })
}

// DeleteDocument removes a document from listings. The record stays retrievable by id.
func (q *QuorumService) DeleteDocument(ctx context.Context, id interfaces.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.store.Get(ctx, documentKeyPrefix+id.String()); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return documentNotFound(id)
		}
		return fmt.Errorf("failed to load document: %w", err)
	}

	ids, err := q.readIndex(ctx, documentIndexKey)
	if err != nil {
		return err
	}

	kept := ids[:0]
	for _, indexed := range ids {
		if indexed != id {
			kept = append(kept, indexed)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}

	if err := q.putJSON(ctx, documentIndexKey, kept); err != nil {
		return err
	}

	q.log.Info("Document deleted", slog.String("document_id", id.String()))
	return nil
}

// CanUnlock reports whether memberIDs hold enough shares of a document.
func (q *QuorumService) CanUnlock(ctx context.Context, documentID interfaces.ID, memberIDs []interfaces.ID) (*CanUnlockResult, error) {
	rec, err := q.GetRecord(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return canUnlock(rec, memberIDs), nil
}

func (q *QuorumService) listDocuments(ctx context.Context, include func(*record.QuorumDataRecord) bool) ([]*QuorumDocumentInfo, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ids, err := q.readIndex(ctx, documentIndexKey)
	if err != nil {
		return nil, err
	}

	docs := make([]*QuorumDocumentInfo, 0, len(ids))
	for _, id := range ids {
		rec, err := q.loadRecord(ctx, id)
		if errors.Is(err, interfaces.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if include(rec) {
			docs = append(docs, documentInfo(rec))
		}
	}
	return docs, nil
}

func (q *QuorumService) resolveActiveMembers(ctx context.Context, ids []interfaces.ID) ([]interfaces.Member, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	members := make([]interfaces.Member, len(ids))
	for i, id := range ids {
		entry, err := q.loadMember(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil || !entry.IsActive {
			return nil, memberNotFound(id)
		}

		members[i], err = q.newMember(entry.ID, entry.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load member %s: %w", id, err)
		}
	}
	return members, nil
}

func (q *QuorumService) loadMember(ctx context.Context, id interfaces.ID) (*QuorumMember, error) {
	data, err := q.store.Get(ctx, memberKeyPrefix+id.String())
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}

	var entry QuorumMember
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode member %s: %w", id, err)
	}
	return &entry, nil
}

func (q *QuorumService) loadRecord(ctx context.Context, id interfaces.ID) (*record.QuorumDataRecord, error) {
	data, err := q.store.Get(ctx, documentKeyPrefix+id.String())
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, documentNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var stored storedDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidRecordFormat, err).With("document_id", id.String())
	}

	return record.FromDto(stored.Record, func(creatorID interfaces.ID) (interfaces.Member, error) {
		return q.resolveCreator(id, creatorID, stored.CreatorPublicKey)
	})
}

// resolveCreator returns the trusted key of a record's creator. Records signed by an
// unknown agent, or carrying a key other than the trusted one, are rejected.
func (q *QuorumService) resolveCreator(documentID, creatorID interfaces.ID, storedKey []byte) (interfaces.Member, error) {
	creator, ok := q.creators[creatorID]
	if !ok {
		return nil, interfaces.NewError(interfaces.KindInvalidSignature,
			"document %s is signed by untrusted agent %s", documentID, creatorID).
			With("document_id", documentID.String()).
			With("creator_id", creatorID.String())
	}
	if len(storedKey) > 0 && !bytes.Equal(creator.PublicKey(), storedKey) {
		return nil, interfaces.NewError(interfaces.KindInvalidSignature,
			"document %s carries a public key not trusted for agent %s", documentID, creatorID).
			With("document_id", documentID.String()).
			With("creator_id", creatorID.String())
	}
	return creator, nil
}

func (q *QuorumService) readIndex(ctx context.Context, key string) ([]interfaces.ID, error) {
	data, err := q.store.Get(ctx, key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", key, err)
	}

	var ids []interfaces.ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode index %s: %w", key, err)
	}
	return ids, nil
}

// putIndexed adds id to an index, then stores v under key. The index is restored when
// the table write fails, so a retry starts from a clean state. The caller holds q.mu.
func (q *QuorumService) putIndexed(ctx context.Context, indexKey string, id interfaces.ID, key string, v any) error {
	ids, err := q.readIndex(ctx, indexKey)
	if err != nil {
		return err
	}

	added := !slices.Contains(ids, id)
	if added {
		if err := q.putJSON(ctx, indexKey, append(slices.Clone(ids), id)); err != nil {
			return err
		}
	}

	if err := q.putJSON(ctx, key, v); err != nil {
		if added {
			if restoreErr := q.putJSON(ctx, indexKey, ids); restoreErr != nil {
				q.log.Error("Failed to restore index",
					slog.String("index", indexKey),
					slog.String("id", id.String()),
					"err", restoreErr)
			}
		}
		return err
	}
	return nil
}

func (q *QuorumService) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := q.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (q *QuorumService) recordUnseal(documentID interfaces.ID, err error) {
	if err != nil {
		q.metrics.IncUnseal(metrics.UnsealFailure)
		q.log.Warn("Unseal failed",
			slog.String("document_id", documentID.String()),
			"err", err)
		return
	}
	q.metrics.IncUnseal(metrics.UnsealSuccess)
	q.log.Info("Document unsealed", slog.String("document_id", documentID.String()))
}

func memberNotFound(id interfaces.ID) error {
	return interfaces.NewError(interfaces.KindMemberNotFound, "member %s", id).With("member_id", id.String())
}

func documentNotFound(id interfaces.ID) error {
	return interfaces.NewError(interfaces.KindDocumentNotFound, "document %s", id).With("document_id", id.String())
}
