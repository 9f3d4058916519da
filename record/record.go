package record

import (
	"bytes"
	"time"

	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
)

// FetchMemberFunc resolves a member identity, typically from a registry.
type FetchMemberFunc func(id interfaces.ID) (interfaces.Member, error)

// Params holds the fields of a record under construction.
// Zero values are defaulted: ID is generated, Checksum is computed, Signature is produced by
// Creator, and both dates are set to the construction time.
type Params struct {
	ID                        interfaces.ID
	Creator                   interfaces.Member
	MemberIDs                 []interfaces.ID
	SharesRequired            int
	EncryptedData             []byte
	EncryptedSharesByMemberID map[interfaces.ID][]byte
	Checksum                  *interfaces.Checksum
	Signature                 []byte
	DateCreated               time.Time
	DateUpdated               time.Time
}

// QuorumDataRecord is a sealed document: the AEAD ciphertext of the document and one
// asymmetrically encrypted key share per recipient.
type QuorumDataRecord struct {
	id              interfaces.ID
	creator         interfaces.Member
	memberIDs       []interfaces.ID
	sharesRequired  int
	encryptedData   []byte
	encryptedShares map[interfaces.ID][]byte
	checksum        interfaces.Checksum
	signature       []byte
	dateCreated     time.Time
	dateUpdated     time.Time
}

// New validates p and builds a record from it.
func New(p Params) (*QuorumDataRecord, error) {
	if p.Creator == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "record requires a creator")
	}

	if len(p.MemberIDs) == 1 {
		return nil, interfaces.NewError(interfaces.KindMustShareWithAtLeastTwoMembers,
			"record lists a single member").With("member_count", 1)
	}

	memberSet := make(map[interfaces.ID]struct{}, len(p.MemberIDs))
	for _, id := range p.MemberIDs {
		if _, dup := memberSet[id]; dup {
			return nil, interfaces.NewError(interfaces.KindInvalidMemberArray,
				"member %s listed twice", id).With("member_id", id.String())
		}
		memberSet[id] = struct{}{}
	}

	if p.SharesRequired != interfaces.SharesRequiredUnset {
		if p.SharesRequired > len(p.MemberIDs) {
			return nil, interfaces.NewError(interfaces.KindSharesRequiredExceedsMembers,
				"%d shares required of %d members", p.SharesRequired, len(p.MemberIDs)).
				With("shares_required", p.SharesRequired).
				With("member_count", len(p.MemberIDs))
		}
		if p.SharesRequired < interfaces.MinShares {
			return nil, interfaces.NewError(interfaces.KindSharesRequiredMustBeAtLeastTwo,
				"%d shares required", p.SharesRequired).
				With("shares_required", p.SharesRequired)
		}
	}

	for id := range p.EncryptedSharesByMemberID {
		if _, ok := memberSet[id]; !ok {
			return nil, interfaces.NewError(interfaces.KindInvalidMemberArray,
				"share held by unlisted member %s", id).With("member_id", id.String())
		}
	}
	if len(p.EncryptedSharesByMemberID) > 0 {
		for _, id := range p.MemberIDs {
			if _, ok := p.EncryptedSharesByMemberID[id]; !ok {
				return nil, interfaces.NewError(interfaces.KindEncryptedShareNotFound,
					"no share for member %s", id).With("member_id", id.String())
			}
		}
	}

	checksum := cryptoutils.CalculateChecksum(p.EncryptedData)
	if p.Checksum != nil && !checksum.Equal(*p.Checksum) {
		return nil, interfaces.NewError(interfaces.KindInvalidChecksum,
			"checksum does not match encrypted data").With("checksum", p.Checksum.String())
	}

	signature := p.Signature
	if len(signature) == 0 {
		var err error
		signature, err = p.Creator.Sign(checksum.Bytes())
		if err != nil {
			return nil, err
		}
	} else if !p.Creator.Verify(checksum.Bytes(), signature) {
		return nil, interfaces.NewError(interfaces.KindInvalidSignature,
			"signature not produced by creator %s", p.Creator.ID()).
			With("creator_id", p.Creator.ID().String())
	}

	now := time.Now().UTC()
	dateCreated, dateUpdated := p.DateCreated.UTC(), p.DateUpdated.UTC()
	if p.DateCreated.IsZero() {
		dateCreated = now
	}
	if p.DateUpdated.IsZero() {
		dateUpdated = now
	}

	id := p.ID
	if id.IsZero() {
		id = interfaces.NewID()
	}

	shares := make(map[interfaces.ID][]byte, len(p.EncryptedSharesByMemberID))
	for memberID, share := range p.EncryptedSharesByMemberID {
		shares[memberID] = bytes.Clone(share)
	}

	return &QuorumDataRecord{
		id:              id,
		creator:         p.Creator,
		memberIDs:       append([]interfaces.ID(nil), p.MemberIDs...),
		sharesRequired:  p.SharesRequired,
		encryptedData:   bytes.Clone(p.EncryptedData),
		encryptedShares: shares,
		checksum:        checksum,
		signature:       bytes.Clone(signature),
		dateCreated:     dateCreated,
		dateUpdated:     dateUpdated,
	}, nil
}

// ID returns the document identifier.
func (r *QuorumDataRecord) ID() interfaces.ID { return r.id }

// Creator returns the agent that signed the record.
func (r *QuorumDataRecord) Creator() interfaces.Member { return r.creator }

// MemberIDs returns the recipients in sealing order.
func (r *QuorumDataRecord) MemberIDs() []interfaces.ID {
	return append([]interfaces.ID(nil), r.memberIDs...)
}

// HasMember reports whether id is a recipient.
func (r *QuorumDataRecord) HasMember(id interfaces.ID) bool {
	for _, memberID := range r.memberIDs {
		if memberID == id {
			return true
		}
	}
	return false
}

// SharesRequired returns the threshold, or SharesRequiredUnset.
func (r *QuorumDataRecord) SharesRequired() int { return r.sharesRequired }

// EncryptedData returns a copy of the document ciphertext.
func (r *QuorumDataRecord) EncryptedData() []byte { return bytes.Clone(r.encryptedData) }

// EncryptedShare returns the share ciphertext held by memberID.
func (r *QuorumDataRecord) EncryptedShare(memberID interfaces.ID) ([]byte, bool) {
	share, ok := r.encryptedShares[memberID]
	if !ok {
		return nil, false
	}
	return bytes.Clone(share), true
}

// EncryptedSharesByMemberID returns a copy of the share map.
func (r *QuorumDataRecord) EncryptedSharesByMemberID() map[interfaces.ID][]byte {
	shares := make(map[interfaces.ID][]byte, len(r.encryptedShares))
	for id, share := range r.encryptedShares {
		shares[id] = bytes.Clone(share)
	}
	return shares
}

// ShareCount is the number of shares the document key was split into.
func (r *QuorumDataRecord) ShareCount() int { return len(r.encryptedShares) }

// Checksum returns the SHA3-512 checksum of the ciphertext.
func (r *QuorumDataRecord) Checksum() interfaces.Checksum { return r.checksum }

// Signature returns a copy of the creator signature over the checksum.
func (r *QuorumDataRecord) Signature() []byte { return bytes.Clone(r.signature) }

// DateCreated returns the sealing time in UTC.
func (r *QuorumDataRecord) DateCreated() time.Time { return r.dateCreated }

// DateUpdated returns the last update time in UTC.
func (r *QuorumDataRecord) DateUpdated() time.Time { return r.dateUpdated }
