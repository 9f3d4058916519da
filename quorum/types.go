package quorum

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/record"
)

// MemberMetadata is free-form information about a member.
type MemberMetadata struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// QuorumMember is the registry entry of a member.
type QuorumMember struct {
	ID        interfaces.ID  `json:"id"`
	PublicKey hexutil.Bytes  `json:"publicKey"`
	Metadata  MemberMetadata `json:"metadata"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SealedDocumentResult describes a freshly sealed document without any key material.
type SealedDocumentResult struct {
	DocumentID     interfaces.ID   `json:"documentId"`
	CreatorID      interfaces.ID   `json:"creatorId"`
	MemberIDs      []interfaces.ID `json:"memberIds"`
	SharesRequired int             `json:"sharesRequired"`
	Checksum       string          `json:"checksum"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// QuorumDocumentInfo describes a stored document.
type QuorumDocumentInfo struct {
	ID             interfaces.ID   `json:"id"`
	CreatorID      interfaces.ID   `json:"creatorId"`
	MemberIDs      []interfaces.ID `json:"memberIds"`
	SharesRequired int             `json:"sharesRequired"`
	Checksum       string          `json:"checksum"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CanUnlockResult is the answer to whether a set of members can unseal a document.
type CanUnlockResult struct {
	CanUnlock      bool            `json:"canUnlock"`
	SharesProvided int             `json:"sharesProvided"`
	SharesRequired int             `json:"sharesRequired"`
	MissingMembers []interfaces.ID `json:"missingMembers"`
}

func sealedResult(rec *record.QuorumDataRecord) *SealedDocumentResult {
	return &SealedDocumentResult{
		DocumentID:     rec.ID(),
		CreatorID:      rec.Creator().ID(),
		MemberIDs:      rec.MemberIDs(),
		SharesRequired: rec.SharesRequired(),
		Checksum:       rec.Checksum().String(),
		CreatedAt:      rec.DateCreated(),
	}
}

func documentInfo(rec *record.QuorumDataRecord) *QuorumDocumentInfo {
	return &QuorumDocumentInfo{
		ID:             rec.ID(),
		CreatorID:      rec.Creator().ID(),
		MemberIDs:      rec.MemberIDs(),
		SharesRequired: rec.SharesRequired(),
		Checksum:       rec.Checksum().String(),
		CreatedAt:      rec.DateCreated(),
		UpdatedAt:      rec.DateUpdated(),
	}
}

// canUnlock intersects ids with the recipients of rec. Any recipients count, not a fixed subset.
func canUnlock(rec *record.QuorumDataRecord, ids []interfaces.ID) *CanUnlockResult {
	provided := make(map[interfaces.ID]struct{}, len(ids))
	for _, id := range ids {
		if rec.HasMember(id) {
			provided[id] = struct{}{}
		}
	}

	missing := []interfaces.ID{}
	for _, id := range rec.MemberIDs() {
		if _, ok := provided[id]; !ok {
			missing = append(missing, id)
		}
	}

	return &CanUnlockResult{
		CanUnlock:      len(provided) >= rec.SharesRequired(),
		SharesProvided: len(provided),
		SharesRequired: rec.SharesRequired(),
		MissingMembers: missing,
	}
}
