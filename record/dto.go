package record

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/ruteri/quorum-vault/interfaces"
)

// QuorumDataRecordDto is the wire form of a record.
type QuorumDataRecordDto struct {
	ID                        string            `json:"id"`
	CreatorID                 string            `json:"creatorId"`
	EncryptedData             string            `json:"encryptedData"`
	EncryptedSharesByMemberID map[string]string `json:"encryptedSharesByMemberId"`
	Checksum                  string            `json:"checksum"`
	Signature                 string            `json:"signature"`
	MemberIDs                 []string          `json:"memberIDs"`
	SharesRequired            int               `json:"sharesRequired"`
	DateCreated               string            `json:"dateCreated"`
	DateUpdated               string            `json:"dateUpdated"`
}

// ToDto returns the wire form of the record.
func (r *QuorumDataRecord) ToDto() QuorumDataRecordDto {
	shares := make(map[string]string, len(r.encryptedShares))
	for id, share := range r.encryptedShares {
		shares[id.String()] = hex.EncodeToString(share)
	}

	memberIDs := make([]string, len(r.memberIDs))
	for i, id := range r.memberIDs {
		memberIDs[i] = id.String()
	}

	return QuorumDataRecordDto{
		ID:                        r.id.String(),
		CreatorID:                 r.creator.ID().String(),
		EncryptedData:             hex.EncodeToString(r.encryptedData),
		EncryptedSharesByMemberID: shares,
		Checksum:                  r.checksum.String(),
		Signature:                 hex.EncodeToString(r.signature),
		MemberIDs:                 memberIDs,
		SharesRequired:            r.sharesRequired,
		DateCreated:               r.dateCreated.Format(time.RFC3339Nano),
		DateUpdated:               r.dateUpdated.Format(time.RFC3339Nano),
	}
}

// ToJSON encodes the record DTO as JSON.
func (r *QuorumDataRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r.ToDto())
}

// FromDto reconstructs a record, resolving the creator with fetchMember.
// Checksum and signature are verified as in New.
func FromDto(dto QuorumDataRecordDto, fetchMember FetchMemberFunc) (*QuorumDataRecord, error) {
	id, err := interfaces.NewIDFromHex(dto.ID)
	if err != nil {
		return nil, formatError("id", err)
	}

	creatorID, err := interfaces.NewIDFromHex(dto.CreatorID)
	if err != nil {
		return nil, formatError("creatorId", err)
	}

	encryptedData, err := hex.DecodeString(dto.EncryptedData)
	if err != nil {
		return nil, formatError("encryptedData", err)
	}

	checksum, err := interfaces.NewChecksumFromHex(dto.Checksum)
	if err != nil {
		return nil, formatError("checksum", err)
	}

	signature, err := hex.DecodeString(dto.Signature)
	if err != nil {
		return nil, formatError("signature", err)
	}
	if len(signature) == 0 {
		return nil, formatError("signature", errors.New("empty signature"))
	}

	memberIDs := make([]interfaces.ID, len(dto.MemberIDs))
	for i, raw := range dto.MemberIDs {
		if memberIDs[i], err = interfaces.NewIDFromHex(raw); err != nil {
			return nil, formatError("memberIDs", err)
		}
	}

	shares := make(map[interfaces.ID][]byte, len(dto.EncryptedSharesByMemberID))
	for rawID, rawShare := range dto.EncryptedSharesByMemberID {
		memberID, err := interfaces.NewIDFromHex(rawID)
		if err != nil {
			return nil, formatError("encryptedSharesByMemberId", err)
		}
		if shares[memberID], err = hex.DecodeString(rawShare); err != nil {
			return nil, formatError("encryptedSharesByMemberId", err)
		}
	}

	dateCreated, err := time.Parse(time.RFC3339Nano, dto.DateCreated)
	if err != nil {
		return nil, formatError("dateCreated", err)
	}
	dateUpdated, err := time.Parse(time.RFC3339Nano, dto.DateUpdated)
	if err != nil {
		return nil, formatError("dateUpdated", err)
	}

	if fetchMember == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "member resolver is required")
	}
	creator, err := fetchMember(creatorID)
	if err != nil {
		if _, ok := interfaces.KindOf(err); ok {
			return nil, err
		}
		return nil, interfaces.WrapError(interfaces.KindMemberNotFound, err).With("member_id", creatorID.String())
	}
	if creator == nil {
		return nil, interfaces.NewError(interfaces.KindMemberNotFound, "creator %s", creatorID).
			With("member_id", creatorID.String())
	}

	return New(Params{
		ID:                        id,
		Creator:                   creator,
		MemberIDs:                 memberIDs,
		SharesRequired:            dto.SharesRequired,
		EncryptedData:             encryptedData,
		EncryptedSharesByMemberID: shares,
		Checksum:                  &checksum,
		Signature:                 signature,
		DateCreated:               dateCreated,
		DateUpdated:               dateUpdated,
	})
}

// FromJSON decodes a record produced by ToJSON.
func FromJSON(data []byte, fetchMember FetchMemberFunc) (*QuorumDataRecord, error) {
	var dto QuorumDataRecordDto
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidRecordFormat, err)
	}
	return FromDto(dto, fetchMember)
}

func formatError(field string, err error) error {
	return interfaces.WrapError(interfaces.KindInvalidRecordFormat, err).With("field", field)
}
