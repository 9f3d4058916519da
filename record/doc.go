// Package record implements QuorumDataRecord, the immutable result of sealing a document
// for a quorum of members.
//
// A record is checksummed and signed by its creator. Both are verified whenever a record is
// constructed, including when it is reconstructed from its DTO or JSON form, so a record value
// that exists is always one whose ciphertext matches its checksum and whose checksum was signed
// by the creator.
//
// The wire format is a flat, hex-encoded DTO:
//
//	{
//	  "id": "<hex>",
//	  "creatorId": "<hex>",
//	  "encryptedData": "<hex>",
//	  "encryptedSharesByMemberId": {"<hex member id>": "<hex>"},
//	  "checksum": "<hex>",
//	  "signature": "<hex>",
//	  "memberIDs": ["<hex>"],
//	  "sharesRequired": 2,
//	  "dateCreated": "2006-01-02T15:04:05.999999999Z",
//	  "dateUpdated": "2006-01-02T15:04:05.999999999Z"
//	}
//
// Member key material lives outside the record; reconstruction takes a FetchMemberFunc that
// resolves the creator.
package record
