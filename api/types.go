package api

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/quorum"
)

// AddMemberRequest registers a member by its public key.
type AddMemberRequest struct {
	ID        interfaces.ID         `json:"id"`
	PublicKey hexutil.Bytes         `json:"publicKey"`
	Metadata  quorum.MemberMetadata `json:"metadata"`
}

// SealDocumentRequest seals Document for MemberIDs. A zero SharesRequired means
// every member is needed.
type SealDocumentRequest struct {
	Document       json.RawMessage `json:"document"`
	MemberIDs      []interfaces.ID `json:"memberIds"`
	SharesRequired int             `json:"sharesRequired"`
}

type CanUnlockRequest struct {
	MemberIDs []interfaces.ID `json:"memberIds"`
}

// UnsealRequest carries plaintext shares, each decrypted by its member.
type UnsealRequest struct {
	Shares []string `json:"shares"`
}

type UnsealResponse struct {
	DocumentID interfaces.ID   `json:"documentId"`
	Document   json.RawMessage `json:"document"`
}

// EncryptedShareResponse is a member's share ciphertext, decryptable only with
// the member's private key.
type EncryptedShareResponse struct {
	DocumentID     interfaces.ID `json:"documentId"`
	MemberID       interfaces.ID `json:"memberId"`
	EncryptedShare hexutil.Bytes `json:"encryptedShare"`
}

// ErrorResponse is the body of every non-2xx response. Kind is the stable name
// of the domain error kind, when there is one.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
