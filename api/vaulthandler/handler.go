package vaulthandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/quorum-vault/api"
	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/quorum"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError maps err to the HTTP status of its domain error kind.
//
// Validation kinds map to 400, lookup kinds to 404, integrity failures of stored
// records and unusable shares to 422, and everything else to 500.
func NewRequestError(err error) *RequestError {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	kind, ok := interfaces.KindOf(err)
	if !ok {
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}

	status := http.StatusInternalServerError
	switch kind.Category() {
	case interfaces.CategoryValidation:
		status = http.StatusBadRequest
	case interfaces.CategoryLookup:
		status = http.StatusNotFound
	case interfaces.CategoryIntegrity, interfaces.CategoryWrapped:
		status = http.StatusUnprocessableEntity
	}
	return &RequestError{StatusCode: status, Err: err}
}

// Handler serves the member and document API over a QuorumService. Documents are
// sealed on behalf of agent, whose private key signs every record.
type Handler struct {
	quorum      *quorum.QuorumService
	agent       interfaces.Member
	log         *slog.Logger
	maxBodySize int64
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
func NewHandler(q *quorum.QuorumService, agent interfaces.Member, log *slog.Logger) *Handler {
	return &Handler{
		quorum:      q,
		agent:       agent,
		log:         log,
		maxBodySize: api.DefaultMaxBodySize,
	}
}

// WithMaxBodySize sets the request body limit. Non-positive values keep the default.
func (h *Handler) WithMaxBodySize(n int64) *Handler {
	if n > 0 {
		h.maxBodySize = n
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/members", h.HandleAddMember)
	r.Get("/api/members", h.HandleListMembers)
	r.Get("/api/members/{member_id}", h.HandleGetMember)
	r.Delete("/api/members/{member_id}", h.HandleRemoveMember)

	r.Post("/api/documents", h.HandleSealDocument)
	r.Get("/api/documents", h.HandleListDocuments)
	r.Get("/api/documents/{document_id}", h.HandleGetDocument)
	r.Delete("/api/documents/{document_id}", h.HandleDeleteDocument)
	r.Get("/api/documents/{document_id}/record", h.HandleGetRecord)
	r.Get("/api/documents/{document_id}/shares/{member_id}", h.HandleGetEncryptedShare)
	r.Post("/api/documents/{document_id}/can-unlock", h.HandleCanUnlock)
	r.Post("/api/documents/{document_id}/unseal", h.HandleUnseal)
}

// HandleAddMember registers a member from its public key.
//
// URL format: POST /api/members
//
// Request body: JSON-encoded api.AddMemberRequest
//
// Response: 201 with the JSON-encoded quorum.QuorumMember
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req api.AddMemberRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ID.IsZero() {
		h.writeError(w, interfaces.NewError(interfaces.KindInvalidArgument, "member id is required"))
		return
	}

	member, err := cryptoutils.NewPublicMember(req.ID, req.PublicKey)
	if err != nil {
		h.writeError(w, interfaces.WrapError(interfaces.KindInvalidArgument, err))
		return
	}

	entry, err := h.quorum.AddMember(r.Context(), member, req.Metadata)
	if err != nil {
		h.log.Error("Failed to add member", "err", err, slog.String("member_id", req.ID.String()))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, entry)
}

// HandleListMembers lists active members in registration order.
//
// URL format: GET /api/members
func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.quorum.ListMembers(r.Context())
	if err != nil {
		h.log.Error("Failed to list members", "err", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, members)
}

// HandleGetMember describes a member, including deactivated ones.
//
// URL format: GET /api/members/{member_id}
func (h *Handler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "member_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	member, err := h.quorum.GetMember(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if member == nil {
		h.writeError(w, interfaces.NewError(interfaces.KindMemberNotFound, "member %s", id))
		return
	}
	h.writeJSON(w, http.StatusOK, member)
}

// HandleRemoveMember deactivates a member. Existing documents keep its share.
//
// URL format: DELETE /api/members/{member_id}
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "member_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.quorum.RemoveMember(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSealDocument seals the request document for the listed members.
//
// URL format: POST /api/documents
//
// Request body: JSON-encoded api.SealDocumentRequest
//
// Response: 201 with the JSON-encoded quorum.SealedDocumentResult
func (h *Handler) HandleSealDocument(w http.ResponseWriter, r *http.Request) {
	var req api.SealDocumentRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Document) == 0 || bytes.Equal(req.Document, []byte("null")) {
		h.writeError(w, interfaces.NewError(interfaces.KindInvalidArgument, "document is required"))
		return
	}

	sealed, err := h.quorum.SealDocument(r.Context(), h.agent, req.Document, req.MemberIDs, req.SharesRequired)
	if err != nil {
		h.log.Error("Failed to seal document", "err", err, slog.Int("members", len(req.MemberIDs)))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, sealed)
}

// HandleListDocuments lists documents that have not been deleted. With
// ?member=<id> only documents that member holds a share of are listed.
//
// URL format: GET /api/documents[?member=<id>]
func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	var (
		docs []*quorum.QuorumDocumentInfo
		err  error
	)

	if member := r.URL.Query().Get("member"); member != "" {
		id, idErr := interfaces.NewIDFromHex(member)
		if idErr != nil {
			h.writeError(w, interfaces.NewError(interfaces.KindInvalidArgument, "invalid member id: %v", idErr))
			return
		}
		docs, err = h.quorum.ListDocumentsForMember(r.Context(), id)
	} else {
		docs, err = h.quorum.ListDocuments(r.Context())
	}
	if err != nil {
		h.log.Error("Failed to list documents", "err", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, docs)
}

// HandleGetDocument describes a document, deleted or not.
//
// URL format: GET /api/documents/{document_id}
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "document_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	doc, err := h.quorum.GetDocument(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if doc == nil {
		h.writeError(w, interfaces.NewError(interfaces.KindDocumentNotFound, "document %s", id))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// HandleDeleteDocument removes a document from listings. It stays retrievable by id.
//
// URL format: DELETE /api/documents/{document_id}
func (h *Handler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "document_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.quorum.DeleteDocument(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetRecord returns the full sealed record in its wire format, for offline
// verification.
//
// URL format: GET /api/documents/{document_id}/record
//
// Response: JSON-encoded record.QuorumDataRecordDto
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "document_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	rec, err := h.quorum.GetRecord(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec.ToDto())
}

// HandleGetEncryptedShare returns a member's encrypted share of a document.
//
// URL format: GET /api/documents/{document_id}/shares/{member_id}
//
// Response: JSON-encoded api.EncryptedShareResponse
func (h *Handler) HandleGetEncryptedShare(w http.ResponseWriter, r *http.Request) {
	documentID, err := pathID(r, "document_id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	memberID, err := pathID(r, "member_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	share, err := h.quorum.GetEncryptedShare(r.Context(), documentID, memberID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.EncryptedShareResponse{
		DocumentID:     documentID,
		MemberID:       memberID,
		EncryptedShare: share,
	})
}

// HandleCanUnlock reports whether the listed members hold enough shares.
//
// URL format: POST /api/documents/{document_id}/can-unlock
//
// Request body: JSON-encoded api.CanUnlockRequest
//
// Response: JSON-encoded quorum.CanUnlockResult
func (h *Handler) HandleCanUnlock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "document_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.CanUnlockRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.quorum.CanUnlock(r.Context(), id, req.MemberIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleUnseal reconstructs a document from plaintext shares.
//
// URL format: POST /api/documents/{document_id}/unseal
//
// Request body: JSON-encoded api.UnsealRequest
//
// Response: JSON-encoded api.UnsealResponse
func (h *Handler) HandleUnseal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "document_id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.UnsealRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	var document json.RawMessage
	if err := h.quorum.UnsealDocumentWithShares(r.Context(), id, req.Shares, &document); err != nil {
		h.log.Warn("Unseal rejected", "err", err, slog.String("document_id", id.String()))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.UnsealResponse{DocumentID: id, Document: document})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: err}
		}
		return &RequestError{
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("invalid request body: %w", err),
		}
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	reqErr := NewRequestError(err)

	resp := api.ErrorResponse{Error: reqErr.Error()}
	if kind, ok := interfaces.KindOf(err); ok {
		resp.Kind = kind.String()
	}
	if reqErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err)
	}

	h.writeJSON(w, reqErr.StatusCode, resp)
}

func pathID(r *http.Request, name string) (interfaces.ID, error) {
	id, err := interfaces.NewIDFromHex(r.PathValue(name))
	if err != nil {
		return interfaces.ID{}, interfaces.NewError(interfaces.KindInvalidArgument,
			"invalid %s: %v", name, err)
	}
	return id, nil
}
