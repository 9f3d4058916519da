package vaulthandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/quorum-vault/api"
	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/quorum"
	"github.com/ruteri/quorum-vault/record"
	"github.com/ruteri/quorum-vault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router  *chi.Mux
	quorum  *quorum.QuorumService
	agent   *cryptoutils.KeyMember
	members []*cryptoutils.KeyMember
}

// setupTestEnvironment creates a handler over an in-memory store with n registered members.
func setupTestEnvironment(t *testing.T, n int) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	q, err := quorum.NewQuorumService(quorum.Config{Store: storage.NewMemoryStore(), Log: logger})
	require.NoError(t, err)

	agent, err := cryptoutils.GenerateKeyMember()
	require.NoError(t, err)

	env := &testEnv{router: chi.NewRouter(), quorum: q, agent: agent}
	NewHandler(q, agent, logger).RegisterRoutes(env.router)

	for i := 0; i < n; i++ {
		m, err := cryptoutils.GenerateKeyMember()
		require.NoError(t, err)
		resp := env.request(t, http.MethodPost, "/api/members", api.AddMemberRequest{
			ID:        m.ID(),
			PublicKey: m.PublicKey(),
			Metadata:  quorum.MemberMetadata{Name: fmt.Sprintf("member-%d", i)},
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		env.members = append(env.members, m)
	}

	return env
}

func (env *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) memberIDs() []interfaces.ID {
	ids := make([]interfaces.ID, len(env.members))
	for i, m := range env.members {
		ids[i] = m.ID()
	}
	return ids
}

func (env *testEnv) seal(t *testing.T, document string, ids []interfaces.ID, sharesRequired int) *quorum.SealedDocumentResult {
	t.Helper()
	resp := env.request(t, http.MethodPost, "/api/documents", api.SealDocumentRequest{
		Document:       json.RawMessage(document),
		MemberIDs:      ids,
		SharesRequired: sharesRequired,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var sealed quorum.SealedDocumentResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sealed))
	return &sealed
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp), resp.Body.String())
	return errResp
}

func TestHandleMembers(t *testing.T) {
	env := setupTestEnvironment(t, 3)

	resp := env.request(t, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var members []quorum.QuorumMember
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &members))
	require.Len(t, members, 3)
	assert.Equal(t, "member-0", members[0].Metadata.Name)
	assert.Equal(t, env.members[0].PublicKey(), []byte(members[0].PublicKey))

	resp = env.request(t, http.MethodDelete, "/api/members/"+env.members[0].ID().String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = env.request(t, http.MethodGet, "/api/members/"+env.members[0].ID().String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var removed quorum.QuorumMember
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &removed))
	assert.False(t, removed.IsActive)

	resp = env.request(t, http.MethodGet, "/api/members", nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &members))
	assert.Len(t, members, 2)

	resp = env.request(t, http.MethodGet, "/api/members/"+interfaces.NewID().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "MemberNotFound", decodeError(t, resp).Kind)

	resp = env.request(t, http.MethodDelete, "/api/members/"+interfaces.NewID().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleAddMember_Invalid(t *testing.T) {
	env := setupTestEnvironment(t, 1)

	testCases := []struct {
		name   string
		body   any
		status int
	}{
		{
			name:   "duplicate member",
			body:   api.AddMemberRequest{ID: env.members[0].ID(), PublicKey: env.members[0].PublicKey()},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing id",
			body:   api.AddMemberRequest{PublicKey: env.members[0].PublicKey()},
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid public key",
			body:   api.AddMemberRequest{ID: interfaces.NewID(), PublicKey: []byte{1, 2, 3}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   map[string]string{"nickname": "x"},
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.request(t, http.MethodPost, "/api/members", tc.body)
			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/members/not-an-id", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSealAndUnseal(t *testing.T) {
	env := setupTestEnvironment(t, 3)
	ids := env.memberIDs()

	sealed := env.seal(t, `{"secret":"s3cr3t","n":1}`, ids, 2)
	assert.Equal(t, env.agent.ID(), sealed.CreatorID)
	assert.Equal(t, 2, sealed.SharesRequired)

	shares := make([]string, 0, 2)
	for _, m := range env.members[1:] {
		resp := env.request(t, http.MethodGet,
			fmt.Sprintf("/api/documents/%s/shares/%s", sealed.DocumentID, m.ID()), nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var shareResp api.EncryptedShareResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &shareResp))
		assert.Equal(t, m.ID(), shareResp.MemberID)

		share, err := m.DecryptShare(shareResp.EncryptedShare)
		require.NoError(t, err)
		shares = append(shares, string(share))
	}

	resp := env.request(t, http.MethodPost,
		fmt.Sprintf("/api/documents/%s/unseal", sealed.DocumentID), api.UnsealRequest{Shares: shares})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var unsealed api.UnsealResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &unsealed))
	assert.Equal(t, sealed.DocumentID, unsealed.DocumentID)
	assert.JSONEq(t, `{"secret":"s3cr3t","n":1}`, string(unsealed.Document))

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/documents/%s/unseal", sealed.DocumentID), api.UnsealRequest{Shares: shares[:1]})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "NotEnoughMembersToUnlock", decodeError(t, resp).Kind)

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/documents/%s/unseal", interfaces.NewID()), api.UnsealRequest{Shares: shares})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "DocumentNotFound", decodeError(t, resp).Kind)

	resp = env.request(t, http.MethodGet,
		fmt.Sprintf("/api/documents/%s/shares/%s", sealed.DocumentID, interfaces.NewID()), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "EncryptedShareNotFound", decodeError(t, resp).Kind)
}

func TestHandleSeal_Invalid(t *testing.T) {
	env := setupTestEnvironment(t, 3)
	ids := env.memberIDs()

	testCases := []struct {
		name   string
		req    api.SealDocumentRequest
		status int
		kind   string
	}{
		{
			name:   "one member",
			req:    api.SealDocumentRequest{Document: json.RawMessage(`1`), MemberIDs: ids[:1]},
			status: http.StatusBadRequest,
			kind:   "NotEnoughMembersToUnlock",
		},
		{
			name:   "unknown member",
			req:    api.SealDocumentRequest{Document: json.RawMessage(`1`), MemberIDs: []interfaces.ID{ids[0], interfaces.NewID()}},
			status: http.StatusNotFound,
			kind:   "MemberNotFound",
		},
		{
			name:   "threshold above members",
			req:    api.SealDocumentRequest{Document: json.RawMessage(`1`), MemberIDs: ids, SharesRequired: 4},
			status: http.StatusBadRequest,
			kind:   "NotEnoughMembersToUnlock",
		},
		{
			name:   "missing document",
			req:    api.SealDocumentRequest{MemberIDs: ids},
			status: http.StatusBadRequest,
			kind:   "InvalidArgument",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.request(t, http.MethodPost, "/api/documents", tc.req)
			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
			assert.Equal(t, tc.kind, decodeError(t, resp).Kind)
		})
	}
}

func TestHandleDocuments(t *testing.T) {
	env := setupTestEnvironment(t, 3)
	ids := env.memberIDs()

	first := env.seal(t, `"first"`, ids[:2], 0)
	second := env.seal(t, `"second"`, ids[1:], 0)

	listDocs := func(path string) []quorum.QuorumDocumentInfo {
		resp := env.request(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var docs []quorum.QuorumDocumentInfo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &docs))
		return docs
	}

	assert.Len(t, listDocs("/api/documents"), 2)

	forMember := listDocs("/api/documents?member=" + ids[0].String())
	require.Len(t, forMember, 1)
	assert.Equal(t, first.DocumentID, forMember[0].ID)

	resp := env.request(t, http.MethodGet, "/api/documents?member=xyz", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.request(t, http.MethodGet, "/api/documents/"+second.DocumentID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var info quorum.QuorumDocumentInfo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &info))
	assert.Equal(t, ids[1:], info.MemberIDs)
	assert.Equal(t, second.Checksum, info.Checksum)

	resp = env.request(t, http.MethodDelete, "/api/documents/"+first.DocumentID.String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	docs := listDocs("/api/documents")
	require.Len(t, docs, 1)
	assert.Equal(t, second.DocumentID, docs[0].ID)

	resp = env.request(t, http.MethodGet, "/api/documents/"+first.DocumentID.String(), nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = env.request(t, http.MethodGet, "/api/documents/"+interfaces.NewID().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.request(t, http.MethodDelete, "/api/documents/"+interfaces.NewID().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleGetRecord(t *testing.T) {
	env := setupTestEnvironment(t, 2)
	sealed := env.seal(t, `{"k":"v"}`, env.memberIDs(), 0)

	resp := env.request(t, http.MethodGet, "/api/documents/"+sealed.DocumentID.String()+"/record", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var dto record.QuorumDataRecordDto
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dto))

	rec, err := record.FromDto(dto, func(id interfaces.ID) (interfaces.Member, error) {
		if id != env.agent.ID() {
			return nil, errors.New("unknown creator")
		}
		return env.agent.PublicOnly(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, sealed.DocumentID, rec.ID())
	assert.Equal(t, sealed.Checksum, rec.Checksum().String())
	assert.Equal(t, 2, rec.ShareCount())
}

func TestHandleCanUnlock(t *testing.T) {
	env := setupTestEnvironment(t, 3)
	ids := env.memberIDs()
	sealed := env.seal(t, `true`, ids, 2)

	path := fmt.Sprintf("/api/documents/%s/can-unlock", sealed.DocumentID)

	resp := env.request(t, http.MethodPost, path, api.CanUnlockRequest{MemberIDs: []interfaces.ID{ids[2], ids[0]}})
	require.Equal(t, http.StatusOK, resp.Code)
	var result quorum.CanUnlockResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.CanUnlock)
	assert.Equal(t, []interfaces.ID{ids[1]}, result.MissingMembers)

	resp = env.request(t, http.MethodPost, path, api.CanUnlockRequest{MemberIDs: ids[:1]})
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.False(t, result.CanUnlock)
	assert.Equal(t, 1, result.SharesProvided)

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/documents/%s/can-unlock", interfaces.NewID()), api.CanUnlockRequest{MemberIDs: ids})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNewRequestError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "validation", err: interfaces.NewError(interfaces.KindSharesRequiredExceedsMembers, "x"), status: http.StatusBadRequest},
		{name: "lookup", err: interfaces.NewError(interfaces.KindDocumentNotFound, "x"), status: http.StatusNotFound},
		{name: "integrity", err: interfaces.NewError(interfaces.KindInvalidChecksum, "x"), status: http.StatusUnprocessableEntity},
		{name: "wrapped", err: interfaces.WrapError(interfaces.KindFailedToSeal, errors.New("x")), status: http.StatusUnprocessableEntity},
		{name: "capability", err: interfaces.NewError(interfaces.KindMissingPrivateKeys, "x"), status: http.StatusInternalServerError},
		{name: "storage", err: fmt.Errorf("failed to store: %w", interfaces.ErrBackendUnavailable), status: http.StatusInternalServerError},
		{name: "wrapped domain error", err: fmt.Errorf("context: %w", interfaces.ErrMemberNotFound), status: http.StatusNotFound},
		{name: "request error", err: &RequestError{StatusCode: http.StatusTeapot, Err: errors.New("x")}, status: http.StatusTeapot},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, NewRequestError(tc.err).StatusCode)
		})
	}
}

func TestHandler_MaxBodySize(t *testing.T) {
	env := setupTestEnvironment(t, 2)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limited := chi.NewRouter()
	NewHandler(env.quorum, env.agent, logger).WithMaxBodySize(256).RegisterRoutes(limited)

	body, err := json.Marshal(api.SealDocumentRequest{
		Document:  json.RawMessage(`"` + strings.Repeat("x", 4096) + `"`),
		MemberIDs: env.memberIDs(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	limited.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// The default limit accepts the same request.
	req = httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
