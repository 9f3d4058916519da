package vaulthandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ruteri/quorum-vault/api"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/quorum"
	"github.com/ruteri/quorum-vault/record"
)

// ResponseError is a non-2xx answer from the vault server. When the server reported
// a domain error kind, the error matches the corresponding interfaces sentinel.
type ResponseError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("vault returned %d: %s", e.StatusCode, e.Message)
}

func (e *ResponseError) Unwrap() error {
	kind, ok := interfaces.ParseErrorKind(e.Kind)
	if !ok {
		return nil
	}
	return &interfaces.QuorumError{Kind: kind, Message: e.Message}
}

// Client talks to the vault REST API.
type Client struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8080".
	BaseURL string

	Client *http.Client
}

// NewClient creates a client for the server at baseURL using http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, Client: http.DefaultClient}
}

func (c *Client) AddMember(ctx context.Context, req api.AddMemberRequest) (*quorum.QuorumMember, error) {
	var member quorum.QuorumMember
	if err := c.do(ctx, http.MethodPost, "/api/members", req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// AddKeyMember registers member under its own id and public key.
func (c *Client) AddKeyMember(ctx context.Context, member interfaces.Member, metadata quorum.MemberMetadata) (*quorum.QuorumMember, error) {
	return c.AddMember(ctx, api.AddMemberRequest{
		ID:        member.ID(),
		PublicKey: member.PublicKey(),
		Metadata:  metadata,
	})
}

func (c *Client) ListMembers(ctx context.Context) ([]*quorum.QuorumMember, error) {
	var members []*quorum.QuorumMember
	if err := c.do(ctx, http.MethodGet, "/api/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) GetMember(ctx context.Context, id interfaces.ID) (*quorum.QuorumMember, error) {
	var member quorum.QuorumMember
	if err := c.do(ctx, http.MethodGet, "/api/members/"+id.String(), nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) RemoveMember(ctx context.Context, id interfaces.ID) error {
	return c.do(ctx, http.MethodDelete, "/api/members/"+id.String(), nil, nil)
}

// SealDocument seals document, which must be JSON-encodable, for memberIDs.
func (c *Client) SealDocument(ctx context.Context, document any, memberIDs []interfaces.ID, sharesRequired int) (*quorum.SealedDocumentResult, error) {
	payload, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("could not encode document: %w", err)
	}

	req := api.SealDocumentRequest{
		Document:       payload,
		MemberIDs:      memberIDs,
		SharesRequired: sharesRequired,
	}

	var sealed quorum.SealedDocumentResult
	if err := c.do(ctx, http.MethodPost, "/api/documents", req, &sealed); err != nil {
		return nil, err
	}
	return &sealed, nil
}

// ListDocuments lists documents. A non-nil memberID restricts the listing to
// documents that member holds a share of.
func (c *Client) ListDocuments(ctx context.Context, memberID *interfaces.ID) ([]*quorum.QuorumDocumentInfo, error) {
	path := "/api/documents"
	if memberID != nil {
		path += "?" + url.Values{"member": {memberID.String()}}.Encode()
	}

	var docs []*quorum.QuorumDocumentInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) GetDocument(ctx context.Context, id interfaces.ID) (*quorum.QuorumDocumentInfo, error) {
	var doc quorum.QuorumDocumentInfo
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+id.String(), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id interfaces.ID) error {
	return c.do(ctx, http.MethodDelete, "/api/documents/"+id.String(), nil, nil)
}

// GetRecord fetches the wire form of a sealed record. Use record.FromDto to verify it.
func (c *Client) GetRecord(ctx context.Context, id interfaces.ID) (*record.QuorumDataRecordDto, error) {
	var dto record.QuorumDataRecordDto
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+id.String()+"/record", nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

func (c *Client) GetEncryptedShare(ctx context.Context, documentID, memberID interfaces.ID) ([]byte, error) {
	var resp api.EncryptedShareResponse
	path := "/api/documents/" + documentID.String() + "/shares/" + memberID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.EncryptedShare, nil
}

// DecryptShare fetches member's encrypted share and decrypts it locally. The private
// key never leaves the caller.
func (c *Client) DecryptShare(ctx context.Context, documentID interfaces.ID, member interfaces.Member) (string, error) {
	if !member.HasPrivateKey() {
		return "", interfaces.NewError(interfaces.KindMissingPrivateKeys, "member %s", member.ID())
	}

	ciphertext, err := c.GetEncryptedShare(ctx, documentID, member.ID())
	if err != nil {
		return "", err
	}

	share, err := member.DecryptShare(ciphertext)
	if err != nil {
		return "", interfaces.WrapError(interfaces.KindFailedToSeal, err).With("member_id", member.ID().String())
	}
	return string(share), nil
}

func (c *Client) CanUnlock(ctx context.Context, documentID interfaces.ID, memberIDs []interfaces.ID) (*quorum.CanUnlockResult, error) {
	var result quorum.CanUnlockResult
	path := "/api/documents/" + documentID.String() + "/can-unlock"
	if err := c.do(ctx, http.MethodPost, path, api.CanUnlockRequest{MemberIDs: memberIDs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Unseal submits plaintext shares and returns the document JSON.
func (c *Client) Unseal(ctx context.Context, documentID interfaces.ID, shares []string) (json.RawMessage, error) {
	var resp api.UnsealResponse
	path := "/api/documents/" + documentID.String() + "/unseal"
	if err := c.do(ctx, http.MethodPost, path, api.UnsealRequest{Shares: shares}, &resp); err != nil {
		return nil, err
	}
	return resp.Document, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Client == nil {
		c.Client = http.DefaultClient
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("could not request vault: %w", err)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read vault response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respErr := &ResponseError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			respErr.Message = errResp.Error
			respErr.Kind = errResp.Kind
		}
		return respErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not parse vault response: %w", err)
	}
	return nil
}
