/*
Package api provides the HTTP surface of the quorum vault.

This package is organized into two subpackages:

1. vaulthandler - Request processing for members and sealed documents, plus the Go client
2. servers - HTTP server configuration and lifecycle management

The package itself holds the server configuration and the request and response
types shared by the handler and the client.

# Security Model

The server holds a single agent key used to sign the records it seals. It never
receives member private keys: a member fetches its encrypted share, decrypts it
locally, and submits only the plaintext share when a document is unsealed.

# API Structure

Members:

	POST   /api/members                                  register a member
	GET    /api/members                                  list active members
	GET    /api/members/{member_id}                      describe a member
	DELETE /api/members/{member_id}                      deactivate a member

Documents:

	POST   /api/documents                                seal a document
	GET    /api/documents[?member=<id>]                  list documents
	GET    /api/documents/{document_id}                  describe a document
	DELETE /api/documents/{document_id}                  remove a document from listings
	GET    /api/documents/{document_id}/record           full sealed record
	GET    /api/documents/{document_id}/shares/{member_id} encrypted share of a member
	POST   /api/documents/{document_id}/can-unlock       check a set of members
	POST   /api/documents/{document_id}/unseal           unseal with plaintext shares
*/
package api
