/*
Package vaulthandler implements the member and document endpoints of the quorum
vault and a Go client for them.

# Sealing

Documents are sealed on behalf of the server's agent member, which signs the
checksum of every record. The request names the recipients by id; only active
registered members can receive new shares.

# Unsealing

Member private keys never reach the server. A member fetches its encrypted share
from /api/documents/{document_id}/shares/{member_id}, decrypts it with its own key
(Client.DecryptShare does both steps), and the caller submits the plaintext shares
to /api/documents/{document_id}/unseal.

# Errors

Failures are returned as a JSON api.ErrorResponse whose kind is the name of the
domain error kind. Client methods return a *ResponseError that matches the
corresponding interfaces sentinel with errors.Is.
*/
package vaulthandler
