// Package sealing implements the quorum seal and unseal protocol.
//
// Sealing encrypts a JSON-serialized document under a fresh symmetric key, splits the key with
// Shamir's Secret Sharing into one share per member and encrypts every share to its member's
// public key. The result is a record.QuorumDataRecord signed by the sealing agent.
//
// Unsealing decrypts the shares of at least the required number of members, combines them
// and decrypts the document. The secret sharing scheme is always sized from the number of
// shares the record was originally split into, never from the number of shares presented.
//
// Service holds no per-operation state; a secretsharing.Scheme is built for every split and
// combine, so concurrent seals and unseals of differently sized quorums do not interfere.
package sealing
