// Package quorum provides the registry of members and sealed documents around the
// sealing protocol.
//
// QuorumService persists members and documents in an interfaces.KVStore. The store has no
// iteration, so the service keeps two index keys next to the tables:
//
//	members/<hex id>     QuorumMember JSON
//	documents/<hex id>   stored record JSON
//	index/members        every member id, in insertion order
//	index/documents      ids of documents that have not been deleted
//
// Tables never shrink. Removing a member only marks it inactive, and deleting a document
// only drops it from the document index, so a document sealed for a member stays
// unsealable by that member after either operation.
//
// Quorum is the in-memory variant holding member capabilities directly.
package quorum
