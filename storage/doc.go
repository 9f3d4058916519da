// Package storage provides key-value stores with pluggable backends.
//
// Every backend implements interfaces.KVStore:
//
//   - MemoryStore for tests and ephemeral deployments
//   - FileStore for local development, one file per key
//   - BadgerStore for an embedded, persistent database
//   - VaultStore for HashiCorp Vault KV v2
//   - S3Store for S3-compatible object storage
//   - MultiStore mirroring writes over several of the above
//
// # Storage URI Format
//
// Backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - memory://
//   - file:///var/lib/quorum/
//   - badger:///var/lib/quorum/db?sync=true
//   - vault://vault.example.com:8200/secret/quorum?token=...&tls=true
//   - s3://ACCESS_KEY:SECRET_KEY@bucket-name/prefix/?region=us-west-2&endpoint=minio:9000
//
// Several URIs are combined with StoreFactory.CreateMultiStore.
//
// # Keys
//
// Keys are slash-separated paths such as "members/<hex id>". Components may contain
// letters, digits, '-', '_' and '.', and may not be "." or "..".
package storage
