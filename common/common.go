// Package common holds build information and process-wide helpers shared by the binaries.
package common

var (
	// Version is set at build time with -ldflags "-X github.com/ruteri/quorum-vault/common.Version=..."
	Version = "dev"

	// PackageName names the service in logs and metrics.
	PackageName = "quorum-vault"
)
