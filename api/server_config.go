package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
)

// DefaultMaxBodySize bounds member and document request bodies (1MB).
const DefaultMaxBodySize int64 = 1024 * 1024

// HTTPServerConfig configures a quorumd instance.
type HTTPServerConfig struct {
	// ListenAddr is the address of the vault API.
	ListenAddr string

	// MetricsAddr is the address of the Prometheus endpoint. Empty disables it.
	MetricsAddr string

	// EnablePprof mounts /debug on the API router.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain waits after readiness starts failing.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds in-flight seal and unseal requests on shutdown.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxBodySize bounds JSON request bodies. Zero means DefaultMaxBodySize.
	MaxBodySize int64

	Vault VaultConfig
}

// VaultConfig selects where the registry lives and how documents are sealed.
type VaultConfig struct {
	// StorageLocations are mirrored store URIs (memory://, file://, badger://, vault://, s3://).
	StorageLocations []interfaces.StoreLocation

	// Cipher names the document cipher, see cryptoutils.CipherByName.
	Cipher string

	// AgentKeyFile holds the key that signs sealed records. It is generated when missing.
	AgentKeyFile string

	// TrustedCreatorKeyFiles are public key files of earlier agents whose records stay readable.
	TrustedCreatorKeyFiles []string
}

// BodyLimit returns the effective request body limit.
func (c *HTTPServerConfig) BodyLimit() int64 {
	if c.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// Validate checks the settings quorumd cannot default.
func (c *HTTPServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size %d is negative", c.MaxBodySize)
	}
	return c.Vault.Validate()
}

// Validate checks that storage, cipher and agent key are configured.
func (c *VaultConfig) Validate() error {
	if len(c.StorageLocations) == 0 {
		return errors.New("at least one storage location is required")
	}
	if _, err := cryptoutils.CipherByName(c.Cipher); err != nil {
		return err
	}
	if c.AgentKeyFile == "" {
		return errors.New("agent key file is required")
	}
	return nil
}
