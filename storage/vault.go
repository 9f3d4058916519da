package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/quorum-vault/interfaces"
)

// VaultStore implements a key-value store on a HashiCorp Vault KV v2 mount.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault-backed store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "quorum")
//   - token: Vault token; empty uses VAULT_TOKEN from the environment
//   - log: Structured logger for operational insights
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Get reads the value for key. The value is stored base64-encoded under "content".
func (s *VaultStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		s.log.Debug("Key not found in Vault", slog.String("path", path))
		return nil, interfaces.ErrKeyNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// Deleted KV v2 versions come back with data set to null.
		return nil, interfaces.ErrKeyNotFound
	}

	content, ok := data["content"].(string)
	if !ok {
		s.log.Error("Content key not found in Vault data", slog.String("path", path))
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	value, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data: %w", err)
	}

	s.log.Debug("Fetched value from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return value, nil
}

// Put writes value to key as a new KV v2 version.
func (s *VaultStore) Put(ctx context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	start := time.Now()

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(value),
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		s.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored value in Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks that Vault is initialized and unsealed.
func (s *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

// path builds the KV v2 data path for key.
func (s *VaultStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if s.dataPath == "" {
		return fmt.Sprintf("%s/data/%s", s.mountPath, key), nil
	}
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, key), nil
}
