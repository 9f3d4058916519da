package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/ruteri/quorum-vault/interfaces"
)

// StoreFactory creates stores from URI strings and manages multi-store configurations
// for redundant storage.
type StoreFactory struct {
	log *slog.Logger
}

var _ interfaces.StoreFactory = (*StoreFactory)(nil)

// NewStoreFactory creates a new factory instance.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreFactory{log: logger}
}

// StoreFor creates a store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory:// - Process memory, lost on restart
//   - file:// - Local filesystem storage
//   - badger:// - Embedded BadgerDB
//   - vault:// - HashiCorp Vault KV v2
//   - s3:// - Amazon S3 or compatible object storage
//
// Returns an error wrapping ErrInvalidLocationURI if the URI is invalid or the scheme is unsupported.
func (sf *StoreFactory) StoreFor(location interfaces.StoreLocation) (interfaces.KVStore, error) {
	u, err := url.Parse(string(location))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return sf.createFileStore(u)
	case "badger":
		return sf.createBadgerStore(u)
	case "vault":
		return sf.createVaultStore(u)
	case "s3":
		return sf.createS3Store(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiStore creates a store mirroring writes over every location.
// Locations that fail to initialize are skipped. A single valid location is returned as is.
func (sf *StoreFactory) CreateMultiStore(locations []interfaces.StoreLocation) (interfaces.KVStore, error) {
	stores := make([]interfaces.KVStore, 0, len(locations))

	for _, location := range locations {
		store, err := sf.StoreFor(location)
		if err != nil {
			sf.log.Warn("Failed to create store",
				"err", err,
				slog.String("locationURI", string(location)))
			continue
		}
		stores = append(stores, store)
	}

	switch len(stores) {
	case 0:
		return nil, fmt.Errorf("no valid stores created")
	case 1:
		return stores[0], nil
	default:
		return NewMultiStore(stores, sf.log), nil
	}
}

// createFileStore handles file:///absolute/path/ and file://./relative/path/.
func (sf *StoreFactory) createFileStore(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating file store", slog.String("uri", u.String()))

	path := uriPath(u)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewFileStore(path, sf.log)
}

// createBadgerStore handles badger:///path/to/db?sync=true and badger://?memory=true.
func (sf *StoreFactory) createBadgerStore(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating badger store", slog.String("uri", u.String()))

	query := u.Query()
	config := BadgerConfig{DBPath: uriPath(u)}

	if inMemory, _ := strconv.ParseBool(query.Get("memory")); inMemory {
		config.DBPath = ""
	} else if config.DBPath == "" {
		return nil, fmt.Errorf("%w: empty path in badger URI: %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	if sync := query.Get("sync"); sync != "" {
		syncWrites, err := strconv.ParseBool(sync)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sync parameter: %v", interfaces.ErrInvalidLocationURI, err)
		}
		config.SyncWrites = syncWrites
	}

	return NewBadgerStore(config, sf.log)
}

// createVaultStore handles vault://host:port/mount/path?token=...&tls=false.
// The first path component is the KV v2 mount, the rest is the data path.
func (sf *StoreFactory) createVaultStore(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating Vault store", slog.String("host", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing Vault host", interfaces.ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	mountPath := parts[0]
	if mountPath == "" {
		mountPath = "secret"
	}
	dataPath := ""
	if len(parts) == 2 {
		dataPath = parts[1]
	}

	query := u.Query()
	scheme := "https"
	if useTLS := query.Get("tls"); useTLS != "" {
		if enabled, err := strconv.ParseBool(useTLS); err == nil && !enabled {
			scheme = "http"
		}
	}

	return NewVaultStore(fmt.Sprintf("%s://%s", scheme, u.Host), mountPath, dataPath, query.Get("token"), sf.log)
}

// createS3Store handles s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com.
// Without embedded credentials the default AWS credential chain is used.
func (sf *StoreFactory) createS3Store(u *url.URL) (interfaces.KVStore, error) {
	sf.log.Debug("Creating S3 store", slog.String("bucket", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}

	query := u.Query()
	config := S3Config{
		Bucket:   u.Host,
		Prefix:   strings.TrimPrefix(u.Path, "/"),
		Region:   query.Get("region"),
		Endpoint: query.Get("endpoint"),
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	if u.User != nil {
		config.AccessKey = u.User.Username()
		config.SecretKey, _ = u.User.Password()
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Store(config, sf.log)
}

// uriPath joins host and path so file://./relative and file:///absolute both work.
func uriPath(u *url.URL) string {
	if u.Host == "" {
		return u.Path
	}
	return u.Host + "/" + strings.TrimPrefix(u.Path, "/")
}
