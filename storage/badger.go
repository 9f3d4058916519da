package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/ruteri/quorum-vault/interfaces"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// DBPath is the database directory. Empty opens an in-memory database.
	DBPath string
	// EncryptionKey enables badger's encryption at rest. Must be 16, 24 or 32 bytes.
	EncryptionKey []byte
	// SyncWrites makes every write durable before Put returns.
	SyncWrites bool
}

// BadgerStore is a key-value store backed by BadgerDB.
type BadgerStore struct {
	db          *badger.DB
	log         *slog.Logger
	locationURI string
}

// NewBadgerStore opens the database described by config.
func NewBadgerStore(config BadgerConfig, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(config.DBPath).
		WithCompression(options.ZSTD).
		WithIndexCacheSize(16 << 20).
		WithBlockCacheSize(32 << 20).
		WithSyncWrites(config.SyncWrites).
		WithVerifyValueChecksum(true).
		WithLogger(&badgerLogger{log: log}).
		WithLoggingLevel(badger.WARNING)

	if config.DBPath == "" {
		opts = opts.WithInMemory(true)
	}
	if len(config.EncryptionKey) > 0 {
		opts = opts.WithEncryptionKey(config.EncryptionKey)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	log.Info("Opened badger database", slog.String("path", config.DBPath))

	uri := "badger://" + config.DBPath
	if config.DBPath == "" {
		uri = "badger://?memory=true"
	}
	return &BadgerStore{db: db, log: log, locationURI: uri}, nil
}

// Get retrieves the value for key from BadgerDB.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, interfaces.ErrKeyNotFound
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from badger: %w", err)
	}

	return result, nil
}

// Put stores a key-value pair in BadgerDB.
func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to write to badger: %w", err)
	}

	s.log.Debug("Stored value in badger",
		slog.String("key", key),
		slog.Int("size", len(value)))

	return nil
}

func (s *BadgerStore) Available(ctx context.Context) bool {
	return !s.db.IsClosed()
}

func (s *BadgerStore) Name() string {
	return "badger"
}

func (s *BadgerStore) LocationURI() string {
	return s.locationURI
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
