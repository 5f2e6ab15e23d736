// Package badger is a durable, disk-backed noncestore.Store built on
// BadgerDB. Suited to single-node deployments that must survive
// restarts.
package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	keyPrefixNonce       = "nonce:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval      = 10 * time.Minute
	gcDiscardRatio  = 0.5
	consumeRetries  = 3
)

// BadgerStore is a Badger-backed consume-once nonce registry. Atomicity
// of Consume comes from Badger's serializable transactions: concurrent
// first uses of the same pair conflict at commit and lose.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerStore opens (or creates) a Badger database at dataPath with
// SyncWrites enabled, and starts a background value-log GC goroutine.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve absolute path")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.SyncWrites = true
	opts.Logger = &badgerLoggerAdapter{logger: logger}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger database at %s", absPath)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	gcCtx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(gcCtx)

	return bs, nil
}

// Consume atomically records the pair, reporting whether this was the
// first use. Commit conflicts from concurrent consumers are retried;
// the loser of a genuine race observes the winner's write and reports a
// replay.
func (b *BadgerStore) Consume(_ context.Context, endorser common.Address, nonce [32]byte) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	key := nonceKey(endorser, nonce)

	var lastErr error
	for attempt := 0; attempt < consumeRetries; attempt++ {
		first := false
		err := b.db.Update(func(txn *badgerdb.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return nil // already consumed
			}
			if err != badgerdb.ErrKeyNotFound {
				return err
			}
			first = true
			return txn.Set(key, []byte{1})
		})
		if err == badgerdb.ErrConflict {
			lastErr = err
			continue
		}
		if err != nil {
			return false, errors.Wrap(err, "failed to consume nonce")
		}
		return first, nil
	}

	return false, errors.Wrap(lastErr, "nonce consume kept conflicting")
}

// Seen reports whether the pair has been consumed.
func (b *BadgerStore) Seen(_ context.Context, endorser common.Address, nonce [32]byte) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	seen := false
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(nonceKey(endorser, nonce))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to read nonce")
	}
	return seen, nil
}

// HealthCheck verifies the database accepts reads.
func (b *BadgerStore) HealthCheck(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("nonce store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Close stops the GC goroutine and closes the database.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close badger database")
	}
	return nil
}

// initSchema writes the schema version marker on first open.
func (b *BadgerStore) initSchema() error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize schema version")
	}
	return nil
}

// runGC runs Badger value-log garbage collection until ctx is cancelled.
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			if err := b.db.RunValueLogGC(gcDiscardRatio); err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Warn("badger value log GC failed", zap.Error(err))
			}
		}
	}
}

// nonceKey builds the storage key for an (endorser, nonce) pair.
func nonceKey(endorser common.Address, nonce [32]byte) []byte {
	key := make([]byte, 0, len(keyPrefixNonce)+common.AddressLength+32)
	key = append(key, keyPrefixNonce...)
	key = append(key, endorser.Bytes()...)
	key = append(key, nonce[:]...)
	return key
}
