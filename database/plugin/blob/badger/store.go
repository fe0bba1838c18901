// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/causeway/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlockCacheSize = 256 << 20
	DefaultIndexCacheSize = 64 << 20
	DefaultGcInterval     = 5 * time.Minute

	// Rewrite a value log file when at least half of it is stale
	gcDiscardRatio = 0.5
)

// Store keeps balances, queues, stakes and counters in badger
type Store struct {
	promRegistry   prometheus.Registerer
	db             *badger.DB
	logger         *slog.Logger
	metrics        *blobMetrics
	gcStop         chan struct{}
	gcWg           sync.WaitGroup
	dataDir        string
	gcInterval     time.Duration
	blockCacheSize uint64
	indexCacheSize uint64
}

func New(opts ...OptionFunc) (*Store, error) {
	s := &Store{
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
		gcInterval:     DefaultGcInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := s.badgerOptions()
	if err != nil {
		return nil, err
	}
	s.db, err = badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	if s.promRegistry != nil {
		s.metrics = &blobMetrics{}
		s.metrics.init(s.promRegistry)
	}
	// Value log GC does not apply in memory
	if s.dataDir != "" && s.gcInterval > 0 {
		s.gcStop = make(chan struct{})
		s.gcWg.Add(1)
		go s.gcLoop()
	}
	return s, nil
}

func (s *Store) badgerOptions() (badger.Options, error) {
	if s.dataDir == "" {
		return badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(s.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true), nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return badger.Options{}, fmt.Errorf("failed to create data dir: %w", err)
	}
	return badger.DefaultOptions(filepath.Join(s.dataDir, "blob")).
		WithLogger(NewBadgerLogger(s.logger)).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(int64(s.blockCacheSize)). //nolint:gosec
		WithIndexCacheSize(int64(s.indexCacheSize)). //nolint:gosec
		WithCompression(options.Snappy), nil
}

func (s *Store) gcLoop() {
	defer s.gcWg.Done()
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runGc()
		case <-s.gcStop:
			return
		}
	}
}

// runGc compacts value log files until badger reports nothing to rewrite
func (s *Store) runGc() {
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn(
					"blob value log GC failed",
					"component", "database",
					"error", err,
				)
			}
			return
		}
		if s.metrics != nil {
			s.metrics.gcRewrites.Inc()
		}
	}
}

func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		s.gcWg.Wait()
		s.gcStop = nil
	}
	return s.db.Close()
}

func (s *Store) NewTransaction(update bool) types.Txn {
	return &storeTxn{store: s, tx: s.db.NewTransaction(update)}
}

func (s *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	t, err := s.txn(txn)
	if err != nil {
		return nil, err
	}
	item, err := t.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.reads.Inc()
	}
	return item.ValueCopy(nil)
}

func (s *Store) Set(txn types.Txn, key, val []byte) error {
	t, err := s.txn(txn)
	if err != nil {
		return err
	}
	if err := t.tx.Set(key, val); err != nil {
		return writeErr(err)
	}
	if s.metrics != nil {
		s.metrics.writes.Inc()
	}
	return nil
}

func (s *Store) Delete(txn types.Txn, key []byte) error {
	t, err := s.txn(txn)
	if err != nil {
		return err
	}
	if err := t.tx.Delete(key); err != nil {
		return writeErr(err)
	}
	if s.metrics != nil {
		s.metrics.deletes.Inc()
	}
	return nil
}

// Scan calls fn with every key and value under prefix in key order. The
// slices passed to fn are only valid until fn returns
func (s *Store) Scan(
	txn types.Txn,
	prefix []byte,
	fn func(key, val []byte) error,
) error {
	t, err := s.txn(txn)
	if err != nil {
		return err
	}
	iter := t.tx.NewIterator(badger.IteratorOptions{
		Prefix:         prefix,
		PrefetchValues: true,
		PrefetchSize:   100,
	})
	defer iter.Close()
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		err := item.Value(func(val []byte) error {
			return fn(item.Key(), val)
		})
		if err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.reads.Inc()
		}
	}
	return nil
}

func writeErr(err error) error {
	if errors.Is(err, badger.ErrReadOnlyTxn) {
		return types.ErrReadOnlyTxn
	}
	return err
}
