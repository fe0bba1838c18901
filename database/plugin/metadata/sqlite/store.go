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

package sqlite

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/causeway/database/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	DefaultVacuumInterval = 24 * time.Hour

	metadataFile = "metadata.sqlite"
	// WAL journal, 50MB page cache, enforced foreign keys
	diskPragmas = "_pragma=journal_mode(WAL)&_pragma=cache_size(-50000)&_pragma=foreign_keys(1)"
)

// Store keeps the relational records (causes, custodial wallets and child
// DAO policies) in SQLite
type Store struct {
	db             *gorm.DB
	logger         *slog.Logger
	dataDir        string
	vacuumInterval time.Duration
	done           chan struct{}
	wg             sync.WaitGroup
	closeOnce      sync.Once
}

func New(opts ...OptionFunc) (*Store, error) {
	s := &Store{
		vacuumInterval: DefaultVacuumInterval,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, err := s.dsn()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	s.db = db
	if s.dataDir == "" {
		sqlDb, err := db.DB()
		if err != nil {
			return s, err
		}
		// Shared-cache memory databases lock whole tables
		sqlDb.SetMaxOpenConns(1)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return s, err
	}
	if err := s.migrate(); err != nil {
		return s, err
	}
	if s.dataDir != "" && s.vacuumInterval > 0 {
		s.wg.Add(1)
		go s.vacuumLoop()
	}
	return s, nil
}

func (s *Store) dsn() (string, error) {
	if s.dataDir == "" {
		// Separate in-memory stores in one process never share tables
		return fmt.Sprintf(
			"file:causeway-%s?mode=memory&cache=shared",
			uuid.NewString(),
		), nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return fmt.Sprintf(
		"file:%s?%s",
		filepath.Join(s.dataDir, metadataFile),
		diskPragmas,
	), nil
}

func (s *Store) migrate() error {
	tables := append([]any{&CommitSequence{}}, models.MigrateModels...)
	for _, table := range tables {
		if err := s.db.AutoMigrate(table); err != nil {
			return fmt.Errorf("migrate %T: %w", table, err)
		}
	}
	return nil
}

func (s *Store) vacuumLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.vacuumInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.db.Exec("VACUUM").Error; err != nil {
				s.logger.Error(
					"failed to free unused space in metadata store",
					"component", "database",
					"error", err,
				)
				continue
			}
			s.logger.Debug(
				"vacuumed metadata store",
				"component", "database",
			)
		}
	}
}

// Close stops the vacuum loop and closes the connection
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.db == nil {
			return
		}
		sqlDb, dbErr := s.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDb.Close()
	})
	return err
}

// DB returns the GORM handle
func (s *Store) DB() *gorm.DB {
	return s.db
}
