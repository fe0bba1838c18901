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

package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/causeway/database/types"
)

// Txn spans one blob transaction and one metadata transaction so that a
// ledger operation touching balances and relational records lands in both
// stores or in neither
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	onCommit    []func()
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:          db,
		readWrite:   readWrite,
		blobTxn:     db.Blob().NewTransaction(readWrite),
		metadataTxn: db.Metadata().Transaction(),
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// OnCommit registers fn to run after the transaction commits. Hooks are
// dropped on rollback, so events published through them never describe
// state that was discarded
func (t *Txn) OnCommit(fn func()) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

// Do runs fn and commits, or rolls back if fn fails
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w: original error: %w", rbErr, err)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit writes the next commit sequence to both stores, commits the blob
// store and then the metadata store, and runs the OnCommit hooks
func (t *Txn) Commit() error {
	t.lock.Lock()
	hooks, err := t.commit()
	t.lock.Unlock()
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook()
	}
	return nil
}

func (t *Txn) commit() ([]func(), error) {
	if t.finished {
		return nil, nil
	}
	if !t.readWrite {
		return nil, t.rollback()
	}
	if t.blobTxn == nil || t.metadataTxn == nil {
		t.finish()
		return nil, types.ErrNoStoreAvailable
	}
	seq, err := t.db.advanceCommitSequence(t)
	if err != nil {
		_ = t.rollback()
		return nil, fmt.Errorf("failed to advance commit sequence: %w", err)
	}
	// A failed blob commit leaves both stores at the previous sequence
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.finish()
		return nil, fmt.Errorf("blob commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		// The sequence mismatch is reported the next time the database opens
		t.db.logger.Error(
			"partial commit: blob committed, metadata failed",
			"component", "database",
			"sequence", seq,
			"error", err,
		)
		_ = t.metadataTxn.Rollback()
		t.finish()
		return nil, fmt.Errorf("partial commit at sequence %d: %w", seq, err)
	}
	hooks := t.onCommit
	t.finish()
	return hooks, nil
}

func (t *Txn) finish() {
	t.finished = true
	t.onCommit = nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	var errs []error
	if t.blobTxn != nil {
		if err := t.blobTxn.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("blob rollback: %w", err))
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
		}
	}
	t.finish()
	return errors.Join(errs...)
}

// Release rolls back an unfinished transaction and logs any failure, for use
// in defer statements
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
