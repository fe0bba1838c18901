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
	"fmt"
)

// CommitSequenceError reports stores that disagree on the last commit, which
// happens when a crash lands between the blob and metadata commits
type CommitSequenceError struct {
	MetadataSequence uint64
	BlobSequence     uint64
}

func (e CommitSequenceError) Error() string {
	return fmt.Sprintf(
		"commit sequence mismatch: %d (metadata) != %d (blob)",
		e.MetadataSequence,
		e.BlobSequence,
	)
}

func (d *Database) checkCommitSequence() error {
	metadataSeq, err := d.Metadata().GetCommitSequence()
	if err != nil {
		return fmt.Errorf("failed to get metadata commit sequence: %w", err)
	}
	blobSeq, err := d.Blob().GetCommitSequence(nil)
	if err != nil {
		return fmt.Errorf("failed to get blob commit sequence: %w", err)
	}
	if metadataSeq != blobSeq {
		return CommitSequenceError{
			MetadataSequence: metadataSeq,
			BlobSequence:     blobSeq,
		}
	}
	return nil
}

// advanceCommitSequence writes the next sequence number to both stores
// within txn
func (d *Database) advanceCommitSequence(txn *Txn) (uint64, error) {
	cur, err := d.Blob().GetCommitSequence(txn.Blob())
	if err != nil {
		return 0, err
	}
	next := cur + 1
	if err := d.Metadata().SetCommitSequence(next, txn.Metadata()); err != nil {
		return 0, err
	}
	if err := d.Blob().SetCommitSequence(next, txn.Blob()); err != nil {
		return 0, err
	}
	return next, nil
}
