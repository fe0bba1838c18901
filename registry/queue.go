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

package registry

import (
	"strconv"

	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
)

// QueueHeader tracks one cause's withdrawal queue. Slots are 1-based and
// never reused; 0 means none
type QueueHeader struct {
	Head     uint64
	Tail     uint64
	NextSlot uint64
	Length   uint64
}

func (h QueueHeader) Empty() bool {
	return h.Head == 0
}

// QueueItem is a node of a cause's withdrawal queue
type QueueItem struct {
	ID          types.Hash
	Next        uint64
	Previous    uint64
	IsUnclaimed bool
}

// QueueEntry is a queue item along with its slot
type QueueEntry struct {
	QueueItem
	Slot uint64
}

// QueueItemID identifies a proposal in a cause's queue
func QueueItemID(causeID uint64, proposalID types.Hash) types.Hash {
	return types.Blake2b256(types.Uint64ToBytes(causeID), proposalID[:])
}

func (r *Registry) QueueHeader(causeID uint64, txn *database.Txn) (QueueHeader, error) {
	var ret QueueHeader
	_, err := r.db.GetRecord(types.QueueHeaderKey(causeID), &ret, txn)
	return ret, err
}

// QueueItem returns the item at slot. Removed or never-allocated slots read
// as the zero item
func (r *Registry) QueueItem(causeID, slot uint64, txn *database.Txn) (QueueItem, error) {
	var ret QueueItem
	_, err := r.db.GetRecord(types.QueueItemKey(causeID, slot), &ret, txn)
	return ret, err
}

// QueueItems walks a cause's queue from head to tail
func (r *Registry) QueueItems(causeID uint64, txn *database.Txn) ([]QueueEntry, error) {
	var ret []QueueEntry
	err := r.db.View(txn, func(txn *database.Txn) error {
		hdr, err := r.QueueHeader(causeID, txn)
		if err != nil {
			return err
		}
		for slot := hdr.Head; slot != 0; {
			item, err := r.QueueItem(causeID, slot, txn)
			if err != nil {
				return err
			}
			ret = append(ret, QueueEntry{QueueItem: item, Slot: slot})
			slot = item.Next
		}
		return nil
	})
	return ret, err
}

// AddToQueue appends a proposal to the cause's queue and returns its slot
func (r *Registry) AddToQueue(
	caller types.Address,
	causeID uint64,
	proposalID types.Hash,
	txn *database.Txn,
) (uint64, error) {
	if proposalID.IsZero() {
		return 0, ErrInvalidProposalID
	}
	var slot uint64
	err := r.db.Update(txn, func(txn *database.Txn) error {
		if _, err := r.authorize(caller, causeID, txn); err != nil {
			return err
		}
		hdr, err := r.QueueHeader(causeID, txn)
		if err != nil {
			return err
		}
		slot = hdr.NextSlot + 1
		item := QueueItem{
			ID:          QueueItemID(causeID, proposalID),
			Previous:    hdr.Tail,
			IsUnclaimed: true,
		}
		if hdr.Tail != 0 {
			tail, err := r.QueueItem(causeID, hdr.Tail, txn)
			if err != nil {
				return err
			}
			tail.Next = slot
			if err := r.db.SetRecord(types.QueueItemKey(causeID, hdr.Tail), &tail, txn); err != nil {
				return err
			}
		} else {
			hdr.Head = slot
		}
		hdr.Tail = slot
		hdr.NextSlot = slot
		hdr.Length++
		if err := r.db.SetRecord(types.QueueItemKey(causeID, slot), &item, txn); err != nil {
			return err
		}
		if err := r.setQueueHeader(causeID, hdr, txn); err != nil {
			return err
		}
		r.committed(txn, "add_to_queue", QueueItemAddedEventType, QueueItemAddedEvent{
			CauseID:    causeID,
			ProposalID: proposalID,
			ID:         item.ID,
			Slot:       slot,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return slot, nil
}

// RemoveFromQueue drops the proposal at slot from anywhere in the queue
func (r *Registry) RemoveFromQueue(
	caller types.Address,
	causeID uint64,
	proposalID types.Hash,
	slot uint64,
	txn *database.Txn,
) error {
	if proposalID.IsZero() {
		return ErrInvalidProposalID
	}
	return r.db.Update(txn, func(txn *database.Txn) error {
		if _, err := r.authorize(caller, causeID, txn); err != nil {
			return err
		}
		id := QueueItemID(causeID, proposalID)
		item, err := r.QueueItem(causeID, slot, txn)
		if err != nil {
			return err
		}
		if !item.IsUnclaimed || item.ID != id {
			return ErrIDMismatch
		}
		if err := r.unlink(causeID, slot, item, txn); err != nil {
			return err
		}
		r.committed(txn, "remove_from_queue", QueueItemRemovedEventType, QueueItemRemovedEvent{
			CauseID:    causeID,
			ProposalID: proposalID,
			ID:         id,
			Slot:       slot,
		})
		return nil
	})
}

// popHead consumes the head of the queue if it matches the proposal and
// returns its slot
func (r *Registry) popHead(
	causeID uint64,
	proposalID types.Hash,
	txn *database.Txn,
) (uint64, error) {
	hdr, err := r.QueueHeader(causeID, txn)
	if err != nil {
		return 0, err
	}
	if hdr.Empty() {
		return 0, ErrNotHeadOfQueue
	}
	item, err := r.QueueItem(causeID, hdr.Head, txn)
	if err != nil {
		return 0, err
	}
	if !item.IsUnclaimed || item.ID != QueueItemID(causeID, proposalID) {
		return 0, ErrNotHeadOfQueue
	}
	if err := r.unlink(causeID, hdr.Head, item, txn); err != nil {
		return 0, err
	}
	return hdr.Head, nil
}

// unlink splices the item at slot out of the queue and clears the slot
func (r *Registry) unlink(
	causeID, slot uint64,
	item QueueItem,
	txn *database.Txn,
) error {
	hdr, err := r.QueueHeader(causeID, txn)
	if err != nil {
		return err
	}
	if item.Previous != 0 {
		prev, err := r.QueueItem(causeID, item.Previous, txn)
		if err != nil {
			return err
		}
		prev.Next = item.Next
		if err := r.db.SetRecord(types.QueueItemKey(causeID, item.Previous), &prev, txn); err != nil {
			return err
		}
	} else {
		hdr.Head = item.Next
	}
	if item.Next != 0 {
		next, err := r.QueueItem(causeID, item.Next, txn)
		if err != nil {
			return err
		}
		next.Previous = item.Previous
		if err := r.db.SetRecord(types.QueueItemKey(causeID, item.Next), &next, txn); err != nil {
			return err
		}
	} else {
		hdr.Tail = item.Previous
	}
	hdr.Length--
	if err := r.db.DeleteRecord(types.QueueItemKey(causeID, slot), txn); err != nil {
		return err
	}
	return r.setQueueHeader(causeID, hdr, txn)
}

func (r *Registry) setQueueHeader(causeID uint64, hdr QueueHeader, txn *database.Txn) error {
	if err := r.db.SetRecord(types.QueueHeaderKey(causeID), &hdr, txn); err != nil {
		return err
	}
	if r.metrics != nil {
		length := float64(hdr.Length)
		label := strconv.FormatUint(causeID, 10)
		txn.OnCommit(func() {
			r.metrics.queueLength.WithLabelValues(label).Set(length)
		})
	}
	return nil
}
