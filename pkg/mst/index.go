package mst

import (
	"github.com/google/btree"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/pkg/data"
)

const defaultTreeDegree = 16

type indexEntry struct {
	timestamp int64
	batch     *data.Batch
}

// entries with the same timestamp are ordered by batch id so that every
// batch has its own key in the tree
func (e *indexEntry) Less(other *indexEntry) bool {
	if e.timestamp != other.timestamp {
		return e.timestamp < other.timestamp
	}
	return e.batch.ID() < other.batch.ID()
}

// batchIndex keeps two views of the same entries: ordered by oldest
// transaction timestamp, and keyed by batch identity. Both views are only
// changed together by insert and remove.
type batchIndex struct {
	byTime *btree.BTreeG[*indexEntry]
	byID   map[string]*indexEntry
	log    logging.StandardLogger
}

func newBatchIndex(log logging.StandardLogger) *batchIndex {
	return &batchIndex{
		byTime: btree.NewG(defaultTreeDegree, (*indexEntry).Less),
		byID:   make(map[string]*indexEntry),
		log:    log,
	}
}

// insert adds batch unless a batch with the same identity is present
func (idx *batchIndex) insert(batch *data.Batch) bool {
	if _, ok := idx.byID[batch.ID()]; ok {
		return false
	}
	ts, ok := oldestTimestamp(batch)
	if !ok {
		idx.log.Errorf("batch <%s> has no transactions, indexed at timestamp 0", batch.ID())
	}
	entry := &indexEntry{timestamp: ts, batch: batch}
	idx.byTime.ReplaceOrInsert(entry)
	idx.byID[batch.ID()] = entry
	return true
}

// find returns the resident batch with the identity of batch
func (idx *batchIndex) find(batch *data.Batch) (*data.Batch, bool) {
	entry, ok := idx.byID[batch.ID()]
	if !ok {
		return nil, false
	}
	return entry.batch, true
}

func (idx *batchIndex) remove(batch *data.Batch) bool {
	entry, ok := idx.byID[batch.ID()]
	if !ok {
		return false
	}
	idx.byTime.Delete(entry)
	delete(idx.byID, batch.ID())
	return true
}

func (idx *batchIndex) len() int {
	return len(idx.byID)
}

// ascend walks batches oldest first until fn returns false. fn must not
// modify the index.
func (idx *batchIndex) ascend(fn func(batch *data.Batch) bool) {
	idx.byTime.Ascend(func(entry *indexEntry) bool {
		return fn(entry.batch)
	})
}

// removeOldestWhile pops the oldest entries while pred holds and returns
// them oldest first
func (idx *batchIndex) removeOldestWhile(pred func(batch *data.Batch) bool) []*data.Batch {
	var removed []*data.Batch
	for {
		entry, ok := idx.byTime.Min()
		if !ok || !pred(entry.batch) {
			return removed
		}
		idx.byTime.DeleteMin()
		delete(idx.byID, entry.batch.ID())
		removed = append(removed, entry.batch)
	}
}
