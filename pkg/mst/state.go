package mst

import (
	"time"

	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/pkg/data"
)

// MstState holds batches waiting for signatures.
//
// MstState is not safe for concurrent use, callers serialize every
// operation. Batches are shared by pointer: a batch inserted into a state
// is the same object later returned in a StateUpdateResult, and merging
// writes the new signatures into that object.
type MstState struct {
	completer Completer
	batches   *batchIndex
	log       logging.StandardLogger
}

// StateUpdateResult is the outcome of one Insert or Merge call. Updated
// holds batches which gained signatures and are still below quorum,
// Completed holds batches which reached quorum during the call. A batch is
// never in both.
type StateUpdateResult struct {
	Updated   *MstState
	Completed *MstState
}

func Empty(log logging.StandardLogger, completer Completer) *MstState {
	return newState(log, completer, nil)
}

func newState(log logging.StandardLogger, completer Completer, batches []*data.Batch) *MstState {
	s := &MstState{
		completer: completer,
		batches:   newBatchIndex(log),
		log:       log,
	}
	for _, batch := range batches {
		s.rawInsert(batch)
	}
	return s
}

func (s *MstState) newUpdateResult() StateUpdateResult {
	return StateUpdateResult{
		Updated:   Empty(s.log, s.completer),
		Completed: Empty(s.log, s.completer),
	}
}

func (s *MstState) Completer() Completer {
	return s.completer
}

// Insert merges one batch into the state
func (s *MstState) Insert(batch *data.Batch) StateUpdateResult {
	result := s.newUpdateResult()
	s.insertOne(&result, batch)
	return result
}

// Merge merges every batch of other into the state, the effects of all
// insertions are collected in one result
func (s *MstState) Merge(other *MstState) StateUpdateResult {
	result := s.newUpdateResult()
	// other may be s itself, so iterate over a snapshot
	for _, batch := range other.Batches() {
		s.insertOne(&result, batch)
	}
	return result
}

// Difference returns the batches of s whose identity is not in other.
// Signature sets are not compared.
func (s *MstState) Difference(other *MstState) *MstState {
	var diff []*data.Batch
	s.batches.ascend(func(batch *data.Batch) bool {
		if !other.Contains(batch) {
			diff = append(diff, batch)
		}
		return true
	})
	return newState(s.log, s.completer, diff)
}

func (s *MstState) IsEmpty() bool {
	return s.batches.len() == 0
}

func (s *MstState) Len() int {
	return s.batches.len()
}

// Contains looks up batch by identity
func (s *MstState) Contains(batch *data.Batch) bool {
	_, ok := s.batches.find(batch)
	return ok
}

// Get returns the resident batch with the identity of batch
func (s *MstState) Get(batch *data.Batch) (*data.Batch, bool) {
	return s.batches.find(batch)
}

// Batches returns every batch once, oldest first
func (s *MstState) Batches() []*data.Batch {
	batches := make([]*data.Batch, 0, s.batches.len())
	s.batches.ascend(func(batch *data.Batch) bool {
		batches = append(batches, batch)
		return true
	})
	return batches
}

// ExtractExpired removes the batches expired at now and returns them
func (s *MstState) ExtractExpired(now time.Time) *MstState {
	out := Empty(s.log, s.completer)
	s.extractExpiredImpl(now, out)
	return out
}

// EraseExpired removes the batches expired at now
func (s *MstState) EraseExpired(now time.Time) {
	s.extractExpiredImpl(now, nil)
}

// batches are scanned oldest first and the scan stops at the first
// batch which is not expired
func (s *MstState) extractExpiredImpl(now time.Time, extracted *MstState) {
	removed := s.batches.removeOldestWhile(func(batch *data.Batch) bool {
		return s.completer.IsExpired(batch, now)
	})
	if extracted == nil {
		return
	}
	for _, batch := range removed {
		extracted.rawInsert(batch)
	}
}

func (s *MstState) insertOne(result *StateUpdateResult, batch *data.Batch) {
	s.log.Debugf("batch: %s", batch)

	found, ok := s.batches.find(batch)
	if !ok {
		s.rawInsert(batch)
		result.Updated.rawInsert(batch)
		return
	}

	insertedNewSignatures := mergeSignaturesInBatch(found, batch)

	// completion is checked with the incoming signatures applied
	if s.completer.IsCompleted(found) {
		s.batches.remove(found)
		result.Completed.rawInsert(found)
		return
	}

	if insertedNewSignatures {
		result.Updated.rawInsert(found)
	}
}

func (s *MstState) rawInsert(batch *data.Batch) {
	s.batches.insert(batch)
}

// mergeSignaturesInBatch copies the signatures of donor into target and
// reports whether at least one of them was new. Both batches have the
// same identity, so their transactions pair up by position.
func mergeSignaturesInBatch(target *data.Batch, donor *data.Batch) bool {
	insertedNewSignatures := false
	donorTrxs := donor.Transactions()
	for i, targetTrx := range target.Transactions() {
		if i >= len(donorTrxs) {
			break
		}
		for _, sig := range donorTrxs[i].Signatures() {
			if targetTrx.AddSignature(sig.SignedData, sig.PublicKey) {
				insertedNewSignatures = true
			}
		}
	}
	return insertedNewSignatures
}
