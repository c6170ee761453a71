package storage

import (
	"encoding/hex"
	"errors"
	"sync"

	"github.com/google/orderedcode"
	msterrors "github.com/rumsystem/mstnode/internal/pkg/errors"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
)

var indexer_log = logging.Logger("indexer")

// TxPosition is the place of a transaction in the ledger
type TxPosition struct {
	Height uint64 // height of the block containing the transaction
	Index  uint64 // number of the transaction in the block
}

// Indexer stores transaction indices. Records only become visible to
// readers after Flush succeeds.
type Indexer interface {
	RecordTxPosition(hash []byte, pos TxPosition)
	RecordCommittedHash(hash []byte)
	RecordRejectedHash(hash []byte)
	RecordCreatorTxPosition(creator string, pos TxPosition)
	RecordAccountAssetTxPosition(accountId string, assetId string, pos TxPosition)
	RecordBlockHeight(height uint64)
	Flush() error
}

type BadgerIndexer struct {
	db QuorumStorage

	mu      sync.Mutex
	keys    [][]byte
	values  [][]byte
	lastErr error
	closed  bool
}

func NewBadgerIndexer(db QuorumStorage) *BadgerIndexer {
	return &BadgerIndexer{db: db}
}

// Close drops the pending records. Flush and the readers fail with
// ErrIndexerClosed afterwards, the underlying db is closed by its owner.
func (idx *BadgerIndexer) Close() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if n := len(idx.keys); n > 0 {
		indexer_log.Warnf("indexer closed with %d records not flushed", n)
	}
	idx.keys, idx.values, idx.lastErr = nil, nil, nil
	idx.closed = true
}

func (idx *BadgerIndexer) checkOpen() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return msterrors.ErrIndexerClosed
	}
	return nil
}

func (idx *BadgerIndexer) record(key []byte, val []byte, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return
	}
	if err != nil {
		indexer_log.Errorf("build index key failed: %s", err)
		if idx.lastErr == nil {
			idx.lastErr = err
		}
		return
	}
	idx.keys = append(idx.keys, key)
	idx.values = append(idx.values, val)
}

func (idx *BadgerIndexer) RecordTxPosition(hash []byte, pos TxPosition) {
	key, err := GetTxPositionKey(hex.EncodeToString(hash))
	if err != nil {
		idx.record(nil, nil, err)
		return
	}
	val, err := encodePosition(pos)
	idx.record(key, val, err)
}

func (idx *BadgerIndexer) RecordCommittedHash(hash []byte) {
	key, err := GetCommittedKey(hex.EncodeToString(hash))
	idx.record(key, []byte{1}, err)
}

func (idx *BadgerIndexer) RecordRejectedHash(hash []byte) {
	key, err := GetRejectedKey(hex.EncodeToString(hash))
	idx.record(key, []byte{1}, err)
}

func (idx *BadgerIndexer) RecordCreatorTxPosition(creator string, pos TxPosition) {
	key, err := GetCreatorKey(creator, pos)
	idx.record(key, []byte{}, err)
}

func (idx *BadgerIndexer) RecordAccountAssetTxPosition(accountId string, assetId string, pos TxPosition) {
	key, err := GetAccountAssetKey(accountId, assetId, pos)
	idx.record(key, []byte{}, err)
}

func (idx *BadgerIndexer) RecordBlockHeight(height uint64) {
	key, err := GetHeightKey()
	if err != nil {
		idx.record(nil, nil, err)
		return
	}
	val, err := orderedcode.Append(nil, height)
	idx.record(key, val, err)
}

// Flush writes the pending records in one transaction. The pending
// records are dropped either way, callers record again to retry.
func (idx *BadgerIndexer) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return msterrors.ErrIndexerClosed
	}

	keys, values, lastErr := idx.keys, idx.values, idx.lastErr
	idx.keys, idx.values, idx.lastErr = nil, nil, nil

	if lastErr != nil {
		return lastErr
	}
	if len(keys) == 0 {
		return nil
	}
	if err := idx.db.BatchWrite(keys, values); err != nil {
		indexer_log.Errorf("flush %d index records failed: %s", len(keys), err)
		return err
	}
	indexer_log.Debugf("flushed %d index records", len(keys))
	return nil
}

// TxPosition returns the flushed position of the transaction
func (idx *BadgerIndexer) TxPosition(hash []byte) (TxPosition, bool, error) {
	if err := idx.checkOpen(); err != nil {
		return TxPosition{}, false, err
	}
	key, err := GetTxPositionKey(hex.EncodeToString(hash))
	if err != nil {
		return TxPosition{}, false, err
	}
	val, err := idx.db.Get(key)
	if errors.Is(err, ErrNotFound) {
		return TxPosition{}, false, nil
	}
	if err != nil {
		return TxPosition{}, false, err
	}
	pos, err := decodePosition(val)
	if err != nil {
		return TxPosition{}, false, err
	}
	return pos, true, nil
}

func (idx *BadgerIndexer) IsCommitted(hash []byte) (bool, error) {
	key, err := GetCommittedKey(hex.EncodeToString(hash))
	if err != nil {
		return false, err
	}
	return idx.exists(key)
}

func (idx *BadgerIndexer) IsRejected(hash []byte) (bool, error) {
	key, err := GetRejectedKey(hex.EncodeToString(hash))
	if err != nil {
		return false, err
	}
	return idx.exists(key)
}

// exists relies on orderedcode keys being prefix free
func (idx *BadgerIndexer) exists(key []byte) (bool, error) {
	if err := idx.checkOpen(); err != nil {
		return false, err
	}
	return idx.db.IsExist(key)
}

// LastBlockHeight returns the flushed height of the last block, 0 when no
// block was committed
func (idx *BadgerIndexer) LastBlockHeight() (uint64, error) {
	if err := idx.checkOpen(); err != nil {
		return 0, err
	}
	key, err := GetHeightKey()
	if err != nil {
		return 0, err
	}
	val, err := idx.db.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var height uint64
	if _, err := orderedcode.Parse(string(val), &height); err != nil {
		return 0, err
	}
	return height, nil
}

// CreatorTxPositions returns the positions of the transactions created by
// creator in ledger order
func (idx *BadgerIndexer) CreatorTxPositions(creator string) ([]TxPosition, error) {
	prefix, err := GetCreatorPrefix(creator)
	if err != nil {
		return nil, err
	}
	return idx.positions(prefix)
}

func (idx *BadgerIndexer) AccountAssetTxPositions(accountId string, assetId string) ([]TxPosition, error) {
	prefix, err := GetAccountAssetPrefix(accountId, assetId)
	if err != nil {
		return nil, err
	}
	return idx.positions(prefix)
}

func (idx *BadgerIndexer) positions(prefix []byte) ([]TxPosition, error) {
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}
	var result []TxPosition
	err := idx.db.PrefixForeach(prefix, func(k []byte, v []byte, err error) error {
		if err != nil {
			return err
		}
		pos, err := positionSuffix(k, prefix)
		if err != nil {
			return err
		}
		result = append(result, pos)
		return nil
	})
	return result, err
}
