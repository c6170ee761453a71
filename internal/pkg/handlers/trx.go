package handlers

import (
	"bytes"
	"encoding/hex"

	msterrors "github.com/rumsystem/mstnode/internal/pkg/errors"
	"github.com/rumsystem/mstnode/internal/pkg/storage"
	"github.com/rumsystem/mstnode/pkg/data"
)

const (
	TrxStatusCommitted = "COMMITTED"
	TrxStatusRejected  = "REJECTED"
	TrxStatusPending   = "PENDING"
)

// TxIndexReader reads flushed transaction indices
type TxIndexReader interface {
	TxPosition(hash []byte) (storage.TxPosition, bool, error)
	IsCommitted(hash []byte) (bool, error)
	IsRejected(hash []byte) (bool, error)
}

type TrxStatusResult struct {
	Hash       string `json:"hash"`
	Status     string `json:"status"`
	Height     uint64 `json:"height,omitempty"`
	Index      uint64 `json:"index"`
	Signatures int    `json:"signatures,omitempty"`
}

// GetTrxStatus looks the transaction up in the index first, then among the
// pending batches
func GetTrxStatus(hexhash string, index TxIndexReader, pending []*data.Batch) (*TrxStatusResult, error) {
	if hexhash == "" {
		return nil, msterrors.ErrEmptyTrxHash
	}
	hash, err := hex.DecodeString(hexhash)
	if err != nil || len(hash) == 0 {
		return nil, msterrors.ErrInvalidTrxHash
	}

	result := &TrxStatusResult{Hash: hexhash}

	committed, err := index.IsCommitted(hash)
	if err != nil {
		return nil, err
	}
	if committed {
		pos, ok, err := index.TxPosition(hash)
		if err != nil {
			return nil, err
		}
		result.Status = TrxStatusCommitted
		if ok {
			result.Height = pos.Height
			result.Index = pos.Index
		}
		return result, nil
	}

	rejected, err := index.IsRejected(hash)
	if err != nil {
		return nil, err
	}
	if rejected {
		result.Status = TrxStatusRejected
		return result, nil
	}

	for _, batch := range pending {
		for _, trx := range batch.Transactions() {
			if bytes.Equal(trx.ReducedHash(), hash) {
				result.Status = TrxStatusPending
				result.Signatures = len(trx.Signatures())
				return result, nil
			}
		}
	}
	return nil, msterrors.ErrTrxHashNotFound
}
