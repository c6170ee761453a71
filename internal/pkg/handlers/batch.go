package handlers

import (
	"encoding/hex"
	"fmt"

	"github.com/go-playground/validator/v10"
	msterrors "github.com/rumsystem/mstnode/internal/pkg/errors"
	"github.com/rumsystem/mstnode/pkg/codec"
	"github.com/rumsystem/mstnode/pkg/data"
)

type SignatureParam struct {
	PublicKey string `json:"public_key" validate:"required,hexadecimal"`
	Signature string `json:"signature" validate:"required,hexadecimal"`
}

type TrxParam struct {
	CreatorAccountId string           `json:"creator_account_id" validate:"required"`
	CreatedTime      int64            `json:"created_time" validate:"required,gt=0"`
	Quorum           uint32           `json:"quorum" validate:"required,min=1"`
	Commands         []data.Command   `json:"commands"`
	Signatures       []SignatureParam `json:"signatures" validate:"dive"`
}

type PostBatchParam struct {
	Transactions []TrxParam `json:"transactions" validate:"required,min=1,dive"`
}

type SignatureResult struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type TrxResult struct {
	Hash             string            `json:"hash"`
	CreatorAccountId string            `json:"creator_account_id"`
	CreatedTime      int64             `json:"created_time"`
	Quorum           int               `json:"quorum"`
	Commands         []data.Command    `json:"commands"`
	Signatures       []SignatureResult `json:"signatures"`
}

type BatchResult struct {
	BatchId      string      `json:"batch_id"`
	Transactions []TrxResult `json:"transactions"`
}

type BatchListResult struct {
	Batches []BatchResult `json:"batches"`
}

// BuildBatch creates a batch from params. Every signature is checked by
// factory for its shape, the processor verifies it against the hash.
func BuildBatch(params *PostBatchParam, factory *codec.SignatureFactory) (*data.Batch, error) {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %s", msterrors.ErrInvalidBatch, err)
	}

	trxs := make([]*data.Transaction, 0, len(params.Transactions))
	for i, tp := range params.Transactions {
		trx, err := data.NewTransaction(tp.CreatorAccountId, tp.CreatedTime, tp.Quorum, tp.Commands...)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %s", msterrors.ErrInvalidBatch, i, err)
		}
		for _, sp := range tp.Signatures {
			pubkey, err := hex.DecodeString(sp.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", msterrors.ErrInvalidBatchSig, err)
			}
			signed, err := hex.DecodeString(sp.Signature)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", msterrors.ErrInvalidBatchSig, err)
			}
			sig, err := factory.CreateSignature(pubkey, signed)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", msterrors.ErrInvalidBatchSig, err)
			}
			trx.AddSignature(sig.SignedData, sig.PublicKey)
		}
		trxs = append(trxs, trx)
	}
	batch, err := data.NewBatch(trxs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", msterrors.ErrInvalidBatch, err)
	}
	return batch, nil
}

func ToBatchResult(batch *data.Batch) BatchResult {
	result := BatchResult{BatchId: batch.ID()}
	for _, trx := range batch.Transactions() {
		tr := TrxResult{
			Hash:             trx.HexHash(),
			CreatorAccountId: trx.CreatorAccountId(),
			CreatedTime:      trx.CreatedTime(),
			Quorum:           trx.Quorum(),
			Commands:         trx.Commands(),
			Signatures:       []SignatureResult{},
		}
		for _, sig := range trx.Signatures() {
			tr.Signatures = append(tr.Signatures, SignatureResult{
				PublicKey: hex.EncodeToString(sig.PublicKey),
				Signature: hex.EncodeToString(sig.SignedData),
			})
		}
		result.Transactions = append(result.Transactions, tr)
	}
	return result
}

func GetPendingBatches(pending []*data.Batch) *BatchListResult {
	result := &BatchListResult{Batches: []BatchResult{}}
	for _, batch := range pending {
		result.Batches = append(result.Batches, ToBatchResult(batch))
	}
	return result
}

// GetPendingBatch finds the pending batch with identity batchId
func GetPendingBatch(batchId string, pending []*data.Batch) (*BatchResult, error) {
	if batchId == "" {
		return nil, msterrors.ErrEmptyBatchID
	}
	if _, err := hex.DecodeString(batchId); err != nil {
		return nil, fmt.Errorf("%w: %s", msterrors.ErrInvalidBatch, err)
	}
	for _, batch := range pending {
		if batch.ID() == batchId {
			result := ToBatchResult(batch)
			return &result, nil
		}
	}
	return nil, msterrors.ErrBatchNotFound
}
