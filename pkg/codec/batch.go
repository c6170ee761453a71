package codec

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/go-playground/validator/v10"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/pkg/data"
	"github.com/rumsystem/mstnode/pkg/mst"
)

var codec_log = logging.Logger("codec")

var (
	ErrInvalidBatch  = errors.New("invalid batch")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrDecode        = errors.New("decode failed")
)

const DefaultMaxBatchSize = 100

type wireSignature struct {
	PublicKey  []byte
	SignedData []byte
}

type wireTransaction struct {
	CreatorAccountId string `validate:"required"`
	Commands         []data.Command
	CreatedTime      uint64
	Quorum           uint64 `validate:"min=1"`
	Signatures       []wireSignature
}

type wireBatch struct {
	Transactions []wireTransaction `validate:"min=1,dive"`
}

type wireState struct {
	Batches []wireBatch
}

// BatchConverter encodes batches and mst states for gossip
type BatchConverter struct {
	factory      *SignatureFactory
	validate     *validator.Validate
	maxBatchSize int
}

func NewBatchConverter(factory *SignatureFactory, maxBatchSize int) *BatchConverter {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &BatchConverter{
		factory:      factory,
		validate:     validator.New(),
		maxBatchSize: maxBatchSize,
	}
}

func (c *BatchConverter) SerializeBatch(batch *data.Batch) ([]byte, error) {
	return rlp.EncodeToBytes(toWireBatch(batch))
}

func (c *BatchConverter) DeserializeBatch(b []byte) (*data.Batch, error) {
	var wb wireBatch
	if err := rlp.DecodeBytes(b, &wb); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return c.fromWireBatch(&wb)
}

// SerializeState encodes every batch of s, oldest first
func (c *BatchConverter) SerializeState(s *mst.MstState) ([]byte, error) {
	ws := wireState{}
	for _, batch := range s.Batches() {
		ws.Batches = append(ws.Batches, toWireBatch(batch))
	}
	return rlp.EncodeToBytes(&ws)
}

// DeserializeState rebuilds a state, one invalid batch rejects the whole
// state
func (c *BatchConverter) DeserializeState(b []byte, log logging.StandardLogger, completer mst.Completer) (*mst.MstState, error) {
	var ws wireState
	if err := rlp.DecodeBytes(b, &ws); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	state := mst.Empty(log, completer)
	for i := range ws.Batches {
		batch, err := c.fromWireBatch(&ws.Batches[i])
		if err != nil {
			return nil, err
		}
		state.Insert(batch)
	}
	return state, nil
}

func toWireBatch(batch *data.Batch) wireBatch {
	wb := wireBatch{}
	for _, trx := range batch.Transactions() {
		wt := wireTransaction{
			CreatorAccountId: trx.CreatorAccountId(),
			Commands:         trx.Commands(),
			CreatedTime:      uint64(trx.CreatedTime()),
			Quorum:           uint64(trx.Quorum()),
		}
		for _, sig := range trx.Signatures() {
			wt.Signatures = append(wt.Signatures, wireSignature{PublicKey: sig.PublicKey, SignedData: sig.SignedData})
		}
		wb.Transactions = append(wb.Transactions, wt)
	}
	return wb
}

func (c *BatchConverter) fromWireBatch(wb *wireBatch) (*data.Batch, error) {
	if len(wb.Transactions) > c.maxBatchSize {
		return nil, fmt.Errorf("%w: %d transactions, max %d", ErrBatchTooLarge, len(wb.Transactions), c.maxBatchSize)
	}
	if err := c.validate.Struct(wb); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBatch, err)
	}

	trxs := make([]*data.Transaction, 0, len(wb.Transactions))
	for _, wt := range wb.Transactions {
		if wt.Quorum > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: quorum %d out of range", ErrInvalidBatch, wt.Quorum)
		}
		trx, err := data.NewTransaction(wt.CreatorAccountId, int64(wt.CreatedTime), uint32(wt.Quorum), wt.Commands...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidBatch, err)
		}
		for _, ws := range wt.Signatures {
			sig, err := c.factory.CreateSignature(ws.PublicKey, ws.SignedData)
			if err != nil {
				codec_log.Warnf("cannot build signature of trx %s: %s", trx.HexHash(), err)
				return nil, err
			}
			trx.AddSignature(sig.SignedData, sig.PublicKey)
		}
		trxs = append(trxs, trx)
	}
	return data.NewBatch(trxs...)
}
