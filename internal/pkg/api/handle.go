package api

import (
	"github.com/rumsystem/mstnode/internal/pkg/handlers"
	"github.com/rumsystem/mstnode/pkg/codec"
	"github.com/rumsystem/mstnode/pkg/data"
)

// BatchProcessor is the part of the mst processor the api uses
type BatchProcessor interface {
	Propose(batch *data.Batch) error
	PendingBatches() []*data.Batch
}

type Handler struct {
	Processor BatchProcessor
	Index     handlers.TxIndexReader
	Factory   *codec.SignatureFactory
	GitCommit string
}
