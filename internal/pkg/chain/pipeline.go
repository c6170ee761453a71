package chain

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/internal/pkg/metric"
	"github.com/rumsystem/mstnode/internal/pkg/storage"
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
	"github.com/rumsystem/mstnode/pkg/data"
)

var chain_log = logging.Logger("chain")

// Block is the result of one Commit
type Block struct {
	Height       uint64
	Transactions []*data.Transaction
}

// Hash is the hex sha256 of the reduced hashes of the block transactions
func (b *Block) Hash() string {
	var buf []byte
	for _, trx := range b.Transactions {
		buf = append(buf, trx.ReducedHash()...)
	}
	return hex.EncodeToString(localcrypto.Hash(buf))
}

// Pipeline orders completed batches into blocks and records the indices of
// their transactions. Expired batches are recorded as rejected.
type Pipeline struct {
	indexer  storage.Indexer
	onCommit func(block *Block)

	mu       sync.Mutex
	height   uint64
	queued   []*data.Batch
	rejected []*data.Batch
}

// NewPipeline creates a pipeline whose next block has height lastHeight+1
func NewPipeline(indexer storage.Indexer, lastHeight uint64) *Pipeline {
	return &Pipeline{indexer: indexer, height: lastHeight}
}

// SetCommitHandler sets fn to be called with every committed block. Must be
// called before Run.
func (p *Pipeline) SetCommitHandler(fn func(block *Block)) {
	p.onCommit = fn
}

func (p *Pipeline) Enqueue(batch *data.Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	chain_log.Debugf("<pipeline> enqueue batch %s", batch)
	p.queued = append(p.queued, batch)
}

func (p *Pipeline) Reject(batch *data.Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	chain_log.Debugf("<pipeline> reject batch %s", batch)
	p.rejected = append(p.rejected, batch)
}

// Height returns the height of the last committed block
func (p *Pipeline) Height() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// Commit cuts a block from the queued batches. Returns nil when nothing
// was queued. When the flush fails the queue is kept and the height is not
// advanced.
func (p *Pipeline) Commit() (*Block, error) {
	block, err := p.commit()
	if block != nil && p.onCommit != nil {
		p.onCommit(block)
	}
	return block, err
}

func (p *Pipeline) commit() (*Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queued) == 0 && len(p.rejected) == 0 {
		return nil, nil
	}

	var block *Block
	if len(p.queued) > 0 {
		block = &Block{Height: p.height + 1}
		for _, batch := range p.queued {
			for _, trx := range batch.Transactions() {
				pos := storage.TxPosition{Height: block.Height, Index: uint64(len(block.Transactions))}
				p.indexer.RecordTxPosition(trx.ReducedHash(), pos)
				p.indexer.RecordCommittedHash(trx.ReducedHash())
				p.indexer.RecordCreatorTxPosition(trx.CreatorAccountId(), pos)
				for _, cmd := range trx.Commands() {
					if cmd.AccountId != "" && cmd.AssetId != "" {
						p.indexer.RecordAccountAssetTxPosition(cmd.AccountId, cmd.AssetId, pos)
					}
				}
				block.Transactions = append(block.Transactions, trx)
			}
		}
		p.indexer.RecordBlockHeight(block.Height)
	}

	rejectedTrxs := 0
	for _, batch := range p.rejected {
		for _, trx := range batch.Transactions() {
			p.indexer.RecordRejectedHash(trx.ReducedHash())
			rejectedTrxs++
		}
	}

	if err := p.indexer.Flush(); err != nil {
		chain_log.Errorf("<pipeline> flush indices failed: %s", err)
		return nil, err
	}

	p.queued = nil
	p.rejected = nil
	metric.RejectedTrxCount.Add(float64(rejectedTrxs))
	if block == nil {
		return nil, nil
	}

	p.height = block.Height
	metric.CommittedTrxCount.Add(float64(len(block.Transactions)))
	chain_log.Infof("<pipeline> committed block %d with %d trxs", block.Height, len(block.Transactions))
	return block, nil
}

// Run commits on every tick until ctx is done
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Commit(); err != nil {
				chain_log.Warnf("<pipeline> commit failed: %s", err)
			}
		}
	}
}
