package mstprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/internal/pkg/metric"
	"github.com/rumsystem/mstnode/pkg/data"
	"github.com/rumsystem/mstnode/pkg/mst"
)

var processor_log = logging.Logger("mstprocessor")

const DefaultCompletedCacheSize = 4096

// Transport delivers states to peers
type Transport interface {
	SendState(ctx context.Context, peer string, state *mst.MstState) error
	Peers() []string
}

// Handlers are called without the processor lock held. Every batch passed
// to a handler is a copy owned by the handler.
type Handlers struct {
	OnUpdated   func(batch *data.Batch)
	OnCompleted func(batch *data.Batch)
	OnExpired   func(batch *data.Batch)
}

type Option func(*Processor)

func WithHandlers(h Handlers) Option {
	return func(p *Processor) { p.handlers = h }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func WithCompletedCacheSize(size int) Option {
	return func(p *Processor) { p.completedCacheSize = size }
}

// WithSignatureVerification turns checking of incoming signatures on or off
func WithSignatureVerification(verify bool) Option {
	return func(p *Processor) { p.verify = verify }
}

// Processor owns the local MstState and the view of the state every peer
// is known to have. All methods are safe for concurrent use.
type Processor struct {
	transport Transport
	completer mst.Completer
	handlers  Handlers
	now       func() time.Time
	verify    bool
	stateLog  logging.StandardLogger

	completedCacheSize int

	mu        sync.Mutex
	own       *mst.MstState
	peerViews map[string]*mst.MstState
	completed *lru.Cache // ids of batches handed to OnCompleted
}

func NewProcessor(completer mst.Completer, transport Transport, opts ...Option) (*Processor, error) {
	p := &Processor{
		transport:          transport,
		completer:          completer,
		now:                time.Now,
		verify:             true,
		stateLog:           logging.Logger("mst"),
		completedCacheSize: DefaultCompletedCacheSize,
		peerViews:          make(map[string]*mst.MstState),
	}
	for _, opt := range opts {
		opt(p)
	}

	cache, err := lru.New(p.completedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create completed cache failed: %w", err)
	}
	p.completed = cache
	p.own = mst.Empty(p.stateLog, completer)
	return p, nil
}

// notifications collected under the lock and fired after it is released
type notifications struct {
	updated   []*data.Batch
	completed []*data.Batch
	expired   []*data.Batch
}

func (p *Processor) fire(n notifications) {
	for _, batch := range n.updated {
		if p.handlers.OnUpdated != nil {
			p.handlers.OnUpdated(batch)
		}
	}
	for _, batch := range n.completed {
		if p.handlers.OnCompleted != nil {
			p.handlers.OnCompleted(batch)
		}
	}
	for _, batch := range n.expired {
		if p.handlers.OnExpired != nil {
			p.handlers.OnExpired(batch)
		}
	}
}

func (p *Processor) checkBatch(batch *data.Batch) error {
	if !p.verify {
		return nil
	}
	return batch.VerifySignatures()
}

// Propose adds a batch created or signed on this node. A batch which
// already has enough signatures goes to the completed handler right away.
// The state keeps a copy, batch stays owned by the caller.
func (p *Processor) Propose(batch *data.Batch) error {
	if err := p.checkBatch(batch); err != nil {
		metric.BatchCount.WithLabelValues(metric.BatchActionType.Dropped).Inc()
		return err
	}
	metric.BatchCount.WithLabelValues(metric.BatchActionType.Proposed).Inc()

	var n notifications
	p.mu.Lock()
	if p.completed.Contains(batch.ID()) {
		p.mu.Unlock()
		processor_log.Debugf("batch %s already completed, ignore", batch)
		metric.BatchCount.WithLabelValues(metric.BatchActionType.Dropped).Inc()
		return nil
	}
	if !p.own.Contains(batch) && p.completer.IsCompleted(batch) {
		p.markCompleted(&n, batch)
	} else {
		p.collect(&n, p.own.Insert(batch.Clone()))
	}
	metric.PendingBatches.Set(float64(p.own.Len()))
	p.mu.Unlock()

	p.fire(n)
	return nil
}

// OnStateReceived merges a state gossiped by peer from. Batches with bad
// signatures and batches which already completed here are dropped. A batch
// unknown here which already has enough signatures goes to the completed
// handler without entering the state, as in Propose.
func (p *Processor) OnStateReceived(from string, state *mst.MstState) {
	var accepted []*data.Batch
	for _, batch := range state.Batches() {
		if err := p.checkBatch(batch); err != nil {
			processor_log.Warnf("drop batch %s from %s: %s", batch, from, err)
			metric.BatchCount.WithLabelValues(metric.BatchActionType.Dropped).Inc()
			continue
		}
		accepted = append(accepted, batch)
	}
	metric.BatchCount.WithLabelValues(metric.BatchActionType.Received).Add(float64(len(accepted)))

	var n notifications
	p.mu.Lock()
	view := p.peerViewLocked(from)
	incoming := mst.Empty(p.stateLog, p.completer)
	for _, batch := range accepted {
		// the peer view keeps its own copy, signatures merged into the
		// own state must not leak into it
		view.Insert(batch.Clone())
		if p.completed.Contains(batch.ID()) {
			metric.BatchCount.WithLabelValues(metric.BatchActionType.Dropped).Inc()
			continue
		}
		if !p.own.Contains(batch) && p.completer.IsCompleted(batch) {
			p.markCompleted(&n, batch)
			continue
		}
		incoming.Insert(batch.Clone())
	}
	p.collect(&n, p.own.Merge(incoming))
	metric.PendingBatches.Set(float64(p.own.Len()))
	p.mu.Unlock()

	processor_log.Debugf("state from %s: %d updated, %d completed", from, len(n.updated), len(n.completed))
	p.fire(n)
}

// Propagate sends every peer the batches it is not known to have
func (p *Processor) Propagate(ctx context.Context) {
	type outgoing struct {
		peer  string
		state *mst.MstState
	}

	var sends []outgoing
	p.mu.Lock()
	for _, peer := range p.transport.Peers() {
		diff := p.own.Difference(p.peerViewLocked(peer))
		if diff.IsEmpty() {
			continue
		}
		// serialized after the lock is released, so send copies
		state := mst.Empty(p.stateLog, p.completer)
		for _, batch := range diff.Batches() {
			state.Insert(batch.Clone())
		}
		sends = append(sends, outgoing{peer: peer, state: state})
	}
	p.mu.Unlock()

	for _, out := range sends {
		if err := p.transport.SendState(ctx, out.peer, out.state); err != nil {
			processor_log.Warnf("send state to %s failed: %s", out.peer, err)
			continue
		}
		p.mu.Lock()
		p.peerViewLocked(out.peer).Merge(out.state)
		p.mu.Unlock()
	}
}

// CheckExpired removes the batches expired at now from the own state and
// every peer view
func (p *Processor) CheckExpired(now time.Time) {
	var n notifications
	p.mu.Lock()
	n.expired = p.own.ExtractExpired(now).Batches()
	for _, view := range p.peerViews {
		view.EraseExpired(now)
	}
	metric.PendingBatches.Set(float64(p.own.Len()))
	p.mu.Unlock()

	if len(n.expired) > 0 {
		processor_log.Infof("%d batches expired", len(n.expired))
		metric.BatchCount.WithLabelValues(metric.BatchActionType.Expired).Add(float64(len(n.expired)))
	}
	p.fire(n)
}

// Run gossips and sweeps expired batches until ctx is done
func (p *Processor) Run(ctx context.Context, gossipInterval time.Duration, expiryInterval time.Duration) {
	gossip := time.NewTicker(gossipInterval)
	defer gossip.Stop()
	expiry := time.NewTicker(expiryInterval)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gossip.C:
			p.Propagate(ctx)
		case <-expiry.C:
			p.CheckExpired(p.now())
		}
	}
}

// PendingBatches returns the batches still waiting for signatures, oldest
// first
func (p *Processor) PendingBatches() []*data.Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	var batches []*data.Batch
	for _, batch := range p.own.Batches() {
		batches = append(batches, batch.Clone())
	}
	return batches
}

func (p *Processor) Contains(batch *data.Batch) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.own.Contains(batch)
}

func (p *Processor) peerViewLocked(peer string) *mst.MstState {
	view, ok := p.peerViews[peer]
	if !ok {
		view = mst.Empty(p.stateLog, p.completer)
		p.peerViews[peer] = view
	}
	return view
}

func (p *Processor) collect(n *notifications, result mst.StateUpdateResult) {
	for _, batch := range result.Updated.Batches() {
		n.updated = append(n.updated, batch.Clone())
		metric.BatchCount.WithLabelValues(metric.BatchActionType.Updated).Inc()
	}
	for _, batch := range result.Completed.Batches() {
		p.markCompleted(n, batch)
	}
}

func (p *Processor) markCompleted(n *notifications, batch *data.Batch) {
	if ok, _ := p.completed.ContainsOrAdd(batch.ID(), struct{}{}); ok {
		return
	}
	n.completed = append(n.completed, batch.Clone())
	metric.BatchCount.WithLabelValues(metric.BatchActionType.Completed).Inc()
}
