package mstprocessor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/pkg/codec"
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
	"github.com/rumsystem/mstnode/pkg/data"
	"github.com/rumsystem/mstnode/pkg/mst"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const expirationWindow = 10 * time.Minute

// network connects processors in memory, states go through the wire codec
type network struct {
	mu        sync.Mutex
	nodes     map[string]*Processor
	converter *codec.BatchConverter
	completer mst.Completer
	sent      map[string]int
	failing   map[string]bool
}

func newNetwork() *network {
	return &network{
		nodes:     make(map[string]*Processor),
		converter: codec.NewBatchConverter(codec.NewSignatureFactory(), codec.DefaultMaxBatchSize),
		completer: mst.NewDefaultCompleter(expirationWindow),
		sent:      make(map[string]int),
		failing:   make(map[string]bool),
	}
}

type recorder struct {
	mu        sync.Mutex
	updated   []string
	completed []string
	expired   []string
}

func (r *recorder) handlers() Handlers {
	add := func(list *[]string) func(*data.Batch) {
		return func(batch *data.Batch) {
			r.mu.Lock()
			defer r.mu.Unlock()
			*list = append(*list, batch.ID())
		}
	}
	return Handlers{
		OnUpdated:   add(&r.updated),
		OnCompleted: add(&r.completed),
		OnExpired:   add(&r.expired),
	}
}

type nodeTransport struct {
	self string
	net  *network
}

func (t *nodeTransport) Peers() []string {
	t.net.mu.Lock()
	defer t.net.mu.Unlock()
	var peers []string
	for name := range t.net.nodes {
		if name != t.self {
			peers = append(peers, name)
		}
	}
	sort.Strings(peers)
	return peers
}

func (t *nodeTransport) SendState(ctx context.Context, peer string, state *mst.MstState) error {
	t.net.mu.Lock()
	target, ok := t.net.nodes[peer]
	failing := t.net.failing[peer]
	if ok && !failing {
		t.net.sent[t.self+"->"+peer] += state.Len()
	}
	t.net.mu.Unlock()
	if !ok {
		return errors.New("unknown peer")
	}
	if failing {
		return errors.New("peer unreachable")
	}

	payload, err := t.net.converter.SerializeState(state)
	if err != nil {
		return err
	}
	decoded, err := t.net.converter.DeserializeState(payload, logging.Logger("mst_test"), t.net.completer)
	if err != nil {
		return err
	}
	target.OnStateReceived(t.self, decoded)
	return nil
}

func (n *network) addNode(t *testing.T, name string) (*Processor, *recorder) {
	t.Helper()
	rec := &recorder{}
	p, err := NewProcessor(n.completer, &nodeTransport{self: name, net: n}, WithHandlers(rec.handlers()), WithClock(func() time.Time { return t0 }))
	if err != nil {
		t.Fatalf("NewProcessor failed: %s", err)
	}
	n.mu.Lock()
	n.nodes[name] = p
	n.mu.Unlock()
	return p, rec
}

func newKeypair(t *testing.T) *localcrypto.Keypair {
	t.Helper()
	kp, err := localcrypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %s", err)
	}
	return kp
}

func newBatch(t *testing.T, createdTime time.Time, quorum uint32, creators ...string) *data.Batch {
	t.Helper()
	var trxs []*data.Transaction
	for _, creator := range creators {
		trx, err := data.NewTransaction(creator, createdTime.UnixMilli(), quorum, data.Command{Name: "TransferAsset", AccountId: creator, AssetId: "coin#test", Amount: "10"})
		if err != nil {
			t.Fatalf("NewTransaction failed: %s", err)
		}
		trxs = append(trxs, trx)
	}
	batch, err := data.NewBatch(trxs...)
	if err != nil {
		t.Fatalf("NewBatch failed: %s", err)
	}
	return batch
}

// signedBy returns a copy of batch with every transaction signed by kps
func signedBy(t *testing.T, batch *data.Batch, kps ...*localcrypto.Keypair) *data.Batch {
	t.Helper()
	signed := batch.Clone()
	for _, trx := range signed.Transactions() {
		for _, kp := range kps {
			if err := trx.Sign(kp); err != nil {
				t.Fatalf("Sign failed: %s", err)
			}
		}
	}
	return signed
}

func TestProposeIncompleteBatch(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	batch := signedBy(t, newBatch(t, t0, 2, "alice@test"), newKeypair(t))

	if err := p.Propose(batch); err != nil {
		t.Fatalf("Propose failed: %s", err)
	}
	if diff := cmp.Diff([]string{batch.ID()}, rec.updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
	if len(rec.completed) != 0 {
		t.Errorf("incomplete batch reported as completed")
	}
	if !p.Contains(batch) || len(p.PendingBatches()) != 1 {
		t.Errorf("batch not pending after Propose")
	}
}

func TestProposeCompleteBatch(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	batch := signedBy(t, newBatch(t, t0, 1, "alice@test"), newKeypair(t))

	if err := p.Propose(batch); err != nil {
		t.Fatalf("Propose failed: %s", err)
	}
	if diff := cmp.Diff([]string{batch.ID()}, rec.completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
	if p.Contains(batch) {
		t.Errorf("complete batch should not stay pending")
	}

	// proposing it again is ignored
	if err := p.Propose(batch); err != nil {
		t.Fatalf("Propose failed: %s", err)
	}
	if len(rec.completed) != 1 || p.Contains(batch) {
		t.Errorf("completed batch accepted twice")
	}
}

func TestProposeInvalidSignature(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	batch := newBatch(t, t0, 2, "alice@test")
	batch.Transactions()[0].AddSignature(make([]byte, 65), newKeypair(t).PublicKey())

	if err := p.Propose(batch); err == nil {
		t.Fatalf("Propose should reject a forged signature")
	}
	if p.Contains(batch) || len(rec.updated) != 0 {
		t.Errorf("forged batch entered the state")
	}
}

func TestGossipCompletesBatch(t *testing.T) {
	net := newNetwork()
	p1, rec1 := net.addNode(t, "peer1")
	p2, rec2 := net.addNode(t, "peer2")
	k1, k2 := newKeypair(t), newKeypair(t)
	batch := newBatch(t, t0, 2, "alice@test", "bob@test")

	if err := p1.Propose(signedBy(t, batch, k1)); err != nil {
		t.Fatalf("Propose failed: %s", err)
	}
	if err := p2.Propose(signedBy(t, batch, k2)); err != nil {
		t.Fatalf("Propose failed: %s", err)
	}

	p1.Propagate(context.Background())

	if diff := cmp.Diff([]string{batch.ID()}, rec2.completed); diff != "" {
		t.Errorf("peer2 completed mismatch (-want +got):\n%s", diff)
	}
	if p2.Contains(batch) {
		t.Errorf("completed batch still pending on peer2")
	}
	if len(rec1.completed) != 0 {
		t.Errorf("peer1 has not seen the second signature yet")
	}

	// peer2 no longer has the batch, so it has nothing to send
	p2.Propagate(context.Background())
	if net.sent["peer2->peer1"] != 0 {
		t.Errorf("peer2 sent %d batches, want 0", net.sent["peer2->peer1"])
	}
}

func TestPropagateSendsDifferenceOnce(t *testing.T) {
	net := newNetwork()
	p1, _ := net.addNode(t, "peer1")
	_, rec2 := net.addNode(t, "peer2")
	batch := signedBy(t, newBatch(t, t0, 3, "alice@test"), newKeypair(t))

	p1.Propose(batch)
	p1.Propagate(context.Background())
	p1.Propagate(context.Background())

	if net.sent["peer1->peer2"] != 1 {
		t.Errorf("sent %d batches, want 1", net.sent["peer1->peer2"])
	}
	if diff := cmp.Diff([]string{batch.ID()}, rec2.updated); diff != "" {
		t.Errorf("peer2 updated mismatch (-want +got):\n%s", diff)
	}
}

func TestPropagateRetriesAfterFailure(t *testing.T) {
	net := newNetwork()
	p1, _ := net.addNode(t, "peer1")
	p2, _ := net.addNode(t, "peer2")
	batch := signedBy(t, newBatch(t, t0, 3, "alice@test"), newKeypair(t))
	p1.Propose(batch)

	net.failing["peer2"] = true
	p1.Propagate(context.Background())
	if p2.Contains(batch) {
		t.Fatalf("batch delivered to unreachable peer")
	}

	net.failing["peer2"] = false
	p1.Propagate(context.Background())
	if !p2.Contains(batch) {
		t.Errorf("batch not delivered after the peer came back")
	}
}

func TestReceivedStateReportsUpdates(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	k1, k2 := newKeypair(t), newKeypair(t)
	batch := newBatch(t, t0, 3, "alice@test")
	p.Propose(signedBy(t, batch, k1))

	incoming := mst.Empty(logging.Logger("mst_test"), net.completer)
	incoming.Insert(signedBy(t, batch, k2))
	p.OnStateReceived("peer2", incoming)

	if len(rec.updated) != 2 {
		t.Fatalf("updated %d times, want 2", len(rec.updated))
	}
	pending := p.PendingBatches()
	if len(pending) != 1 || pending[0].SignatureCount() != 2 {
		t.Errorf("pending = %v, want one batch with 2 signatures", pending)
	}

	// the same signatures again change nothing
	again := mst.Empty(logging.Logger("mst_test"), net.completer)
	again.Insert(signedBy(t, batch, k2))
	p.OnStateReceived("peer2", again)
	if len(rec.updated) != 2 {
		t.Errorf("known signatures reported as update")
	}
}

func TestReceivedStateDropsForgedBatch(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	forged := newBatch(t, t0, 2, "alice@test")
	forged.Transactions()[0].AddSignature(make([]byte, 65), newKeypair(t).PublicKey())

	incoming := mst.Empty(logging.Logger("mst_test"), net.completer)
	incoming.Insert(forged)
	p.OnStateReceived("peer2", incoming)

	if p.Contains(forged) || len(rec.updated) != 0 {
		t.Errorf("forged batch accepted")
	}
}

func TestLateCopyAfterCompletionIgnored(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	k1, k2 := newKeypair(t), newKeypair(t)
	batch := newBatch(t, t0, 2, "alice@test")

	p.Propose(signedBy(t, batch, k1))
	p.Propose(signedBy(t, batch, k2))
	if len(rec.completed) != 1 {
		t.Fatalf("completed %d times, want 1", len(rec.completed))
	}

	late := mst.Empty(logging.Logger("mst_test"), net.completer)
	late.Insert(signedBy(t, batch, k1))
	p.OnStateReceived("peer2", late)

	if p.Contains(batch) {
		t.Errorf("late copy of a completed batch became pending again")
	}
	if len(rec.completed) != 1 {
		t.Errorf("completed %d times, want 1", len(rec.completed))
	}
}

func TestCheckExpired(t *testing.T) {
	net := newNetwork()
	p1, rec := net.addNode(t, "peer1")
	p2, _ := net.addNode(t, "peer2")
	kp := newKeypair(t)
	old := signedBy(t, newBatch(t, t0, 2, "alice@test"), kp)
	fresh := signedBy(t, newBatch(t, t0.Add(5*time.Minute), 2, "bob@test"), kp)

	p1.Propose(old)
	p1.Propose(fresh)
	p1.Propagate(context.Background())
	if !p2.Contains(old) {
		t.Fatalf("gossip failed")
	}

	p1.CheckExpired(t0.Add(expirationWindow + time.Minute))

	if diff := cmp.Diff([]string{old.ID()}, rec.expired); diff != "" {
		t.Errorf("expired mismatch (-want +got):\n%s", diff)
	}
	if p1.Contains(old) || !p1.Contains(fresh) {
		t.Errorf("wrong batches removed")
	}

	// the expired batch is gone from the view of peer2 too, proposing it
	// again sends it again
	sentBefore := net.sent["peer1->peer2"]
	p1.Propose(old)
	p1.Propagate(context.Background())
	if net.sent["peer1->peer2"] != sentBefore+1 {
		t.Errorf("sent %d batches, want %d", net.sent["peer1->peer2"], sentBefore+1)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	net := newNetwork()
	p, _ := net.addNode(t, "peer1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 10*time.Millisecond, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestReceivedCompleteBatchCompletes(t *testing.T) {
	net := newNetwork()
	p, rec := net.addNode(t, "peer1")
	batch := signedBy(t, newBatch(t, t0, 2, "alice@test"), newKeypair(t), newKeypair(t))

	incoming := mst.Empty(logging.Logger("mst_test"), net.completer)
	incoming.Insert(batch)
	p.OnStateReceived("peer2", incoming)

	if diff := cmp.Diff([]string{batch.ID()}, rec.completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(rec.updated) != 0 || p.Contains(batch) {
		t.Errorf("complete batch from a peer should not stay pending")
	}

	// peer2 already has it, nothing to send back
	p.Propagate(context.Background())
	if net.sent["peer1->peer2"] != 0 {
		t.Errorf("sent %d batches, want 0", net.sent["peer1->peer2"])
	}
}

func TestHandlersGetOwnCopies(t *testing.T) {
	net := newNetwork()
	batch := newBatch(t, t0, 100, "alice@test")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	seen := make(chan *data.Batch, 256)
	p, err := NewProcessor(net.completer, &nodeTransport{self: "peer1", net: net},
		WithHandlers(Handlers{OnUpdated: func(b *data.Batch) { seen <- b }}))
	if err != nil {
		t.Fatalf("NewProcessor failed: %s", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case b := <-seen:
				for _, trx := range b.Transactions() {
					_ = trx.Signatures()
				}
			case <-stop:
				return
			}
		}
	}()

	var proposers sync.WaitGroup
	for i := 0; i < 20; i++ {
		proposers.Add(1)
		signed := signedBy(t, batch, newKeypair(t))
		go func() {
			defer proposers.Done()
			if err := p.Propose(signed); err != nil {
				t.Errorf("Propose failed: %s", err)
			}
			// the caller keeps using its batch after Propose
			_ = signed.Transactions()[0].Signatures()
		}()
	}
	proposers.Wait()
	close(stop)
	wg.Wait()

	pending := p.PendingBatches()
	if len(pending) != 1 || pending[0].SignatureCount() != 20 {
		t.Errorf("pending = %v, want one batch with 20 signatures", pending)
	}
}
