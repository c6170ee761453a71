package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rumsystem/mstnode/internal/pkg/storage"
	"github.com/rumsystem/mstnode/pkg/data"
)

type fakeIndexer struct {
	positions map[string]storage.TxPosition
	committed map[string]bool
	rejected  map[string]bool
	creators  map[string][]storage.TxPosition
	assets    map[string][]storage.TxPosition
	height    uint64
	pending   []func()
	flushErr  error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		positions: map[string]storage.TxPosition{},
		committed: map[string]bool{},
		rejected:  map[string]bool{},
		creators:  map[string][]storage.TxPosition{},
		assets:    map[string][]storage.TxPosition{},
	}
}

func (f *fakeIndexer) RecordTxPosition(hash []byte, pos storage.TxPosition) {
	f.pending = append(f.pending, func() { f.positions[fmt.Sprintf("%x", hash)] = pos })
}

func (f *fakeIndexer) RecordCommittedHash(hash []byte) {
	f.pending = append(f.pending, func() { f.committed[fmt.Sprintf("%x", hash)] = true })
}

func (f *fakeIndexer) RecordRejectedHash(hash []byte) {
	f.pending = append(f.pending, func() { f.rejected[fmt.Sprintf("%x", hash)] = true })
}

func (f *fakeIndexer) RecordCreatorTxPosition(creator string, pos storage.TxPosition) {
	f.pending = append(f.pending, func() { f.creators[creator] = append(f.creators[creator], pos) })
}

func (f *fakeIndexer) RecordAccountAssetTxPosition(accountId string, assetId string, pos storage.TxPosition) {
	key := accountId + "/" + assetId
	f.pending = append(f.pending, func() { f.assets[key] = append(f.assets[key], pos) })
}

func (f *fakeIndexer) RecordBlockHeight(height uint64) {
	f.pending = append(f.pending, func() { f.height = height })
}

func (f *fakeIndexer) Flush() error {
	if f.flushErr != nil {
		f.pending = nil
		return f.flushErr
	}
	for _, apply := range f.pending {
		apply()
	}
	f.pending = nil
	return nil
}

func makeBatch(t *testing.T, createdTime int64, creators ...string) *data.Batch {
	t.Helper()
	var trxs []*data.Transaction
	for _, creator := range creators {
		trx, err := data.NewTransaction(creator, createdTime, 1, data.Command{
			Name:      "TransferAsset",
			AccountId: creator,
			AssetId:   "coin#test",
			Amount:    "1.0",
		})
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

func TestCommitAssignsPositions(t *testing.T) {
	idx := newFakeIndexer()
	p := NewPipeline(idx, 4)

	first := makeBatch(t, 1000, "alice@test", "bob@test")
	second := makeBatch(t, 2000, "alice@test")
	p.Enqueue(first)
	p.Enqueue(second)

	block, err := p.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %s", err)
	}
	if block == nil || block.Height != 5 {
		t.Fatalf("block = %+v, want height 5", block)
	}
	if len(block.Transactions) != 3 {
		t.Fatalf("block has %d trxs, want 3", len(block.Transactions))
	}
	if p.Height() != 5 || idx.height != 5 {
		t.Errorf("Height() = %d, recorded %d, want 5", p.Height(), idx.height)
	}

	for i, trx := range block.Transactions {
		want := storage.TxPosition{Height: 5, Index: uint64(i)}
		if got := idx.positions[trx.HexHash()]; got != want {
			t.Errorf("position of trx %d = %+v, want %+v", i, got, want)
		}
		if !idx.committed[trx.HexHash()] {
			t.Errorf("trx %d not recorded as committed", i)
		}
	}

	wantAlice := []storage.TxPosition{{Height: 5, Index: 0}, {Height: 5, Index: 2}}
	if diff := cmp.Diff(wantAlice, idx.creators["alice@test"]); diff != "" {
		t.Errorf("creator positions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantAlice, idx.assets["alice@test/coin#test"]); diff != "" {
		t.Errorf("account asset positions mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitNothingQueued(t *testing.T) {
	p := NewPipeline(newFakeIndexer(), 0)
	block, err := p.Commit()
	if err != nil || block != nil {
		t.Errorf("Commit on empty pipeline = %v, %v; want nil, nil", block, err)
	}
	if p.Height() != 0 {
		t.Errorf("height advanced without a block")
	}
}

func TestCommitRejectedOnly(t *testing.T) {
	idx := newFakeIndexer()
	p := NewPipeline(idx, 0)
	expired := makeBatch(t, 1000, "carol@test")
	p.Reject(expired)

	block, err := p.Commit()
	if err != nil || block != nil {
		t.Fatalf("Commit = %v, %v; want nil, nil", block, err)
	}
	if !idx.rejected[expired.Transactions()[0].HexHash()] {
		t.Errorf("expired trx not recorded as rejected")
	}
	if p.Height() != 0 {
		t.Errorf("height advanced for rejected only commit")
	}
}

func TestCommitFlushFailureKeepsQueue(t *testing.T) {
	idx := newFakeIndexer()
	idx.flushErr = errors.New("disk full")
	p := NewPipeline(idx, 0)
	p.Enqueue(makeBatch(t, 1000, "alice@test"))

	if _, err := p.Commit(); err == nil {
		t.Fatalf("Commit should fail when flush fails")
	}
	if p.Height() != 0 {
		t.Errorf("height advanced after failed flush")
	}

	idx.flushErr = nil
	block, err := p.Commit()
	if err != nil {
		t.Fatalf("retry Commit failed: %s", err)
	}
	if block == nil || block.Height != 1 || len(block.Transactions) != 1 {
		t.Errorf("retry block = %+v, want height 1 with 1 trx", block)
	}
}

func TestCommitWithBadgerIndexer(t *testing.T) {
	db := storage.QSBadger{}
	if err := db.Init(t.TempDir() + "/index"); err != nil {
		t.Fatalf("badger init failed: %s", err)
	}
	defer db.Close()
	idx := storage.NewBadgerIndexer(&db)

	p := NewPipeline(idx, 0)
	batch := makeBatch(t, 1000, "alice@test")
	p.Enqueue(batch)
	if _, err := p.Commit(); err != nil {
		t.Fatalf("Commit failed: %s", err)
	}

	hash := batch.Transactions()[0].ReducedHash()
	pos, ok, err := idx.TxPosition(hash)
	if err != nil || !ok {
		t.Fatalf("TxPosition: ok=%v err=%v", ok, err)
	}
	if pos != (storage.TxPosition{Height: 1, Index: 0}) {
		t.Errorf("position = %+v", pos)
	}
	if committed, _ := idx.IsCommitted(hash); !committed {
		t.Errorf("trx not committed in badger index")
	}
}

func TestCommitHandler(t *testing.T) {
	p := NewPipeline(newFakeIndexer(), 0)
	var committed []*Block
	p.SetCommitHandler(func(block *Block) { committed = append(committed, block) })

	p.Reject(makeBatch(t, 1000, "carol@test"))
	p.Commit()
	if len(committed) != 0 {
		t.Fatalf("handler called without a block")
	}

	p.Enqueue(makeBatch(t, 1000, "alice@test"))
	block, _ := p.Commit()
	if len(committed) != 1 || committed[0] != block {
		t.Fatalf("handler not called with the committed block")
	}
	if len(block.Hash()) != 64 {
		t.Errorf("block hash %q is not a hex sha256", block.Hash())
	}
}
