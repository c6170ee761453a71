package mst

import (
	"testing"
	"time"

	"github.com/rumsystem/mstnode/pkg/data"
)

func TestDefaultCompleterIsCompleted(t *testing.T) {
	c := NewDefaultCompleter(expirationWindow)
	batch := newTestBatch(t, t0, 2, "alice@test", "bob@test")

	if c.IsCompleted(batch) {
		t.Errorf("unsigned batch reported completed")
	}

	// one transaction at quorum, the other one below
	partial := batch.Clone()
	partial.Transactions()[0].AddSignature([]byte("a"), []byte("A"))
	partial.Transactions()[0].AddSignature([]byte("b"), []byte("B"))
	partial.Transactions()[1].AddSignature([]byte("a"), []byte("A"))
	if c.IsCompleted(partial) {
		t.Errorf("batch with a transaction below quorum reported completed")
	}

	if !c.IsCompleted(withSigners(batch, "A", "B")) {
		t.Errorf("batch with every transaction at quorum not completed")
	}
	if !c.IsCompleted(withSigners(batch, "A", "B", "C")) {
		t.Errorf("batch above quorum not completed")
	}
}

func TestDefaultCompleterIsExpired(t *testing.T) {
	c := NewDefaultCompleter(expirationWindow)

	young, _ := data.NewTransaction("alice@test", t0.Add(time.Minute).UnixMilli(), 1)
	old, _ := data.NewTransaction("bob@test", t0.UnixMilli(), 1)
	batch, _ := data.NewBatch(young, old)

	var tests = []struct {
		now  time.Time
		want bool
	}{
		{t0.Add(4 * time.Minute), false},
		{t0.Add(expirationWindow), false},
		{t0.Add(expirationWindow + time.Millisecond), true},
		{t0.Add(6 * time.Minute), true},
	}
	for _, tt := range tests {
		if got := c.IsExpired(batch, tt.now); got != tt.want {
			t.Errorf("IsExpired(now=%s) = %v, want %v (oldest trx decides)", tt.now.Sub(t0), got, tt.want)
		}
	}
}

func TestOldestTimestampEmptyBatch(t *testing.T) {
	if mstDebug {
		defer func() {
			if recover() == nil {
				t.Errorf("empty batch should panic in mstdebug builds")
			}
		}()
	}
	ts, ok := oldestTimestamp(&data.Batch{})
	if ok || ts != 0 {
		t.Errorf("oldestTimestamp(empty) = %d, %v; want 0, false", ts, ok)
	}
}
