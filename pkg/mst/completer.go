package mst

import (
	"time"

	"github.com/rumsystem/mstnode/pkg/data"
)

// Completer decides when a batch is ready to leave the state
type Completer interface {
	// IsCompleted is true when every transaction collected its quorum
	IsCompleted(batch *data.Batch) bool
	// IsExpired is true when the oldest transaction of batch is older than
	// the expiration window at now
	IsExpired(batch *data.Batch, now time.Time) bool
}

type DefaultCompleter struct {
	expirationTime time.Duration
}

func NewDefaultCompleter(expirationTime time.Duration) *DefaultCompleter {
	return &DefaultCompleter{expirationTime: expirationTime}
}

func (c *DefaultCompleter) ExpirationTime() time.Duration {
	return c.expirationTime
}

func (c *DefaultCompleter) IsCompleted(batch *data.Batch) bool {
	for _, trx := range batch.Transactions() {
		if len(trx.Signatures()) < trx.Quorum() {
			return false
		}
	}
	return true
}

func (c *DefaultCompleter) IsExpired(batch *data.Batch, now time.Time) bool {
	ts, _ := oldestTimestamp(batch)
	return ts+c.expirationTime.Milliseconds() < now.UnixMilli()
}

// oldestTimestamp returns the smallest creation time of the batch
// transactions. An empty batch panics in mstdebug builds, otherwise it
// reports ok=false and sorts as timestamp 0.
func oldestTimestamp(batch *data.Batch) (ts int64, ok bool) {
	trxs := batch.Transactions()
	if len(trxs) == 0 {
		if mstDebug {
			panic("mst: batch without transactions")
		}
		return 0, false
	}
	ts = trxs[0].CreatedTime()
	for _, trx := range trxs[1:] {
		if t := trx.CreatedTime(); t < ts {
			ts = t
		}
	}
	return ts, true
}
