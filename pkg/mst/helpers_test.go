package mst

import (
	"fmt"
	"testing"
	"time"

	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/pkg/data"
)

var (
	testLog = logging.Logger("mst_test")
	t0      = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

const expirationWindow = 5 * time.Minute

func newTestState() *MstState {
	return Empty(testLog, NewDefaultCompleter(expirationWindow))
}

// newTestBatch builds an unsigned batch with one transaction per creator,
// all created at createdTime
func newTestBatch(t *testing.T, createdTime time.Time, quorum uint32, creators ...string) *data.Batch {
	t.Helper()
	if len(creators) == 0 {
		creators = []string{"alice@test"}
	}
	var trxs []*data.Transaction
	for _, creator := range creators {
		trx, err := data.NewTransaction(creator, createdTime.UnixMilli(), quorum, data.Command{Name: "TransferAsset", AccountId: creator, AssetId: "coin#test", Amount: "1"})
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

// withSigners returns a copy of batch signed by signers on every transaction
func withSigners(batch *data.Batch, signers ...string) *data.Batch {
	signed := batch.Clone()
	for _, trx := range signed.Transactions() {
		for _, signer := range signers {
			trx.AddSignature([]byte("sig-"+signer), []byte(signer))
		}
	}
	return signed
}

func signatureCounts(s *MstState) map[string]int {
	counts := make(map[string]int)
	for _, batch := range s.Batches() {
		counts[batch.ID()] = batch.SignatureCount()
	}
	return counts
}

func signerSet(batch *data.Batch) map[string]bool {
	signers := make(map[string]bool)
	for i, trx := range batch.Transactions() {
		for _, sig := range trx.Signatures() {
			signers[fmt.Sprintf("%d:%s", i, sig.PublicKey)] = true
		}
	}
	return signers
}
