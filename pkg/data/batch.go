package data

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyBatch = errors.New("batch must contain at least one transaction")

// Batch is an ordered group of transactions signed atomically. Its
// identity is the ordered sequence of the reduced hashes.
type Batch struct {
	transactions []*Transaction
	id           string
}

func NewBatch(trxs ...*Transaction) (*Batch, error) {
	if len(trxs) == 0 {
		return nil, ErrEmptyBatch
	}
	var sb strings.Builder
	for _, trx := range trxs {
		sb.WriteString(trx.HexHash())
	}
	return &Batch{transactions: trxs, id: sb.String()}, nil
}

func (b *Batch) Transactions() []*Transaction {
	return b.transactions
}

// ID is the hex form of the concatenated reduced hashes
func (b *Batch) ID() string {
	return b.id
}

func (b *Batch) ReducedHashes() [][]byte {
	hashes := make([][]byte, 0, len(b.transactions))
	for _, trx := range b.transactions {
		hashes = append(hashes, trx.ReducedHash())
	}
	return hashes
}

// Equal compares identities only
func (b *Batch) Equal(other *Batch) bool {
	return b.id == other.id
}

func (b *Batch) SignatureCount() int {
	n := 0
	for _, trx := range b.transactions {
		n += len(trx.signatures)
	}
	return n
}

func (b *Batch) VerifySignatures() error {
	for _, trx := range b.transactions {
		if err := trx.VerifySignatures(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batch) Clone() *Batch {
	trxs := make([]*Transaction, 0, len(b.transactions))
	for _, trx := range b.transactions {
		trxs = append(trxs, trx.Clone())
	}
	return &Batch{transactions: trxs, id: b.id}
}

func (b *Batch) String() string {
	var sb strings.Builder
	sb.WriteString("Batch: [")
	for i, trx := range b.transactions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("{hash: %s, sigs: %d/%d}", shortHash(trx.ReducedHash()), len(trx.signatures), trx.Quorum()))
	}
	sb.WriteString("]")
	return sb.String()
}

func shortHash(h []byte) string {
	s := hex.EncodeToString(h)
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
