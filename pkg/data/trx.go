package data

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
)

var (
	ErrZeroQuorum   = errors.New("quorum must be greater than zero")
	ErrEmptyCreator = errors.New("creator account id can not be empty")
)

// Signature is a (signer public key, signed data) pair
type Signature struct {
	PublicKey  []byte
	SignedData []byte
}

// Command is the content of a transaction. AssetId is empty for
// commands which do not touch an account asset.
type Command struct {
	Name      string
	AccountId string
	AssetId   string
	Amount    string
}

// the part of a transaction covered by the reduced hash
type trxContent struct {
	CreatorAccountId string
	Commands         []Command
	CreatedTime      uint64
	Quorum           uint64
}

// Transaction content is immutable after NewTransaction, only the
// signature set can grow.
type Transaction struct {
	content     trxContent
	reducedHash []byte
	signatures  []Signature // sorted by public key
}

// NewTransaction creates an unsigned transaction, createdTime is in milliseconds
func NewTransaction(creator string, createdTime int64, quorum uint32, commands ...Command) (*Transaction, error) {
	if creator == "" {
		return nil, ErrEmptyCreator
	}
	if quorum == 0 {
		return nil, ErrZeroQuorum
	}
	content := trxContent{
		CreatorAccountId: creator,
		Commands:         commands,
		CreatedTime:      uint64(createdTime),
		Quorum:           uint64(quorum),
	}
	encoded, err := rlp.EncodeToBytes(&content)
	if err != nil {
		return nil, err
	}
	if ok, err := IsTrxContentWithinSizeLimit(encoded); !ok {
		return nil, err
	}
	return &Transaction{content: content, reducedHash: localcrypto.Hash(encoded)}, nil
}

func (trx *Transaction) CreatorAccountId() string {
	return trx.content.CreatorAccountId
}

func (trx *Transaction) Commands() []Command {
	return trx.content.Commands
}

// CreatedTime in milliseconds
func (trx *Transaction) CreatedTime() int64 {
	return int64(trx.content.CreatedTime)
}

func (trx *Transaction) Quorum() int {
	return int(trx.content.Quorum)
}

// ReducedHash is the hash of the content without signatures
func (trx *Transaction) ReducedHash() []byte {
	return trx.reducedHash
}

func (trx *Transaction) HexHash() string {
	return hex.EncodeToString(trx.reducedHash)
}

func (trx *Transaction) Signatures() []Signature {
	sigs := make([]Signature, len(trx.signatures))
	copy(sigs, trx.signatures)
	return sigs
}

// AddSignature returns false if publicKey already signed the transaction
func (trx *Transaction) AddSignature(signedData []byte, publicKey []byte) bool {
	i := sort.Search(len(trx.signatures), func(i int) bool {
		return bytes.Compare(trx.signatures[i].PublicKey, publicKey) >= 0
	})
	if i < len(trx.signatures) && bytes.Equal(trx.signatures[i].PublicKey, publicKey) {
		return false
	}
	sig := Signature{
		PublicKey:  append([]byte(nil), publicKey...),
		SignedData: append([]byte(nil), signedData...),
	}
	trx.signatures = append(trx.signatures, Signature{})
	copy(trx.signatures[i+1:], trx.signatures[i:])
	trx.signatures[i] = sig
	return true
}

// Sign adds the signature of kp over the reduced hash
func (trx *Transaction) Sign(kp *localcrypto.Keypair) error {
	signed, err := kp.Sign(trx.reducedHash)
	if err != nil {
		return err
	}
	trx.AddSignature(signed, kp.PublicKey())
	return nil
}

// VerifySignatures checks every signature against the reduced hash
func (trx *Transaction) VerifySignatures() error {
	for _, sig := range trx.signatures {
		if !localcrypto.Verify(sig.PublicKey, trx.reducedHash, sig.SignedData) {
			return fmt.Errorf("invalid signature of %x on trx %s", sig.PublicKey, trx.HexHash())
		}
	}
	return nil
}

// Clone copies the transaction, the signature set is not shared
func (trx *Transaction) Clone() *Transaction {
	return &Transaction{
		content:     trx.content,
		reducedHash: trx.reducedHash,
		signatures:  trx.Signatures(),
	}
}
