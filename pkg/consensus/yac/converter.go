package yac

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/pkg/codec"
	"github.com/rumsystem/mstnode/pkg/data"
)

var (
	ErrMissingSignature = errors.New("vote has no signature")
	ErrDecodeVote       = errors.New("decode vote failed")
)

type wireSignature struct {
	PublicKey  []byte
	SignedData []byte
}

// optional signatures are encoded as lists of zero or one element
type wireVote struct {
	BlockRound     uint64
	RejectRound    uint64
	ProposalHash   string
	BlockHash      string
	BlockSignature []wireSignature
	Signature      []wireSignature
}

// VoteConverter encodes votes. It is built once with the signature factory
// of the node and passed to whoever needs it.
type VoteConverter struct {
	factory *codec.SignatureFactory
	log     logging.StandardLogger
}

func NewVoteConverter(factory *codec.SignatureFactory, log logging.StandardLogger) *VoteConverter {
	return &VoteConverter{factory: factory, log: log}
}

func roundAndHashes(vote *VoteMessage) wireVote {
	wv := wireVote{
		BlockRound:   vote.Hash.VoteRound.BlockRound,
		RejectRound:  uint64(vote.Hash.VoteRound.RejectRound),
		ProposalHash: vote.Hash.VoteHashes.ProposalHash,
		BlockHash:    vote.Hash.VoteHashes.BlockHash,
	}
	if sig := vote.Hash.BlockSignature; sig != nil {
		wv.BlockSignature = []wireSignature{{PublicKey: sig.PublicKey, SignedData: sig.SignedData}}
	}
	return wv
}

// SerializeVotePayload encodes the part of the vote covered by its signature
func (c *VoteConverter) SerializeVotePayload(vote *VoteMessage) ([]byte, error) {
	wv := roundAndHashes(vote)
	return rlp.EncodeToBytes(&wv)
}

func (c *VoteConverter) SerializeVote(vote *VoteMessage) ([]byte, error) {
	if vote.Signature == nil {
		return nil, ErrMissingSignature
	}
	wv := roundAndHashes(vote)
	wv.Signature = []wireSignature{{PublicKey: vote.Signature.PublicKey, SignedData: vote.Signature.SignedData}}
	return rlp.EncodeToBytes(&wv)
}

func (c *VoteConverter) DeserializeVote(b []byte) (*VoteMessage, error) {
	var wv wireVote
	if err := rlp.DecodeBytes(b, &wv); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeVote, err)
	}
	if wv.RejectRound > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: reject round %d out of range", ErrDecodeVote, wv.RejectRound)
	}

	vote := &VoteMessage{
		Hash: YacHash{
			VoteRound:  Round{BlockRound: wv.BlockRound, RejectRound: uint32(wv.RejectRound)},
			VoteHashes: VoteHashes{ProposalHash: wv.ProposalHash, BlockHash: wv.BlockHash},
		},
	}

	if len(wv.BlockSignature) > 0 {
		sig, err := c.signature(wv.BlockSignature[0])
		if err != nil {
			c.log.Errorf("Cannot build vote hash block signature: %s", err)
			return nil, err
		}
		vote.Hash.BlockSignature = sig
	}

	if len(wv.Signature) == 0 {
		c.log.Errorf("Cannot build vote signature: %s", ErrMissingSignature)
		return nil, ErrMissingSignature
	}
	sig, err := c.signature(wv.Signature[0])
	if err != nil {
		c.log.Errorf("Cannot build vote signature: %s", err)
		return nil, err
	}
	vote.Signature = sig

	return vote, nil
}

func (c *VoteConverter) signature(ws wireSignature) (*data.Signature, error) {
	sig, err := c.factory.CreateSignature(ws.PublicKey, ws.SignedData)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}
