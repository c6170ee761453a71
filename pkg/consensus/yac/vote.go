package yac

import (
	"fmt"

	"github.com/rumsystem/mstnode/pkg/data"
)

// Round of the consensus, RejectRound grows when a block round is
// rejected by the validators
type Round struct {
	BlockRound  uint64
	RejectRound uint32
}

func (r Round) String() string {
	return fmt.Sprintf("(%d, %d)", r.BlockRound, r.RejectRound)
}

type VoteHashes struct {
	ProposalHash string
	BlockHash    string
}

type YacHash struct {
	VoteRound      Round
	VoteHashes     VoteHashes
	BlockSignature *data.Signature
}

type VoteMessage struct {
	Hash      YacHash
	Signature *data.Signature
}
