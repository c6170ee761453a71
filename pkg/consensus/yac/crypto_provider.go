package yac

import (
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
	"github.com/rumsystem/mstnode/pkg/data"
)

// CryptoProvider signs the votes of this peer and verifies the votes of
// the others
type CryptoProvider struct {
	keypair   *localcrypto.Keypair
	converter *VoteConverter
}

func NewCryptoProvider(keypair *localcrypto.Keypair, converter *VoteConverter) *CryptoProvider {
	return &CryptoProvider{keypair: keypair, converter: converter}
}

func (p *CryptoProvider) payloadHash(vote *VoteMessage) ([]byte, error) {
	payload, err := p.converter.SerializeVotePayload(vote)
	if err != nil {
		return nil, err
	}
	return localcrypto.Hash(payload), nil
}

// Verify is true when every vote carries a valid signature
func (p *CryptoProvider) Verify(votes []VoteMessage) bool {
	for i := range votes {
		vote := &votes[i]
		if vote.Signature == nil {
			return false
		}
		hash, err := p.payloadHash(vote)
		if err != nil {
			return false
		}
		if !localcrypto.Verify(vote.Signature.PublicKey, hash, vote.Signature.SignedData) {
			return false
		}
	}
	return true
}

func (p *CryptoProvider) GetVote(hash YacHash) (VoteMessage, error) {
	vote := VoteMessage{Hash: hash}
	digest, err := p.payloadHash(&vote)
	if err != nil {
		return vote, err
	}
	signed, err := p.keypair.Sign(digest)
	if err != nil {
		return vote, err
	}
	vote.Signature = &data.Signature{PublicKey: p.keypair.PublicKey(), SignedData: signed}
	return vote, nil
}
