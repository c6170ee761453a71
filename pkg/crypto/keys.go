package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	PubkeyLength    = 33 // compressed secp256k1
	SignatureLength = ethcrypto.SignatureLength
)

var ErrInvalidHashLength = errors.New("hash must be 32 bytes")

type Keypair struct {
	PrivateKey *ecdsa.PrivateKey
}

func GenerateKeypair() (*Keypair, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Keypair{PrivateKey: priv}, nil
}

// KeypairFromHex loads a secp256k1 private key from its hex encoding
func KeypairFromHex(hexkey string) (*Keypair, error) {
	priv, err := ethcrypto.HexToECDSA(hexkey)
	if err != nil {
		return nil, fmt.Errorf("decode private key failed: %w", err)
	}
	return &Keypair{PrivateKey: priv}, nil
}

func (kp *Keypair) PrivateKeyHex() string {
	return hex.EncodeToString(ethcrypto.FromECDSA(kp.PrivateKey))
}

// PublicKey returns the compressed public key
func (kp *Keypair) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&kp.PrivateKey.PublicKey)
}

// Sign signs a 32 bytes digest, the result is [R || S || V]
func (kp *Keypair) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, ErrInvalidHashLength
	}
	return ethcrypto.Sign(hash, kp.PrivateKey)
}

// Verify checks sig over hash against a compressed or uncompressed pubkey.
// The recovery id of a 65 bytes signature is ignored.
func Verify(pubkey []byte, hash []byte, sig []byte) bool {
	if len(hash) != 32 {
		return false
	}
	if len(sig) == SignatureLength {
		sig = sig[:SignatureLength-1]
	}
	if len(sig) != SignatureLength-1 {
		return false
	}
	return ethcrypto.VerifySignature(pubkey, hash, sig)
}
