package codec

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rumsystem/mstnode/pkg/data"
)

var ErrInvalidSignature = errors.New("invalid signature")

type signatureFields struct {
	PublicKey  []byte `validate:"required,len=33"`
	SignedData []byte `validate:"required,len=65"`
}

// SignatureFactory builds signatures out of untrusted bytes. One instance
// is created at startup and handed to every converter that needs it.
type SignatureFactory struct {
	validate *validator.Validate
}

func NewSignatureFactory() *SignatureFactory {
	return &SignatureFactory{validate: validator.New()}
}

// CreateSignature checks the field sizes, it does not verify the signature
func (f *SignatureFactory) CreateSignature(pubkey []byte, signed []byte) (data.Signature, error) {
	fields := signatureFields{PublicKey: pubkey, SignedData: signed}
	if err := f.validate.Struct(fields); err != nil {
		return data.Signature{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	return data.Signature{PublicKey: pubkey, SignedData: signed}, nil
}
