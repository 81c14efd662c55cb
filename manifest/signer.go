package manifest

import (
	"crypto/rand"

	"github.com/veraison/go-cose"
)

type signOptions struct {
	detachRoot bool
}

type SignOption func(*signOptions)

// WithDetachedRoot removes the root from the published payload after
// signing. Verifiers must then recompute the root from the data and supply
// it to VerifySigned.
func WithDetachedRoot() SignOption {
	return func(o *signOptions) {
		o.detachRoot = true
	}
}

// Signer produces COSE Sign1 messages over manifests.
type Signer struct {
	codec Codec
}

func NewSigner(codec Codec) Signer {
	return Signer{codec: codec}
}

// Sign1 signs m. external is additional authenticated data that is not
// carried in the message.
func (s Signer) Sign1(coseSigner cose.Signer, keyID string, m Manifest, external []byte, opts ...SignOption) ([]byte, error) {
	var o signOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := s.codec.Marshal(m)
	if err != nil {
		return nil, err
	}
	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: coseSigner.Algorithm(),
				cose.HeaderLabelKeyID:     []byte(keyID),
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, external, coseSigner); err != nil {
		return nil, err
	}

	if o.detachRoot {
		m.Root = nil
		if msg.Payload, err = s.codec.Marshal(m); err != nil {
			return nil, err
		}
	}
	return msg.MarshalCBOR()
}

// DecodeSigned decodes a signed manifest without verifying it. If the root
// was detached the returned manifest has a nil Root.
func DecodeSigned(codec Codec, data []byte) (*cose.Sign1Message, Manifest, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(data); err != nil {
		return nil, Manifest{}, err
	}
	m, err := codec.Unmarshal(msg.Payload)
	if err != nil {
		return nil, Manifest{}, err
	}
	return &msg, m, nil
}

// KeyID returns the key identifier recorded in a signed manifest.
func KeyID(msg *cose.Sign1Message) string {
	kid, _ := msg.Headers.Protected[cose.HeaderLabelKeyID].([]byte)
	return string(kid)
}

// VerifySigned verifies msg as a signature over m. m is re-encoded into the
// payload first, so a manifest decoded with a detached root verifies only
// once its recomputed root has been restored.
func VerifySigned(codec Codec, verifier cose.Verifier, msg *cose.Sign1Message, m Manifest, external []byte) error {
	payload, err := codec.Marshal(m)
	if err != nil {
		return err
	}
	msg.Payload = payload
	return msg.Verify(external, verifier)
}
