package manifest

import (
	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
)

// Codec encodes manifests deterministically, so that a manifest always
// produces the same signed payload.
type Codec struct {
	cbor dtcbor.CBORCodec
}

func NewCodec() (Codec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(),
	)
	if err != nil {
		return Codec{}, err
	}
	return Codec{cbor: codec}, nil
}

func (c Codec) Marshal(m Manifest) ([]byte, error) {
	return c.cbor.MarshalCBOR(m)
}

func (c Codec) Unmarshal(b []byte) (Manifest, error) {
	var m Manifest
	if err := c.cbor.UnmarshalInto(b, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}
