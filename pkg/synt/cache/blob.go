package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cognicore/synt/pkg/synt/internalerr"
)

// BlobVersion is the envelope version written by this package. Blobs with any
// other version are treated as absent and must be recomputed.
const BlobVersion = 1

type envelope struct {
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// Marshaler encodes values to bytes and back.
type Marshaler interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type envelopeMarshaler struct{}

// NewMarshaler returns the default marshaler: JSON wrapped in a versioned envelope.
func NewMarshaler() Marshaler {
	return envelopeMarshaler{}
}

func (envelopeMarshaler) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: BlobVersion, Data: data})
}

func (envelopeMarshaler) Unmarshal(raw []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", internalerr.ErrNotFound)
	}
	if env.Version != BlobVersion {
		return fmt.Errorf("blob version %d: %w", env.Version, internalerr.ErrNotFound)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode blob: %w", internalerr.ErrNotFound)
	}
	return nil
}
