package persist

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns a State into a compressed msgpack blob and back.
// Safe for concurrent use.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec. Close releases it.
func NewCodec() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Encode serializes s
func (c *Codec) Encode(s State) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decode deserializes a blob produced by Encode
func (c *Codec) Decode(blob []byte) (*State, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty state blob")
	}
	data, err := c.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress state: %w", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	// numbers come back as int64/uint64/float64 rather than the narrowest type
	dec.UseLooseInterfaceDecoding(true)

	var s State
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &s, nil
}

// Close releases the codec
func (c *Codec) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
