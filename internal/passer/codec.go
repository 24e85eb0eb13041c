package passer

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// CompressThreshold is the encoded size above which frames are compressed.
const CompressThreshold = 1024

const (
	flagRaw  byte = 0
	flagZstd byte = 1
)

var errCorrupt = errors.New("corrupt frame")

// Codec turns frames into wire bytes: a flag byte, then the msgpack body,
// zstd-compressed when it is larger than CompressThreshold. A Codec is safe
// for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

func (c *Codec) Encode(f Frame) ([]byte, error) {
	body, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}

	if len(body) <= CompressThreshold {
		out := make([]byte, 0, len(body)+1)
		out = append(out, flagRaw)
		return append(out, body...), nil
	}

	out := make([]byte, 1, len(body)/2+1)
	out[0] = flagZstd
	return c.enc.EncodeAll(body, out), nil
}

func (c *Codec) Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, errCorrupt
	}

	body := data[1:]
	switch data[0] {
	case flagRaw:
	case flagZstd:
		var err error
		body, err = c.dec.DecodeAll(body, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("decompress frame: %w", err)
		}
	default:
		return Frame{}, fmt.Errorf("%w: flag %d", errCorrupt, data[0])
	}

	var f Frame
	if err := msgpack.Unmarshal(body, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Compressed reports whether encoded bytes carry a compressed frame.
func Compressed(data []byte) bool {
	return len(data) > 0 && data[0] == flagZstd
}

func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
