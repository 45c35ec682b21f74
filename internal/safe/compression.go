// internal/safe/compression.go
package safe

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures compression behavior
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Encoder speed, 1=fastest to 4=best compression
	Level int
}

func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 4096,
		Level:   2,
	}
}

// compressor pools zstd encoders and decoders. Manifest text is highly
// repetitive (hex locators), so even small bodies shrink well.
type compressor struct {
	opts     CompressionOptions
	level    zstd.EncoderLevel
	encoders sync.Pool
	decoders sync.Pool
}

func newCompressor(opts CompressionOptions) (*compressor, error) {
	if opts.Level == 0 {
		opts.Level = DefaultCompressionOptions().Level
	}
	level := zstd.EncoderLevel(opts.Level)
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		return nil, fmt.Errorf("compression level %d out of range 1-4", opts.Level)
	}

	newEncoder := func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil,
			zstd.WithEncoderLevel(level),
			zstd.WithEncoderConcurrency(1),
		)
	}
	newDecoder := func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	}

	// Fail early on bad options rather than inside the pools.
	enc, err := newEncoder()
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := newDecoder()
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	c := &compressor{opts: opts, level: level}
	c.encoders.New = func() any {
		enc, _ := newEncoder()
		return enc
	}
	c.decoders.New = func() any {
		dec, _ := newDecoder()
		return dec
	}
	c.encoders.Put(enc)
	c.decoders.Put(dec)
	return c, nil
}

// compress returns the zstd frame for content and true, or content itself
// and false when it is too small or compression does not help.
func (c *compressor) compress(content []byte) ([]byte, bool) {
	if len(content) < c.opts.MinSize {
		return content, false
	}

	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)

	out := enc.EncodeAll(content, make([]byte, 0, len(content)/2))
	if len(out) >= len(content) {
		return content, false
	}
	return out, true
}

func (c *compressor) decompress(content []byte) ([]byte, error) {
	if !bytes.HasPrefix(content, zstdMagic) {
		return nil, fmt.Errorf("content is not a zstd frame")
	}

	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)

	out, err := dec.DecodeAll(content, nil)
	if err != nil {
		return nil, fmt.Errorf("decoding zstd frame: %w", err)
	}
	return out, nil
}
