// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package frame splits a gzip-compressed byte stream into length-prefixed
// binary records.
//
// Ingest files are gzip streams of frames, each frame a 4-byte big-endian
// length followed by that many payload bytes. The decoder is lazy and
// forward-only: each Next call reads exactly one frame. What the framed
// bytes mean is the record mapper's concern, not this package's.
package frame

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated indicates the stream ended inside a frame: a length header
// with insufficient payload bytes, or a partial length header. A truncated
// frame is fatal for the file; it is never silently dropped.
var ErrTruncated = errors.New("truncated frame")

// ErrFrameTooLarge indicates a frame length exceeding MaxFrameSize,
// which in practice means corrupt framing.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// MaxFrameSize caps a single frame's payload. Real ingest records are a
// few kilobytes; anything near this limit is corruption, not data.
const MaxFrameSize = 64 << 20

// Decoder reads length-prefixed frames from a gzip-compressed stream.
// It is not safe for concurrent use.
type Decoder struct {
	gz *gzip.Reader
	r  *bufio.Reader
}

// NewDecoder wraps a raw compressed byte stream. It fails if the stream
// does not begin with a valid gzip header.
func NewDecoder(r io.Reader) (*Decoder, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	return &Decoder{gz: gz, r: bufio.NewReader(gz)}, nil
}

// Next returns the payload of the next frame. It returns io.EOF once the
// underlying stream is cleanly exhausted, ErrTruncated if the stream ends
// mid-frame, and the payload buffer is owned by the caller.
func (d *Decoder) Next() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		// A partial header is a truncated frame, not a clean end.
		return nil, fmt.Errorf("%w: partial length header: %v", ErrTruncated, err)
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, fmt.Errorf("%w: frame of %d bytes: %v", ErrTruncated, n, err)
	}
	return payload, nil
}

// Close releases the gzip reader. It does not close the underlying stream.
func (d *Decoder) Close() error {
	return d.gz.Close()
}
