// Package source enumerates the sharded input stream.
//
// The input is line-delimited JSON, normally gzip-compressed. Every line
// counts toward the global index whether or not this worker owns it, so the
// shard assignment stays reproducible across attempts as long as the file is
// not modified. Only owned lines are decoded.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"eccorun/internal/services"
	"eccorun/internal/shard"
)

// Record is one input document.
type Record struct {
	Index int64  `json:"-"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

type wireRecord struct {
	URL  *string `json:"url"`
	Text *string `json:"text"`
}

// Reader yields the records owned by one shard, in input order.
type Reader struct {
	assignment shard.Assignment
	buf        *bufio.Reader
	closers    []io.Closer
	next       int64
}

// Open opens path and returns a reader over the records owned by assignment.
// Gzip input is detected from its magic bytes; plain JSONL is also accepted.
func Open(path string, assignment shard.Assignment) (*Reader, error) {
	if err := assignment.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open", "", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "source", "open", path, err)
	}
	r, err := newReader(file, assignment)
	if err != nil {
		_ = file.Close()
		return nil, services.Wrap(services.ErrInput, "source", "open", path, err)
	}
	r.closers = append(r.closers, file)
	return r, nil
}

// NewReader wraps an already open stream.
func NewReader(r io.Reader, assignment shard.Assignment) (*Reader, error) {
	if err := assignment.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "open", "", err)
	}
	reader, err := newReader(r, assignment)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "source", "open", "", err)
	}
	return reader, nil
}

func newReader(r io.Reader, assignment shard.Assignment) (*Reader, error) {
	buffered := bufio.NewReaderSize(r, 1<<20)
	magic, err := buffered.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	reader := &Reader{assignment: assignment}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("gzip header: %w", err)
		}
		reader.closers = append(reader.closers, gz)
		reader.buf = bufio.NewReaderSize(gz, 1<<20)
	} else {
		reader.buf = buffered
	}
	return reader, nil
}

// Next returns the next owned record or io.EOF when the stream is exhausted.
// Malformed owned lines and records missing url or text are input errors.
func (r *Reader) Next() (Record, error) {
	for {
		line, err := r.buf.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, services.Wrap(services.ErrInput, "source", "read", fmt.Sprintf("line %d", r.next), err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Record{}, services.Wrap(services.ErrInput, "source", "read", fmt.Sprintf("line %d", r.next), err)
		}
		index := r.next
		r.next++
		if !r.assignment.Owns(index) {
			continue
		}
		return decode(index, line)
	}
}

// Position returns the number of lines consumed so far.
func (r *Reader) Position() int64 {
	return r.next
}

// Close releases the decompressor and file.
func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

func decode(index int64, line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	var wire wireRecord
	if err := json.Unmarshal(line, &wire); err != nil {
		return Record{}, services.Wrap(services.ErrInput, "source", "decode", fmt.Sprintf("line %d", index), err)
	}
	if wire.URL == nil || *wire.URL == "" {
		return Record{}, services.Wrap(services.ErrInput, "source", "decode", fmt.Sprintf("line %d: missing url", index), nil)
	}
	if wire.Text == nil {
		return Record{}, services.Wrap(services.ErrInput, "source", "decode", fmt.Sprintf("line %d (%s): missing text", index, *wire.URL), nil)
	}
	return Record{Index: index, URL: *wire.URL, Text: *wire.Text}, nil
}
