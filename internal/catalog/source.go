// Package catalog reads artifact rows from a CSV catalog.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls how the catalog is read.
type Options struct {
	// SkipHeader drops the first record.
	SkipHeader bool
}

// Source yields catalog rows in file order. It is forward-only and cannot be rewound.
type Source struct {
	file    io.Closer
	reader  *csv.Reader
	line    int
	skipped bool
	opts    Options
}

// Open opens the catalog at path.
func Open(path string, opts Options) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	src, err := newSource(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	src.file = file
	return src, nil
}

// NewReaderSource reads rows from r. Closing the source does not close r.
func NewReaderSource(r io.Reader, opts Options) (*Source, error) {
	return newSource(r, opts)
}

func newSource(r io.Reader, opts Options) (*Source, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	return &Source{reader: reader, opts: opts}, nil
}

// Next returns the next row, or io.EOF once the catalog is exhausted.
func (s *Source) Next() ([]string, error) {
	if s == nil || s.reader == nil {
		return nil, io.EOF
	}

	if s.opts.SkipHeader && !s.skipped {
		s.skipped = true
		if _, err := s.read(); err != nil {
			return nil, err
		}
	}
	return s.read()
}

func (s *Source) read() ([]string, error) {
	row, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("parse catalog record %d: %w", s.line+1, err)
	}
	s.line++
	return row, nil
}

// Line returns the 1-based number of the record last returned by Next,
// counting a skipped header.
func (s *Source) Line() int {
	if s == nil {
		return 0
	}
	return s.line
}

// Close releases the underlying file, if the source opened one.
func (s *Source) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
