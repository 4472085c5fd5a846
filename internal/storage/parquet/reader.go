package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/measure"
)

// readBatchSize is the number of rows ReadAll requests per Read.
const readBatchSize = 1024

// SessionReader reads session records from a Parquet file.
type SessionReader struct {
	file   *os.File
	reader *parquet.GenericReader[measure.Record]
	path   string
}

// NewSessionReader opens a session export.
func NewSessionReader(path string) (*SessionReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &SessionReader{
		file:   f,
		reader: parquet.NewGenericReader[measure.Record](f, parquet.ReadBufferSize(1024*1024)),
		path:   path,
	}, nil
}

// Read reads up to n records. It returns io.EOF once the file is exhausted.
func (r *SessionReader) Read(n int) ([]measure.Record, error) {
	rows := make([]measure.Record, n)
	count, err := r.reader.Read(rows)
	if count > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return rows[:count], err
}

// ReadAll reads every remaining record in the file.
func (r *SessionReader) ReadAll() ([]measure.Record, error) {
	out := make([]measure.Record, 0, r.reader.NumRows())
	for {
		rows, err := r.Read(readBatchSize)
		out = append(out, rows...)
		if errors.Is(err, io.EOF) || (err == nil && len(rows) == 0) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// NumRows returns the total number of rows in the file.
func (r *SessionReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *SessionReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *SessionReader) Path() string {
	return r.path
}
