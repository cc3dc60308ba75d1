package profiling

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"datapipe/domain/table"
)

// Chunk is a bounded slice of a CSV file parsed as a standalone fragment.
// Rows are not padded; a short row simply has fewer cells than Columns.
type Chunk struct {
	Index   int
	Columns []string
	Rows    [][]string
	Bytes   int
}

// ChunkReader yields successive chunks of a CSV file. Each chunk holds
// roughly chunkSize bytes, extended to the next newline so that a chunk
// never ends inside a line. A quoted field containing a newline can still
// straddle a boundary; the chunk on either side is then parsed as-is.
//
// The sequence is finite and cannot be restarted.
type ChunkReader struct {
	file      *os.File
	reader    *bufio.Reader
	chunkSize int
	columns   []string
	buf       []byte
	index     int
	done      bool
}

// OpenChunks opens path and consumes its header line. An empty file yields
// a reader with no columns and no chunks.
func OpenChunks(path string, chunkSize int) (*ChunkReader, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &ChunkReader{
		file:      file,
		reader:    bufio.NewReaderSize(file, 64*1024),
		chunkSize: chunkSize,
	}

	// Blank lines before the header are skipped, as csv.Reader does
	var line []byte
	var readErr error
	for readErr == nil && len(bytes.TrimRight(line, "\r\n")) == 0 {
		line, readErr = r.reader.ReadBytes('\n')
	}
	if readErr != nil && readErr != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read header: %w", readErr)
	}
	if len(bytes.TrimSpace(line)) == 0 {
		r.done = true
		return r, nil
	}

	header, err := csv.NewReader(bytes.NewReader(line)).Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("parse header: %w", err)
	}
	r.columns = table.NormalizeHeader(header)
	if readErr == io.EOF {
		// header without a trailing newline is the whole file
		r.done = true
	}

	return r, nil
}

// Columns returns the normalized header names
func (r *ChunkReader) Columns() []string {
	return r.columns
}

// Next returns the next chunk, or io.EOF once the file is exhausted. It
// checks ctx before each read so a cancelled caller stops between chunks.
func (r *ChunkReader) Next(ctx context.Context) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.done {
		return nil, io.EOF
	}

	if cap(r.buf) < r.chunkSize {
		r.buf = make([]byte, r.chunkSize)
	}
	buf := r.buf[:r.chunkSize]

	n, err := io.ReadFull(r.reader, buf)
	buf = buf[:n]
	switch {
	case err == io.EOF:
		r.done = true
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		r.done = true
	case err != nil:
		return nil, fmt.Errorf("read chunk %d: %w", r.index, err)
	case buf[len(buf)-1] != '\n':
		rest, err := r.reader.ReadBytes('\n')
		buf = append(buf, rest...)
		if err == io.EOF {
			r.done = true
		} else if err != nil {
			return nil, fmt.Errorf("read chunk %d: %w", r.index, err)
		}
	}
	r.buf = buf[:0]

	rows, err := parseChunk(buf)
	if err != nil {
		return nil, fmt.Errorf("parse chunk %d: %w", r.index, err)
	}

	chunk := &Chunk{
		Index:   r.index,
		Columns: r.columns,
		Rows:    rows,
		Bytes:   len(buf),
	}
	r.index++
	return chunk, nil
}

// Close releases the underlying file
func (r *ChunkReader) Close() error {
	return r.file.Close()
}

func parseChunk(data []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}
