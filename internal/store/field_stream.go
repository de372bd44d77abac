package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"odbbridge/internal/domain"
)

// FieldStreamWriter writes one JSON bucket per line. Lines go to a temp file
// next to the target, which replaces the target on Commit.
type FieldStreamWriter struct {
	path  string
	tmp   *os.File
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
	done  bool
}

// NewFieldStreamWriter opens a stream that will land at path.
func NewFieldStreamWriter(path string) (*FieldStreamWriter, error) {
	f, err := createTemp(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, 1<<16)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &FieldStreamWriter{path: path, tmp: f, buf: buf, enc: enc}, nil
}

// WriteBucket appends b as one line.
func (w *FieldStreamWriter) WriteBucket(b domain.FieldBucket) error {
	if w.done {
		return os.ErrClosed
	}
	if b.Labels == nil {
		b.Labels = []int{}
	}
	if b.Values == nil {
		b.Values = [][]float64{}
	}
	if err := w.enc.Encode(b); err != nil {
		return fmt.Errorf("write bucket %s/%d/%s: %w", b.Step, b.FrameIndex, b.Instance, err)
	}
	w.count++
	return nil
}

// Count is the number of buckets written so far.
func (w *FieldStreamWriter) Count() int { return w.count }

// Commit flushes and renames the stream into place.
func (w *FieldStreamWriter) Commit() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	if err := w.buf.Flush(); err != nil {
		_ = discardTemp(w.tmp)
		return err
	}
	return commitTemp(w.tmp, w.path, 0o644)
}

// Close discards the stream unless it was committed. It is safe to call
// after Commit.
func (w *FieldStreamWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	return discardTemp(w.tmp)
}

// FieldStreamReader reads buckets one line at a time.
type FieldStreamReader struct {
	path string
	f    *os.File
	r    *bufio.Reader
	line int
}

// OpenFieldStream opens the stream at path.
func OpenFieldStream(path string) (*FieldStreamReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FieldStreamReader{path: path, f: f, r: bufio.NewReaderSize(f, 1<<16)}, nil
}

// Next decodes the next non-blank line. It returns io.EOF at the end.
func (r *FieldStreamReader) Next() (domain.FieldBucket, error) {
	for {
		raw, err := r.r.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			return domain.FieldBucket{}, err
		}
		r.line++
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			if errors.Is(err, io.EOF) {
				return domain.FieldBucket{}, io.EOF
			}
			continue
		}
		var b domain.FieldBucket
		if uerr := json.Unmarshal(raw, &b); uerr != nil {
			return domain.FieldBucket{}, fmt.Errorf("%s:%d: %w", r.path, r.line, uerr)
		}
		return b, nil
	}
}

// Line is the line number of the last bucket returned.
func (r *FieldStreamReader) Line() int { return r.line }

// Close closes the underlying file.
func (r *FieldStreamReader) Close() error { return r.f.Close() }

// Compile-time assertions for the stream types.
var (
	_ domain.BucketWriter = (*FieldStreamWriter)(nil)
	_ domain.BucketReader = (*FieldStreamReader)(nil)
)
