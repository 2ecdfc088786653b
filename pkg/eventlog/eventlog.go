package eventlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mabitter/tractor-sub000/pkg/types"
)

// MaxRecordSize is the largest envelope a record can hold
const MaxRecordSize = math.MaxUint16

const headerSize = 2

var (
	// ErrRecordTooLarge is returned when an envelope does not fit a record
	ErrRecordTooLarge = errors.New("record exceeds 65535 bytes")

	// ErrTruncatedRecord is returned when a record header promises more bytes than remain
	ErrTruncatedRecord = errors.New("truncated log record")
)

// Writer appends records to a log
type Writer struct {
	w   io.Writer
	hdr [headerSize]byte
}

// NewWriter creates a log writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends one envelope as a record
func (w *Writer) Write(env *types.Envelope) error {
	body, err := env.MarshalBinary()
	if err != nil {
		return err
	}
	return w.WriteRaw(body)
}

// WriteRaw appends an already serialized envelope
func (w *Writer) WriteRaw(body []byte) error {
	if len(body) > MaxRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(body))
	}
	binary.LittleEndian.PutUint16(w.hdr[:], uint16(len(body)))
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return err
	}
	_, err := w.w.Write(body)
	return err
}

// Reader iterates over the records of a log
type Reader struct {
	r   *bufio.Reader
	hdr [headerSize]byte
	buf []byte
	n   int
}

// NewReader creates a log reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Records returns the number of records read so far
func (r *Reader) Records() int {
	return r.n
}

// NextRaw returns the next serialized envelope. The slice is only valid
// until the following call. It returns io.EOF at the end of the log,
// including when fewer bytes than a header remain.
func (r *Reader) NextRaw() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	size := int(binary.LittleEndian.Uint16(r.hdr[:]))
	if cap(r.buf) < size {
		r.buf = make([]byte, size)
	}
	r.buf = r.buf[:size]

	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: record %d wants %d bytes", ErrTruncatedRecord, r.n, size)
		}
		return nil, err
	}

	r.n++
	return r.buf, nil
}

// Next decodes the next envelope
func (r *Reader) Next() (*types.Envelope, error) {
	body, err := r.NextRaw()
	if err != nil {
		return nil, err
	}
	env := new(types.Envelope)
	if err := env.UnmarshalBinary(body); err != nil {
		return nil, fmt.Errorf("record %d: %w", r.n-1, err)
	}
	return env, nil
}

// ReadAll decodes every envelope of a log, stopping at the first error.
// The envelopes decoded before the error are returned with it.
func ReadAll(r io.Reader) ([]*types.Envelope, error) {
	lr := NewReader(r)
	var out []*types.Envelope
	for {
		env, err := lr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, env)
	}
}
