// Package waterfall reads the spectrum capture files a SatNOGS client writes
// while an observation is running and turns them into bus events.
package waterfall

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	timestampSize = 32

	// HeaderSize is the length of the fixed header at the start of every
	// capture file.
	HeaderSize = timestampSize + 20

	// MaxFFTSize bounds the bins per row a header may declare.
	MaxFFTSize = 1 << 20
)

var (
	// ErrMissingHeader is returned when the header did not reach the disk in
	// time.
	ErrMissingHeader = errors.New("waterfall: missing header")

	// ErrShortHeader is returned when fewer than HeaderSize bytes could be
	// read.
	ErrShortHeader = errors.New("waterfall: short header")
)

// Header describes a capture. Numeric fields are big-endian on disk.
type Header struct {
	Timestamp  time.Time
	FFTSize    uint32
	SampleRate uint32
	NFFTPerRow uint32
	CenterFreq float32
	Endianness uint32
}

// wireHeader is the on-disk layout.
type wireHeader struct {
	Timestamp  [timestampSize]byte
	FFTSize    uint32
	SampleRate uint32
	NFFTPerRow uint32
	CenterFreq float32
	Endianness uint32
}

// DecodeHeader reads a header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	var w wireHeader
	if err := binary.Read(r, binary.BigEndian, &w); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, ErrShortHeader
		}
		return Header{}, fmt.Errorf("read header: %w", err)
	}

	ts, err := parseTimestamp(w.Timestamp[:])
	if err != nil {
		return Header{}, err
	}
	if w.FFTSize == 0 {
		return Header{}, errors.New("waterfall: header has zero fft size")
	}
	if w.FFTSize > MaxFFTSize {
		return Header{}, fmt.Errorf("waterfall: header fft size %d exceeds %d", w.FFTSize, MaxFFTSize)
	}

	return Header{
		Timestamp:  ts,
		FFTSize:    w.FFTSize,
		SampleRate: w.SampleRate,
		NFFTPerRow: w.NFFTPerRow,
		CenterFreq: w.CenterFreq,
		Endianness: w.Endianness,
	}, nil
}

// EncodeHeader writes h in the on-disk layout.
func EncodeHeader(wr io.Writer, h Header) error {
	w := wireHeader{
		FFTSize:    h.FFTSize,
		SampleRate: h.SampleRate,
		NFFTPerRow: h.NFFTPerRow,
		CenterFreq: h.CenterFreq,
		Endianness: h.Endianness,
	}
	ts := h.Timestamp.UTC().Format(time.RFC3339Nano)
	if len(ts) > timestampSize {
		return fmt.Errorf("waterfall: timestamp %q does not fit the header", ts)
	}
	copy(w.Timestamp[:], ts)
	return binary.Write(wr, binary.BigEndian, &w)
}

// parseTimestamp decodes the NUL-terminated RFC 3339 field.
func parseTimestamp(buf []byte) (time.Time, error) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	ts, err := time.Parse(time.RFC3339Nano, string(buf))
	if err != nil {
		return time.Time{}, fmt.Errorf("waterfall: header timestamp: %w", err)
	}
	return ts, nil
}

// RecordSize is the byte length of one row for the given FFT size.
func (h Header) RecordSize() int64 {
	return 8 + 4*int64(h.FFTSize)
}

// Frequencies is the row's frequency axis in Hz relative to the center
// frequency: FFTSize evenly spaced values from -SampleRate/2 to
// +SampleRate/2 inclusive.
func (h Header) Frequencies() []float32 {
	n := int(h.FFTSize)
	out := make([]float32, n)
	lo := -0.5 * float64(h.SampleRate)
	if n == 1 {
		out[0] = float32(lo)
		return out
	}
	step := float64(h.SampleRate) / float64(n-1)
	for i := range out {
		out[i] = float32(lo + step*float64(i))
	}
	return out
}

// Record is one spectrum row.
type Record struct {
	Timestamp int64
	Power     []float32
}

// ReadRecord reads one row of fftSize bins. Rows are little-endian.
func ReadRecord(r io.Reader, fftSize uint32) (Record, error) {
	var rec Record
	if err := binary.Read(r, binary.LittleEndian, &rec.Timestamp); err != nil {
		return Record{}, fmt.Errorf("read record timestamp: %w", err)
	}
	rec.Power = make([]float32, fftSize)
	if err := binary.Read(r, binary.LittleEndian, rec.Power); err != nil {
		return Record{}, fmt.Errorf("read record power: %w", err)
	}
	return rec, nil
}

// WriteRecord appends one row.
func WriteRecord(w io.Writer, rec Record) error {
	if err := binary.Write(w, binary.LittleEndian, rec.Timestamp); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, rec.Power)
}
