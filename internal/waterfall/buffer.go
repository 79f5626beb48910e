package waterfall

// DefaultRows is the number of rows a Buffer keeps by default.
const DefaultRows = 512

// Buffer is the dashboard's copy of the running capture: the frequency axis
// and a bounded ring of the most recent rows.
type Buffer struct {
	ObservationID uint64
	Frequencies   []float32

	rows  []Record
	start int
	n     int
}

// NewBuffer returns an empty buffer holding at most capacity rows. A
// non-positive capacity selects DefaultRows.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultRows
	}
	return &Buffer{rows: make([]Record, capacity)}
}

// Reset starts a new capture, discarding every row.
func (b *Buffer) Reset(observationID uint64, frequencies []float32) {
	b.ObservationID = observationID
	b.Frequencies = frequencies
	b.start, b.n = 0, 0
	clear(b.rows)
}

// Push appends a row, evicting the oldest when full.
func (b *Buffer) Push(rec Record) {
	i := (b.start + b.n) % len(b.rows)
	b.rows[i] = rec
	if b.n < len(b.rows) {
		b.n++
		return
	}
	b.start = (b.start + 1) % len(b.rows)
}

// Clear ends the capture.
func (b *Buffer) Clear() {
	b.Reset(0, nil)
}

// Active reports whether a capture is in progress.
func (b *Buffer) Active() bool {
	return b.Frequencies != nil
}

// Len is the number of rows held.
func (b *Buffer) Len() int { return b.n }

// Cap is the maximum number of rows held.
func (b *Buffer) Cap() int { return len(b.rows) }

// Latest returns the most recent row.
func (b *Buffer) Latest() (Record, bool) {
	if b.n == 0 {
		return Record{}, false
	}
	return b.rows[(b.start+b.n-1)%len(b.rows)], true
}

// Rows returns up to limit rows, newest first. limit <= 0 returns all of
// them.
func (b *Buffer) Rows(limit int) []Record {
	if limit <= 0 || limit > b.n {
		limit = b.n
	}
	out := make([]Record, limit)
	for i := range out {
		out[i] = b.rows[(b.start+b.n-1-i)%len(b.rows)]
	}
	return out
}
