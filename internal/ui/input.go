package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/large-farva/groundwatch/internal/event"
)

// decodeKeys splits one read from a raw-mode terminal into key presses.
// Escape sequences other than shift-tab are reported as KeyUnknown.
func decodeKeys(buf []byte) []event.Key {
	var keys []event.Key
	for len(buf) > 0 {
		switch c := buf[0]; {
		case c == 0x03:
			keys = append(keys, event.Key{Code: event.KeyCtrlC})
			buf = buf[1:]
		case c == '\t':
			keys = append(keys, event.Key{Code: event.KeyTab})
			buf = buf[1:]
		case c == '\r' || c == '\n':
			keys = append(keys, event.Key{Code: event.KeyEnter})
			buf = buf[1:]
		case c == 0x1b:
			n := escapeLen(buf)
			switch {
			case n == 1:
				keys = append(keys, event.Key{Code: event.KeyEscape})
			case string(buf[:n]) == "\x1b[Z":
				keys = append(keys, event.Key{Code: event.KeyBackTab})
			default:
				keys = append(keys, event.Key{Code: event.KeyUnknown})
			}
			buf = buf[n:]
		case c < 0x20 || c == 0x7f:
			keys = append(keys, event.Key{Code: event.KeyUnknown})
			buf = buf[1:]
		default:
			r, size := utf8.DecodeRune(buf)
			if r == utf8.RuneError {
				keys = append(keys, event.Key{Code: event.KeyUnknown})
			} else {
				keys = append(keys, event.Key{Code: event.KeyRune, Rune: r})
			}
			buf = buf[size:]
		}
	}
	return keys
}

// escapeLen is the length of the escape sequence at the start of buf: a lone
// ESC, a CSI sequence up to its final byte, or ESC plus one character.
func escapeLen(buf []byte) int {
	if len(buf) < 2 {
		return 1
	}
	if buf[1] != '[' && buf[1] != 'O' {
		return 2
	}
	for i := 2; i < len(buf); i++ {
		if buf[i] >= 0x40 && buf[i] <= 0x7e {
			return i + 1
		}
	}
	return len(buf)
}

// ReadInput decodes key presses from r until it fails or the bus closes.
// The read blocks, so the goroutine running it is not joined on shutdown.
func ReadInput(r io.Reader, sender event.Sender) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, k := range decodeKeys(buf[:n]) {
			if serr := sender.Send(event.Input{Key: k}); serr != nil {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("ui: read input: %w", err)
		}
	}
}

// Ticks sends a Tick every interval until ctx ends or the bus closes.
func Ticks(ctx context.Context, sender event.Sender, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := sender.Send(event.Tick{}); err != nil {
				return nil
			}
		}
	}
}
