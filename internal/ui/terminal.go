// Package ui is the dashboard: the single consumer of the event bus, the
// state transitions it applies, and the full-screen renderer.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	altScreenOn  = "\x1b[?1049h"
	altScreenOff = "\x1b[?1049l"
	cursorHide   = "\x1b[?25l"
	cursorShow   = "\x1b[?25h"
	clearScreen  = "\x1b[2J"
)

// Screen is where frames are drawn.
type Screen interface {
	io.Writer
	Size() (width, height int, err error)
}

// Terminal puts the controlling terminal into raw mode on the alternate
// screen and restores it on Close.
type Terminal struct {
	in    *os.File
	out   *os.File
	state *term.State
}

// OpenTerminal switches stdin/stdout into dashboard mode. It fails when
// either is not a terminal.
func OpenTerminal() (*Terminal, error) {
	in, out := os.Stdin, os.Stdout
	if !term.IsTerminal(int(in.Fd())) || !term.IsTerminal(int(out.Fd())) {
		return nil, errors.New("ui: stdin and stdout must be a terminal")
	}

	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("ui: raw mode: %w", err)
	}

	t := &Terminal{in: in, out: out, state: state}
	if _, err := io.WriteString(out, altScreenOn+cursorHide+clearScreen); err != nil {
		_ = term.Restore(int(in.Fd()), state)
		return nil, err
	}
	return t, nil
}

// Input is the raw key stream.
func (t *Terminal) Input() io.Reader { return t.in }

func (t *Terminal) Write(p []byte) (int, error) { return t.out.Write(p) }

func (t *Terminal) Size() (int, int, error) {
	return term.GetSize(int(t.out.Fd()))
}

// Close leaves the alternate screen and restores the saved terminal mode.
func (t *Terminal) Close() error {
	_, werr := io.WriteString(t.out, "\x1b[0m"+cursorShow+altScreenOff)
	return errors.Join(werr, term.Restore(int(t.in.Fd()), t.state))
}
