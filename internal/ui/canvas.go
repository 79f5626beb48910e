package ui

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// color is a 24-bit terminal color. The zero value is the terminal default.
type color uint32

const colorSet = 1 << 24

func rgb(r, g, b uint8) color {
	return color(colorSet | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c color) components() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

var (
	colDarkCyan = rgb(0, 128, 128)
	colCyan     = rgb(0, 215, 215)
	colYellow   = rgb(230, 200, 40)
	colRed      = rgb(220, 50, 50)
	colGreen    = rgb(80, 200, 80)
	colGray     = rgb(140, 140, 140)
	colDarkGray = rgb(80, 80, 80)
	colMagenta  = rgb(200, 80, 200)
	colWhite    = rgb(240, 240, 240)
	colTabBG    = rgb(0, 70, 90)
)

type style struct {
	fg, bg color
	bold   bool
}

func (s style) sgr(b *bytes.Buffer) {
	b.WriteString("\x1b[0")
	if s.bold {
		b.WriteString(";1")
	}
	if s.fg != 0 {
		r, g, bl := s.fg.components()
		b.WriteString(";38;2;")
		writeRGB(b, r, g, bl)
	}
	if s.bg != 0 {
		r, g, bl := s.bg.components()
		b.WriteString(";48;2;")
		writeRGB(b, r, g, bl)
	}
	b.WriteByte('m')
}

func writeRGB(b *bytes.Buffer, r, g, bl uint8) {
	b.WriteString(strconv.Itoa(int(r)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(g)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(bl)))
}

type cell struct {
	ch rune
	st style
}

type rect struct {
	x, y, w, h int
}

func (r rect) inner() rect {
	return rect{r.x + 1, r.y + 1, max(r.w-2, 0), max(r.h-2, 0)}
}

func (r rect) empty() bool { return r.w <= 0 || r.h <= 0 }

// canvas is one frame. Everything is drawn into it and written to the
// screen in a single pass.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].ch = ' '
	}
	return c
}

func (c *canvas) set(x, y int, ch rune, st style) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{ch: ch, st: st}
}

func (c *canvas) at(x, y int) cell {
	return c.cells[y*c.w+x]
}

// text writes s starting at x and returns the column after it. Nothing is
// written past limit.
func (c *canvas) text(x, y, limit int, s string, st style) int {
	for _, r := range s {
		if x >= limit {
			break
		}
		c.set(x, y, r, st)
		x++
	}
	return x
}

// box draws a single-line border around r with title in the top edge.
func (c *canvas) box(r rect, title string, border, titleStyle style) {
	if r.w < 2 || r.h < 2 {
		return
	}
	right, bottom := r.x+r.w-1, r.y+r.h-1
	for x := r.x + 1; x < right; x++ {
		c.set(x, r.y, '─', border)
		c.set(x, bottom, '─', border)
	}
	for y := r.y + 1; y < bottom; y++ {
		c.set(r.x, y, '│', border)
		c.set(right, y, '│', border)
	}
	c.set(r.x, r.y, '┌', border)
	c.set(right, r.y, '┐', border)
	c.set(r.x, bottom, '└', border)
	c.set(right, bottom, '┘', border)
	if title != "" {
		c.text(r.x+1, r.y, right, " "+title+" ", titleStyle)
	}
}

// WriteTo emits the frame, switching attributes only where they change.
func (c *canvas) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	b.Grow(c.w * c.h * 2)
	for y := 0; y < c.h; y++ {
		b.WriteString("\x1b[")
		b.WriteString(strconv.Itoa(y + 1))
		b.WriteString(";1H")
		cur := style{}
		b.WriteString("\x1b[0m")
		for x := 0; x < c.w; x++ {
			cl := c.at(x, y)
			if cl.st != cur {
				cl.st.sgr(&b)
				cur = cl.st
			}
			b.WriteRune(cl.ch)
		}
	}
	b.WriteString("\x1b[0m")
	n, err := w.Write(b.Bytes())
	return int64(n), err
}

// String is the frame without attributes, trailing blanks trimmed.
func (c *canvas) String() string {
	var sb strings.Builder
	line := make([]byte, 0, c.w*utf8.UTFMax)
	for y := 0; y < c.h; y++ {
		line = line[:0]
		for x := 0; x < c.w; x++ {
			line = utf8.AppendRune(line, c.at(x, y).ch)
		}
		sb.WriteString(strings.TrimRight(string(line), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
