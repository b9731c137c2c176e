// Package ansi interprets ANSI/VT100 escape sequences in terminal output,
// turning raw bytes into styled runs of text. Only SGR (color/style)
// sequences carry rendering meaning; cursor movement, screen clears and
// other control sequences are stripped. Input may arrive in arbitrary
// chunks: sequences split across chunk boundaries are buffered and
// completed on the next call.
package ansi

import (
	"strconv"
	"strings"
)

// Attributes is the SGR state carried across chunks. Nil colors mean the
// terminal default. The zero value is the default state.
type Attributes struct {
	FG        *Color
	BG        *Color
	Bold      bool
	Underline bool
}

// Equal reports whether two attribute states render identically.
func (a Attributes) Equal(b Attributes) bool {
	return a.Bold == b.Bold && a.Underline == b.Underline &&
		colorEqual(a.FG, b.FG) && colorEqual(a.BG, b.BG)
}

func colorEqual(a, b *Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Run is a maximal span of output text sharing one attribute state.
type Run struct {
	Text string
	Attr Attributes
}

const escByte = 0x1b

// maxPending bounds how many bytes of an unterminated escape sequence we
// buffer before giving up and discarding it.
const maxPending = 4096

// Interpreter converts a stream of terminal output chunks into styled runs.
// It carries attribute state and any incomplete trailing escape sequence
// across Feed calls, so a sequence split at any byte boundary renders the
// same as the unsplit stream. One Interpreter per rendering context; it is
// not safe for concurrent use.
type Interpreter struct {
	attr     Attributes
	leftover []byte
	skip     skipMode
}

// skipMode names the terminator being waited for while discarding a
// runaway escape sequence, so the discard needs no buffering.
type skipMode int

const (
	skipNone skipMode = iota
	skipCSI           // final byte 0x40-0x7e
	skipOSC           // BEL; a new ESC is left for reprocessing
	skipESC           // first byte past the 0x20-0x2f intermediates
)

func skipModeFor(introducer byte) skipMode {
	switch introducer {
	case '[':
		return skipCSI
	case ']':
		return skipOSC
	default:
		return skipESC
	}
}

// skipScan discards bytes belonging to a runaway sequence. It reports how
// many bytes of data were consumed and whether the terminator was reached.
func skipScan(mode skipMode, data []byte) (int, bool) {
	for j := 0; j < len(data); j++ {
		b := data[j]
		switch mode {
		case skipCSI:
			if b >= 0x40 && b <= 0x7e {
				return j + 1, true
			}
			if b < 0x20 || b > 0x3f {
				// Malformed; reprocess this byte as output.
				return j, true
			}
		case skipOSC:
			if b == 0x07 {
				return j + 1, true
			}
			if b == escByte {
				// ESC \ (or whatever sequence follows) takes over here.
				return j, true
			}
		case skipESC:
			if b < 0x20 || b > 0x2f {
				return j + 1, true
			}
		}
	}
	return len(data), false
}

// NewInterpreter returns an interpreter in the default attribute state.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// State returns the current attribute state.
func (it *Interpreter) State() Attributes {
	return it.attr
}

// Feed processes one chunk and returns the styled runs it produced.
// An incomplete escape sequence at the end of the chunk is held back and
// prepended to the next chunk.
func (it *Interpreter) Feed(chunk []byte) []Run {
	if it.skip != skipNone {
		n, done := skipScan(it.skip, chunk)
		if !done {
			return nil
		}
		chunk = chunk[n:]
		it.skip = skipNone
	}

	data := chunk
	if len(it.leftover) > 0 {
		data = append(it.leftover, chunk...)
		it.leftover = nil
	}

	var runs []Run
	var text []byte
	flush := func() {
		if len(text) > 0 {
			runs = append(runs, Run{Text: string(text), Attr: it.attr})
			text = text[:0]
		}
	}

	i := 0
	for i < len(data) {
		if data[i] != escByte {
			text = append(text, data[i])
			i++
			continue
		}

		n, params, isSGR, complete := scanEscape(data[i:])
		if !complete {
			if len(data)-i > maxPending {
				// Runaway unterminated sequence: discard what we have and
				// keep discarding until its terminator arrives, rather
				// than buffering without bound.
				it.skip = skipModeFor(data[i+1])
				break
			}
			it.leftover = append([]byte(nil), data[i:]...)
			break
		}
		if isSGR {
			flush()
			it.applySGR(params)
		}
		i += n
	}

	flush()
	return runs
}

// RenderBytes renders a complete captured buffer with a fresh interpreter.
func RenderBytes(buf []byte) []Run {
	return NewInterpreter().Feed(buf)
}

// scanEscape examines an escape sequence starting at data[0] (which must be
// ESC). It reports the byte length of the sequence, the raw SGR parameter
// bytes when the sequence is an SGR, and whether the sequence is complete
// within data. Incomplete sequences report complete=false and must be
// retried with more input.
func scanEscape(data []byte) (n int, params []byte, isSGR, complete bool) {
	if len(data) < 2 {
		return 0, nil, false, false
	}

	switch data[1] {
	case '[': // CSI
		j := 2
		for j < len(data) && data[j] >= 0x20 && data[j] <= 0x3f {
			j++
		}
		if j >= len(data) {
			return 0, nil, false, false
		}
		final := data[j]
		if final < 0x40 || final > 0x7e {
			// Malformed CSI; drop the introducer and let the offending
			// byte be reprocessed as output.
			return j, nil, false, true
		}
		if final == 'm' {
			return j + 1, data[2:j], true, true
		}
		// Cursor movement, clears, save/restore and everything else
		// carry no text attributes: stripped.
		return j + 1, nil, false, true

	case ']': // OSC, terminated by BEL or ESC \
		for j := 2; j < len(data); j++ {
			switch data[j] {
			case 0x07:
				return j + 1, nil, false, true
			case escByte:
				if j+1 >= len(data) {
					return 0, nil, false, false
				}
				if data[j+1] == '\\' {
					return j + 2, nil, false, true
				}
				// ESC without ST: abandon the OSC, reprocess from ESC.
				return j, nil, false, true
			}
		}
		return 0, nil, false, false

	default:
		// Two-byte escapes (ESC 7, ESC 8, ESC =, ...) possibly with
		// intermediates, e.g. charset selection ESC ( B.
		j := 1
		for j < len(data) && data[j] >= 0x20 && data[j] <= 0x2f {
			j++
		}
		if j >= len(data) {
			return 0, nil, false, false
		}
		return j + 1, nil, false, true
	}
}

// applySGR applies one SGR sequence's semicolon-separated codes in order.
// Malformed or unrecognized codes are no-ops; processing continues with
// the remaining codes.
func (it *Interpreter) applySGR(raw []byte) {
	if len(raw) == 0 {
		// ESC[m is shorthand for reset.
		it.attr = Attributes{}
		return
	}

	parts := strings.Split(string(raw), ";")
	codes := make([]int, len(parts))
	for i, p := range parts {
		if p == "" {
			codes[i] = 0 // empty parameter defaults to 0
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			v = -1 // non-numeric, ignored below
		}
		codes[i] = v
	}

	for i := 0; i < len(codes); i++ {
		code := codes[i]
		switch {
		case code == 0:
			it.attr = Attributes{}
		case code == 1:
			it.attr.Bold = true
		case code == 4:
			it.attr.Underline = true
		case code == 22:
			it.attr.Bold = false
		case code == 24:
			it.attr.Underline = false
		case code == 39:
			it.attr.FG = nil
		case code == 49:
			it.attr.BG = nil
		case code >= 30 && code <= 37:
			it.setColor(true, Palette(uint8(code-30)))
		case code >= 40 && code <= 47:
			it.setColor(false, Palette(uint8(code-40)))
		case code >= 90 && code <= 97:
			it.setColor(true, Palette(uint8(code-90+8)))
		case code >= 100 && code <= 107:
			it.setColor(false, Palette(uint8(code-100+8)))
		case code == 38:
			i = it.applyExtended(codes, i, true)
		case code == 48:
			i = it.applyExtended(codes, i, false)
		default:
			// Unrecognized code: ignore.
		}
	}
}

// applyExtended handles 38/48 extended color forms: "38;5;N" (256-color
// palette) and "38;2;R;G;B" (24-bit). Returns the index of the last
// parameter consumed. Out-of-range or truncated parameters make the whole
// form a no-op, but the parameters are still consumed.
func (it *Interpreter) applyExtended(codes []int, i int, fg bool) int {
	if i+1 >= len(codes) {
		return i
	}
	switch codes[i+1] {
	case 5:
		if i+2 >= len(codes) {
			return i + 1
		}
		if n := codes[i+2]; n >= 0 && n <= 255 {
			it.setColor(fg, Palette(uint8(n)))
		}
		return i + 2
	case 2:
		if i+4 >= len(codes) {
			return len(codes) - 1
		}
		r, g, b := codes[i+2], codes[i+3], codes[i+4]
		if inByteRange(r) && inByteRange(g) && inByteRange(b) {
			it.setColor(fg, Color{uint8(r), uint8(g), uint8(b)})
		}
		return i + 4
	default:
		// Unknown color mode, no-op.
		return i + 1
	}
}

func (it *Interpreter) setColor(fg bool, c Color) {
	if fg {
		it.attr.FG = &c
	} else {
		it.attr.BG = &c
	}
}

func inByteRange(v int) bool {
	return v >= 0 && v <= 255
}
