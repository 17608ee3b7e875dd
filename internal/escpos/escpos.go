// Package escpos builds ESC/POS byte sequences for the fixed set of receipt
// templates the talk demos use. It is pure formatting: no device state, no
// retries, payloads are handed to the printer core as opaque bytes.
package escpos

import (
	"bytes"
	"strings"
)

// lineWidth is the character width of the 58mm paper at the default font.
const lineWidth = 32

// ESC/POS command fragments.
var (
	cmdInit        = []byte{0x1b, 0x40}
	cmdAlignLeft   = []byte{0x1b, 0x61, 0x00}
	cmdAlignCenter = []byte{0x1b, 0x61, 0x01}
	cmdBoldOn      = []byte{0x1b, 0x45, 0x01}
	cmdBoldOff     = []byte{0x1b, 0x45, 0x00}
	cmdDoubleSize  = []byte{0x1d, 0x21, 0x11}
	cmdNormalSize  = []byte{0x1d, 0x21, 0x00}
	cmdCut         = []byte{0x1d, 0x56, 0x42, 0x00}
)

func feed(n byte) []byte {
	return []byte{0x1b, 0x64, n}
}

// wrap splits text into lines no wider than the paper, breaking on spaces
// where possible.
func wrap(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) <= width {
				line += " " + word
				continue
			}
			lines = append(lines, line)
			line = word
		}
		for len(line) > width {
			lines = append(lines, line[:width])
			line = line[width:]
		}
		lines = append(lines, line)
	}
	return lines
}

type builder struct {
	buf bytes.Buffer
}

func newBuilder() *builder {
	b := &builder{}
	b.raw(cmdInit)
	return b
}

func (b *builder) raw(p []byte) *builder {
	b.buf.Write(p)
	return b
}

func (b *builder) text(s string) *builder {
	for _, line := range wrap(s, lineWidth) {
		b.buf.WriteString(line)
		b.buf.WriteByte('\n')
	}
	return b
}

func (b *builder) bytes() []byte {
	return b.buf.Bytes()
}
