package escpos

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnknownTemplate is returned by Render when the template name does not
// match any registered template.
var ErrUnknownTemplate = errors.New("escpos: unknown template")

type renderFunc func(b *builder, text string, now time.Time)

var templates = map[string]renderFunc{
	"ticket": renderTicket,
	"quote":  renderQuote,
	"banner": renderBanner,
}

// Templates returns the registered template names, sorted.
func Templates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render produces the full ESC/POS payload for the named template, including
// printer init, trailing feed, and cut.
func Render(template, text string) ([]byte, error) {
	fn, ok := templates[template]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	b := newBuilder()
	fn(b, text, time.Now())
	b.raw(feed(4)).raw(cmdCut)
	return b.bytes(), nil
}

func rule() string {
	return strings.Repeat("-", lineWidth)
}

func renderTicket(b *builder, text string, now time.Time) {
	b.raw(cmdAlignCenter).raw(cmdBoldOn)
	b.text("ADMIT ONE")
	b.raw(cmdBoldOff)
	b.text(rule())
	b.raw(cmdAlignLeft)
	b.text(text)
	b.raw(cmdAlignCenter)
	b.text(rule())
	b.text(now.Format("2006-01-02 15:04"))
}

func renderQuote(b *builder, text string, _ time.Time) {
	b.raw(cmdAlignLeft)
	b.text("\"" + text + "\"")
	b.raw(feed(1))
	b.raw(cmdAlignCenter).raw(cmdBoldOn)
	b.text("* * *")
	b.raw(cmdBoldOff)
}

func renderBanner(b *builder, text string, _ time.Time) {
	b.raw(cmdAlignCenter).raw(cmdDoubleSize).raw(cmdBoldOn)
	// Double width halves the usable columns.
	for _, line := range wrap(strings.ToUpper(text), lineWidth/2) {
		b.raw([]byte(line)).raw([]byte{'\n'})
	}
	b.raw(cmdBoldOff).raw(cmdNormalSize)
}
