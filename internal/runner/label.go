package runner

import (
	"bytes"
	"io"
	"sync"

	"github.com/fatih/color"
)

var colors = []color.Attribute{color.FgYellow, color.FgGreen, color.FgCyan, color.FgMagenta, color.FgBlue}
var index = -1

var l sync.Mutex

const MaxLabelLength = 20

// LabelWriter prefixes every output line with a coloured label.
type LabelWriter struct {
	label     string
	writer    io.Writer
	c         *color.Color
	lineStart bool
}

// NewLabelWriter returns a writer labelling lines with name. Each new writer
// takes the next colour in rotation.
func NewLabelWriter(name string, writer io.Writer) *LabelWriter {
	l.Lock()
	index = (index + 1) % len(colors)
	c := color.New(colors[index])
	l.Unlock()

	if len(name) > MaxLabelLength {
		name = name[:MaxLabelLength-3] + "..."
	}

	return &LabelWriter{
		label:     name,
		writer:    writer,
		c:         c,
		lineStart: true,
	}
}

func (w *LabelWriter) Write(p []byte) (int, error) {
	rest := p
	for len(rest) > 0 {
		if w.lineStart {
			if _, err := w.c.Fprint(w.writer, w.label+" | "); err != nil {
				return 0, err
			}
			w.lineStart = false
		}
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
			w.lineStart = true
		}
		if _, err := w.writer.Write(line); err != nil {
			return 0, err
		}
		rest = rest[len(line):]
	}
	return len(p), nil
}
