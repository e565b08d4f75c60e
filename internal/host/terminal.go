package host

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Terminal is a Host that prints to writers. Clipboard text goes to Out, everything
// else to Err, so piping the CLI yields only the copied data.
type Terminal struct {
	Out io.Writer
	Err io.Writer

	mu sync.Mutex
}

// NewTerminal returns a Terminal writing to out and errOut.
func NewTerminal(out, errOut io.Writer) *Terminal {
	return &Terminal{Out: out, Err: errOut}
}

func (t *Terminal) printf(w io.Writer, format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(w, format, args...)
}

// Open implements Documents. The file is not read; locations are printed on Reveal.
func (t *Terminal) Open(ctx context.Context, path string) (Editor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &terminalEditor{t: t, path: path}, nil
}

// Highlight implements Decorator.
func (t *Terminal) Highlight(editor Editor, r Range) Decoration {
	return noopDecoration{}
}

// WriteText implements Clipboard.
func (t *Terminal) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.printf(t.Out, "%s\n", text)
	return nil
}

// Info implements Notifier.
func (t *Terminal) Info(message string) {
	t.printf(t.Err, "%s\n", message)
}

// Error implements Notifier.
func (t *Terminal) Error(message string) {
	t.printf(t.Err, "Error: %s\n", message)
}

// SetStatus implements StatusBar.
func (t *Terminal) SetStatus(text, tooltip string) {
	if tooltip != "" {
		t.printf(t.Err, "%s (%s)\n", text, tooltip)
		return
	}
	t.printf(t.Err, "%s\n", text)
}

type terminalEditor struct {
	t    *Terminal
	path string
}

func (e *terminalEditor) Path() string { return e.path }

func (e *terminalEditor) Select(r Range) {}

func (e *terminalEditor) Reveal(r Range) {
	e.t.printf(e.t.Out, "%s:%s\n", e.path, r)
}

type noopDecoration struct{}

func (noopDecoration) Dispose() {}
