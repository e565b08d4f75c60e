// Package host declares the editor capabilities the client consumes. The core never
// depends on a concrete editor; the CLI wires the terminal implementation.
package host

import (
	"context"
	"fmt"
)

// Position is a 0-based line and column in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// String renders the range as 1-based line, 0-based column, the way editors print locations.
func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line+1, r.Start.Character, r.End.Line+1, r.End.Character)
}

// Contains reports whether p lies inside r.
func (r Range) Contains(p Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character > r.End.Character {
		return false
	}
	return true
}

// Editor is an open document view.
type Editor interface {
	Path() string
	Select(r Range)
	Reveal(r Range)
}

// Documents opens files in the editor.
type Documents interface {
	// Open shows the document at path and returns its editor.
	Open(ctx context.Context, path string) (Editor, error)
}

// Decoration is an applied highlight. Dispose removes it.
type Decoration interface {
	Dispose()
}

// Decorator applies transient highlights.
type Decorator interface {
	Highlight(editor Editor, r Range) Decoration
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Notifier shows user-facing messages.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// StatusBar shows the connection indicator.
type StatusBar interface {
	SetStatus(text, tooltip string)
}

// Host bundles every capability.
type Host interface {
	Documents
	Decorator
	Clipboard
	Notifier
	StatusBar
}
