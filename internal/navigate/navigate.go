// Package navigate turns a match into an editor location: open the file, select and
// reveal the range, and keep a single transient highlight on it.
package navigate

import (
	"context"
	"fmt"
	"sync"

	"jxscout/internal/errors"
	"jxscout/internal/host"
	"jxscout/internal/protocol"
	"jxscout/internal/tree"
)

// SelectionRange converts a finding's server coordinates into an editor range.
// Server lines are 1-based and columns 0-based; editor positions are 0-based on both.
func SelectionRange(f *protocol.Finding) host.Range {
	return host.Range{
		Start: toEditor(f.Start),
		End:   toEditor(f.End),
	}
}

func toEditor(p protocol.Position) host.Position {
	if p.Valid() {
		return host.Position{Line: p.Line - 1, Character: p.Column}
	}
	line := p.Line - 1
	if line < 0 {
		line = 0
	}
	col := p.Column
	if col < 0 {
		col = 0
	}
	return host.Position{Line: line, Character: col}
}

// Highlighter keeps at most one active highlight.
type Highlighter struct {
	decorator host.Decorator

	// mu also serialises decorator calls.
	mu     sync.Mutex
	active host.Decoration
	editor host.Editor
	rng    host.Range
}

// NewHighlighter returns a Highlighter applying decorations through d.
func NewHighlighter(d host.Decorator) *Highlighter {
	return &Highlighter{decorator: d}
}

// Highlight replaces the active highlight with one on r in editor. The previous
// decoration is disposed before the new one is applied.
func (h *Highlighter) Highlight(editor host.Editor, r host.Range) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clearLocked()
	h.active, h.editor, h.rng = h.decorator.Highlight(editor, r), editor, r
}

// Clear removes the active highlight, if any.
func (h *Highlighter) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

func (h *Highlighter) clearLocked() {
	if h.active != nil {
		h.active.Dispose()
	}
	h.active, h.editor = nil, nil
}

// Active reports whether a highlight is shown and where.
func (h *Highlighter) Active() (path string, r host.Range, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return "", host.Range{}, false
	}
	return h.editor.Path(), h.rng, true
}

// CursorMoved clears the highlight when the cursor leaves it or lands in another file.
func (h *Highlighter) CursorMoved(path string, p host.Position) {
	h.mu.Lock()
	keep := h.active != nil && h.editor.Path() == path && h.rng.Contains(p)
	h.mu.Unlock()

	if !keep {
		h.Clear()
	}
}

// ActiveEditorChanged clears the highlight when a different file becomes active.
func (h *Highlighter) ActiveEditorChanged(path string) {
	h.mu.Lock()
	keep := h.active != nil && h.editor.Path() == path
	h.mu.Unlock()

	if !keep {
		h.Clear()
	}
}

// Navigator opens match locations.
type Navigator struct {
	docs        host.Documents
	highlighter *Highlighter
}

// New returns a Navigator.
func New(docs host.Documents, hl *Highlighter) *Navigator {
	return &Navigator{docs: docs, highlighter: hl}
}

// ToMatch opens the item's file, selects and reveals its range and highlights it.
func (n *Navigator) ToMatch(ctx context.Context, item *tree.Item) (host.Range, error) {
	f := item.Finding()
	if f == nil {
		return host.Range{}, errors.Newf(errors.InternalError, "item %q is not a match", item.ID)
	}
	if item.FilePath == "" {
		return host.Range{}, errors.Newf(errors.InternalError, "item %q has no source file", item.ID)
	}
	return n.To(ctx, item.FilePath, f)
}

// To opens path at the finding's range.
func (n *Navigator) To(ctx context.Context, path string, f *protocol.Finding) (host.Range, error) {
	r := SelectionRange(f)

	editor, err := n.docs.Open(ctx, path)
	if err != nil {
		return host.Range{}, fmt.Errorf("open %s: %w", path, err)
	}
	editor.Select(r)
	editor.Reveal(r)
	if n.highlighter != nil {
		n.highlighter.Highlight(editor, r)
	}
	return r, nil
}
