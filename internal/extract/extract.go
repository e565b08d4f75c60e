// Package extract collects values from a selection of tree items for the clipboard.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"jxscout/internal/host"
	"jxscout/internal/protocol"
	"jxscout/internal/tree"
)

// Kind selects what is collected from each match.
type Kind string

const (
	Values      Kind = "values"
	Paths       Kind = "paths"
	Hostnames   Kind = "hostnames"
	QueryParams Kind = "query-params"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Values, Paths, Hostnames, QueryParams}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid kind %q (want values, paths, hostnames or query-params)", s)
}

// EmptyNotice is shown when the selection yields nothing of this kind.
func (k Kind) EmptyNotice() string {
	switch k {
	case Paths:
		return "No paths found"
	case Hostnames:
		return "No hostnames found"
	case QueryParams:
		return "No query params found"
	default:
		return "No values found"
	}
}

// Collect returns the deduplicated strings of kind k from the match items in items,
// in order of first occurrence.
func Collect(k Kind, items []*tree.Item) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, item := range items {
		f := item.Finding()
		if f == nil {
			continue
		}
		switch k {
		case Values:
			add(f.Value)
		case Paths:
			add(f.Extra.Get(protocol.ExtraPathname))
		case Hostnames:
			add(f.Extra.Get(protocol.ExtraHostname))
		case QueryParams:
			for _, key := range QueryKeys(f.Extra.Get(protocol.ExtraQueryParams)) {
				add(key)
			}
		}
	}
	return out
}

// QueryKeys returns the parameter names of a query string in order of appearance.
// A leading "?" is ignored and undecodable keys are kept raw.
func QueryKeys(query string) []string {
	query = strings.TrimPrefix(query, "?")
	var keys []string
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Result reports what a Copy call did.
type Result struct {
	Kind   Kind     `json:"kind"`
	Lines  []string `json:"lines"`
	Notice string   `json:"notice,omitempty"`
}

// Copier writes collected selections to the clipboard and tells the user about it.
type Copier struct {
	Clipboard host.Clipboard
	Notifier  host.Notifier
}

// Copy collects kind k from items and writes the newline-joined result to the clipboard.
// An empty selection does nothing.
func (c *Copier) Copy(ctx context.Context, k Kind, items []*tree.Item) (*Result, error) {
	if len(items) == 0 {
		return &Result{Kind: k}, nil
	}

	lines := Collect(k, items)
	res := &Result{Kind: k, Lines: lines}
	if len(lines) == 0 {
		res.Notice = k.EmptyNotice()
		c.notify(res.Notice)
		return res, nil
	}

	if err := c.Clipboard.WriteText(ctx, strings.Join(lines, "\n")); err != nil {
		return nil, fmt.Errorf("write clipboard: %w", err)
	}
	res.Notice = fmt.Sprintf("Copied %d values to clipboard", len(lines))
	c.notify(res.Notice)
	return res, nil
}

func (c *Copier) notify(msg string) {
	if c.Notifier != nil {
		c.Notifier.Info(msg)
	}
}
