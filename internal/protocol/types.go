// Package protocol defines the JSON frames exchanged with the jxscout analysis server
// and the result tree they carry.
//
// Coordinates are passed through exactly as the server reports them: lines are 1-based,
// columns are 0-based. Conversion to editor coordinates happens in the navigate package.
package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
)

// Position is a location in a source file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Valid reports whether p uses the server's convention (line >= 1, column >= 0).
func (p Position) Valid() bool {
	return p.Line >= 1 && p.Column >= 0
}

// Well-known keys of Finding.Extra.
const (
	ExtraPathname    = "pathname"
	ExtraHostname    = "hostname"
	ExtraQueryParams = "query-params"
)

// Extra is the analyzer-specific metadata attached to a finding. Only the well-known keys
// are kept; anything else the server sends is ignored.
type Extra struct {
	Pathname    string `json:"pathname,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	QueryParams string `json:"query-params,omitempty"`
}

// Get returns the value of a well-known key, or "" for unknown keys.
func (e *Extra) Get(key string) string {
	if e == nil {
		return ""
	}
	switch key {
	case ExtraPathname:
		return e.Pathname
	case ExtraHostname:
		return e.Hostname
	case ExtraQueryParams:
		return e.QueryParams
	default:
		return ""
	}
}

// IsZero reports whether no well-known key is set.
func (e *Extra) IsZero() bool {
	return e == nil || (e.Pathname == "" && e.Hostname == "" && e.QueryParams == "")
}

// UnmarshalJSON accepts string values for every key. "query-params" may also be an object,
// which is encoded as a query string with sorted keys.
func (e *Extra) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("extra: %w", err)
	}

	*e = Extra{}
	for key, value := range raw {
		switch key {
		case ExtraPathname:
			e.Pathname = decodeLooseString(value)
		case ExtraHostname:
			e.Hostname = decodeLooseString(value)
		case ExtraQueryParams:
			e.QueryParams = decodeQueryParams(value)
		}
	}
	return nil
}

// decodeLooseString returns the string value, or "" when value is not a JSON string.
func decodeLooseString(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return ""
	}
	return s
}

func decodeQueryParams(value json.RawMessage) string {
	if s := decodeLooseString(value); s != "" {
		return s
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(value, &obj); err != nil || len(obj) == 0 {
		return ""
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			q.Add(k, v)
		case nil:
			q.Add(k, "")
		default:
			q.Add(k, fmt.Sprint(v))
		}
	}
	return q.Encode()
}

// Finding is one occurrence reported by an analyzer.
type Finding struct {
	Value string   `json:"value"`
	Start Position `json:"start"`
	End   Position `json:"end"`
	Extra *Extra   `json:"extra,omitempty"`
}

// NodeType tags a TreeNode.
type NodeType string

const (
	// NodeNavigation groups other nodes; it never carries data
	NodeNavigation NodeType = "navigation"
	// NodeMatch is a leaf carrying a Finding
	NodeMatch NodeType = "match"
)

// TreeNode is one node of an analysis result tree.
//
// A match node always has Data and never has Children. A navigation node never has Data.
type TreeNode struct {
	ID          string      `json:"id,omitempty"`
	Type        NodeType    `json:"type"`
	Label       string      `json:"label,omitempty"`
	Description string      `json:"description,omitempty"`
	IconName    string      `json:"iconName,omitempty"`
	Tooltip     string      `json:"tooltip,omitempty"`
	Data        *Finding    `json:"data,omitempty"`
	Children    []*TreeNode `json:"children,omitempty"`
}

// IsMatch reports whether n is a match leaf.
func (n *TreeNode) IsMatch() bool {
	return n != nil && n.Type == NodeMatch
}

// HasChildren reports whether n has at least one child.
func (n *TreeNode) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// UnmarshalJSON decodes a node and enforces the tagged-union invariants: children of a
// match are dropped, data of a navigation node is dropped, a match without data is an error.
// Null children are dropped.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	type plain TreeNode
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	switch p.Type {
	case NodeMatch:
		if p.Data == nil {
			return fmt.Errorf("match node %q has no data", p.Label)
		}
		p.Children = nil
	case NodeNavigation, "":
		p.Type = NodeNavigation
		p.Data = nil
		p.Children = compactNodes(p.Children)
	default:
		return fmt.Errorf("unknown node type %q", p.Type)
	}

	*n = TreeNode(p)
	return nil
}

// Walk visits n and its descendants depth-first in server order. Returning false from fn
// stops the walk below that node.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int) bool) {
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(node *TreeNode, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

func compactNodes(nodes []*TreeNode) []*TreeNode {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// AnalysisResult is the server's answer for one file: one sub-tree per analyzer category.
type AnalysisResult struct {
	FilePath string      `json:"filePath"`
	Results  []*TreeNode `json:"results"`
}

// Matches returns every match node in the result, in server order.
func (r *AnalysisResult) Matches() []*TreeNode {
	if r == nil {
		return nil
	}
	var out []*TreeNode
	for _, root := range r.Results {
		root.Walk(func(node *TreeNode, _ int) bool {
			if node.IsMatch() {
				out = append(out, node)
			}
			return true
		})
	}
	return out
}

// UnmarshalJSON accepts "results" as either an array of nodes or a single root node.
// Null entries are dropped.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		FilePath string          `json:"filePath"`
		Results  json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.FilePath = raw.FilePath
	r.Results = nil

	trimmed := trimSpace(raw.Results)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
		return nil
	case trimmed[0] == '{':
		var root TreeNode
		if err := json.Unmarshal(trimmed, &root); err != nil {
			return fmt.Errorf("results: %w", err)
		}
		r.Results = []*TreeNode{&root}
	default:
		if err := json.Unmarshal(trimmed, &r.Results); err != nil {
			return fmt.Errorf("results: %w", err)
		}
		r.Results = compactNodes(r.Results)
	}
	return nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
