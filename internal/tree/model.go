package tree

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"jxscout/internal/protocol"
)

// Placeholder labels shown instead of data.
const (
	LabelEmpty         = "Select a file tracked by jxscout."
	LabelLoading       = "Loading analysis..."
	LabelAssetNotFound = "This file is not tracked by the current project or is not supported by jxscout"
	LabelNoDescriptors = "No descriptors found"
)

// Options configures a Model.
type Options struct {
	Scope    Scope
	SortMode SortMode

	// Language drives alphabetical collation. Defaults to the root locale.
	Language language.Tag
}

// Model is the single source of truth for the descriptors view. Every setter emits
// exactly one change notification.
type Model struct {
	mu         sync.RWMutex
	state      State
	scope      Scope
	sortMode   SortMode
	result     *protocol.AnalysisResult
	generation uint64
	lang       language.Tag

	listenersMu  sync.Mutex
	listeners    map[int]func()
	nextListener int
}

// NewModel returns a model in the empty state.
func NewModel(opts Options) *Model {
	if opts.Scope == "" {
		opts.Scope = ScopeFile
	}
	if opts.SortMode == "" {
		opts.SortMode = SortOccurrence
	}
	return &Model{
		state:     StateEmpty,
		scope:     opts.Scope,
		sortMode:  opts.SortMode,
		lang:      opts.Language,
		listeners: make(map[int]func()),
	}
}

// Subscribe registers fn to be called after every change. The returned function removes it.
func (m *Model) Subscribe(fn func()) func() {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

// Refresh emits a change notification without changing anything.
func (m *Model) Refresh() {
	m.notify()
}

func (m *Model) notify() {
	m.listenersMu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// State returns the view state.
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Scope returns the active scope.
func (m *Model) Scope() Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scope
}

// SortMode returns the active sort mode.
func (m *Model) SortMode() SortMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortMode
}

// Result returns the stored analysis result, or nil.
func (m *Model) Result() *protocol.AnalysisResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result
}

// FilePath returns the file of the stored result, or "".
func (m *Model) FilePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return ""
	}
	return m.result.FilePath
}

// SetState transitions the view. Leaving success discards the stored result.
func (m *Model) SetState(state State) {
	m.mu.Lock()
	m.state = state
	if state != StateSuccess && m.result != nil {
		m.result = nil
		m.generation++
	}
	m.mu.Unlock()
	m.notify()
}

// SetAnalysisData stores result without changing the state.
func (m *Model) SetAnalysisData(result *protocol.AnalysisResult) {
	m.mu.Lock()
	m.result = result
	m.generation++
	m.mu.Unlock()
	m.notify()
}

// ShowResult stores result and enters success with a single notification.
func (m *Model) ShowResult(result *protocol.AnalysisResult) {
	m.mu.Lock()
	m.result = result
	m.generation++
	m.state = StateSuccess
	m.mu.Unlock()
	m.notify()
}

// SetScope sets the scope.
func (m *Model) SetScope(scope Scope) {
	m.mu.Lock()
	m.scope = scope
	m.mu.Unlock()
	m.notify()
}

// SetSortMode sets the sort mode.
func (m *Model) SetSortMode(mode SortMode) {
	m.mu.Lock()
	m.sortMode = mode
	m.mu.Unlock()
	m.notify()
}

// GetChildren returns the items under parent, or the root items when parent is nil.
//
// Outside success a single informational placeholder is returned. With scope project the
// result is always empty.
func (m *Model) GetChildren(parent *Item) []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.scope == ScopeProject {
		return []*Item{}
	}
	if parent != nil && parent.Placeholder {
		return []*Item{}
	}

	switch m.state {
	case StateEmpty:
		return []*Item{newPlaceholder(StateEmpty, LabelEmpty, "info")}
	case StateLoading:
		return []*Item{newPlaceholder(StateLoading, LabelLoading, "loading~spin")}
	case StateAssetNotFound:
		return []*Item{newPlaceholder(StateAssetNotFound, LabelAssetNotFound, "info")}
	}

	if m.result == nil || len(m.result.Results) == 0 {
		return []*Item{newPlaceholder(StateSuccess, LabelNoDescriptors, "info")}
	}

	if parent == nil {
		return m.itemsLocked(m.result.Results, "", "Root")
	}

	node := parent.Node
	if parent.generation != m.generation {
		// Item from an earlier result: resolve it against the current one.
		node = m.lookupLocked(parent.ID)
	}
	if node == nil || !node.HasChildren() {
		return []*Item{}
	}
	return m.itemsLocked(node.Children, parent.ID, "Node")
}

// Find returns the item with the given id in the current result.
func (m *Model) Find(id string) *Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateSuccess || m.scope == ScopeProject {
		return nil
	}
	node := m.lookupLocked(id)
	if node == nil {
		return nil
	}
	fallback := "Node"
	if !strings.Contains(id, "/") {
		fallback = "Root"
	}
	return newItem(node, id, fallback, m.result.FilePath, m.generation)
}

func (m *Model) lookupLocked(id string) *protocol.TreeNode {
	if m.result == nil {
		return nil
	}
	path, ok := parseID(id)
	if !ok {
		return nil
	}

	nodes := m.result.Results
	var node *protocol.TreeNode
	for _, idx := range path {
		if idx >= len(nodes) {
			return nil
		}
		node = nodes[idx]
		if node == nil {
			return nil
		}
		nodes = node.Children
	}
	return node
}

type indexedNode struct {
	index int
	node  *protocol.TreeNode
}

func (m *Model) itemsLocked(nodes []*protocol.TreeNode, parentID, fallbackLabel string) []*Item {
	ordered := make([]indexedNode, 0, len(nodes))
	for i, n := range nodes {
		if n != nil {
			ordered = append(ordered, indexedNode{index: i, node: n})
		}
	}

	if m.sortMode == SortAlphabetical {
		// Collators keep internal buffers and are not safe for concurrent use.
		c := collate.New(m.lang)
		sort.SliceStable(ordered, func(i, j int) bool {
			return c.CompareString(ordered[i].node.Label, ordered[j].node.Label) < 0
		})
	}

	filePath := ""
	if m.result != nil {
		filePath = m.result.FilePath
	}

	items := make([]*Item, 0, len(ordered))
	for _, in := range ordered {
		items = append(items, newItem(in.node, childID(parentID, in.index), fallbackLabel, filePath, m.generation))
	}
	return items
}
