package tree

// Row is one line of a flattened tree.
type Row struct {
	Depth int   `json:"depth"`
	Item  *Item `json:"item"`
}

// Flatten expands the model depth-first in display order, the way a renderer would when
// every node is expanded.
func (m *Model) Flatten() []Row {
	var rows []Row
	var walk func(parent *Item, depth int)
	walk = func(parent *Item, depth int) {
		for _, item := range m.GetChildren(parent) {
			rows = append(rows, Row{Depth: depth, Item: item})
			if item.Collapsible == CollapsibleExpanded {
				walk(item, depth+1)
			}
		}
	}
	walk(nil, 0)
	return rows
}

// Title returns the view title for the current scope and sort mode.
func (m *Model) Title() string {
	return "Descriptors (" + string(m.Scope()) + ") - " + m.SortMode().Title()
}
