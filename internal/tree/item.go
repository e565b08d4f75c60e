package tree

import (
	"path/filepath"
	"strconv"
	"strings"

	"jxscout/internal/protocol"
)

// Collapsible tells the renderer whether an item can be expanded.
type Collapsible int

const (
	CollapsibleNone Collapsible = iota
	CollapsibleExpanded
)

// resourcePrefix marks icon names that refer to bundled SVGs instead of theme icons.
const resourcePrefix = "resources:"

// NavigateCommand is the command id attached to match items.
const NavigateCommand = "jxscout.navigateToMatch"

// Icon is either a theme icon id or a bundled resource name.
type Icon struct {
	Theme    string `json:"theme,omitempty"`
	Resource string `json:"resource,omitempty"`
}

// ParseIcon interprets a node's iconName. Empty names yield nil.
func ParseIcon(name string) *Icon {
	switch {
	case name == "":
		return nil
	case strings.HasPrefix(name, resourcePrefix):
		return &Icon{Resource: strings.TrimPrefix(name, resourcePrefix)}
	default:
		return &Icon{Theme: name}
	}
}

// Path returns the SVG location of a resource icon under resourceDir, or "" for theme icons.
func (i *Icon) Path(resourceDir string) string {
	if i == nil || i.Resource == "" {
		return ""
	}
	return filepath.Join(resourceDir, "icons", i.Resource+".svg")
}

// Command is invoked when a match item is activated.
type Command struct {
	ID      string            `json:"command"`
	Title   string            `json:"title"`
	Finding *protocol.Finding `json:"finding"`
}

// Item is one render-ready row. The ID is derived from the node's position in server
// order, so it survives re-sorting and re-rendering of the same result.
type Item struct {
	ID           string      `json:"id"`
	Label        string      `json:"label"`
	Description  string      `json:"description,omitempty"`
	Tooltip      string      `json:"tooltip,omitempty"`
	Icon         *Icon       `json:"icon,omitempty"`
	Collapsible  Collapsible `json:"collapsible"`
	ContextValue string      `json:"contextValue,omitempty"`
	Command      *Command    `json:"command,omitempty"`
	FilePath     string      `json:"filePath,omitempty"`
	Placeholder  bool        `json:"placeholder,omitempty"`

	Node *protocol.TreeNode `json:"-"`

	generation uint64
}

// IsMatch reports whether the item renders a match node.
func (i *Item) IsMatch() bool {
	return i != nil && i.Node.IsMatch()
}

// Finding returns the finding of a match item, or nil.
func (i *Item) Finding() *protocol.Finding {
	if !i.IsMatch() {
		return nil
	}
	return i.Node.Data
}

func newItem(node *protocol.TreeNode, id, fallbackLabel, filePath string, generation uint64) *Item {
	label := node.Label
	if label == "" {
		label = fallbackLabel
	}

	item := &Item{
		ID:          id,
		Label:       label,
		Description: node.Description,
		Tooltip:     node.Tooltip,
		Icon:        ParseIcon(node.IconName),
		FilePath:    filePath,
		Node:        node,
		generation:  generation,
	}
	if node.HasChildren() {
		item.Collapsible = CollapsibleExpanded
	}
	if node.IsMatch() {
		item.ContextValue = "match"
		item.Command = &Command{
			ID:      NavigateCommand,
			Title:   "Navigate to match",
			Finding: node.Data,
		}
	}
	return item
}

func newPlaceholder(state State, label, icon string) *Item {
	return &Item{
		ID:          "placeholder:" + string(state),
		Label:       label,
		Icon:        ParseIcon(icon),
		Placeholder: true,
		Node: &protocol.TreeNode{
			Type:  protocol.NodeNavigation,
			Label: label,
		},
	}
}

func childID(parentID string, index int) string {
	if parentID == "" {
		return strconv.Itoa(index)
	}
	return parentID + "/" + strconv.Itoa(index)
}

// parseID splits an item id into server-order indexes.
func parseID(id string) ([]int, bool) {
	if id == "" {
		return nil, false
	}
	parts := strings.Split(id, "/")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
