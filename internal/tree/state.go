// Package tree is the presentation model behind the descriptors view. It owns the view
// state, the current analysis result, the scope and the sort mode, and derives the items
// a hierarchical renderer asks for one level at a time.
package tree

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of the view.
type State string

const (
	StateLoading       State = "loading"
	StateAssetNotFound State = "asset-not-found"
	StateEmpty         State = "empty"
	StateSuccess       State = "success"
)

// Scope selects whole-project or current-file presentation.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeFile    Scope = "file"
)

// SortMode orders siblings at every level.
type SortMode string

const (
	SortAlphabetical SortMode = "alphabetical"
	SortOccurrence   SortMode = "occurrence"
)

// ParseState parses a state name.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateLoading, StateAssetNotFound, StateEmpty, StateSuccess:
		return st, nil
	default:
		return "", fmt.Errorf("invalid state %q (want loading, asset-not-found, empty or success)", s)
	}
}

// ParseScope parses a scope name.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeProject, ScopeFile:
		return sc, nil
	default:
		return "", fmt.Errorf("invalid scope %q (want project or file)", s)
	}
}

// ParseSortMode parses a sort mode name. "a-z" is accepted for alphabetical.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortAlphabetical, "a-z":
		return SortAlphabetical, nil
	case SortOccurrence:
		return m, nil
	default:
		return "", fmt.Errorf("invalid sort mode %q (want alphabetical or occurrence)", s)
	}
}

// Toggle returns the other scope.
func (s Scope) Toggle() Scope {
	if s == ScopeProject {
		return ScopeFile
	}
	return ScopeProject
}

// Toggle returns the other sort mode.
func (m SortMode) Toggle() SortMode {
	if m == SortAlphabetical {
		return SortOccurrence
	}
	return SortAlphabetical
}

// Title is the short label shown next to the view title.
func (m SortMode) Title() string {
	if m == SortAlphabetical {
		return "A-Z"
	}
	return "By Occurrence"
}
