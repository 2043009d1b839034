package core

import (
	"strings"
)

const (
	// HierarchySep separates the segments of a Hierarchy.
	//
	// This separator is user-visible contract: it appears in plugin
	// sheets, in environment variables, and in every API that names a
	// hierarchy.  Don't change it.
	HierarchySep = "/"

	// DefaultAssignment is the assignment a Plugin gets when nobody
	// says otherwise.
	DefaultAssignment = "master"

	// RootToken marks the insertion point for a parent's hierarchy or
	// mapping in a relative Plugin.
	RootToken = "{root}"
)

// Hierarchy is the canonical form of a location in the tree: one or
// more non-empty segments joined by HierarchySep.
//
// Construct one with NewHierarchy or ParseHierarchy, which normalize
// stray separators and whitespace.  Since the canonical form is
// unique, string equality is segment-wise equality, and a Hierarchy
// works as a map key.
type Hierarchy string

// NewHierarchy builds a Hierarchy from segments.
//
// Each argument may itself contain separators ("a/b"), which is
// convenient when extending an existing Hierarchy.
func NewHierarchy(parts ...string) Hierarchy {
	return ParseHierarchy(strings.Join(parts, HierarchySep))
}

// ParseHierarchy normalizes a raw string into a Hierarchy.
//
// Leading, trailing, and doubled separators are dropped, and each
// segment is whitespace-trimmed.  An input with no segments at all
// gives the zero Hierarchy.
func ParseHierarchy(s string) Hierarchy {
	var acc []string
	for _, part := range strings.Split(s, HierarchySep) {
		part = strings.TrimSpace(part)
		if part != "" {
			acc = append(acc, part)
		}
	}
	return Hierarchy(strings.Join(acc, HierarchySep))
}

// Parts returns the segments of the Hierarchy.
func (h Hierarchy) Parts() []string {
	if h == "" {
		return nil
	}
	return strings.Split(string(h), HierarchySep)
}

// HasRoot reports whether the Hierarchy contains the RootToken
// insertion point (which makes it relative input, not a real key).
func (h Hierarchy) HasRoot() bool {
	return strings.Contains(string(h), RootToken)
}

// Under reports whether h is the given ancestor or sits below it.
func (h Hierarchy) Under(ancestor Hierarchy) bool {
	if h == ancestor {
		return true
	}
	return strings.HasPrefix(string(h), string(ancestor)+HierarchySep)
}

// Ancestors returns the proper prefixes of the Hierarchy, shortest
// first ("a/b/c" gives "a", "a/b").
func (h Hierarchy) Ancestors() []Hierarchy {
	parts := h.Parts()
	if len(parts) < 2 {
		return nil
	}
	acc := make([]Hierarchy, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		acc = append(acc, Hierarchy(strings.Join(parts[:i], HierarchySep)))
	}
	return acc
}

// ResolveRoot substitutes the parent at the RootToken insertion point.
//
// When the Hierarchy has no RootToken, the Hierarchy is appended to
// the parent instead, which is what a relative plugin that just says
// "put me under my parent" means.
func (h Hierarchy) ResolveRoot(parent Hierarchy) Hierarchy {
	if h.HasRoot() {
		return ParseHierarchy(strings.ReplaceAll(string(h), RootToken, string(parent)))
	}
	return NewHierarchy(string(parent), string(h))
}
