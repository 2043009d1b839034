package core

// These errors are user errors, not internal errors.
//
// Probably should have a type just for user errors.

import (
	"errors"
	"fmt"
	"strings"
)

// DuplicateId occurs when a Plugin is registered with an ID that some
// earlier Plugin (even a deregistered or platform-filtered one)
// already claimed.
type DuplicateId struct {
	Id       string
	Existing *Plugin
	Incoming *Plugin
}

func (e *DuplicateId) Error() string {
	return `plugin id "` + e.Id + `" is already registered (by ` + e.Existing.String() + `)`
}

// UnknownParent occurs when a relative Plugin uses a hierarchy that no
// plugin ever resolves to.
type UnknownParent struct {
	Plugin *Plugin
	Parent Hierarchy
}

func (e *UnknownParent) Error() string {
	return e.Plugin.String() + ` uses unknown hierarchy "` + string(e.Parent) + `"`
}

// CyclicUses occurs when relative Plugins wait on each other and so
// never reach a fixed point.
type CyclicUses struct {
	Plugin *Plugin
	Cycle  []Hierarchy
}

func (e *CyclicUses) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, h := range e.Cycle {
		parts[i] = string(h)
	}
	return e.Plugin.String() + " has cyclic uses: " + strings.Join(parts, " -> ")
}

// UnknownPlatform occurs when the active platform isn't in the
// recognized platform set.
type UnknownPlatform struct {
	Platform string
	Known    []string
}

func (e *UnknownPlatform) Error() string {
	return fmt.Sprintf(`platform "%s" was invalid; options were %v`, e.Platform, e.Known)
}

// UnresolvedToken occurs when a token is part of a context but no
// strategy, child, or parent could produce its value (or pattern).
type UnresolvedToken struct {
	Token     string
	Hierarchy Hierarchy
}

func (e *UnresolvedToken) Error() string {
	return `token "` + e.Token + `" in "` + string(e.Hierarchy) + `" could not be resolved`
}

// UnknownToken occurs when a token isn't part of the context at all.
type UnknownToken struct {
	Token     string
	Hierarchy Hierarchy
}

func (e *UnknownToken) Error() string {
	return `token "` + e.Token + `" is not in "` + string(e.Hierarchy) + `"`
}

// AmbiguousMatch occurs when auto-discovery finds more than one
// equally good hierarchy for a candidate.
type AmbiguousMatch struct {
	Value      string
	Candidates []Hierarchy
}

func (e *AmbiguousMatch) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, h := range e.Candidates {
		parts[i] = string(h)
	}
	return fmt.Sprintf(`"%s" is ambiguous; candidates were %s`, e.Value, strings.Join(parts, ", "))
}

// NoMatch occurs when auto-discovery finds no hierarchy at all for a
// candidate.
type NoMatch struct {
	Value string
}

func (e *NoMatch) Error() string {
	return `"` + e.Value + `" matched no known hierarchy`
}

// ErrNoContext occurs when an operation needs a Context but the
// hierarchy has no plugins.
var ErrNoContext = errors.New("no plugins for context")
