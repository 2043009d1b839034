package core

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
)

// DefaultKnownPlatforms is the recognized platform set a new Registry
// starts with.
var DefaultKnownPlatforms = []string{"darwin", "java", "linux", "windows"}

// Registry holds the plugin population and everything hanging off it:
// actions, hierarchy aliases, the context flyweight cache, platform
// configuration, and the assignment priority order.
//
// Construct one with NewRegistry and pass it around explicitly.  There
// is no package-level registry, and registering anything is always an
// explicit call: loading a sheet or running a plugin script has no
// side effects beyond what it explicitly registers.
//
// A Registry does not lock.  See the package documentation.
type Registry struct {
	plugins     []*Plugin
	byHierarchy map[Hierarchy]map[string][]*Plugin

	// ids remembers every ID ever registered.  Deregistration does
	// not release an ID.
	ids map[string]*Plugin

	actions        map[Hierarchy]map[string]map[string]Action
	actionDefaults map[Hierarchy]map[string]interface{}

	aliases  map[Hierarchy]Hierarchy
	contexts map[contextKey]*Context

	platform       string
	knownPlatforms []string
	priority       []string
}

// NewRegistry makes an empty Registry for the current platform
// (runtime.GOOS) with the default assignment priority.
func NewRegistry() *Registry {
	r := &Registry{}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.plugins = nil
	r.byHierarchy = make(map[Hierarchy]map[string][]*Plugin)
	r.ids = make(map[string]*Plugin)
	r.actions = make(map[Hierarchy]map[string]map[string]Action)
	r.actionDefaults = make(map[Hierarchy]map[string]interface{})
	r.aliases = make(map[Hierarchy]Hierarchy)
	r.contexts = make(map[contextKey]*Context)
	r.platform = runtime.GOOS
	r.knownPlatforms = append([]string(nil), DefaultKnownPlatforms...)
	r.priority = []string{DefaultAssignment}
}

// Clear drops everything: plugins, reserved IDs, actions, aliases,
// contexts, and configuration.  A cleared Registry is as good as new.
func (r *Registry) Clear() {
	r.reset()
}

// Register appends a Plugin.
//
// An empty Assignment becomes DefaultAssignment, the Hierarchy is
// normalized, and a missing ID gets a generated UUID.  Registering an
// ID twice is a hard error (*DuplicateId), no matter what happened to
// the first Plugin since.
func (r *Registry) Register(p *Plugin) error {
	if p == nil {
		return fmt.Errorf("nil plugin")
	}

	p.Hierarchy = ParseHierarchy(string(p.Hierarchy))
	if p.Hierarchy == "" {
		return fmt.Errorf("plugin has no hierarchy")
	}
	for i, use := range p.Uses {
		p.Uses[i] = ParseHierarchy(string(use))
	}
	if p.Assignment == "" {
		p.Assignment = DefaultAssignment
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if existing, have := r.ids[p.ID]; have {
		return &DuplicateId{
			Id:       p.ID,
			Existing: existing,
			Incoming: p,
		}
	}
	r.ids[p.ID] = p

	r.plugins = append(r.plugins, p)
	assignments, have := r.byHierarchy[p.Hierarchy]
	if !have {
		assignments = make(map[string][]*Plugin)
		r.byHierarchy[p.Hierarchy] = assignments
	}
	assignments[p.Assignment] = append(assignments[p.Assignment], p)

	return nil
}

// DeregisterSource removes every Plugin whose Source matches, keeping
// their IDs reserved, and returns how many went away.
func (r *Registry) DeregisterSource(source string) int {
	var kept []*Plugin
	removed := 0
	for _, p := range r.plugins {
		if p.Source == source {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return 0
	}

	r.plugins = kept
	r.byHierarchy = make(map[Hierarchy]map[string][]*Plugin)
	for _, p := range kept {
		assignments, have := r.byHierarchy[p.Hierarchy]
		if !have {
			assignments = make(map[string][]*Plugin)
			r.byHierarchy[p.Hierarchy] = assignments
		}
		assignments[p.Assignment] = append(assignments[p.Assignment], p)
	}

	return removed
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []*Plugin {
	return append([]*Plugin(nil), r.plugins...)
}

// PluginsAt returns the raw (unresolved) plugins registered exactly at
// the hierarchy.  An empty assignment means all assignments, in
// registration order; a concrete assignment pins that namespace.
// Aliases are followed.
func (r *Registry) PluginsAt(hierarchy Hierarchy, assignment string) []*Plugin {
	hierarchy = r.ResolveAlias(ParseHierarchy(string(hierarchy)))

	var acc []*Plugin
	for _, p := range r.plugins {
		if p.Hierarchy != hierarchy {
			continue
		}
		if assignment != "" && p.Assignment != assignment {
			continue
		}
		acc = append(acc, p)
	}
	return acc
}

// RegisterAlias makes alias refer to target wherever a hierarchy is
// looked up.
func (r *Registry) RegisterAlias(alias, target Hierarchy) error {
	alias = ParseHierarchy(string(alias))
	target = ParseHierarchy(string(target))

	if alias == "" || target == "" {
		return fmt.Errorf("empty alias or target")
	}
	if alias == target {
		return fmt.Errorf(`alias "%s" refers to itself`, alias)
	}
	if existing, have := r.aliases[alias]; have {
		return fmt.Errorf(`alias "%s" already refers to "%s"`, alias, existing)
	}
	r.aliases[alias] = target

	return nil
}

// ResolveAlias follows alias links until it arrives at a real
// hierarchy.  A non-alias comes back unchanged.
func (r *Registry) ResolveAlias(hierarchy Hierarchy) Hierarchy {
	// The hop limit breaks alias loops, which RegisterAlias can't
	// prevent piecemeal.
	for hops := 0; hops <= len(r.aliases); hops++ {
		target, have := r.aliases[hierarchy]
		if !have {
			return hierarchy
		}
		hierarchy = target
	}
	return hierarchy
}

// Platform returns the active platform identifier.
func (r *Registry) Platform() string {
	return r.platform
}

// SetPlatform sets the active platform, which must be recognized (see
// SetKnownPlatforms).
func (r *Registry) SetPlatform(name string) error {
	name = lowered(name)
	for _, known := range r.knownPlatforms {
		if name == known {
			r.platform = name
			return nil
		}
	}
	return &UnknownPlatform{
		Platform: name,
		Known:    append([]string(nil), r.knownPlatforms...),
	}
}

// KnownPlatforms returns the recognized platform set.
func (r *Registry) KnownPlatforms() []string {
	return append([]string(nil), r.knownPlatforms...)
}

// SetKnownPlatforms replaces the recognized platform set.
func (r *Registry) SetKnownPlatforms(names ...string) {
	acc := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = lowered(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		acc = append(acc, name)
	}
	r.knownPlatforms = acc
}

// Priority returns the assignment priority order.
func (r *Registry) Priority() []string {
	return append([]string(nil), r.priority...)
}

// SetPriority replaces the assignment priority order.  Later entries
// override earlier ones when a Context merges all assignments, and an
// assignment not listed here isn't part of that merge at all.
func (r *Registry) SetPriority(assignments ...string) {
	acc := make([]string, 0, len(assignments))
	seen := make(map[string]bool, len(assignments))
	for _, assignment := range assignments {
		if assignment == "" || seen[assignment] {
			continue
		}
		seen[assignment] = true
		acc = append(acc, assignment)
	}
	if len(acc) == 0 {
		acc = []string{DefaultAssignment}
	}
	r.priority = acc
}
