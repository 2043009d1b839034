package core

import (
	"sort"
	"strings"
)

// platformAliases all mean "every recognized platform".
var platformAliases = map[string]bool{
	"*":          true,
	"all":        true,
	"everything": true,
}

func lowered(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizePlatforms lowercases and comma-splits raw platform entries.
// No entries at all means wildcard.
func normalizePlatforms(raw []string) []string {
	var acc []string
	for _, entry := range raw {
		for _, part := range SplitComma(entry) {
			acc = append(acc, lowered(part))
		}
	}
	if len(acc) == 0 {
		return []string{"*"}
	}
	return acc
}

// expandPlatforms normalizes raw platform entries and expands wildcard
// aliases against the known set.
func expandPlatforms(raw, known []string) []string {
	norm := normalizePlatforms(raw)
	for _, p := range norm {
		if platformAliases[p] {
			return append([]string(nil), known...)
		}
	}
	var acc []string
	seen := make(map[string]bool, len(norm))
	for _, p := range norm {
		if seen[p] {
			continue
		}
		seen[p] = true
		acc = append(acc, p)
	}
	return acc
}

func platformAllowed(expanded []string, active string) bool {
	for _, p := range expanded {
		if p == active {
			return true
		}
	}
	return false
}

// ResolvedPlugin is a Plugin pinned to a fully-qualified hierarchy.
//
// For a relative Plugin there is one ResolvedPlugin per Uses entry;
// Parent names the entry and ParentMapping carries the parent's merged
// template as it stood at resolution.  Mapping is this contribution's
// own resolved template.
type ResolvedPlugin struct {
	Plugin        *Plugin
	Hierarchy     Hierarchy
	Parent        Hierarchy
	ParentMapping string
	Mapping       string

	// Platforms is the normalized platform set, wildcard aliases
	// expanded against the recognized platforms.
	Platforms []string

	seq int
}

// Resolution is the output of Registry.Resolve: the plugin population
// expanded to fully-qualified hierarchies, with platform filtering
// applied and structural problems collected.
type Resolution struct {
	// ByHierarchy holds the surviving contributions, keyed by
	// hierarchy and then assignment, each list in registration order.
	ByHierarchy map[Hierarchy]map[string][]*ResolvedPlugin

	// Filtered holds contributions dropped by platform filtering.
	// Their IDs stay reserved in the Registry regardless.
	Filtered []*ResolvedPlugin

	// Problems records one error per plugin that could not resolve
	// (*CyclicUses, *UnknownParent) plus platform configuration
	// trouble (*UnknownPlatform).  A problem with one plugin never
	// stops the others.
	Problems []error

	priority []string
}

// Hierarchies returns the resolved hierarchy keys, sorted.
func (res *Resolution) Hierarchies() []Hierarchy {
	acc := make([]Hierarchy, 0, len(res.ByHierarchy))
	for h := range res.ByHierarchy {
		acc = append(acc, h)
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
	return acc
}

// Assignments returns the assignments present at a hierarchy, sorted.
func (res *Resolution) Assignments(h Hierarchy) []string {
	var acc []string
	for assignment := range res.ByHierarchy[h] {
		acc = append(acc, assignment)
	}
	sort.Strings(acc)
	return acc
}

// Live reports whether any contribution survived at the hierarchy.
func (res *Resolution) Live(h Hierarchy) bool {
	return len(res.ByHierarchy[h]) > 0
}

// At returns the contributions at a hierarchy.  An empty assignment
// merges all assignments in the Registry's priority order (later
// priority entries last, so they win merges); a concrete assignment
// pins that namespace.
func (res *Resolution) At(h Hierarchy, assignment string) []*ResolvedPlugin {
	assignments, have := res.ByHierarchy[h]
	if !have {
		return nil
	}
	if assignment != "" {
		return append([]*ResolvedPlugin(nil), assignments[assignment]...)
	}

	var acc []*ResolvedPlugin
	for _, a := range res.priority {
		acc = append(acc, assignments[a]...)
	}
	return acc
}

// Resolve expands the current plugin population to a fixed point.
//
// Absolute plugins resolve to themselves.  A relative plugin resolves
// once every hierarchy in its Uses list is live (has at least one
// resolved plugin), and then contributes under each parent, with
// RootToken substitution for both hierarchy and mapping.  Relative
// plugins may chain arbitrarily deep; mutual recursion is reported as
// *CyclicUses and a parent that never materializes as *UnknownParent.
//
// Platform filtering runs after structural resolution, per
// contribution.
func (r *Registry) Resolve() *Resolution {
	res := &Resolution{
		ByHierarchy: make(map[Hierarchy]map[string][]*ResolvedPlugin),
		priority:    r.Priority(),
	}

	if !platformAllowed(r.knownPlatforms, r.platform) {
		res.Problems = append(res.Problems, &UnknownPlatform{
			Platform: r.platform,
			Known:    r.KnownPlatforms(),
		})
	}

	// Hierarchy keys live in an arena and everything below talks
	// about them by index.
	type node struct {
		key  Hierarchy
		live bool
	}
	var nodes []node
	index := make(map[Hierarchy]int)
	intern := func(key Hierarchy) int {
		if ni, have := index[key]; have {
			return ni
		}
		nodes = append(nodes, node{key: key})
		index[key] = len(nodes) - 1
		return len(nodes) - 1
	}

	type relative struct {
		seq    int
		plugin *Plugin
		deps   []int // parent key per Uses entry
		outs   []int // produced key per Uses entry
		done   bool
	}
	var rels []*relative

	// One resolved contribution at a key.
	type output struct {
		seq    int
		node   int
		plugin *Plugin
		parent Hierarchy
	}
	var outputs []output

	for i, p := range r.plugins {
		if !p.IsRelative() {
			ni := intern(p.Hierarchy)
			nodes[ni].live = true
			outputs = append(outputs, output{seq: i, node: ni, plugin: p})
			continue
		}
		rel := &relative{seq: i, plugin: p}
		for _, use := range p.Uses {
			rel.deps = append(rel.deps, intern(use))
			rel.outs = append(rel.outs, intern(p.Hierarchy.ResolveRoot(use)))
		}
		rels = append(rels, rel)
	}

	// producible says which unresolved relatives could still make a
	// key live.  Used to tell a cycle from a missing parent.
	producible := make(map[int][]int)
	for ri, rel := range rels {
		for _, o := range rel.outs {
			producible[o] = append(producible[o], ri)
		}
	}

	for progress := true; progress; {
		progress = false
		for _, rel := range rels {
			if rel.done {
				continue
			}
			ready := true
			for _, d := range rel.deps {
				if !nodes[d].live {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			rel.done = true
			progress = true
			for i, o := range rel.outs {
				nodes[o].live = true
				outputs = append(outputs, output{
					seq:    rel.seq,
					node:   o,
					plugin: rel.plugin,
					parent: nodes[rel.deps[i]].key,
				})
			}
		}
	}

	unmetDep := func(rel *relative) int {
		for _, d := range rel.deps {
			if !nodes[d].live {
				return d
			}
		}
		return -1
	}

	for _, rel := range rels {
		if rel.done {
			continue
		}
		unmet := unmetDep(rel)
		if unmet < 0 {
			continue
		}

		// Follow the waiting chain.  A real cycle revisits a key;
		// a chain that bottoms out is just a missing parent.
		chain := []int{unmet}
		pos := map[int]int{unmet: 0}
		var cycle []Hierarchy
		for cycle == nil {
			next := -1
			for _, ri := range producible[chain[len(chain)-1]] {
				if rels[ri].done {
					continue
				}
				if next = unmetDep(rels[ri]); next >= 0 {
					break
				}
			}
			if next < 0 {
				break
			}
			if at, have := pos[next]; have {
				for _, ni := range chain[at:] {
					cycle = append(cycle, nodes[ni].key)
				}
				cycle = append(cycle, nodes[next].key)
				break
			}
			pos[next] = len(chain)
			chain = append(chain, next)
		}

		if cycle != nil {
			res.Problems = append(res.Problems, &CyclicUses{Plugin: rel.plugin, Cycle: cycle})
		} else {
			res.Problems = append(res.Problems, &UnknownParent{Plugin: rel.plugin, Parent: nodes[unmet].key})
		}
	}

	sort.SliceStable(outputs, func(i, j int) bool { return outputs[i].seq < outputs[j].seq })
	byNode := make(map[int][]output)
	for _, o := range outputs {
		byNode[o.node] = append(byNode[o.node], o)
	}

	// chainEff folds a key's contributions (one assignment) into the
	// merged template, parents first.  The resolved subgraph is
	// acyclic, so the recursion terminates; the map entry doubles as
	// a re-entry guard anyway.
	type effKey struct {
		node       int
		assignment string
	}
	effs := make(map[effKey]string)
	var chainEff func(ni int, assignment string) string
	chainEff = func(ni int, assignment string) string {
		k := effKey{ni, assignment}
		if eff, have := effs[k]; have {
			return eff
		}
		effs[k] = ""
		eff := ""
		for _, o := range byNode[ni] {
			if o.plugin.Assignment != assignment {
				continue
			}
			eff = foldMapping(eff, o.plugin.Mapping, o.parent != "", func() string {
				return chainEff(index[o.parent], assignment)
			})
		}
		effs[k] = eff
		return eff
	}

	for _, o := range outputs {
		rp := &ResolvedPlugin{
			Plugin:    o.plugin,
			Hierarchy: nodes[o.node].key,
			Parent:    o.parent,
			Platforms: expandPlatforms(o.plugin.Platforms, r.knownPlatforms),
			seq:       o.seq,
		}
		if o.parent == "" {
			rp.Mapping = o.plugin.Mapping
		} else {
			rp.ParentMapping = chainEff(index[o.parent], o.plugin.Assignment)
			rp.Mapping = composeMapping(o.plugin.Mapping, rp.ParentMapping)
		}

		if !platformAllowed(rp.Platforms, r.platform) {
			res.Filtered = append(res.Filtered, rp)
			continue
		}

		assignments, have := res.ByHierarchy[rp.Hierarchy]
		if !have {
			assignments = make(map[string][]*ResolvedPlugin)
			res.ByHierarchy[rp.Hierarchy] = assignments
		}
		assignment := o.plugin.Assignment
		assignments[assignment] = append(assignments[assignment], rp)
	}

	return res
}

// composeMapping resolves one relative mapping against its parent's
// merged template: substitute at RootToken when present, otherwise
// append.  An empty relative mapping just inherits the parent's.
func composeMapping(raw, parent string) string {
	switch {
	case raw == "":
		return parent
	case strings.Contains(raw, RootToken):
		return strings.ReplaceAll(raw, RootToken, parent)
	default:
		return parent + raw
	}
}

// foldMapping advances a key's running merged template by one
// contribution.  A non-empty absolute mapping replaces the running
// value outright; a relative one composes onto it, seeded by the
// parent's template when nothing has accumulated yet.
func foldMapping(eff, raw string, isRelative bool, parent func() string) string {
	if !isRelative {
		if raw != "" {
			return raw
		}
		return eff
	}
	switch {
	case raw == "":
		if eff == "" {
			return parent()
		}
		return eff
	case strings.Contains(raw, RootToken):
		base := eff
		if base == "" {
			base = parent()
		}
		return strings.ReplaceAll(raw, RootToken, base)
	default:
		if eff == "" {
			eff = parent()
		}
		return eff + raw
	}
}
