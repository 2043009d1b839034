/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/parse"
)

// RegistryAnalysis reports on the structure of a registry's plugin
// population and its resolved hierarchy tree.
type RegistryAnalysis struct {
	registry *core.Registry

	Errors         []string
	PluginCount    int
	HierarchyCount int
	Relatives      int
	Actions        int

	// Roots and Leaves are the hierarchies with no resolved
	// ancestors and no resolved descendants.
	Roots  []string
	Leaves []string

	// Collisions are merged mappings shared by more than one
	// hierarchy, which a search over mappings cannot tell apart.
	Collisions []string

	// DanglingTokens are mapping_details entries that appear in no
	// mapping or sub-template.
	DanglingTokens []string

	// UnknownParents and CyclicUses record plugins that never
	// resolved, by missing parent and by plugin.
	UnknownParents []string
	CyclicUses     []string

	// Filtered names plugins dropped by platform filtering.
	Filtered []string

	Assignments []string
}

// Analyze inspects the registry's plugin population and its
// resolution.
func Analyze(r *core.Registry) (*RegistryAnalysis, error) {
	a := RegistryAnalysis{
		registry: r,
		Errors:   make([]string, 0, 8),
	}

	for _, p := range r.Plugins() {
		a.PluginCount++
		if p.IsRelative() {
			a.Relatives++
		}
	}

	res := r.Resolve()
	hierarchies := res.Hierarchies()
	a.HierarchyCount = len(hierarchies)

	resolved := make(map[core.Hierarchy]bool, len(hierarchies))
	for _, h := range hierarchies {
		resolved[h] = true
	}

	unknownParents, cyclic := make(map[string]bool), make(map[string]bool)
	for _, problem := range res.Problems {
		a.Errors = append(a.Errors, problem.Error())
		switch p := problem.(type) {
		case *core.UnknownParent:
			unknownParents[string(p.Parent)] = true
		case *core.CyclicUses:
			cyclic[p.Plugin.String()] = true
		}
	}

	filtered := make(map[string]bool)
	for _, rp := range res.Filtered {
		filtered[rp.Plugin.String()] = true
	}

	hasChildren := make(map[core.Hierarchy]bool, len(hierarchies))
	for _, h := range hierarchies {
		if parent := nearestParent(resolved, h); parent != "" {
			hasChildren[parent] = true
		}
	}

	roots, leaves := make(map[string]bool), make(map[string]bool)
	assignments, dangling := make(map[string]bool), make(map[string]bool)
	byMapping := make(map[string][]string)

	for _, h := range hierarchies {
		if nearestParent(resolved, h) == "" {
			roots[string(h)] = true
		}
		if !hasChildren[h] {
			leaves[string(h)] = true
		}
		for _, assignment := range res.Assignments(h) {
			assignments[assignment] = true
		}

		c := r.Context(h, "")
		if c == nil {
			continue
		}
		a.Actions += len(r.ActionNames(h, ""))

		v := c.View()
		if v.Mapping != "" {
			byMapping[v.Mapping] = append(byMapping[v.Mapping], string(h))
		}

		known := make(map[string]bool)
		for _, token := range parse.FindTokens(v.Mapping) {
			known[token] = true
		}
		for _, d := range v.Details {
			for _, token := range parse.FindTokens(d.Mapping) {
				known[token] = true
			}
		}
		for token := range diffKeys(v.Details, known) {
			dangling[fmt.Sprintf("%s: %s", h, token)] = true
		}
	}

	for mapping, hs := range byMapping {
		if len(hs) < 2 {
			continue
		}
		sort.Strings(hs)
		a.Collisions = append(a.Collisions,
			fmt.Sprintf(`"%s": %s`, mapping, strings.Join(hs, ", ")))
	}
	sort.Strings(a.Collisions)

	a.Roots = keysToStringSlice(roots)
	a.Leaves = keysToStringSlice(leaves)
	a.DanglingTokens = keysToStringSlice(dangling)
	a.UnknownParents = keysToStringSlice(unknownParents)
	a.CyclicUses = keysToStringSlice(cyclic)
	a.Filtered = keysToStringSlice(filtered)
	a.Assignments = keysToStringSlice(assignments, core.DefaultAssignment)

	return &a, nil
}

// keysToStringSlice converts the keys from a map into a sorted slice
// of strings.  Optionally, it can add a default value if the map is
// empty.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}

// diffKeys identifies the keys present in 'all' but not in 'used'.
func diffKeys(all map[string]core.TokenDetail, used map[string]bool) map[string]bool {
	diff := make(map[string]bool)
	for key := range all {
		if _, found := used[key]; !found {
			diff[key] = true
		}
	}
	return diff
}
