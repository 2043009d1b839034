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
	"regexp"
	"sort"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/parse"
)

// Problem is one Lint finding, attributed to what contributed it.
type Problem struct {
	// Source is the sheet or script the trouble came from, when
	// that's known.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Hierarchy is where the trouble shows up.
	Hierarchy core.Hierarchy `json:"hierarchy,omitempty" yaml:"hierarchy,omitempty"`

	Description string `json:"description" yaml:"description"`
}

func (p Problem) String() string {
	acc := ""
	if p.Source != "" {
		acc += p.Source + ": "
	}
	if p.Hierarchy != "" {
		acc += string(p.Hierarchy) + ": "
	}
	return acc + p.Description
}

// Lint reports what keeps the current plugin population from fully
// working: plugins that never resolve, patterns that don't compile,
// and mappings whose tokens have no patterns at all.
//
// Findings come back sorted by source and then hierarchy.
func Lint(r *core.Registry) []Problem {
	var acc []Problem

	res := r.Resolve()

	for _, problem := range res.Problems {
		p := Problem{Description: problem.Error()}
		switch x := problem.(type) {
		case *core.UnknownParent:
			p.Source = x.Plugin.Source
			p.Hierarchy = x.Plugin.Hierarchy
		case *core.CyclicUses:
			p.Source = x.Plugin.Source
			p.Hierarchy = x.Plugin.Hierarchy
		}
		acc = append(acc, p)
	}

	for _, h := range res.Hierarchies() {
		c := r.Context(h, "")
		if c == nil {
			continue
		}
		v := c.View()

		source := ""
		if 0 < len(v.Plugins) {
			source = v.Plugins[0].Plugin.Source
		}

		parser := parse.NewParser(c)
		dirty := false
		for _, token := range parser.AllTokens() {
			pattern, err := parser.Pattern(token, core.ParseRegex)
			if err != nil {
				// Patterns are optional; MappingRegex reports
				// the ones the mapping itself needs.
				continue
			}
			if _, err := regexp.Compile(pattern); err != nil {
				dirty = true
				acc = append(acc, Problem{
					Source:      source,
					Hierarchy:   h,
					Description: fmt.Sprintf(`token "%s" has a bad pattern: %s`, token, err),
				})
			}
		}
		if dirty {
			// The mapping regex below would just repeat the news.
			continue
		}

		if mapping, err := parser.MappingRegex(); err != nil {
			acc = append(acc, Problem{
				Source:      source,
				Hierarchy:   h,
				Description: err.Error(),
			})
		} else if mapping != "" {
			if _, err := regexp.Compile(mapping); err != nil {
				acc = append(acc, Problem{
					Source:      source,
					Hierarchy:   h,
					Description: fmt.Sprintf("mapping does not parse: %s", err),
				})
			}
		}
	}

	sort.SliceStable(acc, func(i, j int) bool {
		if acc[i].Source != acc[j].Source {
			return acc[i].Source < acc[j].Source
		}
		return acc[i].Hierarchy < acc[j].Hierarchy
	})

	return acc
}
