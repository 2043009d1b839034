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
	"io"
	"strings"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/util"
)

type MermaidOpts struct {
	// ShowMappings will put each hierarchy's merged mapping on its
	// node label.
	ShowMappings bool `json:"showMappings"`

	// ActionFill is the fill color for hierarchies that have
	// actions.  Does not apply if ActionClass is set.
	ActionFill string `json:"actionFill,omitempty"`

	// ActionClass will be the CSS class for action nodes.  Not
	// yet implemented.
	ActionClass string `json:"actionClass,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the registry's resolved hierarchy tree.
func Mermaid(r *core.Registry, w io.WriteCloser, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowMappings: true,
			ActionFill:   "#bcf2db",
		}
	}

	res := r.Resolve()
	hierarchies := res.Hierarchies()
	resolved := make(map[core.Hierarchy]bool, len(hierarchies))
	for _, h := range hierarchies {
		resolved[h] = true
	}

	util.Logf("processing %d hierarchies", len(hierarchies))

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[core.Hierarchy]string)
	num := 0

	node := func(h core.Hierarchy) string {
		if nid, already := nids[h]; already {
			return nid
		}
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[h] = nid

		parts := h.Parts()
		label := parts[len(parts)-1]
		if opts.ShowMappings {
			if c := r.Context(h, ""); c != nil {
				if mapping := c.View().Mapping; mapping != "" {
					label += "<br/>" + strings.Replace(mapping, `"`, `'`, -1)
				}
			}
		}

		if 0 < len(r.ActionNames(h, "")) {
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, label)
			if opts.ActionClass == "" && opts.ActionFill != "" {
				fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.ActionFill)
			}
		} else {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, label)
		}

		return nid
	}

	for _, h := range hierarchies {
		nid := node(h)
		parent := nearestParent(resolved, h)
		if parent == "" {
			continue
		}
		fmt.Fprintf(w, "  %s --> %s\n", node(parent), nid)
	}

	fmt.Fprintf(w, "\n")
	util.Logf("mermaid gen done")

	return w.Close()
}
