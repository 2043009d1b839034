package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/util"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the registry's resolved hierarchy
// tree.  A really ugly dot file.
//
// The optional highlight can name a hierarchy to draw in red, which
// helps to see where a search landed in a big tree.  Maybe.
func Dot(r *core.Registry, w io.WriteCloser, highlight core.Hierarchy) error {
	res := r.Resolve()
	hierarchies := res.Hierarchies()

	resolved := make(map[core.Hierarchy]bool, len(hierarchies))
	for _, h := range hierarchies {
		resolved[h] = true
	}

	util.Logf("processing %d hierarchies", len(hierarchies))

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	highlight = core.ParseHierarchy(string(highlight))

	nids := make(map[core.Hierarchy]string, len(hierarchies))
	parents := make(map[core.Hierarchy]core.Hierarchy, len(hierarchies))
	hasChildren := make(map[core.Hierarchy]bool, len(hierarchies))
	for i, h := range hierarchies {
		nids[h] = fmt.Sprintf("n%d", i)
		if parent := nearestParent(resolved, h); parent != "" {
			parents[h] = parent
			hasChildren[parent] = true
		}
	}

	for _, h := range hierarchies {
		c := r.Context(h, "")
		if c == nil {
			continue
		}
		v := c.View()

		parts := h.Parts()
		label := parts[len(parts)-1]
		if v.Mapping != "" {
			label += "<BR/><FONT POINT-SIZE='8'>" + escapeHTML(v.Mapping) + "</FONT>"
		}
		if 0 < len(v.Data) {
			bs, err := yaml.Marshal(v.Data)
			if err != nil {
				bs = []byte(err.Error())
			}
			src := escapeHTML(string(bs))
			label += `<FONT POINT-SIZE="6">` +
				`<BR/>` + strings.Replace(src, "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		fillcolor := "#99ddc8"
		if v.IsPath {
			fillcolor = "#2d93ad"
		}
		if 0 < len(r.ActionNames(h, "")) {
			fillcolor = "#52aa5e"
		}
		color := "black"
		if h == highlight {
			color = "red"
			fillcolor = "#f98b8b"
		}
		style := "rounded,filled"
		if !hasChildren[h] {
			style += ",dashed"
		}

		fmt.Fprintf(w, "  %s [shape=\"record\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			nids[h], style, color, fillcolor, label)
	}

	for _, h := range hierarchies {
		parent, have := parents[h]
		if !have {
			continue
		}
		label := strings.TrimPrefix(string(h), string(parent)+core.HierarchySep)
		color := "black"
		if h == highlight {
			color = "red"
		}
		fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" label = <%s> ]\n",
			nids[parent], nids[h], color, escapeHTML(label))
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function will write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(r *core.Registry, basename string, highlight core.Hierarchy) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	// ToDo: Use mktemp
	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(r, dotfile, highlight); err != nil {
		return pngname, err
	}
	cmd := "dot -Tpng -Gstart=1 " + dotname + " > " + pngname
	if err := exec.Command("bash", "-c", cmd).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// nearestParent finds the closest ancestor of h that resolved.
func nearestParent(resolved map[core.Hierarchy]bool, h core.Hierarchy) core.Hierarchy {
	ancestors := h.Ancestors()
	for i := len(ancestors) - 1; 0 <= i; i-- {
		if resolved[ancestors[i]] {
			return ancestors[i]
		}
	}
	return ""
}

func escapeHTML(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}
