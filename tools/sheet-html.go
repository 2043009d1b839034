package tools

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/descriptor"
	"github.com/ColinKennedy/ways/interpreters/noop"

	md "github.com/russross/blackfriday/v2"
	"gopkg.in/yaml.v2"
)

// RenderRegistryHTML writes an HTML fragment describing everything
// the registry resolves: each hierarchy with its mapping, token
// details, actions, and data.  A "doc" string in a hierarchy's data
// is rendered as markdown.
func RenderRegistryHTML(r *core.Registry, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	res := r.Resolve()

	f(`<div class="hierarchies"><table>`)
	for _, h := range res.Hierarchies() {
		c := r.Context(h, "")
		if c == nil {
			continue
		}
		v := c.View()

		f(`<tr class="hierarchy"><td><span id="%s" class="hierarchyName">%s</span></td><td>`, h, h)

		if doc := dataDoc(v.Data); doc != "" {
			f(`<div class="hierarchyDoc doc">%s</div>`, md.Run([]byte(doc)))
		}
		if v.Mapping != "" {
			f(`<div class="mapping"><code>%s</code></div>`, escapeHTML(v.Mapping))
		}

		if assignments := res.Assignments(h); 1 < len(assignments) {
			f(`<div class="assignments">assignments: <code>%s</code></div>`,
				strings.Join(assignments, ", "))
		}

		if 0 < len(v.Details) {
			tokens := make([]string, 0, len(v.Details))
			for token := range v.Details {
				tokens = append(tokens, token)
			}
			sort.Strings(tokens)

			f(`<div class="details"><table>`)
			for _, token := range tokens {
				d := v.Details[token]
				f(`<tr><td><code>%s</code></td>`, token)
				if d.Mapping != "" {
					f(`<td><code>%s</code></td>`, escapeHTML(d.Mapping))
				} else {
					f(`<td></td>`)
				}
				if pattern, have := d.Parse[core.ParseRegex]; have {
					f(`<td><code>%s</code></td>`, escapeHTML(pattern))
				} else {
					f(`<td></td>`)
				}
				f(`</tr>`)
			}
			f(`</table></div>`)
		}

		if names := r.ActionNames(h, ""); 0 < len(names) {
			f(`<div class="actions">actions: <code>%s</code></div>`,
				strings.Join(names, ", "))
		}

		if 0 < len(v.Data) {
			if bs, err := yaml.Marshal(v.Data); err == nil {
				f(`<div class="code"><pre>%s</pre></div>`, bs)
			}
		}

		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderRegistryPage writes a complete HTML page for the registry.
func RenderRegistryPage(r *core.Registry, title string, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/sheet-html.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if err := RenderRegistryHTML(r, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderSheetPage loads one sheet file into a fresh Registry
// and renders it as an HTML page.  Actions are compiled with a silent
// noop interpreter, since the page only needs their names.
func ReadAndRenderSheetPage(filename string, cssFiles []string, out io.Writer) error {
	sheet, err := descriptor.ReadSheetFile(filename)
	if err != nil {
		return err
	}

	file := &descriptor.SheetFile{Source: filename, Sheet: sheet}
	plugins, err := file.BuildPlugins()
	if err != nil {
		return err
	}

	r := core.NewRegistry()
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return err
		}
	}

	silent := noop.NewInterpreter()
	silent.Silent = true
	interpreters := make(map[string]core.Interpreter)
	for _, sa := range sheet.Actions {
		if sa != nil {
			interpreters[sa.Interpreter] = silent
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for name, sa := range sheet.Actions {
		if sa == nil {
			continue
		}
		src := &core.ActionSource{
			Name:        name,
			Interpreter: sa.Interpreter,
			Source:      sa.Source,
		}
		action, err := src.Compile(ctx, interpreters)
		if err != nil {
			return err
		}
		if err := r.RegisterAction(core.ParseHierarchy(sa.Hierarchy), sa.Assignment, action); err != nil {
			return err
		}
	}

	return RenderRegistryPage(r, filename, out, cssFiles)
}

// dataDoc digs the conventional "doc" string out of merged data.
func dataDoc(data map[string]interface{}) string {
	if data == nil {
		return ""
	}
	if s, is := data["doc"].(string); is {
		return s
	}
	return ""
}
