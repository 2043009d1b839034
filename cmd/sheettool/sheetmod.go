package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/tools"

	"github.com/jsccast/yaml"
)

var Mods = map[string]Mod{
	"lint":    &Linter{},
	"analyze": &Analyzer{},
	"graph":   &Grapher{},
	"mermaid": &Mermaider{},
	"html":    &Pager{},
	"png":     &Imager{},
}

// Mod is a subcommand that inspects a loaded registry.
type Mod interface {
	F(*core.Registry) error
	Doc() string
	Flags() *flag.FlagSet
}

type Linter struct {
}

func (m *Linter) F(r *core.Registry) error {
	problems := tools.Lint(r)
	for _, problem := range problems {
		fmt.Printf("%s: %s: %s\n", problem.Source, problem.Hierarchy, problem.Description)
	}
	if 0 < len(problems) {
		return fmt.Errorf("%d problems", len(problems))
	}
	return nil
}

func (m *Linter) Doc() string {
	return `
Reports every resolved hierarchy whose mapping can't round-trip: a
token with no derivable pattern, a pattern that won't compile, or a
parent that never resolved.
`
}

func (m *Linter) Flags() *flag.FlagSet {
	return flag.NewFlagSet("lint", flag.PanicOnError)
}

type Analyzer struct {
}

func (m *Analyzer) F(r *core.Registry) error {
	a, err := tools.Analyze(r)
	if err != nil {
		return err
	}
	bs, err := yaml.Marshal(a)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", bs)

	return nil
}

func (m *Analyzer) Doc() string {
	return `
Prints counts, roots, leaves, collisions, and dangling tokens for the
loaded registry, as YAML.
`
}

func (m *Analyzer) Flags() *flag.FlagSet {
	return flag.NewFlagSet("analyze", flag.PanicOnError)
}

type Grapher struct {
	OutputFilename string
	Focus          string
}

func (m *Grapher) F(r *core.Registry) error {
	f, err := os.Create(m.OutputFilename)
	if err != nil {
		return err
	}

	return tools.Dot(r, f, core.Hierarchy(m.Focus)) // Will Close f.
}

func (m *Grapher) Doc() string {
	return `
Writes a Graphviz dot file of the resolved hierarchy tree.
`
}

func (m *Grapher) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("graph", flag.PanicOnError)
	fs.StringVar(&m.OutputFilename, "o", "sheet.dot", "output filename")
	fs.StringVar(&m.Focus, "f", "", "hierarchy to highlight")
	return fs
}

type Mermaider struct {
	OutputFilename string
	HideMappings   bool
	ActionFill     string
}

func (m *Mermaider) F(r *core.Registry) error {
	f, err := os.Create(m.OutputFilename)
	if err != nil {
		return err
	}

	opts := &tools.MermaidOpts{
		ShowMappings: !m.HideMappings,
		ActionFill:   m.ActionFill,
	}

	return tools.Mermaid(r, f, opts) // Will Close f.
}

func (m *Mermaider) Doc() string {
	return `
Writes a Mermaid graph of the resolved hierarchy tree.
`
}

func (m *Mermaider) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("mermaid", flag.PanicOnError)
	fs.StringVar(&m.OutputFilename, "o", "sheet.mmd", "output filename")
	fs.BoolVar(&m.HideMappings, "plain", false, "node names only, no mappings")
	fs.StringVar(&m.ActionFill, "fill", "#bcf2db", "fill color for hierarchies with actions")
	return fs
}

type Pager struct {
	OutputFilename string
	Title          string
	CSS            string
}

func (m *Pager) F(r *core.Registry) error {
	f, err := os.Create(m.OutputFilename)
	if err != nil {
		return err
	}
	defer f.Close()

	var cssFiles []string
	if m.CSS != "" {
		cssFiles = core.SplitComma(m.CSS)
	}

	return tools.RenderRegistryPage(r, m.Title, f, cssFiles)
}

func (m *Pager) Doc() string {
	return `
Writes an HTML page describing every resolved hierarchy: mappings,
details, data, and actions.
`
}

func (m *Pager) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("html", flag.PanicOnError)
	fs.StringVar(&m.OutputFilename, "o", "sheet.html", "output filename")
	fs.StringVar(&m.Title, "t", "Plugin sheets", "page title")
	fs.StringVar(&m.CSS, "css", "", "comma-separated stylesheet links")
	return fs
}

type Imager struct {
	Basename string
	Focus    string
}

func (m *Imager) F(r *core.Registry) error {
	pngname, err := tools.PNG(r, m.Basename, core.Hierarchy(m.Focus))
	if err != nil {
		return err
	}
	fmt.Println(pngname)

	return nil
}

func (m *Imager) Doc() string {
	return `
Renders the hierarchy tree to BASENAME.dot and BASENAME.png.  Needs
the dot program on the PATH.
`
}

func (m *Imager) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("png", flag.PanicOnError)
	fs.StringVar(&m.Basename, "o", "sheet", "output basename")
	fs.StringVar(&m.Focus, "f", "", "hierarchy to highlight")
	return fs
}
