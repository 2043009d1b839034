package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/descriptor"
	"github.com/ColinKennedy/ways/interpreters"
	"github.com/ColinKennedy/ways/tools"

	"github.com/jsccast/yaml"
)

func main() {

	if len(os.Args) < 2 {
		Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "inline":
		if len(os.Args) != 3 {
			fmt.Fprintf(os.Stderr, "error: inline wants exactly one filename\n")
			os.Exit(1)
		}

		bs, err := tools.ReadFileWithInlines(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if _, err = os.Stdout.Write(bs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	case "yamltojson":
		pretty := false

		switch len(os.Args) {
		case 2:
		case 3:
			switch os.Args[2] {
			case "-p":
				pretty = true
			default:
				panic(fmt.Sprintf("unsupported args: %v", os.Args[1:]))
			}
		default:
			panic(fmt.Sprintf("unsupported args: %v", os.Args[1:]))
		}

		bs, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if len(bs) == 0 {
			bs = []byte(DefaultSheetYAML)
		}

		sheet, err := descriptor.ParseSheet(bs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if pretty {
			bs, err = json.MarshalIndent(sheet, "  ", "  ")
		} else {
			bs, err = json.Marshal(sheet)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if _, err = os.Stdout.Write(bs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	case "jsontoyaml":

		bs, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		var sheet *descriptor.Sheet

		if err = json.Unmarshal(bs, &sheet); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if bs, err = yaml.Marshal(sheet); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if _, err = os.Stdout.Write(bs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	default:

		mod, have := Mods[os.Args[1]]
		if !have {
			fmt.Printf("Unknown subcommand \"%s\"\n", os.Args[1])
			Usage()
			os.Exit(1)
		}

		flags := mod.Flags()
		if err := flags.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		r, err := LoadRegistry(context.Background(), flags.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if err := mod.F(r); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// LoadRegistry builds a registry from the environment and then from
// the given descriptions, in order.  The first load that fails stops
// everything.
func LoadRegistry(ctx context.Context, descriptions []string) (*core.Registry, error) {
	r := core.NewRegistry()
	standard := interpreters.Standard()

	results := descriptor.FromEnvironment(ctx, r)
	for _, description := range descriptions {
		results = append(results, descriptor.Add(ctx, r, description, standard))
	}

	for _, result := range results {
		if result.Status != descriptor.StatusSuccess {
			if result.Err != nil {
				return nil, fmt.Errorf(`loading "%s": %s: %v`, result.Item, result.Reason, result.Err)
			}
			return nil, fmt.Errorf(`loading "%s": %s`, result.Item, result.Reason)
		}
	}

	return r, nil
}

func Usage() {
	fmt.Printf("Subcommands (each takes descriptions after its flags):\n\n")
	for _, mod := range Mods {
		mod.Flags().Usage()
		fmt.Println("  " + mod.Doc())
		fmt.Println()
	}
	fmt.Printf("Usage of inline: FILENAME\n\n")
	fmt.Printf("Usage of yamltojson:\n")
	fmt.Printf("  -p    pretty-print\n\n")
	fmt.Printf("Usage of jsontoyaml: (no arguments)\n\n")
}

var DefaultSheetYAML = `plugins:
`
