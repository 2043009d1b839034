package tools

import (
	"strings"
	"testing"

	"github.com/ColinKennedy/ways/core"
)

func TestLint(t *testing.T) {
	r, err := core.PipelineRegistry()
	if err != nil {
		t.Fatal(err)
	}

	// The job root keeps its JOB details to itself, so every
	// hierarchy below it inherits the token but not a way to parse
	// it.
	problems := Lint(r)
	if got := len(problems); got != 3 {
		t.Fatalf("got %d problems: %v", got, problems)
	}
	for _, problem := range problems {
		if problem.Source != "example" {
			t.Fatalf(`got source "%s"`, problem.Source)
		}
		if !strings.Contains(problem.Description, "JOB") {
			t.Fatalf(`problem "%s" isn't about JOB`, problem)
		}
	}

	want := []core.Hierarchy{"job/config", "job/shot", "job/shot/config"}
	for i, problem := range problems {
		if problem.Hierarchy != want[i] {
			t.Fatalf("got %s at %d, wanted %s", problem.Hierarchy, i, want[i])
		}
	}
}

func TestLintUnknownParent(t *testing.T) {
	r := core.NewRegistry()
	p := &core.Plugin{
		Source:    "memory.yml",
		Hierarchy: "{root}/child",
		Uses:      []core.Hierarchy{"nowhere"},
	}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	problems := Lint(r)
	if got := len(problems); got != 1 {
		t.Fatalf("got %d problems: %v", got, problems)
	}
	if got := problems[0].Source; got != "memory.yml" {
		t.Fatalf(`got source "%s"`, got)
	}
	if !strings.Contains(problems[0].Description, "nowhere") {
		t.Fatalf(`got "%s"`, problems[0])
	}
}

func TestLintBadPattern(t *testing.T) {
	r := core.NewRegistry()
	p := &core.Plugin{
		Source:    "memory.yml",
		Hierarchy: "job",
		Mapping:   "/jobs/{JOB}",
		Details: map[string]core.TokenDetail{
			"JOB": {Parse: map[string]string{core.ParseRegex: "("}},
		},
	}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	problems := Lint(r)
	if got := len(problems); got != 1 {
		t.Fatalf("got %d problems: %v", got, problems)
	}
	if !strings.Contains(problems[0].Description, "bad pattern") {
		t.Fatalf(`got "%s"`, problems[0])
	}
}
