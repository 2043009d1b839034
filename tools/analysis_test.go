package tools

import (
	"reflect"
	"testing"

	"github.com/ColinKennedy/ways/core"
)

func TestAnalysis(t *testing.T) {
	r, err := core.PipelineRegistry()
	if err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(r)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(a.Errors); got != 0 {
		t.Fatalf("got %d errors: %v", got, a.Errors)
	}
	if got := a.HierarchyCount; got != 4 {
		t.Fatalf("got %d hierarchies, wanted 4", got)
	}
	if got := a.Relatives; got != 2 {
		t.Fatalf("got %d relatives, wanted 2", got)
	}
	if got := a.Actions; got != 1 {
		t.Fatalf("got %d actions, wanted 1", got)
	}
	if want := []string{"job"}; !reflect.DeepEqual(a.Roots, want) {
		t.Fatalf("got %v, wanted %v", a.Roots, want)
	}
	if want := []string{"job/config", "job/shot/config"}; !reflect.DeepEqual(a.Leaves, want) {
		t.Fatalf("got %v, wanted %v", a.Leaves, want)
	}
	if want := []string{"dev", "master"}; !reflect.DeepEqual(a.Assignments, want) {
		t.Fatalf("got %v, wanted %v", a.Assignments, want)
	}
	if got := len(a.Collisions); got != 0 {
		t.Fatalf("got collisions: %v", a.Collisions)
	}
	if got := len(a.DanglingTokens); got != 0 {
		t.Fatalf("got dangling tokens: %v", a.DanglingTokens)
	}
}

func TestAnalysisCollisions(t *testing.T) {
	r := core.NewRegistry()
	for _, p := range []*core.Plugin{
		{Hierarchy: "model", Mapping: "/data/{NAME}"},
		{Hierarchy: "texture", Mapping: "/data/{NAME}"},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	a, err := Analyze(r)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(a.Collisions); got != 1 {
		t.Fatalf("got %d collisions: %v", got, a.Collisions)
	}
}

func TestAnalysisDanglingTokens(t *testing.T) {
	r := core.NewRegistry()
	p := &core.Plugin{
		Hierarchy: "job",
		Mapping:   "/jobs/{JOB}",
		Details: map[string]core.TokenDetail{
			"EXTRA": {Parse: map[string]string{core.ParseRegex: `\d+`}},
		},
	}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(r)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"job: EXTRA"}; !reflect.DeepEqual(a.DanglingTokens, want) {
		t.Fatalf("got %v, wanted %v", a.DanglingTokens, want)
	}
}

func TestAnalysisUnknownParent(t *testing.T) {
	r := core.NewRegistry()
	p := &core.Plugin{
		Hierarchy: "{root}/child",
		Uses:      []core.Hierarchy{"nowhere"},
	}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(r)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(a.Errors); got != 1 {
		t.Fatalf("got %d errors: %v", got, a.Errors)
	}
	if want := []string{"nowhere"}; !reflect.DeepEqual(a.UnknownParents, want) {
		t.Fatalf("got %v, wanted %v", a.UnknownParents, want)
	}
}
