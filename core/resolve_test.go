package core

import (
	"reflect"
	"testing"
)

func TestResolveAbsolute(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Plugin{Hierarchy: "job", Mapping: "/jobs/{JOB}"}); err != nil {
		t.Fatal(err)
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 0 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	if want := []Hierarchy{"job"}; !reflect.DeepEqual(res.Hierarchies(), want) {
		t.Fatalf("got %v", res.Hierarchies())
	}
	if !res.Live("job") {
		t.Fatal(`wanted "job" live`)
	}

	rps := res.At("job", "")
	if len(rps) != 1 {
		t.Fatalf("got %d contributions", len(rps))
	}
	if rps[0].Mapping != "/jobs/{JOB}" {
		t.Fatalf(`got mapping "%s"`, rps[0].Mapping)
	}
	if rps[0].Parent != "" {
		t.Fatalf(`got parent "%s"`, rps[0].Parent)
	}
}

func TestResolveRelatives(t *testing.T) {
	r := NewRegistry()

	// The grandchild registers first; resolution iterates to the
	// fixed point no matter the order.
	for _, p := range []*Plugin{
		{
			Name:      "config",
			Hierarchy: "{root}/config",
			Mapping:   "{root}/config",
			Uses:      []Hierarchy{"job/shot"},
		},
		{
			Name:      "shot",
			Hierarchy: "{root}/shot",
			Mapping:   "{root}/shots/{SHOT}",
			Uses:      []Hierarchy{"job"},
		},
		{
			Name:      "job",
			Hierarchy: "job",
			Mapping:   "/jobs/{JOB}",
		},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 0 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	want := []Hierarchy{"job", "job/shot", "job/shot/config"}
	if !reflect.DeepEqual(res.Hierarchies(), want) {
		t.Fatalf("got %v", res.Hierarchies())
	}

	rps := res.At("job/shot/config", "")
	if len(rps) != 1 {
		t.Fatalf("got %d contributions", len(rps))
	}
	rp := rps[0]
	if rp.Parent != "job/shot" {
		t.Fatalf(`got parent "%s"`, rp.Parent)
	}
	if rp.ParentMapping != "/jobs/{JOB}/shots/{SHOT}" {
		t.Fatalf(`got parent mapping "%s"`, rp.ParentMapping)
	}
	if rp.Mapping != "/jobs/{JOB}/shots/{SHOT}/config" {
		t.Fatalf(`got mapping "%s"`, rp.Mapping)
	}
}

func TestResolveMultipleParents(t *testing.T) {
	r := NewRegistry()

	for _, p := range []*Plugin{
		{Hierarchy: "job", Mapping: "/jobs/{JOB}"},
		{Hierarchy: "library", Mapping: "/library"},
		{
			Name:      "config",
			Hierarchy: "{root}/config",
			Mapping:   "{root}/config",
			Uses:      []Hierarchy{"job", "library"},
		},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Resolve()
	want := []Hierarchy{"job", "job/config", "library", "library/config"}
	if !reflect.DeepEqual(res.Hierarchies(), want) {
		t.Fatalf("got %v", res.Hierarchies())
	}

	if got := res.At("job/config", "")[0].Mapping; got != "/jobs/{JOB}/config" {
		t.Fatalf(`got "%s"`, got)
	}
	if got := res.At("library/config", "")[0].Mapping; got != "/library/config" {
		t.Fatalf(`got "%s"`, got)
	}
}

func TestResolveComposition(t *testing.T) {
	for _, c := range []struct {
		description string
		mapping     string
		want        string
	}{
		{"root substitution", "{root}/shots", "/jobs/shots"},
		{"plain append", "_archive", "/jobs_archive"},
		{"inherited", "", "/jobs"},
	} {
		t.Run(c.description, func(t *testing.T) {
			r := NewRegistry()
			for _, p := range []*Plugin{
				{Hierarchy: "job", Mapping: "/jobs"},
				{Hierarchy: "{root}/sub", Mapping: c.mapping, Uses: []Hierarchy{"job"}},
			} {
				if err := r.Register(p); err != nil {
					t.Fatal(err)
				}
			}
			if got := r.Resolve().At("job/sub", "")[0].Mapping; got != c.want {
				t.Fatalf(`got "%s", wanted "%s"`, got, c.want)
			}
		})
	}
}

func TestResolveUnknownParent(t *testing.T) {
	r := NewRegistry()

	p := &Plugin{Name: "lost", Hierarchy: "{root}/child", Uses: []Hierarchy{"nowhere"}}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 1 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	unknown, is := res.Problems[0].(*UnknownParent)
	if !is {
		t.Fatalf("got %T", res.Problems[0])
	}
	if unknown.Parent != "nowhere" {
		t.Fatalf(`got parent "%s"`, unknown.Parent)
	}
	if unknown.Plugin.Name != "lost" {
		t.Fatalf(`got plugin "%s"`, unknown.Plugin.Name)
	}
	if got := len(res.Hierarchies()); got != 0 {
		t.Fatalf("got %v", res.Hierarchies())
	}
}

func TestResolveUnknownParentChain(t *testing.T) {
	r := NewRegistry()

	// b waits on a's output, and a waits on a hierarchy nobody
	// makes.  Both are missing parents, not a cycle.
	for _, p := range []*Plugin{
		{Name: "a", Hierarchy: "{root}/a", Uses: []Hierarchy{"missing"}},
		{Name: "b", Hierarchy: "{root}/b", Uses: []Hierarchy{"missing/a"}},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 2 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	for _, problem := range res.Problems {
		if _, is := problem.(*UnknownParent); !is {
			t.Fatalf("got %T: %v", problem, problem)
		}
	}
}

func TestResolveCyclicUses(t *testing.T) {
	r := NewRegistry()

	// A pure "{root}" hierarchy makes the plugin's output the very
	// hierarchy it waits for.
	p := &Plugin{Name: "ouroboros", Hierarchy: "{root}", Uses: []Hierarchy{"tail"}}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 1 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	cyclic, is := res.Problems[0].(*CyclicUses)
	if !is {
		t.Fatalf("got %T: %v", res.Problems[0], res.Problems[0])
	}
	if cyclic.Plugin.Name != "ouroboros" {
		t.Fatalf(`got plugin "%s"`, cyclic.Plugin.Name)
	}
	if len(cyclic.Cycle) == 0 {
		t.Fatal("wanted the cycle spelled out")
	}
}

func TestResolveProblemsDontSpread(t *testing.T) {
	r := NewRegistry()

	for _, p := range []*Plugin{
		{Hierarchy: "job", Mapping: "/jobs/{JOB}"},
		{Hierarchy: "{root}/child", Uses: []Hierarchy{"nowhere"}},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 1 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	if !res.Live("job") {
		t.Fatal(`wanted "job" to resolve anyway`)
	}
}

func TestResolvePlatformFilter(t *testing.T) {
	r := NewRegistry()
	if err := r.SetPlatform("linux"); err != nil {
		t.Fatal(err)
	}

	for _, p := range []*Plugin{
		{Name: "everywhere", Hierarchy: "job", Mapping: "/jobs"},
		{Name: "elsewhere", Hierarchy: "job", Platforms: []string{"windows"}},
		{Name: "both", Hierarchy: "job", Platforms: []string{"linux, windows"}},
		{Name: "starred", Hierarchy: "job", Platforms: []string{"*"}},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 0 {
		t.Fatalf("got problems: %v", res.Problems)
	}

	rps := res.At("job", "")
	if got := len(rps); got != 3 {
		t.Fatalf("got %d contributions", got)
	}
	for _, rp := range rps {
		if rp.Plugin.Name == "elsewhere" {
			t.Fatal(`"elsewhere" should have been filtered`)
		}
	}

	if got := len(res.Filtered); got != 1 {
		t.Fatalf("got %d filtered", got)
	}
	if got := res.Filtered[0].Plugin.Name; got != "elsewhere" {
		t.Fatalf(`got "%s"`, got)
	}

	// Filtering doesn't release the ID.
	if err := r.Register(&Plugin{ID: res.Filtered[0].Plugin.ID, Hierarchy: "job"}); err == nil {
		t.Fatal("wanted the filtered plugin's id to stay reserved")
	}
}

func TestResolveUnknownPlatform(t *testing.T) {
	r := NewRegistry()
	if err := r.SetPlatform("linux"); err != nil {
		t.Fatal(err)
	}
	r.SetKnownPlatforms("windows")

	if err := r.Register(&Plugin{Hierarchy: "job", Mapping: "/jobs"}); err != nil {
		t.Fatal(err)
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 1 {
		t.Fatalf("got problems: %v", res.Problems)
	}
	if _, is := res.Problems[0].(*UnknownPlatform); !is {
		t.Fatalf("got %T", res.Problems[0])
	}
}

func TestResolveAssignments(t *testing.T) {
	r := NewRegistry()

	for _, p := range []*Plugin{
		{Name: "base", Hierarchy: "job", Mapping: "/jobs"},
		{Name: "sand", Hierarchy: "job", Assignment: "sandbox", Mapping: "/sandbox/jobs"},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	res := r.Resolve()
	if want := []string{"master", "sandbox"}; !reflect.DeepEqual(res.Assignments("job"), want) {
		t.Fatalf("got %v", res.Assignments("job"))
	}

	// The default priority doesn't include "sandbox" at all.
	if got := len(res.At("job", "")); got != 1 {
		t.Fatalf("got %d contributions", got)
	}
	if got := res.At("job", "sandbox"); len(got) != 1 || got[0].Plugin.Name != "sand" {
		t.Fatalf("got %v", got)
	}

	r.SetPriority("master", "sandbox")
	res = r.Resolve()
	rps := res.At("job", "")
	if got := len(rps); got != 2 {
		t.Fatalf("got %d contributions", got)
	}
	if rps[len(rps)-1].Plugin.Name != "sand" {
		t.Fatal(`wanted "sandbox" last so it wins merges`)
	}
}

func TestPipelineRegistry(t *testing.T) {
	r, err := PipelineRegistry()
	if err != nil {
		t.Fatal(err)
	}

	res := r.Resolve()
	if got := len(res.Problems); got != 0 {
		t.Fatalf("got problems: %v", res.Problems)
	}

	want := map[Hierarchy]string{
		"job":             "/jobs/{JOB}",
		"job/config":      "/jobs/{JOB}/config",
		"job/shot":        "/jobs/{JOB}/shots/{SHOT}",
		"job/shot/config": "/jobs/{JOB}/shots/{SHOT}/config",
	}
	hierarchies := res.Hierarchies()
	if len(hierarchies) != len(want) {
		t.Fatalf("got %v", hierarchies)
	}
	for h, mapping := range want {
		c := r.Context(h, "")
		if c == nil {
			t.Fatalf(`no context at "%s"`, h)
		}
		if got := c.Mapping(); got != mapping {
			t.Fatalf(`got "%s" at "%s", wanted "%s"`, got, h, mapping)
		}
	}
}
