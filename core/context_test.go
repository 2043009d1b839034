package core

import (
	"testing"
)

func TestContextFlyweight(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Plugin{Hierarchy: "job", Mapping: "/jobs/{JOB}"}); err != nil {
		t.Fatal(err)
	}

	a := r.Context("job", "")
	if a == nil {
		t.Fatal("wanted a context")
	}
	if b := r.Context("job", ""); a != b {
		t.Fatal("wanted the same handle")
	}
	if b := r.Context("/job/", ""); a != b {
		t.Fatal("wanted normalization to land on the same handle")
	}
	if b := r.Context("job", "master"); a == b {
		t.Fatal("a pinned assignment is its own handle")
	}

	if c := r.Context("nope", ""); c != nil {
		t.Fatal("wanted nil for a hierarchy with no plugins")
	}
	if c := r.Context("job", "sandbox"); c != nil {
		t.Fatal("wanted nil for an assignment with no plugins")
	}
}

func TestContextSeesLateRegistrations(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Plugin{Hierarchy: "job", Mapping: "/jobs"}); err != nil {
		t.Fatal(err)
	}
	c := r.Context("job", "")

	if got := c.Data()["color"]; got != nil {
		t.Fatalf("got %v", got)
	}

	p := &Plugin{Hierarchy: "job", Data: map[string]interface{}{"color": "blue"}}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	// No refresh, no invalidation: the old handle just sees it.
	if got := c.Data()["color"]; got != "blue" {
		t.Fatalf("got %v", got)
	}

	if n := r.DeregisterSource(""); n != 2 {
		t.Fatalf("deregistered %d", n)
	}
	if got := len(c.View().Plugins); got != 0 {
		t.Fatalf("got %d contributions", got)
	}
}

func TestContextUserData(t *testing.T) {
	r := NewRegistry()

	p := &Plugin{Hierarchy: "job", Data: map[string]interface{}{"color": "blue"}}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}
	c := r.Context("job", "")

	c.SetData("color", "red")
	c.SetData("note", "mine")
	if got := c.Data()["color"]; got != "red" {
		t.Fatalf("got %v", got)
	}

	// The user layer shadows loaded data; it never replaces it.
	if p.Data["color"] != "blue" {
		t.Fatal("loaded data changed")
	}

	if !c.DeleteData("color") {
		t.Fatal("wanted a deletion")
	}
	if c.DeleteData("color") {
		t.Fatal("wanted nothing left to delete")
	}
	if got := c.Data()["color"]; got != "blue" {
		t.Fatalf("got %v", got)
	}

	ud := c.UserData()
	if got := len(ud); got != 1 {
		t.Fatalf("got %v", ud)
	}
	ud["note"] = "copy"
	if got := c.Data()["note"]; got != "mine" {
		t.Fatalf("got %v", got)
	}

	c.Revert()
	if got := len(c.UserData()); got != 0 {
		t.Fatalf("got %v", c.UserData())
	}

	// The layer belongs to the handle, not to the hierarchy.
	c.SetData("note", "mine")
	pinned := c.Checkout("master")
	if got := pinned.Data()["note"]; got != nil {
		t.Fatalf("got %v", got)
	}
}

func TestViewDataLastWins(t *testing.T) {
	r := NewRegistry()

	// Two plugins at the same hierarchy and assignment, fighting over
	// the same keys.  Registration order is the tie-break.
	for _, p := range []*Plugin{
		{
			Hierarchy: "job",
			Data: map[string]interface{}{
				"color": "blue",
				"box":   map[string]interface{}{"a": 1, "b": 2},
			},
		},
		{
			Hierarchy: "job",
			Data: map[string]interface{}{
				"color": "red",
				"box":   map[string]interface{}{"c": 3},
			},
		},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	data := r.Context("job", "").Data()
	if got := data["color"]; got != "red" {
		t.Fatalf("got %v", got)
	}

	// Containers are replaced wholesale, never deep-merged.
	box, is := data["box"].(map[string]interface{})
	if !is {
		t.Fatalf("got %#v", data["box"])
	}
	if _, have := box["a"]; have {
		t.Fatalf("got %#v", box)
	}
	if got := box["c"]; got != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestContextPriorityMerge(t *testing.T) {
	r := NewRegistry()

	for _, p := range []*Plugin{
		{
			Hierarchy: "job",
			Mapping:   "/jobs/{JOB}",
			Data:      map[string]interface{}{"color": "blue", "base": true},
		},
		{
			Hierarchy:  "job",
			Assignment: "sandbox",
			Data:       map[string]interface{}{"color": "red"},
		},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	c := r.Context("job", "")
	if got := c.Data()["color"]; got != "blue" {
		t.Fatalf("got %v", got)
	}

	r.SetPriority("master", "sandbox")
	if got := c.Data()["color"]; got != "red" {
		t.Fatalf("got %v", got)
	}
	if got := c.Data()["base"]; got != true {
		t.Fatalf("got %v", got)
	}
	if got := c.Mapping(); got != "/jobs/{JOB}" {
		t.Fatalf(`got "%s"`, got)
	}

	pinned := c.Checkout("master")
	if got := pinned.Data()["color"]; got != "blue" {
		t.Fatalf("got %v", got)
	}
	pinned = c.Checkout("sandbox")
	if got := pinned.Data()["base"]; got != nil {
		t.Fatalf("got %v", got)
	}
}

func TestContextViewCopies(t *testing.T) {
	r := NewRegistry()

	p := &Plugin{
		Hierarchy: "job",
		Mapping:   "/jobs/{JOB}",
		Details: map[string]TokenDetail{
			"JOB": {Parse: map[string]string{ParseRegex: `\w+`}},
		},
		Data: map[string]interface{}{"color": "blue"},
	}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}
	c := r.Context("job", "")

	v := c.View()
	v.Data["color"] = "green"
	v.Details["JOB"] = TokenDetail{}
	delete(v.Details, "JOB")

	if got := c.Data()["color"]; got != "blue" {
		t.Fatalf("got %v", got)
	}
	if _, have := c.Details()["JOB"]; !have {
		t.Fatal("lost a token detail")
	}
}

func TestContextPlatformsAndPath(t *testing.T) {
	r := NewRegistry()
	if err := r.SetPlatform("linux"); err != nil {
		t.Fatal(err)
	}

	for _, p := range []*Plugin{
		{Hierarchy: "job", Mapping: "/jobs", PathMapping: true, Platforms: []string{"linux", "windows"}},
		{Hierarchy: "job", Platforms: []string{"linux"}},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	v := r.Context("job", "").View()
	if !v.IsPath {
		t.Fatal("wanted a path mapping")
	}
	if len(v.Platforms) != 1 || v.Platforms[0] != "linux" {
		t.Fatalf("got %v", v.Platforms)
	}
}

func TestContexts(t *testing.T) {
	r, err := PipelineRegistry()
	if err != nil {
		t.Fatal(err)
	}

	cs := r.Contexts("")
	if got := len(cs); got != 4 {
		t.Fatalf("got %d contexts", got)
	}
	if cs[0].Hierarchy() != "job" || cs[3].Hierarchy() != "job/shot/config" {
		t.Fatalf("got %v, %v", cs[0].Hierarchy(), cs[3].Hierarchy())
	}
}
