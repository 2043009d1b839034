package core

import (
	"reflect"
	"testing"
)

func TestRegister(t *testing.T) {
	r := NewRegistry()

	p := &Plugin{Hierarchy: "/job//shot/"}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	if p.Hierarchy != "job/shot" {
		t.Fatalf(`got hierarchy "%s"`, p.Hierarchy)
	}
	if p.Assignment != DefaultAssignment {
		t.Fatalf(`got assignment "%s"`, p.Assignment)
	}
	if p.ID == "" {
		t.Fatal("wanted a generated id")
	}

	if err := r.Register(nil); err == nil {
		t.Fatal("wanted an error for a nil plugin")
	}
	if err := r.Register(&Plugin{}); err == nil {
		t.Fatal("wanted an error for a plugin with no hierarchy")
	}
}

func TestRegisterDuplicateId(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Plugin{ID: "x", Hierarchy: "job"}); err != nil {
		t.Fatal(err)
	}
	err := r.Register(&Plugin{ID: "x", Hierarchy: "asset"})
	if err == nil {
		t.Fatal("wanted a duplicate id error")
	}
	dup, is := err.(*DuplicateId)
	if !is {
		t.Fatalf("got %T", err)
	}
	if dup.Id != "x" {
		t.Fatalf(`got id "%s"`, dup.Id)
	}

	// An ID stays claimed even after its plugin goes away.
	if n := r.DeregisterSource(""); n != 1 {
		t.Fatalf("deregistered %d", n)
	}
	if err = r.Register(&Plugin{ID: "x", Hierarchy: "job"}); err == nil {
		t.Fatal("wanted the id to stay reserved")
	}
}

func TestDeregisterSource(t *testing.T) {
	r := NewRegistry()

	for _, p := range []*Plugin{
		{Hierarchy: "job", Source: "a.yml"},
		{Hierarchy: "job", Source: "b.yml"},
		{Hierarchy: "asset", Source: "a.yml"},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	if n := r.DeregisterSource("a.yml"); n != 2 {
		t.Fatalf("deregistered %d, wanted 2", n)
	}
	if n := r.DeregisterSource("a.yml"); n != 0 {
		t.Fatalf("deregistered %d, wanted 0", n)
	}

	if got := len(r.Plugins()); got != 1 {
		t.Fatalf("got %d plugins", got)
	}
	if !r.Resolve().Live("job") {
		t.Fatal(`wanted "job" to survive`)
	}
	if r.Resolve().Live("asset") {
		t.Fatal(`didn't want "asset" to survive`)
	}
}

func TestClear(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Plugin{ID: "x", Hierarchy: "job"}); err != nil {
		t.Fatal(err)
	}
	r.SetPriority("sandbox", "master")
	r.Clear()

	if got := len(r.Plugins()); got != 0 {
		t.Fatalf("got %d plugins", got)
	}
	if want := []string{DefaultAssignment}; !reflect.DeepEqual(r.Priority(), want) {
		t.Fatalf("got %v", r.Priority())
	}

	// Clear releases IDs; DeregisterSource does not.
	if err := r.Register(&Plugin{ID: "x", Hierarchy: "job"}); err != nil {
		t.Fatal(err)
	}
}

func TestPluginsAt(t *testing.T) {
	r := NewRegistry()

	for _, p := range []*Plugin{
		{Name: "one", Hierarchy: "job"},
		{Name: "two", Hierarchy: "job", Assignment: "sandbox"},
		{Name: "three", Hierarchy: "asset"},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(r.PluginsAt("job", "")); got != 2 {
		t.Fatalf("got %d plugins", got)
	}
	ps := r.PluginsAt("job", "sandbox")
	if len(ps) != 1 || ps[0].Name != "two" {
		t.Fatalf("got %v", ps)
	}
	if got := len(r.PluginsAt("nope", "")); got != 0 {
		t.Fatalf("got %d plugins", got)
	}
}

func TestAliases(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Plugin{Hierarchy: "job/shot", Mapping: "/jobs/shots"}); err != nil {
		t.Fatal(err)
	}

	if err := r.RegisterAlias("sh", "job/shot"); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterAlias("sh", "asset"); err == nil {
		t.Fatal("wanted an error for a retargeted alias")
	}
	if err := r.RegisterAlias("x", "x"); err == nil {
		t.Fatal("wanted an error for a self-alias")
	}
	if err := r.RegisterAlias("", "job"); err == nil {
		t.Fatal("wanted an error for an empty alias")
	}

	if got := r.ResolveAlias("sh"); got != "job/shot" {
		t.Fatalf(`got "%s"`, got)
	}
	if got := r.ResolveAlias("job/shot"); got != "job/shot" {
		t.Fatalf(`got "%s"`, got)
	}

	c := r.Context("sh", "")
	if c == nil {
		t.Fatal("wanted a context through the alias")
	}
	if c.Hierarchy() != "job/shot" {
		t.Fatalf(`got "%s"`, c.Hierarchy())
	}
	if c != r.Context("job/shot", "") {
		t.Fatal("wanted the same flyweight either way")
	}
}

func TestAliasChains(t *testing.T) {
	r := NewRegistry()

	if err := r.RegisterAlias("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterAlias("b", "c"); err != nil {
		t.Fatal(err)
	}
	if got := r.ResolveAlias("a"); got != "c" {
		t.Fatalf(`got "%s"`, got)
	}

	// A loop can only be made piecemeal, and lookups still end.
	if err := r.RegisterAlias("c", "a"); err != nil {
		t.Fatal(err)
	}
	r.ResolveAlias("a")
}

func TestPlatforms(t *testing.T) {
	r := NewRegistry()

	if err := r.SetPlatform("LINUX"); err != nil {
		t.Fatal(err)
	}
	if got := r.Platform(); got != "linux" {
		t.Fatalf(`got "%s"`, got)
	}

	err := r.SetPlatform("amiga")
	if err == nil {
		t.Fatal("wanted an error")
	}
	if _, is := err.(*UnknownPlatform); !is {
		t.Fatalf("got %T", err)
	}
	if got := r.Platform(); got != "linux" {
		t.Fatalf(`got "%s"`, got)
	}

	r.SetKnownPlatforms("Amiga", "amiga", "", "beos")
	if want := []string{"amiga", "beos"}; !reflect.DeepEqual(r.KnownPlatforms(), want) {
		t.Fatalf("got %v", r.KnownPlatforms())
	}
	if err := r.SetPlatform("amiga"); err != nil {
		t.Fatal(err)
	}
}

func TestSetPriority(t *testing.T) {
	r := NewRegistry()

	r.SetPriority("master", "sandbox", "master", "")
	if want := []string{"master", "sandbox"}; !reflect.DeepEqual(r.Priority(), want) {
		t.Fatalf("got %v", r.Priority())
	}

	r.SetPriority()
	if want := []string{DefaultAssignment}; !reflect.DeepEqual(r.Priority(), want) {
		t.Fatalf("got %v", r.Priority())
	}
}
