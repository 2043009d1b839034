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

package parse

import (
	"reflect"
	"testing"

	"github.com/ColinKennedy/ways/core"
)

func pipelineContext(t *testing.T, hierarchy core.Hierarchy) *Parser {
	t.Helper()

	r, err := core.PipelineRegistry()
	if err != nil {
		t.Fatal(err)
	}
	c := r.Context(hierarchy, "")
	if c == nil {
		t.Fatalf(`no context at "%s"`, hierarchy)
	}
	return NewParser(c)
}

func plainParser(t *testing.T, p *core.Plugin) *Parser {
	t.Helper()

	r := core.NewRegistry()
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}
	c := r.Context(p.Hierarchy, "")
	if c == nil {
		t.Fatal("no context")
	}
	return NewParser(c)
}

func TestTokens(t *testing.T) {
	p := pipelineContext(t, "job/shot")

	if got, want := p.Mapping(), "/jobs/{JOB}/shots/{SHOT}"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}

	if got, want := p.Tokens(), []string{"JOB", "SHOT"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, wanted %#v", got, want)
	}
}

func TestAllTokens(t *testing.T) {
	p := pipelineContext(t, "job")

	got := p.AllTokens()
	want := []string{"JOB", "JOB_NAME", "JOB_ID"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, wanted %#v", got, want)
	}

	if got := p.ChildTokens("JOB"); !reflect.DeepEqual(got, []string{"JOB_NAME", "JOB_ID"}) {
		t.Fatalf("got %#v", got)
	}
}

func TestExpandExplicit(t *testing.T) {
	p := pipelineContext(t, "job/shot")

	got := p.Expand(&ResolveOptions{
		Values: map[string]string{
			"JOB":  "acme_001",
			"SHOT": "sh010",
		},
	})
	if want := "/jobs/acme_001/shots/sh010"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestExpandLeavesUnresolved(t *testing.T) {
	p := pipelineContext(t, "job/shot")

	got := p.Expand(&ResolveOptions{
		Values: map[string]string{"JOB": "acme_001"},
	})
	if want := "/jobs/acme_001/shots/{SHOT}"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestExpandEnv(t *testing.T) {
	p := pipelineContext(t, "job")

	t.Setenv("JOB", "acme_001")

	got := p.Expand(&ResolveOptions{
		Strategies: []Strategy{StrategyEnv},
	})
	if want := "/jobs/acme_001"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestExpandChildTemplate(t *testing.T) {
	p := pipelineContext(t, "job")

	// JOB itself has no value, but one of its children does, so
	// the sub-template gets swapped in and partially filled.
	got := p.Expand(&ResolveOptions{
		Values: map[string]string{"JOB_NAME": "acme"},
	})
	if want := "/jobs/acme_{JOB_ID}"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestExpandHoldout(t *testing.T) {
	p := pipelineContext(t, "job")

	got := p.Expand(&ResolveOptions{
		Values:  map[string]string{"JOB_NAME": "acme"},
		Holdout: map[string]bool{"JOB": true},
	})
	if want := "/jobs/{JOB}"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestValueChildSearch(t *testing.T) {
	p := pipelineContext(t, "job")

	got, err := p.Value("JOB", &ResolveOptions{
		Values: map[string]string{
			"JOB_NAME": "acme",
			"JOB_ID":   "001",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := "acme_001"; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestValueParentSearch(t *testing.T) {
	p := pipelineContext(t, "job")

	opts := &ResolveOptions{
		Values: map[string]string{"JOB": "acme_001"},
	}

	got, err := p.Value("JOB_NAME", opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != "acme" {
		t.Fatalf(`got "%s", wanted "acme"`, got)
	}

	if got, err = p.Value("JOB_ID", opts); err != nil {
		t.Fatal(err)
	}
	if got != "001" {
		t.Fatalf(`got "%s", wanted "001"`, got)
	}
}

func TestValueErrors(t *testing.T) {
	p := pipelineContext(t, "job")

	_, err := p.Value("NOPE", nil)
	if _, is := err.(*core.UnknownToken); !is {
		t.Fatalf("got %#v, wanted *core.UnknownToken", err)
	}

	_, err = p.Value("JOB", nil)
	if _, is := err.(*core.UnresolvedToken); !is {
		t.Fatalf("got %#v, wanted *core.UnresolvedToken", err)
	}
}

func TestPatternComposed(t *testing.T) {
	p := pipelineContext(t, "job")

	got, err := p.Pattern("JOB", "")
	if err != nil {
		t.Fatal(err)
	}
	if want := `\w+_\d{3}`; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestPatternInferredFromParent(t *testing.T) {
	p := plainParser(t, &core.Plugin{
		Hierarchy: "show/shot",
		Mapping:   "/shows/{SHOT_NAME}",
		Details: map[string]core.TokenDetail{
			"SHOT_NAME": {
				Mapping: "{SHOT_PREFIX}_{SHOT_NUMBER}",
				Parse: map[string]string{
					core.ParseRegex: `[A-Z]{2}_\d{4}`,
				},
			},
		},
	})

	got, err := p.Pattern("SHOT_NUMBER", "")
	if err != nil {
		t.Fatal(err)
	}
	if want := `\d{4}`; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}

	if got, err = p.Pattern("SHOT_PREFIX", ""); err != nil {
		t.Fatal(err)
	}
	if want := `[A-Z]{2}`; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}

func TestValidate(t *testing.T) {
	p := pipelineContext(t, "job")

	ok, err := p.Validate("JOB", "acme_001")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a match")
	}

	if ok, _ = p.Validate("JOB", "acme-nope"); ok {
		t.Fatal("expected no match")
	}
}

func TestMappingRegex(t *testing.T) {
	p := pipelineContext(t, "job")

	got, err := p.MappingRegex()
	if err != nil {
		t.Fatal(err)
	}
	if want := `/jobs/(?P<JOB>\w+_\d{3})`; got != want {
		t.Fatalf(`got "%s", wanted "%s"`, got, want)
	}
}
