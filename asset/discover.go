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

package asset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/parse"
)

var tokenText = regexp.MustCompile(`\{[^\{\}]+\}`)

// candidate is one context that survived decomposition of a value.
type candidate struct {
	context  *core.Context
	pieces   map[string]string
	distance int
}

// FindHierarchyString finds the hierarchy whose mapping a value came
// from.
//
// Every context's mapping gets a chance to decompose the value.  The
// survivors are ranked by Levenshtein distance between the value and
// the mapping (token text stripped, so "{JOB}" does not count against
// a match).  A tie goes to candidates whose extracted token texts
// validate against their token patterns.  Still tied is
// *core.AmbiguousMatch; nothing at all is *core.NoMatch.
func FindHierarchyString(r *core.Registry, value string) (core.Hierarchy, error) {
	var candidates []candidate
	for _, c := range r.Contexts("") {
		mapping := c.Mapping()
		if mapping == "" {
			continue
		}
		pieces, err := parse.ExpandString(mapping, value)
		if err != nil || len(pieces) == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			context:  c,
			pieces:   pieces,
			distance: fuzzy.LevenshteinDistance(tokenText.ReplaceAllString(mapping, ""), value),
		})
	}

	if len(candidates) == 0 {
		return "", &core.NoMatch{Value: value}
	}

	best := candidates[0].distance
	for _, c := range candidates[1:] {
		if c.distance < best {
			best = c.distance
		}
	}
	var closest []candidate
	for _, c := range candidates {
		if c.distance == best {
			closest = append(closest, c)
		}
	}

	if len(closest) == 1 {
		return closest[0].context.Hierarchy(), nil
	}

	var valid []candidate
	for _, c := range closest {
		if piecesValidate(c.context, c.pieces) {
			valid = append(valid, c)
		}
	}

	switch len(valid) {
	case 1:
		return valid[0].context.Hierarchy(), nil
	case 0:
		return "", &core.NoMatch{Value: value}
	}

	hierarchies := make([]core.Hierarchy, len(valid))
	for i, c := range valid {
		hierarchies[i] = c.context.Hierarchy()
	}
	return "", &core.AmbiguousMatch{
		Value:      value,
		Candidates: hierarchies,
	}
}

// piecesValidate reports whether every extracted token text passes
// its token's pattern.  A token with no derivable pattern passes.
func piecesValidate(c *core.Context, pieces map[string]string) bool {
	p := parse.NewParser(c)
	for token, text := range pieces {
		ok, err := p.Validate(token, text)
		if err != nil {
			if _, unresolved := err.(*core.UnresolvedToken); unresolved {
				continue
			}
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// FindHierarchyInfo finds the hierarchy that a set of token values
// belongs to.
//
// A context is a candidate when every token of its mapping is present
// in (or derivable from) the pairs and every pair that names one of
// its tokens validates.  Candidates are ranked by how many of their
// tokens the pairs actually name; a tie is *core.AmbiguousMatch.
func FindHierarchyInfo(r *core.Registry, pairs map[string]string) (core.Hierarchy, error) {
	type scored struct {
		context  *core.Context
		coverage int
	}

	var candidates []scored
	for _, c := range r.Contexts("") {
		p := parse.NewParser(c)
		if c.Mapping() == "" {
			continue
		}
		if !piecesValidate(c, knownPairs(p, pairs)) {
			continue
		}
		if _, err := New(pairs, c); err != nil {
			continue
		}
		candidates = append(candidates, scored{
			context:  c,
			coverage: len(knownPairs(p, pairs)),
		})
	}

	if len(candidates) == 0 {
		return "", &core.NoMatch{Value: pairsString(pairs)}
	}

	best := candidates[0].coverage
	for _, c := range candidates[1:] {
		if best < c.coverage {
			best = c.coverage
		}
	}
	var closest []scored
	for _, c := range candidates {
		if c.coverage == best {
			closest = append(closest, c)
		}
	}

	if len(closest) == 1 {
		return closest[0].context.Hierarchy(), nil
	}

	hierarchies := make([]core.Hierarchy, len(closest))
	for i, c := range closest {
		hierarchies[i] = c.context.Hierarchy()
	}
	return "", &core.AmbiguousMatch{
		Value:      pairsString(pairs),
		Candidates: hierarchies,
	}
}

// knownPairs filters the pairs down to tokens the context knows.
// Extra keys are the caller's business, not a mismatch.
func knownPairs(p *parse.Parser, pairs map[string]string) map[string]string {
	known := make(map[string]bool)
	for _, token := range p.AllTokens() {
		known[token] = true
	}

	acc := make(map[string]string)
	for token, value := range pairs {
		if known[token] {
			acc[token] = value
		}
	}
	return acc
}

func pairsString(pairs map[string]string) string {
	acc := make([]string, 0, len(pairs))
	for k, v := range pairs {
		acc = append(acc, k+"="+v)
	}
	sort.Strings(acc)
	return strings.Join(acc, ", ")
}

// Get builds an Asset from a value string or a token-value map.
//
// When hierarchy arguments are given, the first one names the
// context.  Otherwise the context is discovered: strings through
// FindHierarchyString, maps through FindHierarchyInfo.
func Get(r *core.Registry, info interface{}, hierarchy ...core.Hierarchy) (*Asset, error) {
	switch x := info.(type) {
	case string:
		h, err := pickHierarchy(hierarchy, func() (core.Hierarchy, error) {
			return FindHierarchyString(r, x)
		})
		if err != nil {
			return nil, err
		}
		c := r.Context(h, "")
		if c == nil {
			return nil, core.ErrNoContext
		}
		pieces, err := parse.ExpandString(c.Mapping(), x)
		if err != nil {
			return nil, err
		}
		if len(pieces) == 0 {
			return nil, &core.NoMatch{Value: x}
		}
		return New(pieces, c)

	case map[string]string:
		h, err := pickHierarchy(hierarchy, func() (core.Hierarchy, error) {
			return FindHierarchyInfo(r, x)
		})
		if err != nil {
			return nil, err
		}
		c := r.Context(h, "")
		if c == nil {
			return nil, core.ErrNoContext
		}
		return New(x, c)
	}

	return nil, fmt.Errorf("cannot build an asset from %#v", info)
}

func pickHierarchy(given []core.Hierarchy, discover func() (core.Hierarchy, error)) (core.Hierarchy, error) {
	if 0 < len(given) {
		return given[0], nil
	}
	return discover()
}
