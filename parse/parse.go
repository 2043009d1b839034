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

// Package parse fills in the tokens of a Context's merged mapping.
//
// Quick terminology: a "token" is a piece of a mapping that needs a
// value, as in "some_{TOKEN}_here".  A token can carry a sub-template
// in its details ("{JOB}" expanding to "{JOB_NAME}_{JOB_ID}"), which
// makes the tokens of that sub-template its children.
//
// A Parser holds no state of its own.  Every method reads through the
// Context's current view, so plugins registered after the Parser was
// made are picked up on the next call.
package parse

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/util"
)

// A Strategy is one way Expand and Value are allowed to find a
// token's value.
type Strategy string

const (
	// StrategyEnv reads the environment variable named exactly
	// like the token.
	StrategyEnv Strategy = "env"

	// StrategySearch derives a value from the token's children
	// (composing their values into its sub-template) or from a
	// parent (decomposing the parent's value against the
	// sub-template).
	StrategySearch Strategy = "search"
)

// ResolveOptions steer Expand and Value.  The zero value resolves
// nothing but explicit Values.
type ResolveOptions struct {
	// Strategies are tried per token, in order, after Values.
	Strategies []Strategy

	// Values are explicit token values and take precedence over
	// every strategy.  A value that is present but empty still
	// substitutes (the token disappears).
	Values map[string]string

	// Holdout tokens are left alone entirely: not resolved, not
	// expanded into their sub-templates.
	Holdout map[string]bool

	// Depth caps how many expansion rounds Expand may run.
	// Values below 1 mean no cap.
	Depth int
}

func (o *ResolveOptions) orDefault() *ResolveOptions {
	if o == nil {
		return &ResolveOptions{}
	}
	return o
}

// Parser resolves the tokens of one Context.
type Parser struct {
	context *core.Context
}

// NewParser makes a Parser over a Context.
func NewParser(c *core.Context) *Parser {
	return &Parser{context: c}
}

// Context returns the Context the Parser reads through.
func (p *Parser) Context() *core.Context {
	return p.context
}

// Mapping returns the context's merged mapping, unresolved.
func (p *Parser) Mapping() string {
	return p.context.Mapping()
}

// Details returns the context's merged token details.
func (p *Parser) Details() map[string]core.TokenDetail {
	return p.context.Details()
}

// Tokens returns the token names in the merged mapping, in order,
// without repeats.
func (p *Parser) Tokens() []string {
	return util.Uniques(FindTokens(p.context.Mapping()))
}

// AllTokens returns the mapping's tokens plus every child token
// reachable through sub-templates, each child right after its parent.
func (p *Parser) AllTokens() []string {
	v := p.context.View()

	seen := make(map[string]bool)
	var acc []string
	var walk func(tokens []string)
	walk = func(tokens []string) {
		for _, token := range tokens {
			if seen[token] {
				continue
			}
			seen[token] = true
			acc = append(acc, token)
			walk(FindTokens(v.Details[token].Mapping))
		}
	}
	walk(FindTokens(v.Mapping))

	return acc
}

// ChildTokens returns the tokens of a token's sub-template, if it has
// one.
func (p *Parser) ChildTokens(token string) []string {
	return util.Uniques(FindTokens(p.context.Details()[token].Mapping))
}

// Expand renders the merged mapping, substituting every token it can
// and leaving the rest as literal "{TOKEN}" text.
//
// Each round resolves what it can (explicit Values, then the
// Strategies in order) and then swaps in the sub-template of any
// still-unresolved token whose children look resolvable.  Rounds
// repeat until nothing changes or opts.Depth is hit.
func (p *Parser) Expand(opts *ResolveOptions) string {
	opts = opts.orDefault()
	v := p.context.View()

	mapping := v.Mapping
	for round := 0; len(FindTokens(mapping)) != 0; round++ {
		before := mapping
		mapping = p.resolveTokens(mapping, v.Details, opts)
		mapping = p.expandTemplates(mapping, v.Details, opts)
		if mapping == before {
			break
		}
		if 0 < opts.Depth && opts.Depth <= round+1 {
			mapping = p.resolveTokens(mapping, v.Details, opts)
			break
		}
	}

	return mapping
}

// Value resolves a single token: explicit value, then the Strategies,
// then Child-Search (compose the token's sub-template from child
// values), then Parent-Search (decompose a resolvable parent's value
// and take this token's piece).
//
// The error is a *core.UnknownToken when the token isn't part of the
// context, and a *core.UnresolvedToken when it is but nothing could
// produce a value.
func (p *Parser) Value(token string, opts *ResolveOptions) (string, error) {
	opts = opts.orDefault()
	v := p.context.View()

	if !knownTokens(v)[token] {
		return "", &core.UnknownToken{
			Token:     token,
			Hierarchy: p.context.Hierarchy(),
		}
	}

	if value := p.tokenValue(token, v.Details, opts, map[string]bool{}); value != "" {
		return value, nil
	}

	return "", &core.UnresolvedToken{
		Token:     token,
		Hierarchy: p.context.Hierarchy(),
	}
}

// Pattern returns the validation pattern for a token under a parse
// engine (core.ParseRegex when engine is empty, core.ParseGlob also
// works if the details carry glob patterns).
//
// An explicit Parse entry wins.  Otherwise the pattern is composed
// from child patterns substituted into the token's sub-template, and
// failing that, inferred positionally by slicing a parent's pattern
// at the sub-template's literals.
func (p *Parser) Pattern(token, engine string) (string, error) {
	if engine == "" {
		engine = core.ParseRegex
	}
	v := p.context.View()

	if !knownTokens(v)[token] {
		return "", &core.UnknownToken{
			Token:     token,
			Hierarchy: p.context.Hierarchy(),
		}
	}

	if pattern := p.pattern(token, engine, v.Details, map[string]bool{}); pattern != "" {
		return pattern, nil
	}

	return "", &core.UnresolvedToken{
		Token:     token,
		Hierarchy: p.context.Hierarchy(),
	}
}

// Validate reports whether a value matches the token's regex pattern,
// anchored at both ends.
func (p *Parser) Validate(token, value string) (bool, error) {
	pattern, err := p.Pattern(token, core.ParseRegex)
	if err != nil {
		return false, err
	}
	return regexp.MatchString("^(?:"+pattern+")$", value)
}

// MappingRegex returns the merged mapping as a regular expression
// with one named group per token.  The result is not anchored.
func (p *Parser) MappingRegex() (string, error) {
	mapping := p.context.Mapping()
	for _, token := range util.Uniques(FindTokens(mapping)) {
		pattern, err := p.Pattern(token, core.ParseRegex)
		if err != nil {
			return "", err
		}
		mapping = replaceToken(mapping, token, "(?P<"+token+">"+pattern+")")
	}
	return mapping, nil
}

// resolveTokens substitutes every token it can find a value for.
func (p *Parser) resolveTokens(mapping string, details map[string]core.TokenDetail, opts *ResolveOptions) string {
	for _, token := range util.Uniques(FindTokens(mapping)) {
		if opts.Holdout[token] {
			continue
		}
		if value, have := opts.Values[token]; have {
			mapping = replaceToken(mapping, token, value)
			continue
		}
		if value := p.resolveValue(token, details, opts); value != "" {
			mapping = replaceToken(mapping, token, value)
		}
	}
	return mapping
}

// resolveValue applies the configured strategies, nothing more.
func (p *Parser) resolveValue(token string, details map[string]core.TokenDetail, opts *ResolveOptions) string {
	if value := opts.Values[token]; value != "" {
		return value
	}
	for _, strategy := range opts.Strategies {
		switch strategy {
		case StrategyEnv:
			if value := os.Getenv(token); value != "" {
				return value
			}
		case StrategySearch:
			seen := map[string]bool{}
			if value := p.childValue(token, details, opts, seen); value != "" {
				return value
			}
			if value := p.parentValue(token, details, opts, seen); value != "" {
				return value
			}
		}
	}
	return ""
}

// expandTemplates swaps unresolved tokens for their sub-templates,
// but only when doing so gets us somewhere: at least one child has to
// be resolvable.
func (p *Parser) expandTemplates(mapping string, details map[string]core.TokenDetail, opts *ResolveOptions) string {
	for _, token := range util.Uniques(FindTokens(mapping)) {
		if opts.Holdout[token] {
			continue
		}
		template := details[token].Mapping
		if template == "" {
			continue
		}

		worthwhile := false
		for _, child := range FindTokens(template) {
			if opts.Holdout[child] {
				continue
			}
			if _, have := opts.Values[child]; have {
				worthwhile = true
				break
			}
			if p.resolveValue(child, details, opts) != "" {
				worthwhile = true
				break
			}
		}
		if worthwhile {
			mapping = replaceToken(mapping, token, template)
		}
	}
	return mapping
}

// tokenValue is the full per-token resolution used by Value: explicit
// value, strategies, children, parents.  The seen set breaks cycles
// through malformed parent/child relationships.
func (p *Parser) tokenValue(token string, details map[string]core.TokenDetail, opts *ResolveOptions, seen map[string]bool) string {
	if seen[token] {
		return ""
	}
	seen[token] = true
	defer delete(seen, token)

	if value := opts.Values[token]; value != "" {
		return value
	}
	for _, strategy := range opts.Strategies {
		if strategy == StrategyEnv {
			if value := os.Getenv(token); value != "" {
				return value
			}
		}
	}
	if value := p.childValue(token, details, opts, seen); value != "" {
		return value
	}
	return p.parentValue(token, details, opts, seen)
}

// childValue composes a token's value from its children.  Every
// child has to resolve or the composition fails.
func (p *Parser) childValue(token string, details map[string]core.TokenDetail, opts *ResolveOptions, seen map[string]bool) string {
	template := details[token].Mapping
	if template == "" {
		return ""
	}
	children := util.Uniques(FindTokens(template))
	if len(children) == 0 {
		return ""
	}

	out := template
	for _, child := range children {
		value := p.tokenValue(child, details, opts, seen)
		if value == "" {
			return ""
		}
		out = replaceToken(out, child, value)
	}
	return out
}

// parentValue extracts a token's value from the nearest parent whose
// own value is known or resolvable.
func (p *Parser) parentValue(token string, details map[string]core.TokenDetail, opts *ResolveOptions, seen map[string]bool) string {
	for _, parent := range directParents(details, token) {
		if seen[parent] {
			continue
		}
		parentValue := p.tokenValue(parent, details, opts, seen)
		if parentValue == "" {
			continue
		}
		pieces, err := ExpandString(details[parent].Mapping, parentValue)
		if err != nil {
			continue
		}
		if value := pieces[token]; value != "" {
			return value
		}
	}
	return ""
}

// pattern derives a token's validation pattern.  See Pattern.
func (p *Parser) pattern(token, engine string, details map[string]core.TokenDetail, seen map[string]bool) string {
	if seen[token] {
		return ""
	}
	seen[token] = true
	defer delete(seen, token)

	if pattern := details[token].Parse[engine]; pattern != "" {
		return pattern
	}

	if template := details[token].Mapping; template != "" {
		if children := util.Uniques(FindTokens(template)); len(children) != 0 {
			out := template
			composed := true
			for _, child := range children {
				childPattern := p.pattern(child, engine, details, seen)
				if childPattern == "" {
					composed = false
					break
				}
				out = replaceToken(out, child, childPattern)
			}
			if composed {
				return out
			}
		}
	}

	for _, parent := range directParents(details, token) {
		if seen[parent] {
			continue
		}
		parentPattern := p.pattern(parent, engine, details, seen)
		if parentPattern == "" {
			continue
		}
		segments := splitByTemplate(details[parent].Mapping, parentPattern)
		if segment := segments[token]; segment != "" {
			return segment
		}
	}

	return ""
}

// directParents returns the tokens whose sub-templates contain the
// given token, sorted for determinism.
func directParents(details map[string]core.TokenDetail, token string) []string {
	var acc []string
	for name, detail := range details {
		if name == token {
			continue
		}
		for _, child := range FindTokens(detail.Mapping) {
			if child == token {
				acc = append(acc, name)
				break
			}
		}
	}
	sort.Strings(acc)
	return acc
}

// knownTokens is the set of every token the context mentions: in the
// mapping, as a details entry, or inside a sub-template.
func knownTokens(v *core.View) map[string]bool {
	acc := make(map[string]bool)
	for _, token := range FindTokens(v.Mapping) {
		acc[token] = true
	}
	for name, detail := range v.Details {
		acc[name] = true
		for _, token := range FindTokens(detail.Mapping) {
			acc[token] = true
		}
	}
	return acc
}

func replaceToken(mapping, token, value string) string {
	return strings.ReplaceAll(mapping, "{"+token+"}", value)
}
