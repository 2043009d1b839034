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

// Package asset layers per-instance token values over a Context.
//
// Contexts are flyweights, so they cannot carry instance data like
// "which job" or "which shot".  An Asset is that instance data: a
// token-to-value store bound to one Context, with validation on write
// and search on read.
package asset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/parse"
)

// Asset binds token values to a Context.
type Asset struct {
	context *core.Context
	parser  *parse.Parser
	values  map[string]string
}

// New makes an Asset over a Context.
//
// Every token of the context's mapping must either be present in
// values or be derivable from them (through a child or parent token).
func New(values map[string]string, c *core.Context) (*Asset, error) {
	if c == nil {
		return nil, core.ErrNoContext
	}

	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}

	a := &Asset{
		context: c,
		parser:  parse.NewParser(c),
		values:  copied,
	}

	if missing := a.missingTokens(); len(missing) != 0 {
		return nil, fmt.Errorf(
			`tokens "%s" have no value for "%s"`,
			strings.Join(missing, `", "`), c.Hierarchy())
	}

	return a, nil
}

// missingTokens returns the mapping tokens that neither have a stored
// value nor can be derived from one, sorted.
func (a *Asset) missingTokens() []string {
	opts := &parse.ResolveOptions{Values: a.values}

	var missing []string
	for _, token := range a.parser.Tokens() {
		if a.values[token] != "" {
			continue
		}
		if _, err := a.parser.Value(token, opts); err != nil {
			missing = append(missing, token)
		}
	}
	sort.Strings(missing)
	return missing
}

// Context returns the Context the Asset is bound to.
func (a *Asset) Context() *core.Context {
	return a.context
}

// Parser returns a parser over the Asset's context.  The parser does
// not know the Asset's values; pass them via ResolveOptions if you
// go through it directly.
func (a *Asset) Parser() *parse.Parser {
	return a.parser
}

// Values returns a copy of the stored token values.
func (a *Asset) Values() map[string]string {
	acc := make(map[string]string, len(a.values))
	for k, v := range a.values {
		acc[k] = v
	}
	return acc
}

// Value resolves one token: the stored value if there is one,
// otherwise Child-Search and Parent-Search over the stored values.
func (a *Asset) Value(token string) (string, error) {
	if value := a.values[token]; value != "" {
		return value, nil
	}
	return a.parser.Value(token, &parse.ResolveOptions{Values: a.values})
}

// SetValue stores a token value.
//
// The value is validated against the token's pattern first; a token
// with no derivable pattern accepts anything.  force skips validation
// entirely.  Setting a parent token drops stored child values that
// contradict the parent's decomposition.
func (a *Asset) SetValue(token, value string, force bool) error {
	if !force {
		ok, err := a.parser.Validate(token, value)
		switch err.(type) {
		case nil:
			if !ok {
				return fmt.Errorf(`value "%s" is not valid for token "%s"`, value, token)
			}
		case *core.UnresolvedToken:
			// No pattern to check against.
		default:
			return err
		}
	}

	a.values[token] = value

	// A parent's new value overrides what its children used to say.
	detail := a.parser.Details()[token]
	if detail.Mapping != "" {
		pieces, err := parse.ExpandString(detail.Mapping, value)
		if err == nil {
			for _, child := range a.parser.ChildTokens(token) {
				stored, have := a.values[child]
				if !have {
					continue
				}
				if piece, derived := pieces[child]; derived && piece != stored {
					delete(a.values, child)
				}
			}
		}
	}

	return nil
}

// String renders the context's mapping with the Asset's values.
// Options passed in are honored, with opts.Values winning over stored
// values on conflict.  Tokens that stay unresolved are an error.
func (a *Asset) String(opts *parse.ResolveOptions) (string, error) {
	merged := a.renderOptions(opts)

	rendered := a.parser.Expand(merged)
	if left := parse.FindTokens(rendered); len(left) != 0 {
		return "", fmt.Errorf(
			`tokens "%s" are unresolved in "%s"`,
			strings.Join(left, `", "`), rendered)
	}
	return rendered, nil
}

// Path renders like String and converts to the OS path form when the
// context's mapping is marked as a path.
func (a *Asset) Path(opts *parse.ResolveOptions) (string, error) {
	rendered, err := a.String(opts)
	if err != nil {
		return "", err
	}
	if a.context.View().IsPath {
		rendered = filepath.FromSlash(rendered)
	}
	return rendered, nil
}

func (a *Asset) renderOptions(opts *parse.ResolveOptions) *parse.ResolveOptions {
	merged := &parse.ResolveOptions{
		Values: make(map[string]string, len(a.values)),
	}
	for k, v := range a.values {
		merged.Values[k] = v
	}
	if opts != nil {
		merged.Strategies = opts.Strategies
		merged.Holdout = opts.Holdout
		merged.Depth = opts.Depth
		for k, v := range opts.Values {
			merged.Values[k] = v
		}
	}
	if merged.Strategies == nil {
		// Whatever New accepted as derivable has to render, too.
		merged.Strategies = []parse.Strategy{parse.StrategySearch}
	}
	return merged
}
