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
	"fmt"
	"regexp"
	"strings"
)

var tokenRegexp = regexp.MustCompile(`\{([^\{\}]+)\}`)

// FindTokens returns the token names in a mapping, in order of
// appearance.  A token that appears twice is reported twice.
func FindTokens(mapping string) []string {
	var acc []string
	for _, m := range tokenRegexp.FindAllStringSubmatch(mapping, -1) {
		acc = append(acc, m[1])
	}
	return acc
}

// A formatPiece is a literal and the token that follows it.  The
// token is empty for a trailing literal.
type formatPiece struct {
	prefix string
	token  string
}

func formatPieces(format string) []formatPiece {
	var acc []formatPiece
	last := 0
	for _, idx := range tokenRegexp.FindAllStringSubmatchIndex(format, -1) {
		acc = append(acc, formatPiece{
			prefix: format[last:idx[0]],
			token:  format[idx[2]:idx[3]],
		})
		last = idx[1]
	}
	if tail := format[last:]; tail != "" {
		acc = append(acc, formatPiece{prefix: tail})
	}
	return acc
}

// ExpandString decomposes text against a format's literal boundaries
// into a token-to-text mapping.
//
//	ExpandString("/jobs/{JOB}/shots/{SHOT}", "/jobs/acme_001/shots/sh010")
//	→ map[JOB:acme_001 SHOT:sh010]
//
// Literals are consumed right to left, splitting at the last
// occurrence each time.  When the shapes disagree, when text is left
// over, or when one token extracts two different values, the result
// is an empty (non-nil) map.  Adjacent tokens with no separating
// literal are an error: there is no way to know where one value ends
// and the next begins.
func ExpandString(format, text string) (map[string]string, error) {
	if strings.Contains(format, "}{") {
		return nil, fmt.Errorf(`format "%s" has adjacent tokens`, format)
	}

	info := make(map[string]string)
	rest := text

	mismatch := func() (map[string]string, error) {
		return map[string]string{}, nil
	}

	pieces := formatPieces(format)
	for i := len(pieces) - 1; 0 <= i; i-- {
		piece := pieces[i]

		if piece.prefix == "" {
			// The format starts with a token, which takes
			// whatever is left.
			if piece.token != "" {
				if prior, have := info[piece.token]; have && prior != rest {
					return mismatch()
				}
				info[piece.token] = rest
				rest = ""
			}
			continue
		}

		at := strings.LastIndex(rest, piece.prefix)
		if at < 0 {
			return mismatch()
		}
		value := rest[at+len(piece.prefix):]
		rest = rest[:at]

		if piece.token != "" {
			if prior, have := info[piece.token]; have && prior != value {
				return mismatch()
			}
			info[piece.token] = value
		}
	}

	if rest != "" {
		return mismatch()
	}

	return info, nil
}

// splitByTemplate is positional extraction for pattern inference: the
// template's literals cut the text into per-token segments.  Unlike
// ExpandString's right-to-left consumption, every literal must occur
// exactly once in the text, so each segment's position is beyond
// doubt.  Returns nil when the split would be ambiguous.
func splitByTemplate(template, text string) map[string]string {
	pieces := formatPieces(template)
	for _, piece := range pieces {
		if piece.prefix != "" && strings.Count(text, piece.prefix) != 1 {
			return nil
		}
	}

	segments, err := ExpandString(template, text)
	if err != nil || len(segments) == 0 {
		return nil
	}
	return segments
}
