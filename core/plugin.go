package core

import (
	"fmt"
)

// Parse engines a TokenDetail can carry patterns for.
//
// These strings are sheet contract: they appear as keys under a
// token's "parse" block.
const (
	ParseRegex = "regex"
	ParseGlob  = "glob"
)

// TokenDetail describes one "{TOKEN}" in a mapping.
//
// A TokenDetail can give the token a sub-template (Mapping) that
// decomposes it into child tokens, and per-engine validation patterns
// (Parse).  Child tokens are themselves top-level entries in a
// Plugin's Details: the namespace is flat.
type TokenDetail struct {
	// Mapping is the token's sub-template, e.g. "{JOB_NAME}_{JOB_ID}".
	Mapping string `json:"mapping,omitempty" yaml:"mapping,omitempty"`

	// Parse maps an engine name (ParseRegex, ParseGlob) to a pattern
	// that values of this token must match.
	Parse map[string]string `json:"parse,omitempty" yaml:"parse,omitempty"`
}

// Copy makes a deep copy.
func (d TokenDetail) Copy() TokenDetail {
	var parse map[string]string
	if d.Parse != nil {
		parse = make(map[string]string, len(d.Parse))
		for engine, pattern := range d.Parse {
			parse[engine] = pattern
		}
	}
	return TokenDetail{
		Mapping: d.Mapping,
		Parse:   parse,
	}
}

// Plugin is one configuration unit: part of the description of a
// single point in the hierarchy.
//
// A Plugin with an empty Uses list is absolute: its Hierarchy is the
// final key.  A Plugin with a non-empty Uses list is relative: it
// attaches below each listed parent, and its Hierarchy and Mapping may
// use RootToken to say where the parent's own hierarchy and mapping
// get inserted.
//
// Plugins carry data, not behavior.  Behavior belongs to Actions.
type Plugin struct {
	// ID identifies the Plugin for the life of a Registry.  Loaders
	// generate one when a sheet doesn't set "uuid" explicitly;
	// Register refuses a second Plugin with the same ID.
	ID string `json:"uuid,omitempty" yaml:"uuid,omitempty"`

	// Source names whatever produced this Plugin (usually a sheet
	// file path).  DeregisterSource removes plugins in bulk by this
	// value.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the block name the Plugin had in its sheet, if any.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Hierarchy  Hierarchy `json:"hierarchy" yaml:"hierarchy"`
	Assignment string    `json:"assignment,omitempty" yaml:"assignment,omitempty"`

	// Mapping is the location template, with "{TOKEN}" placeholders.
	Mapping string `json:"mapping,omitempty" yaml:"mapping,omitempty"`

	// Details describes the mapping's tokens (flat namespace; see
	// TokenDetail).
	Details map[string]TokenDetail `json:"mapping_details,omitempty" yaml:"mapping_details,omitempty"`

	// Platforms restricts where the Plugin applies.  Empty means
	// everywhere, as do the aliases "*", "all", and "everything".
	// Entries are matched case-insensitively.
	Platforms []string `json:"platforms,omitempty" yaml:"platforms,omitempty"`

	// Uses lists the parent hierarchies of a relative Plugin.
	Uses []Hierarchy `json:"uses,omitempty" yaml:"uses,omitempty"`

	// Data is arbitrary metadata that merges into the Context's data.
	Data map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`

	// PathMapping marks the mapping as an OS path, which rendering
	// converts to the platform's separators.
	PathMapping bool `json:"path,omitempty" yaml:"path,omitempty"`
}

// IsRelative reports whether the Plugin attaches to parents.
func (p *Plugin) IsRelative() bool {
	return len(p.Uses) > 0
}

// Copy makes a mostly deep copy (Data values are shared).
func (p *Plugin) Copy() *Plugin {
	if p == nil {
		return nil
	}
	c := *p
	if p.Details != nil {
		c.Details = make(map[string]TokenDetail, len(p.Details))
		for token, detail := range p.Details {
			c.Details[token] = detail.Copy()
		}
	}
	c.Platforms = append([]string(nil), p.Platforms...)
	c.Uses = append([]Hierarchy(nil), p.Uses...)
	if p.Data != nil {
		c.Data = make(map[string]interface{}, len(p.Data))
		for k, v := range p.Data {
			c.Data[k] = v
		}
	}
	return &c
}

func (p *Plugin) String() string {
	if p.Name != "" {
		return fmt.Sprintf("plugin %s (%s)", p.Name, p.Hierarchy)
	}
	return fmt.Sprintf("plugin %s (%s)", p.ID, p.Hierarchy)
}

// FromInfo builds a Plugin from a generic map, the shape a plugin
// block has in a sheet or a scripted plugin file.
//
// "hierarchy" is required and may be a string or a list of segments.
// "uses" and "platforms" may each be a string (comma-separated for
// platforms) or a list.  Unknown keys are ignored.
func FromInfo(info map[string]interface{}, source string) (*Plugin, error) {
	p := &Plugin{Source: source}

	hierarchy, have := info["hierarchy"]
	if !have {
		return nil, fmt.Errorf("plugin info has no hierarchy")
	}
	switch vv := hierarchy.(type) {
	case string:
		p.Hierarchy = Hierarchy(vv)
	case []interface{}:
		parts, err := stringSlice(vv)
		if err != nil {
			return nil, fmt.Errorf("bad hierarchy: %s", err)
		}
		p.Hierarchy = NewHierarchy(parts...)
	default:
		return nil, fmt.Errorf("bad hierarchy: %#v", hierarchy)
	}

	if s, have := info["mapping"].(string); have {
		p.Mapping = s
	}
	if s, have := info["uuid"].(string); have {
		p.ID = s
	}
	if s, have := info["assignment"].(string); have {
		p.Assignment = s
	}
	if s, have := info["name"].(string); have {
		p.Name = s
	}
	if b, have := info["path"].(bool); have {
		p.PathMapping = b
	}
	if m, have := info["data"].(map[string]interface{}); have {
		p.Data = m
	}

	switch vv := info["platforms"].(type) {
	case nil:
	case string:
		p.Platforms = SplitComma(vv)
	case []interface{}:
		parts, err := stringSlice(vv)
		if err != nil {
			return nil, fmt.Errorf("bad platforms: %s", err)
		}
		for _, part := range parts {
			p.Platforms = append(p.Platforms, SplitComma(part)...)
		}
	default:
		return nil, fmt.Errorf("bad platforms: %#v", vv)
	}

	switch vv := info["uses"].(type) {
	case nil:
	case string:
		p.Uses = []Hierarchy{Hierarchy(vv)}
	case []interface{}:
		parts, err := stringSlice(vv)
		if err != nil {
			return nil, fmt.Errorf("bad uses: %s", err)
		}
		for _, part := range parts {
			p.Uses = append(p.Uses, Hierarchy(part))
		}
	default:
		return nil, fmt.Errorf("bad uses: %#v", vv)
	}

	if details, have := info["mapping_details"]; have {
		m, is := details.(map[string]interface{})
		if !is {
			return nil, fmt.Errorf("bad mapping_details: %#v", details)
		}
		p.Details = make(map[string]TokenDetail, len(m))
		for token, raw := range m {
			detail, err := detailFromInfo(raw)
			if err != nil {
				return nil, fmt.Errorf("bad mapping_details for %q: %s", token, err)
			}
			p.Details[token] = detail
		}
	}

	return p, nil
}

func detailFromInfo(raw interface{}) (TokenDetail, error) {
	var detail TokenDetail
	m, is := raw.(map[string]interface{})
	if !is {
		return detail, fmt.Errorf("not a map: %#v", raw)
	}
	if s, have := m["mapping"].(string); have {
		detail.Mapping = s
	}
	if parse, have := m["parse"]; have {
		pm, is := parse.(map[string]interface{})
		if !is {
			return detail, fmt.Errorf("bad parse: %#v", parse)
		}
		detail.Parse = make(map[string]string, len(pm))
		for engine, pattern := range pm {
			s, is := pattern.(string)
			if !is {
				return detail, fmt.Errorf("bad %s pattern: %#v", engine, pattern)
			}
			detail.Parse[engine] = s
		}
	}
	return detail, nil
}

func stringSlice(xs []interface{}) ([]string, error) {
	acc := make([]string, 0, len(xs))
	for _, x := range xs {
		s, is := x.(string)
		if !is {
			return nil, fmt.Errorf("not a string: %#v", x)
		}
		acc = append(acc, s)
	}
	return acc, nil
}
