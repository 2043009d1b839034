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

// Package descriptor finds and loads plugin sheets.
//
// A sheet is a YAML or JSON file that declares plugins and actions.
// A Descriptor knows where sheets live; Add and FromEnvironment turn
// descriptions into registered plugins, with the outcome of every
// load recorded in a LoadResult.
package descriptor

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/core"

	"github.com/google/uuid"
	"github.com/jsccast/yaml"
)

// Globals are sheet-wide defaults for the sheet's plugin blocks.
type Globals struct {
	Assignment string `json:"assignment,omitempty" yaml:"assignment,omitempty"`
}

// SheetAction declares an interpreted action and where it's
// dispatched.
type SheetAction struct {
	Hierarchy   string      `json:"hierarchy" yaml:"hierarchy"`
	Assignment  string      `json:"assignment,omitempty" yaml:"assignment,omitempty"`
	Interpreter string      `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	Source      interface{} `json:"source" yaml:"source"`
}

// Sheet is one plugin sheet: named plugin blocks, named action
// blocks, and sheet-wide defaults.
type Sheet struct {
	Globals Globals                 `json:"globals,omitempty" yaml:"globals,omitempty"`
	Plugins map[string]*core.Plugin `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Actions map[string]*SheetAction `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ParseSheet reads a sheet from YAML (or JSON, since the YAML parser
// accepts it).
func ParseSheet(bs []byte) (*Sheet, error) {
	var sheet Sheet
	if err := yaml.Unmarshal(bs, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// ReadSheetFile reads a sheet file, picking the parser by extension.
func ReadSheetFile(path string) (*Sheet, error) {
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		var sheet Sheet
		if err := json.Unmarshal(bs, &sheet); err != nil {
			return nil, err
		}
		return &sheet, nil
	}

	return ParseSheet(bs)
}

// SheetFile is a sheet together with where it came from and the
// default assignment its directory gave it.
type SheetFile struct {
	// Source is the path the sheet was read from.
	Source string

	// Assignment is the sidecar's default assignment, if any.
	Assignment string

	Sheet *Sheet
}

// BuildPlugins converts the sheet's plugin blocks into Plugins, in
// sorted block-name order.
//
// Each block gets its name, the sheet's source, and an assignment
// from the first of: the block itself, the sheet's globals, the
// directory sidecar.  A block that doesn't set "uuid" gets an ID
// derived from the source and block name, so registering the same
// sheet twice trips the registry's duplicate check instead of
// doubling the plugins.
func (f *SheetFile) BuildPlugins() ([]*core.Plugin, error) {
	if f.Sheet == nil || len(f.Sheet.Plugins) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(f.Sheet.Plugins))
	for name := range f.Sheet.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	acc := make([]*core.Plugin, 0, len(names))
	for _, name := range names {
		block := f.Sheet.Plugins[name]
		if block == nil {
			continue
		}

		if dup := duplicateUses(block.Uses); dup != "" {
			return nil, fmt.Errorf(
				`plugin "%s" has duplicate hierarchies in uses: "%s"`,
				name, dup)
		}

		p := block.Copy()
		p.Name = name
		if p.Source == "" {
			p.Source = f.Source
		}
		if p.Assignment == "" {
			p.Assignment = f.Sheet.Globals.Assignment
		}
		if p.Assignment == "" {
			p.Assignment = f.Assignment
		}
		if p.ID == "" {
			p.ID = sheetBlockId(f.Source, name)
		}

		acc = append(acc, p)
	}

	return acc, nil
}

func duplicateUses(uses []core.Hierarchy) core.Hierarchy {
	seen := make(map[core.Hierarchy]bool, len(uses))
	for _, use := range uses {
		use = core.ParseHierarchy(string(use))
		if seen[use] {
			return use
		}
		seen[use] = true
	}
	return ""
}

// sheetBlockId makes a stable ID for a block that didn't declare one.
func sheetBlockId(source, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ways://"+source+"#"+name)).String()
}
