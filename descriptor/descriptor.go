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

package descriptor

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/util"

	"github.com/jsccast/yaml"
)

// PluginInfoName is the basename (before the extension) of the
// sidecar file that sets loading defaults for a directory.
const PluginInfoName = ".ways_plugin_info"

var sheetExtensions = []string{".yml", ".yaml", ".json"}

// PluginInfo is a directory sidecar's content.
type PluginInfo struct {
	// Assignment is the default assignment for sheets under the
	// directory.
	Assignment string `json:"assignment,omitempty" yaml:"assignment,omitempty"`

	// Recursive asks FolderDescriptor to walk subdirectories.
	Recursive bool `json:"recursive,omitempty" yaml:"recursive,omitempty"`
}

// Descriptor finds plugin sheets.
type Descriptor interface {
	// Sheets returns the sheets this descriptor can see, in a
	// deterministic order.
	Sheets() ([]*SheetFile, error)
}

// FileDescriptor reads specific sheet files.
type FileDescriptor struct {
	Items []string
}

// NewFileDescriptor makes a FileDescriptor over the given paths.
func NewFileDescriptor(items ...string) *FileDescriptor {
	return &FileDescriptor{Items: items}
}

// Sheets reads every item.  A file that can't be read or parsed is an
// error: the caller named it explicitly.
func (d *FileDescriptor) Sheets() ([]*SheetFile, error) {
	acc := make([]*SheetFile, 0, len(d.Items))
	for _, item := range d.Items {
		sheet, err := ReadSheetFile(item)
		if err != nil {
			return nil, fmt.Errorf(`%s with "%s"`, err, item)
		}
		info := findPluginInfo(filepath.Dir(item))
		acc = append(acc, &SheetFile{
			Source:     item,
			Assignment: info.Assignment,
			Sheet:      sheet,
		})
	}
	return acc, nil
}

// FolderDescriptor scans directories for sheet files.
type FolderDescriptor struct {
	Items []string
}

// NewFolderDescriptor makes a FolderDescriptor over the given
// directories.
func NewFolderDescriptor(items ...string) *FolderDescriptor {
	return &FolderDescriptor{Items: items}
}

// Sheets scans every directory in sorted file order.  The directory's
// sidecar (see PluginInfo) decides whether the scan recurses and what
// assignment its sheets default to.  Files that don't parse are
// logged and skipped: a directory is allowed to hold other things.
func (d *FolderDescriptor) Sheets() ([]*SheetFile, error) {
	var acc []*SheetFile
	for _, dir := range d.Items {
		info := findPluginInfo(dir)

		files, err := sheetFilesIn(dir, info.Recursive)
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			sheet, err := ReadSheetFile(file)
			if err != nil {
				util.Logf(`skipping sheet "%s": %s`, file, err)
				continue
			}
			acc = append(acc, &SheetFile{
				Source:     file,
				Assignment: info.Assignment,
				Sheet:      sheet,
			})
		}
	}
	return acc, nil
}

// GitLocalDescriptor reads sheets out of a local git clone.  Beyond
// resolving its items against the clone's path, it behaves like a
// FolderDescriptor.
type GitLocalDescriptor struct {
	// Path is the root of the local clone.
	Path string

	// Branch names the branch the clone is expected to have
	// checked out.
	Branch string

	FolderDescriptor
}

// NewGitLocalDescriptor makes a descriptor over directories inside a
// local git clone.  Relative items are resolved against path, and
// every item must exist.
func NewGitLocalDescriptor(path, branch string, items ...string) (*GitLocalDescriptor, error) {
	if branch == "" {
		branch = "master"
	}

	resolved := make([]string, 0, len(items))
	for _, item := range items {
		if !filepath.IsAbs(item) {
			item = filepath.Join(path, item)
		}
		if _, err := os.Stat(item); err != nil {
			return nil, fmt.Errorf(`file/folder "%s" does not exist under "%s"`, item, path)
		}
		resolved = append(resolved, item)
	}

	return &GitLocalDescriptor{
		Path:             path,
		Branch:           branch,
		FolderDescriptor: FolderDescriptor{Items: resolved},
	}, nil
}

// isSheetFile reports whether the path looks like a sheet and isn't a
// sidecar.
func isSheetFile(path string) bool {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	name := strings.TrimSuffix(base, filepath.Ext(base))

	if name == PluginInfoName {
		return false
	}
	for _, known := range sheetExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// sheetFilesIn lists the sheet files under dir, sorted.
func sheetFilesIn(dir string, recursive bool) ([]string, error) {
	var acc []string

	if recursive {
		err := filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && isSheetFile(path) {
				acc = append(acc, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		fis, err := ioutil.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, fi := range fis {
			if fi.IsDir() {
				continue
			}
			path := filepath.Join(dir, fi.Name())
			if isSheetFile(path) {
				acc = append(acc, path)
			}
		}
	}

	sort.Strings(acc)
	return acc, nil
}

// findPluginInfo looks for a sidecar in dir and then in each parent
// directory, so one sidecar can cover a tree of plugin directories.
func findPluginInfo(dir string) PluginInfo {
	for {
		for _, ext := range sheetExtensions {
			path := filepath.Join(dir, PluginInfoName+ext)
			fi, err := os.Stat(path)
			if err != nil || fi.IsDir() {
				continue
			}
			bs, err := ioutil.ReadFile(path)
			if err != nil {
				continue
			}
			var info PluginInfo
			if err := yaml.Unmarshal(bs, &info); err != nil {
				util.Logf(`bad sidecar "%s": %s`, path, err)
				continue
			}
			return info
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return PluginInfo{}
		}
		dir = parent
	}
}
