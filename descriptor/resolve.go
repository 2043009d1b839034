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
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/util"
)

// LoadResult statuses and reasons.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// ReasonResolutionFailure: the description never became a
	// Descriptor.
	ReasonResolutionFailure = "resolution_failure"

	// ReasonNotCallable: the description's create_using doesn't
	// name a descriptor type.
	ReasonNotCallable = "not_callable"

	// ReasonLoadFailure: the Descriptor was fine but its sheets
	// didn't load or register.
	ReasonLoadFailure = "load_failure"

	// ReasonImportFailure: a plugin script didn't run.
	ReasonImportFailure = "import_failure"

	// ReasonPlatformFailure: an environment platform wasn't
	// recognized.
	ReasonPlatformFailure = "platform_failure"
)

// LoadResult records how loading one description went.
type LoadResult struct {
	// Item is the description (or script path) as given.
	Item string

	// Status is StatusSuccess or StatusFailed.
	Status string

	// Reason is one of the Reason constants when Status is
	// StatusFailed.
	Reason string

	// Err is what went wrong, when something did.
	Err error
}

// UnknownDescriptorType occurs when a description's create_using
// doesn't name a descriptor this package can build.
type UnknownDescriptorType struct {
	CreateUsing string
}

func (e *UnknownDescriptorType) Error() string {
	return fmt.Sprintf(`unknown descriptor type "%s"`, e.CreateUsing)
}

// Resolve builds a Descriptor from a description string.
//
// A description that names something on disk becomes a
// FolderDescriptor or FileDescriptor.  Anything else must be a
// URL-query-encoded form like
//
//    create_using=git_local&path=/repo&items=plugins&branch=main
//
// where create_using is "folder" (the default), "file", or
// "git_local" and items may repeat.
func Resolve(description string) (Descriptor, error) {
	if fi, err := os.Stat(description); err == nil {
		if fi.IsDir() {
			return NewFolderDescriptor(description), nil
		}
		return NewFileDescriptor(description), nil
	}

	values, err := url.ParseQuery(description)
	if err != nil {
		return nil, fmt.Errorf(`can't decode "%s": %s`, description, err)
	}

	// ParseQuery accepts nearly anything (a bare path just becomes a
	// key), so demand at least one recognized field before believing
	// this was meant as a query form.
	if values.Get("create_using") == "" && len(values["items"]) == 0 && values.Get("path") == "" {
		return nil, fmt.Errorf(`"%s" is neither a path on disk nor a descriptor description`, description)
	}

	items := values["items"]
	createUsing := values.Get("create_using")
	if createUsing == "" {
		createUsing = "folder"
	}

	switch createUsing {
	case "folder":
		return NewFolderDescriptor(items...), nil
	case "file":
		return NewFileDescriptor(items...), nil
	case "git_local":
		return NewGitLocalDescriptor(values.Get("path"), values.Get("branch"), items...)
	default:
		return nil, &UnknownDescriptorType{CreateUsing: createUsing}
	}
}

// Add resolves a description, loads the sheets it names, and
// registers their plugins and actions.
//
// Failures never panic: they come back (and get logged) as the
// LoadResult.  nil interpreters means core.DefaultInterpreters.
func Add(ctx context.Context, r *core.Registry, description string, interpreters map[string]core.Interpreter) *LoadResult {
	result := &LoadResult{Item: description}

	d, err := Resolve(description)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		if _, is := err.(*UnknownDescriptorType); is {
			result.Reason = ReasonNotCallable
		} else {
			result.Reason = ReasonResolutionFailure
		}
		util.Logf(`description "%s" could not become a descriptor: %s`, description, err)
		return result
	}

	if err := load(ctx, r, d, interpreters); err != nil {
		result.Status = StatusFailed
		result.Reason = ReasonLoadFailure
		result.Err = err
		util.Logf(`description "%s" failed to load: %s`, description, err)
		return result
	}

	result.Status = StatusSuccess
	return result
}

// load registers everything a Descriptor can see.
func load(ctx context.Context, r *core.Registry, d Descriptor, interpreters map[string]core.Interpreter) error {
	sheets, err := d.Sheets()
	if err != nil {
		return err
	}

	for _, f := range sheets {
		plugins, err := f.BuildPlugins()
		if err != nil {
			return fmt.Errorf(`%s with "%s"`, err, f.Source)
		}
		for _, p := range plugins {
			if err := r.Register(p); err != nil {
				return fmt.Errorf(`%s with "%s"`, err, f.Source)
			}
		}

		names := make([]string, 0, len(f.Sheet.Actions))
		for name := range f.Sheet.Actions {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			sa := f.Sheet.Actions[name]
			if sa == nil {
				continue
			}
			src := &core.ActionSource{
				Name:        name,
				Interpreter: sa.Interpreter,
				Source:      sa.Source,
			}
			action, err := src.Compile(ctx, interpreters)
			if err != nil {
				return fmt.Errorf(`action "%s": %s with "%s"`, name, err, f.Source)
			}
			if err := r.RegisterAction(core.ParseHierarchy(sa.Hierarchy), sa.Assignment, action); err != nil {
				return fmt.Errorf(`action "%s": %s with "%s"`, name, err, f.Source)
			}
		}
	}

	return nil
}
