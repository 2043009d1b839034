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
	"os"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/interpreters"
	"github.com/ColinKennedy/ways/interpreters/ecmascript"
	"github.com/ColinKennedy/ways/util"
)

// Environment variables read by FromEnvironment.  The list-valued
// ones split on the OS path list separator.
const (
	// DescriptorsEnv lists descriptions (see Resolve).
	DescriptorsEnv = "WAYS_DESCRIPTORS"

	// PluginsEnv lists JavaScript plugin files (see
	// ecmascript.RunPluginFile).
	PluginsEnv = "WAYS_PLUGINS"

	// PlatformEnv names the active platform.
	PlatformEnv = "WAYS_PLATFORM"

	// PlatformsEnv lists the recognized platforms.
	PlatformsEnv = "WAYS_PLATFORMS"

	// PriorityEnv lists assignments from lowest to highest
	// precedence.
	PriorityEnv = "WAYS_PRIORITY"
)

// FromEnvironment bootstraps a Registry from the WAYS_* environment
// variables: platform configuration first, then plugin scripts, then
// descriptors.  One LoadResult comes back per script and per
// description.
func FromEnvironment(ctx context.Context, r *core.Registry) []*LoadResult {
	var results []*LoadResult

	if names := util.PathListEnv(PlatformsEnv); len(names) != 0 {
		r.SetKnownPlatforms(names...)
	}

	if platform := os.Getenv(PlatformEnv); platform != "" {
		if err := r.SetPlatform(platform); err != nil {
			util.Logf(`platform "%s" from %s: %s`, platform, PlatformEnv, err)
			results = append(results, &LoadResult{
				Item:   platform,
				Status: StatusFailed,
				Reason: ReasonPlatformFailure,
				Err:    err,
			})
		}
	}

	if assignments := util.PathListEnv(PriorityEnv); len(assignments) != 0 {
		r.SetPriority(assignments...)
	}

	is := interpreters.Standard()

	for _, file := range util.PathListEnv(PluginsEnv) {
		result := &LoadResult{Item: file}
		if err := ecmascript.RunPluginFile(ctx, r, file); err != nil {
			result.Status = StatusFailed
			result.Reason = ReasonImportFailure
			result.Err = err
			util.Logf(`plugin file "%s" failed: %s`, file, err)
		} else {
			result.Status = StatusSuccess
		}
		results = append(results, result)
	}

	for _, description := range util.PathListEnv(DescriptorsEnv) {
		results = append(results, Add(ctx, r, description, is))
	}

	return results
}
