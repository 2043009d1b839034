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

package core

// Merge strategies for the pieces of a View.  Each answers "when two
// contributions disagree, who wins?" differently:
//
//   - data and details merge left to right: a later contribution
//     replaces earlier values key by key, container values wholesale.
//   - the mapping folds left to right with composition; see
//     foldMapping.
//   - platforms intersect, keeping the order of the left side.

func mergedData(rps []*ResolvedPlugin) map[string]interface{} {
	acc := make(map[string]interface{})
	for _, rp := range rps {
		for k, v := range rp.Plugin.Data {
			acc[k] = v
		}
	}
	return acc
}

func mergedDetails(rps []*ResolvedPlugin) map[string]TokenDetail {
	acc := make(map[string]TokenDetail)
	for _, rp := range rps {
		for token, detail := range rp.Plugin.Details {
			acc[token] = detail.Copy()
		}
	}
	return acc
}

func mergedPlatforms(rps []*ResolvedPlugin) []string {
	var acc []string
	for i, rp := range rps {
		if i == 0 {
			acc = append([]string(nil), rp.Platforms...)
			continue
		}
		with := make(map[string]bool, len(rp.Platforms))
		for _, p := range rp.Platforms {
			with[p] = true
		}
		var kept []string
		for _, p := range acc {
			if with[p] {
				kept = append(kept, p)
			}
		}
		acc = kept
	}
	return acc
}

func mergedMapping(rps []*ResolvedPlugin) string {
	eff := ""
	for _, rp := range rps {
		parent := rp.ParentMapping
		eff = foldMapping(eff, rp.Plugin.Mapping, rp.Plugin.IsRelative(), func() string {
			return parent
		})
	}
	return eff
}

func mergedIsPath(rps []*ResolvedPlugin) bool {
	for _, rp := range rps {
		if rp.Plugin.PathMapping {
			return true
		}
	}
	return false
}
