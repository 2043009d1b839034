/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

import (
	"fmt"
)

// Example demonstrates registration and resolution.
func Example() {
	r := NewRegistry()

	plugins := []*Plugin{
		{
			Hierarchy: "job",
			Mapping:   "/jobs/{JOB}",
		},
		{
			// A relative plugin attaches below each hierarchy it
			// uses, with "{root}" marking where the parent goes.
			Hierarchy: "{root}/shot",
			Mapping:   "{root}/shots/{SHOT}",
			Uses:      []Hierarchy{"job"},
		},
		{
			Hierarchy: "job",
			Data:      map[string]interface{}{"fps": 24},
		},
	}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}

	for _, h := range r.Resolve().Hierarchies() {
		c := r.Context(h, "")
		v := c.View()
		fmt.Printf("%s %s %v\n", h, v.Mapping, v.Data)
	}

	// Output:
	// job /jobs/{JOB} map[fps:24]
	// job/shot /jobs/{JOB}/shots/{SHOT} map[]
}
