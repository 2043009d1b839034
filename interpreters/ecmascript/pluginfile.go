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

package ecmascript

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/ColinKennedy/ways/core"

	"github.com/dop251/goja"
)

// RunPluginFile executes a JavaScript plugin file against a Registry.
//
// The script sees a "ways" object:
//
//    ways.register(plugin): register a plugin.  The argument uses the
//      same property names as a sheet block ("hierarchy", "mapping",
//      "mapping_details", "uses", "assignment", "platforms", "data",
//      "path", "uuid").
//    ways.registerAction(name, hierarchy, fn): register fn as an
//      action.  When dispatched, fn is called with the same "_"
//      object that action code sees.
//    ways.registerAlias(alias, hierarchy): register an alias.
//
// Only what the script calls explicitly gets registered: running a
// file that registers nothing changes nothing.
//
// Actions registered by the script keep the file's runtime, which is
// not safe for concurrent use.
func RunPluginFile(ctx context.Context, r *core.Registry, path string) error {
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	return RunPluginSource(ctx, r, path, string(bs))
}

// RunPluginSource is RunPluginFile on code already in hand.  source
// names where the code came from and becomes the Source of the
// plugins the script registers.
func RunPluginSource(ctx context.Context, r *core.Registry, source, code string) error {
	p, err := goja.Compile(source, code, true)
	if err != nil {
		return err
	}

	o := goja.New()

	ways := map[string]interface{}{
		"register": func(info goja.Value) interface{} {
			plugin, err := asPlugin(info.Export(), source)
			if err != nil {
				protest(o, err.Error())
			}
			if err := r.Register(plugin); err != nil {
				protest(o, err.Error())
			}
			return plugin.ID
		},

		"registerAction": func(name, hierarchy string, fn goja.Value) interface{} {
			callable, is := goja.AssertFunction(fn)
			if !is {
				protest(o, fmt.Sprintf(`"%s" is not a function`, name))
			}

			action := &core.FuncAction{
				ActionName: name,
				F: func(ctx context.Context, c *core.Context, args map[string]interface{}) (interface{}, error) {
					v, err := callable(goja.Undefined(), o.ToValue(scriptEnv(ctx, c, args)))
					if err != nil {
						return nil, err
					}
					x := v.Export()
					if x == nil {
						return nil, nil
					}
					return canonicalize(x)
				},
			}

			if err := r.RegisterAction(core.ParseHierarchy(hierarchy), "", action); err != nil {
				protest(o, err.Error())
			}
			return nil
		},

		"registerAlias": func(alias, hierarchy string) interface{} {
			if err := r.RegisterAlias(core.ParseHierarchy(alias), core.ParseHierarchy(hierarchy)); err != nil {
				protest(o, err.Error())
			}
			return nil
		},
	}

	o.Set("ways", ways)

	// The runtime outlives this call inside registered actions, so
	// a late Interrupt would poison their next dispatch.  Wait for
	// the watchdog to retire, then clear anything it left behind.
	ictx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	watchdog := make(chan struct{})
	go func() {
		defer close(watchdog)
		select {
		case <-ictx.Done():
			o.Interrupt(InterruptedMessage)
		case <-done:
		}
	}()

	_, err = RunProgram(o, p)
	close(done)
	cancel()
	<-watchdog
	o.ClearInterrupt()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return Interrupted
		}
		return err
	}

	return nil
}

// asPlugin converts a script object into a Plugin.  Canonicalizing
// first strips away the runtime's value types, so FromInfo only sees
// plain maps, slices, and strings.
func asPlugin(x interface{}, source string) (*core.Plugin, error) {
	y, err := canonicalize(x)
	if err != nil {
		return nil, err
	}
	info, is := y.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("not a plugin object: %#v", x)
	}
	return core.FromInfo(info, source)
}
