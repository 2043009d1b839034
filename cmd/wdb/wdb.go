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

// Package main is a command-line registry debugger in the spirit of gdb.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/ColinKennedy/ways/asset"
	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/descriptor"
	"github.com/ColinKennedy/ways/interpreters"
	"github.com/ColinKennedy/ways/parse"
	"github.com/ColinKennedy/ways/util"
	. "github.com/ColinKennedy/ways/util/testutil"

	"github.com/fsnotify/fsnotify"
)

type Opts struct {
	sessionFile string
	demo        bool
	echo        bool
}

func main() {

	opts := &Opts{}
	flag.StringVar(&opts.sessionFile, "s", "wdb.db", "session database file")
	flag.BoolVar(&opts.demo, "demo", false, "start with the example pipeline registry")
	flag.BoolVar(&opts.echo, "e", false, "echo input")
	flag.Parse()

	if err := opts.run(os.Stdin, os.Stdout, flag.Args()); err != nil {
		panic(err)
	}
}

func (opts *Opts) run(in io.Reader, w io.Writer, descriptions []string) error {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := NewHost(opts)
	if err != nil {
		return err
	}
	defer func() {
		h.store.Close(ctx)
		if h.watcher != nil {
			h.watcher.Close()
		}
	}()

	var (
		load = regexp.MustCompile("^load +(.+)")

		unload = regexp.MustCompile("^(rem|del|remove|unload) +(.+)")

		ls = regexp.MustCompile("^(ls|list)$")

		print = regexp.MustCompile("^print( +([^ ]+)( +([^ ]+))?)?$")

		problems = regexp.MustCompile("^problems$")

		find = regexp.MustCompile("^find +(.+)")

		path = regexp.MustCompile("^path +([^ ]+)( +(.*))?$")

		do = regexp.MustCompile("^do +([^ ]+) +([-a-zA-Z0-9_]+)( +(.*))?$")

		set = regexp.MustCompile("^set +([^ ]+) +([-a-zA-Z0-9_]+) +(.*)")

		unset = regexp.MustCompile("^unset +([^ ]+) +([-a-zA-Z0-9_]+)")

		revert = regexp.MustCompile("^revert +([^ ]+)")

		mark = regexp.MustCompile("^mark +([-a-zA-Z0-9_]+) +(.+)")

		marks = regexp.MustCompile("^marks$")

		gotoMark = regexp.MustCompile("^goto +([-a-zA-Z0-9_]+)")

		save = regexp.MustCompile("^save +([-a-zA-Z0-9_]+)")

		restore = regexp.MustCompile("^restore +([-a-zA-Z0-9_]+)")

		sessions = regexp.MustCompile("^sessions$")

		watch = regexp.MustCompile("^watch +(.+)")

		reload = regexp.MustCompile("^reload$")

		priority = regexp.MustCompile("^priority +(.+)")

		platform = regexp.MustCompile("^platform +([^ ]+)")

		debug = regexp.MustCompile("^debug(ging)? (on|off)")

		help = regexp.MustCompile("^(help|h|\\?)")

		outputPrefix = "# "

		say = func(format string, args ...interface{}) {

			fmt.Fprintf(w, outputPrefix+format+"\n", args...)
		}

		protest = func(format string, args ...interface{}) {
			say("error: "+format, args...)
		}

		report = func(result *descriptor.LoadResult) {
			if result.Status == descriptor.StatusSuccess {
				say("loaded %s", result.Item)
				return
			}
			if result.Err != nil {
				protest("%s: %s: %s", result.Item, result.Reason, result.Err)
			} else {
				protest("%s: %s", result.Item, result.Reason)
			}
		}

		census = func() {
			say("registry now holds %d plugins across %d hierarchies",
				len(h.registry.Plugins()), len(h.registry.Resolve().Hierarchies()))
		}

		printer = func(c *core.Context) {
			v := c.View()
			say("  mapping:   %s", v.Mapping)
			if v.IsPath {
				say("  path:      true")
			}
			if 0 < len(v.Platforms) {
				say("  platforms: %s", strings.Join(v.Platforms, ", "))
			}
			if 0 < len(v.Details) {
				say("  details:   %s", JS(v.Details))
			}
			say("  data:      %s", JS(v.Data))
			if names := h.registry.ActionNames(c.Hierarchy(), c.Assignment()); 0 < len(names) {
				say("  actions:   %s", strings.Join(names, ", "))
			}
			for _, rp := range v.Plugins {
				say("  from:      %s assignment=%s source=%s",
					rp.Plugin, rp.Plugin.Assignment, rp.Plugin.Source)
			}
		}

		drain = func() error {
			if h.watcher == nil {
				return nil
			}
			changed := false
			for {
				select {
				case ev := <-h.watcher.Events:
					say("watch: %s %s", ev.Op, ev.Name)
					changed = true
					continue
				case err := <-h.watcher.Errors:
					protest("watch: %s", err)
					continue
				default:
				}
				break
			}
			if !changed {
				return nil
			}
			results, err := h.Reload(ctx)
			if err != nil {
				return err
			}
			for _, result := range results {
				report(result)
			}
			census()
			return nil
		}
	)

	for _, result := range h.Bootstrap(ctx) {
		report(result)
	}
	for _, description := range descriptions {
		report(h.Load(ctx, description))
	}

	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)

		if opts.echo {
			fmt.Println(line)
		}

		// File events pile up while we sit in ReadString, so the
		// reload happens here, on this goroutine, never on the
		// watcher's.
		if err = drain(); err != nil {
			return err
		}

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		var ss []string

		if ss = help.FindStringSubmatch(line); 0 < len(ss) {
			for _, s := range strings.Split(doc(), "\n") {
				say("%s", s)
			}
			continue
		}
		if ss = load.FindStringSubmatch(line); 0 < len(ss) {
			report(h.Load(ctx, ss[1]))
			census()
			continue
		}
		if ss = unload.FindStringSubmatch(line); 0 < len(ss) {
			source := ss[2]
			n := h.Unload(source)
			if n == 0 {
				protest("no plugins from source '%s'", source)
				continue
			}
			say("deregistered %d plugins from '%s'", n, source)
			census()
			continue
		}
		if ss = reload.FindStringSubmatch(line); 0 < len(ss) {
			results, err := h.Reload(ctx)
			if err != nil {
				return err
			}
			for _, result := range results {
				report(result)
			}
			census()
			continue
		}
		if ss = ls.FindStringSubmatch(line); 0 < len(ss) {
			res := h.registry.Resolve()
			hierarchies := res.Hierarchies()
			for _, hierarchy := range hierarchies {
				say("%s [%s]", hierarchy, strings.Join(res.Assignments(hierarchy), " "))
			}
			say("%d hierarchies", len(hierarchies))
			continue
		}
		if ss = problems.FindStringSubmatch(line); 0 < len(ss) {
			res := h.registry.Resolve()
			for _, problem := range res.Problems {
				say("problem: %s", problem)
			}
			for _, rp := range res.Filtered {
				say("filtered: %s", rp.Plugin)
			}
			if len(res.Problems) == 0 && len(res.Filtered) == 0 {
				say("no problems")
			}
			continue
		}
		if ss = print.FindStringSubmatch(line); 0 < len(ss) {
			hierarchy, assignment := ss[2], ss[4]
			if hierarchy == "" {
				for _, c := range h.registry.Contexts("") {
					say("context %s:", c.Hierarchy())
					printer(c)
				}
				continue
			}
			c := h.registry.Context(core.Hierarchy(hierarchy), assignment)
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			printer(c)
			continue
		}
		if ss = gotoMark.FindStringSubmatch(line); 0 < len(ss) {
			name := ss[1]
			value, have := h.bookmarks[name]
			if !have {
				protest("no bookmark '%s'", name)
				continue
			}
			say("bookmark '%s' is %s", name, value)
			line = fmt.Sprintf("find %s", value)
			// Fall through!
		}
		if ss = find.FindStringSubmatch(line); 0 < len(ss) {
			value := ss[1]
			hierarchy, err := asset.FindHierarchyString(h.registry, value)
			if err != nil {
				protest("%s", err)
				continue
			}
			c := h.registry.Context(hierarchy, "")
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			pieces, err := parse.ExpandString(c.Mapping(), value)
			if err != nil {
				protest("%s", err)
				continue
			}
			say("%s %s", hierarchy, JS(pieces))
			continue
		}
		if ss = path.FindStringSubmatch(line); 0 < len(ss) {
			hierarchy, js := ss[1], ss[3]
			values := make(map[string]string)
			if js != "" {
				if err = json.Unmarshal([]byte(js), &values); err != nil {
					protest("couldn't parse values %s", js)
					continue
				}
			}
			c := h.registry.Context(core.Hierarchy(hierarchy), "")
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			a, err := asset.New(values, c)
			if err != nil {
				protest("%s", err)
				continue
			}
			rendered, err := a.Path(nil)
			if err != nil {
				protest("%s", err)
				continue
			}
			say("%s", rendered)
			continue
		}
		if ss = do.FindStringSubmatch(line); 0 < len(ss) {
			hierarchy, name, js := ss[1], ss[2], ss[4]
			args := make(map[string]interface{})
			if js != "" {
				if err = json.Unmarshal([]byte(js), &args); err != nil {
					protest("couldn't parse arguments %s", js)
					continue
				}
			}
			c := h.registry.Context(core.Hierarchy(hierarchy), "")
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			lookup := c.FindAction(name)
			switch lookup.Status {
			case core.ActionMissing:
				protest("no action '%s' at '%s'", name, hierarchy)
			case core.ActionDefaulted:
				say("default: %s", JS(lookup.Default))
			case core.ActionFound:
				result, err := lookup.Action.Exec(ctx, c, args)
				if err != nil {
					protest("action '%s' failed: %s", name, err)
					continue
				}
				say("%s", JS(result))
			}
			continue
		}
		if ss = set.FindStringSubmatch(line); 0 < len(ss) {
			hierarchy, key, text := ss[1], ss[2], ss[3]
			c := h.Edit(core.Hierarchy(hierarchy), "")
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			// JSON if it parses, the raw text if it doesn't.
			value := Dwimjs(text)
			c.SetData(key, value)
			say("%s %s is now %v", c.Hierarchy(), key, value)
			continue
		}
		if ss = unset.FindStringSubmatch(line); 0 < len(ss) {
			hierarchy, key := ss[1], ss[2]
			c := h.Edit(core.Hierarchy(hierarchy), "")
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			if !c.DeleteData(key) {
				protest("'%s' has no user-layer key '%s'", hierarchy, key)
				continue
			}
			say("%s %s removed", c.Hierarchy(), key)
			continue
		}
		if ss = revert.FindStringSubmatch(line); 0 < len(ss) {
			hierarchy := ss[1]
			c := h.Edit(core.Hierarchy(hierarchy), "")
			if c == nil {
				protest("no context at '%s'", hierarchy)
				continue
			}
			c.Revert()
			say("%s reverted", c.Hierarchy())
			continue
		}
		if ss = mark.FindStringSubmatch(line); 0 < len(ss) {
			name, value := ss[1], ss[2]
			hierarchy, err := asset.FindHierarchyString(h.registry, value)
			if err != nil {
				protest("%s", err)
				continue
			}
			h.bookmarks[name] = value
			say("marked '%s' at %s", name, hierarchy)
			continue
		}
		if ss = marks.FindStringSubmatch(line); 0 < len(ss) {
			if len(h.bookmarks) == 0 {
				say("no bookmarks")
				continue
			}
			names := make([]string, 0, len(h.bookmarks))
			for name := range h.bookmarks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				value := h.bookmarks[name]
				if hierarchy, err := asset.FindHierarchyString(h.registry, value); err == nil {
					say("%s %s (%s)", name, value, hierarchy)
				} else {
					say("%s %s (unmatched)", name, value)
				}
			}
			continue
		}
		if ss = sessions.FindStringSubmatch(line); 0 < len(ss) {
			store, err := h.Store(ctx)
			if err != nil {
				protest("opening session store: %s", err)
				continue
			}
			names, err := store.ListSessions(ctx)
			if err != nil {
				protest("listing sessions: %s", err)
				continue
			}
			for _, name := range names {
				say("%s", name)
			}
			say("%d sessions", len(names))
			continue
		}
		if ss = save.FindStringSubmatch(line); 0 < len(ss) {
			name := ss[1]
			store, err := h.Store(ctx)
			if err != nil {
				protest("opening session store: %s", err)
				continue
			}
			session := h.Snapshot()
			if err := store.SaveSession(ctx, name, session); err != nil {
				protest("saving session '%s': %s", name, err)
				continue
			}
			say("saved session '%s' (%d layers, %d bookmarks)",
				name, len(session.Layers), len(session.Bookmarks))
			continue
		}
		if ss = restore.FindStringSubmatch(line); 0 < len(ss) {
			name := ss[1]
			store, err := h.Store(ctx)
			if err != nil {
				protest("opening session store: %s", err)
				continue
			}
			session, err := store.GetSession(ctx, name)
			if err != nil {
				protest("reading session '%s': %s", name, err)
				continue
			}
			if session == nil {
				protest("no session '%s'", name)
				continue
			}
			applied, skipped := h.Apply(session)
			say("restored '%s' from %s (%d layers applied, %d skipped)",
				name, session.Saved, applied, skipped)
			continue
		}
		if ss = watch.FindStringSubmatch(line); 0 < len(ss) {
			target := ss[1]
			if err := h.Watch(target); err != nil {
				protest("watching '%s': %s", target, err)
				continue
			}
			say("watching %s", target)
			continue
		}
		if ss = priority.FindStringSubmatch(line); 0 < len(ss) {
			h.registry.SetPriority(strings.Fields(ss[1])...)
			say("priority: %s", strings.Join(h.registry.Priority(), " "))
			continue
		}
		if ss = platform.FindStringSubmatch(line); 0 < len(ss) {
			if err := h.registry.SetPlatform(ss[1]); err != nil {
				protest("%s", err)
				continue
			}
			say("platform: %s", h.registry.Platform())
			continue
		}
		if ss = debug.FindStringSubmatch(line); 0 < len(ss) {
			switch ss[2] {
			case "on":
				util.Logging = true
				say("debugging")
			case "off":
				util.Logging = false
				say("not debugging")
			}
			continue
		}

		protest("unsupported command: %s", line)
	}

	return nil
}

// editKey identifies a context handle the user has written to.
type editKey struct {
	hierarchy  core.Hierarchy
	assignment string
}

type Host struct {
	registry     *core.Registry
	interpreters map[string]core.Interpreter
	store        *Storage
	watcher      *fsnotify.Watcher
	demo         bool
	sessionFile  string

	// loaded is the descriptions loaded so far, in order, so a reload
	// can replay them against a cleared registry.
	loaded []string

	// edits tracks the handles with user-layer writes, which is all
	// that Snapshot captures.
	edits map[editKey]*core.Context

	bookmarks map[string]string
}

func NewHost(opts *Opts) (*Host, error) {
	h := &Host{
		interpreters: interpreters.Standard(),
		demo:         opts.demo,
		sessionFile:  opts.sessionFile,
		edits:        make(map[editKey]*core.Context),
		bookmarks:    make(map[string]string),
	}
	if err := h.fresh(); err != nil {
		return nil, err
	}
	return h, nil
}

// fresh replaces the registry with an empty one (or the example
// pipeline, under -demo) and drops the now-stale edit handles.
func (h *Host) fresh() error {
	if h.demo {
		r, err := core.PipelineRegistry()
		if err != nil {
			return err
		}
		h.registry = r
	} else {
		if h.registry == nil {
			h.registry = core.NewRegistry()
		} else {
			h.registry.Clear()
		}
	}
	h.edits = make(map[editKey]*core.Context)
	return nil
}

// Bootstrap applies the WAYS_* environment variables to the registry.
func (h *Host) Bootstrap(ctx context.Context) []*descriptor.LoadResult {
	return descriptor.FromEnvironment(ctx, h.registry)
}

// Load adds one description and remembers it for replay on reload.
func (h *Host) Load(ctx context.Context, description string) *descriptor.LoadResult {
	result := descriptor.Add(ctx, h.registry, description, h.interpreters)
	if result.Status == descriptor.StatusSuccess {
		h.loaded = append(h.loaded, description)
	}
	return result
}

// Unload deregisters every plugin from a source and forgets matching
// loaded descriptions so a reload won't bring them back.
func (h *Host) Unload(source string) int {
	n := h.registry.DeregisterSource(source)
	kept := h.loaded[:0]
	for _, description := range h.loaded {
		if description != source {
			kept = append(kept, description)
		}
	}
	h.loaded = kept
	return n
}

// Reload starts the registry over: environment first, then every
// loaded description, in order.  User-layer edits do not survive;
// that's what sessions are for.
func (h *Host) Reload(ctx context.Context) ([]*descriptor.LoadResult, error) {
	if err := h.fresh(); err != nil {
		return nil, err
	}
	results := h.Bootstrap(ctx)
	for _, description := range h.loaded {
		results = append(results, descriptor.Add(ctx, h.registry, description, h.interpreters))
	}
	return results, nil
}

// Edit fetches a context and records the handle so Snapshot can find
// its user layer later.
func (h *Host) Edit(hierarchy core.Hierarchy, assignment string) *core.Context {
	c := h.registry.Context(hierarchy, assignment)
	if c == nil {
		return nil
	}
	h.edits[editKey{hierarchy: c.Hierarchy(), assignment: assignment}] = c
	return c
}

// Snapshot captures the current user-layer edits and bookmarks as a
// Session.
func (h *Host) Snapshot() *Session {
	session := &Session{
		Saved:     core.Timestamp(),
		Bookmarks: make(map[string]string, len(h.bookmarks)),
	}
	for name, value := range h.bookmarks {
		session.Bookmarks[name] = value
	}

	keys := make([]editKey, 0, len(h.edits))
	for k := range h.edits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hierarchy != keys[j].hierarchy {
			return keys[i].hierarchy < keys[j].hierarchy
		}
		return keys[i].assignment < keys[j].assignment
	})

	for _, k := range keys {
		data := h.edits[k].UserData()
		if len(data) == 0 {
			continue
		}
		session.Layers = append(session.Layers, SessionLayer{
			Hierarchy:  k.hierarchy,
			Assignment: k.assignment,
			Data:       data,
		})
	}
	return session
}

// Apply reapplies a session's layers to whatever contexts still
// resolve, and merges its bookmarks in.  Layers whose hierarchy no
// longer resolves are skipped, not errors.
func (h *Host) Apply(session *Session) (applied, skipped int) {
	for _, layer := range session.Layers {
		c := h.Edit(layer.Hierarchy, layer.Assignment)
		if c == nil {
			skipped++
			continue
		}
		for k, v := range layer.Data {
			c.SetData(k, v)
		}
		applied++
	}
	for name, value := range session.Bookmarks {
		h.bookmarks[name] = value
	}
	return applied, skipped
}

// Store opens the session database on first use.
func (h *Host) Store(ctx context.Context) (*Storage, error) {
	if h.store != nil {
		return h.store, nil
	}
	store, err := NewStorage(h.sessionFile)
	if err != nil {
		return nil, err
	}
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	h.store = store
	return h.store, nil
}

// Watch adds a file or directory to the change watcher, creating the
// watcher on first use.
func (h *Host) Watch(path string) error {
	if h.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		h.watcher = watcher
	}
	return h.watcher.Add(path)
}

func doc() string {
	return `
  load DESCRIPTION             Load plugins from a descriptor (file, folder, or query string)
  unload SOURCE                Deregister every plugin from that source
  reload                       Start over: environment, then every loaded description
  ls                           List resolved hierarchies and their assignments
  print [HIERARCHY [ASSIGN]]   Print the merged view of a context
  problems                     Show resolution problems and platform-filtered plugins
  find VALUE                   Find the hierarchy a value came from, with its token pieces
  path HIERARCHY [VALUES]      Render a context's mapping with token values (JSON)
  do HIERARCHY ACTION [ARGS]   Run an action on a context with arguments (JSON)
  set HIERARCHY KEY VALUE      Shadow a data key in the context's user layer
  unset HIERARCHY KEY          Remove a user-layer key
  revert HIERARCHY             Drop the context's whole user layer
  mark NAME VALUE              Bookmark an asset value by name
  marks                        List bookmarks
  goto NAME                    Find the hierarchy behind a bookmark
  save NAME                    Save user-layer edits and bookmarks as a named session
  restore NAME                 Reapply a saved session
  sessions                     List saved sessions
  watch PATH                   Reload everything when files under PATH change
  priority A B ..              Set the assignment priority order
  platform NAME                Set the active platform
  debug on/off                 Log loader activity
  help                         Show this documentation
`
}
