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


// Package core provides the core gear for hierarchy-driven resource
// resolution.  Plugins each describe part of a location template for a
// point in a "/"-separated hierarchy, and a Registry collects them.
//
// The primary type is Registry, and the primary methods are Register()
// and Context().  Register() appends a Plugin to the Registry.
// Context() returns a persistent, flyweight Context for a hierarchy,
// whose View() is recomputed from the live plugin population on every
// call.  Resolve() turns the population into fully-qualified
// hierarchies: a relative Plugin (one with a non-empty Uses list)
// expands against its parents until a fixed point is reached, with
// "{root}" marking the insertion point for the parent's hierarchy and
// mapping.
//
// A Registry can also carry Actions: named behavior attached to a
// hierarchy, found by explicit lookup (FindAction) rather than by any
// kind of dynamic dispatch.  An Action can be a Go function or an
// ActionSource compiled by an Interpreter.
//
// A Registry is plain mutable state.  Nothing here locks.  Callers
// that mutate a Registry from more than one goroutine must serialize
// those calls themselves; reads between mutations are safe.
package core
