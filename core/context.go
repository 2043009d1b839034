package core

// contextKey identifies a flyweight Context.
type contextKey struct {
	hierarchy  Hierarchy
	assignment string
}

// View is the merged, read-only snapshot of one hierarchy under one
// assignment selector.  Build one with Context.View(); the fields are
// fresh copies, so callers may keep or mutate them freely.
type View struct {
	Hierarchy  Hierarchy
	Assignment string

	// Plugins are the contributions the snapshot was merged from, in
	// merge order.
	Plugins []*ResolvedPlugin

	Mapping   string
	Details   map[string]TokenDetail
	Platforms []string

	// Data is the merged plugin data with the Context's user layer
	// on top.
	Data map[string]interface{}

	// IsPath is true when any contribution marked its mapping as an
	// OS path.
	IsPath bool
}

// Context is an identity-stable handle on one hierarchy under one
// assignment selector.
//
// A Registry hands out exactly one Context per key for its lifetime,
// so handles compare with ==.  A Context holds no merged state: every
// read goes through View(), which recomputes from the live plugin
// population.  Plugins registered after the handle was created are
// visible on the handle's next read; there is no invalidation to
// worry about, and nothing to refresh.
//
// The only state a Context owns is its user data layer.
type Context struct {
	registry   *Registry
	hierarchy  Hierarchy
	assignment string
	userData   map[string]interface{}
}

// Context returns the flyweight Context for a hierarchy.
//
// An empty assignment selects the merge of all assignments in the
// Registry's priority order; a concrete assignment pins that
// namespace.  Aliases are followed.  When nothing currently resolves
// at the key under the selector, Context returns nil.
func (r *Registry) Context(hierarchy Hierarchy, assignment string) *Context {
	hierarchy = r.ResolveAlias(ParseHierarchy(string(hierarchy)))

	key := contextKey{hierarchy: hierarchy, assignment: assignment}
	if c, have := r.contexts[key]; have {
		return c
	}

	if len(r.Resolve().At(hierarchy, assignment)) == 0 {
		return nil
	}

	c := &Context{
		registry:   r,
		hierarchy:  hierarchy,
		assignment: assignment,
		userData:   make(map[string]interface{}),
	}
	r.contexts[key] = c

	return c
}

// Contexts returns a Context for every hierarchy that currently
// resolves, in sorted hierarchy order, all under the given assignment
// selector.
func (r *Registry) Contexts(assignment string) []*Context {
	res := r.Resolve()
	var acc []*Context
	for _, h := range res.Hierarchies() {
		if c := r.Context(h, assignment); c != nil {
			acc = append(acc, c)
		}
	}
	return acc
}

// Hierarchy returns the handle's (alias-resolved) hierarchy.
func (c *Context) Hierarchy() Hierarchy {
	return c.hierarchy
}

// Assignment returns the handle's assignment selector ("" means the
// priority merge).
func (c *Context) Assignment() string {
	return c.assignment
}

// Registry returns the Registry the handle belongs to.
func (c *Context) Registry() *Registry {
	return c.registry
}

// View recomputes the merged snapshot from the live plugin
// population.  The cost is proportional to the total number of
// registered plugins, which is the price of never caching.
func (c *Context) View() *View {
	rps := c.registry.Resolve().At(c.hierarchy, c.assignment)

	v := &View{
		Hierarchy:  c.hierarchy,
		Assignment: c.assignment,
		Plugins:    rps,
		Mapping:    mergedMapping(rps),
		Details:    mergedDetails(rps),
		Platforms:  mergedPlatforms(rps),
		Data:       mergedData(rps),
		IsPath:     mergedIsPath(rps),
	}
	for k, val := range c.userData {
		v.Data[k] = val
	}

	return v
}

// Mapping returns the merged template.
func (c *Context) Mapping() string {
	return c.View().Mapping
}

// Details returns the merged token details.
func (c *Context) Details() map[string]TokenDetail {
	return c.View().Details
}

// Platforms returns the merged platform set.
func (c *Context) Platforms() []string {
	return c.View().Platforms
}

// Data returns the merged data, user layer included.
func (c *Context) Data() map[string]interface{} {
	return c.View().Data
}

// Plugins returns the contributions behind the handle, in merge
// order.
func (c *Context) Plugins() []*ResolvedPlugin {
	return c.View().Plugins
}

// SetData writes to the user data layer, shadowing any loaded value
// under the same key.
func (c *Context) SetData(key string, value interface{}) {
	c.userData[key] = value
}

// DeleteData removes a user-layer entry and reports whether one was
// there.  Loaded entries can't be deleted, only shadowed.
func (c *Context) DeleteData(key string) bool {
	if _, have := c.userData[key]; !have {
		return false
	}
	delete(c.userData, key)
	return true
}

// UserData returns a copy of the user data layer by itself.
func (c *Context) UserData() map[string]interface{} {
	acc := make(map[string]interface{}, len(c.userData))
	for k, v := range c.userData {
		acc[k] = v
	}
	return acc
}

// Revert drops the whole user data layer, putting the handle back on
// loaded data alone.
func (c *Context) Revert() {
	c.userData = make(map[string]interface{})
}

// Checkout returns the Context at the same hierarchy under another
// assignment selector.
func (c *Context) Checkout(assignment string) *Context {
	return c.registry.Context(c.hierarchy, assignment)
}
