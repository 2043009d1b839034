package core

import (
	"context"
	"errors"
	"sort"
)

var (
	// InterpreterNotFound occurs when you try to Compile an
	// ActionSource, and the required interpreter isn't in the
	// given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used in ActionSource.Compile if
	// given nil interpreters.
	DefaultInterpreters = make(map[string]Interpreter)
)

// Interpreter can compile and execute code for scripted Actions.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code against a Context.  The result of a
	// previous Compile() might be provided.
	Exec(ctx context.Context, c *Context, args map[string]interface{}, code interface{}, compiled interface{}) (interface{}, error)
}

// Action is behavior attached to a hierarchy.
//
// An Action runs against a Context, so it can read the merged mapping
// and data of wherever it was dispatched.
type Action interface {
	// Name is the name the Action is dispatched by.
	Name() string

	// Exec executes this action.
	//
	// The third argument is for parameters, which the Action is
	// free to interpret or ignore.
	Exec(ctx context.Context, c *Context, args map[string]interface{}) (interface{}, error)
}

// FuncAction is a wrapper around a Go function.
type FuncAction struct {
	ActionName string `json:"name" yaml:"name"`

	F func(context.Context, *Context, map[string]interface{}) (interface{}, error) `json:"-" yaml:"-"`
}

func (a *FuncAction) Name() string {
	return a.ActionName
}

// Exec runs the wrapped function.
func (a *FuncAction) Exec(ctx context.Context, c *Context, args map[string]interface{}) (interface{}, error) {
	if a == nil || a.F == nil {
		return nil, nil
	}
	return a.F(ctx, c, args)
}

// ActionSource can be compiled to an Action.
type ActionSource struct {
	Name        string      `json:"name" yaml:"name"`
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source" yaml:"source"`
}

// Copy makes a shallow copy.
func (a *ActionSource) Copy() *ActionSource {
	if a == nil {
		return nil
	}
	return &ActionSource{
		Name:        a.Name,
		Interpreter: a.Interpreter,
		Source:      a.Source,
	}
}

// Compile attempts to compile the ActionSource into an Action using
// the given interpreters, which defaults to DefaultInterpreters.
func (a *ActionSource) Compile(ctx context.Context, interpreters map[string]Interpreter) (Action, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, have := interpreters[a.Interpreter]
	if !have {
		return nil, InterpreterNotFound
	}

	compiled, err := interpreter.Compile(ctx, a.Source)
	if err != nil {
		return nil, err
	}

	return &FuncAction{
		ActionName: a.Name,
		F: func(ctx context.Context, c *Context, args map[string]interface{}) (interface{}, error) {
			return interpreter.Exec(ctx, c, args, a.Source, compiled)
		},
	}, nil
}

// ActionStatus says how an action lookup went.
type ActionStatus int

const (
	// ActionMissing means no action and no default.
	ActionMissing ActionStatus = iota

	// ActionFound means a real Action turned up.
	ActionFound

	// ActionDefaulted means no Action, but a registered default
	// value stands in for its result.
	ActionDefaulted
)

func (s ActionStatus) String() string {
	switch s {
	case ActionFound:
		return "found"
	case ActionDefaulted:
		return "defaulted"
	default:
		return "missing"
	}
}

// ActionLookup is the tagged result of FindAction.  Check Status
// before touching the other fields: Action is only set when Status is
// ActionFound, and Default only when Status is ActionDefaulted.
type ActionLookup struct {
	Status  ActionStatus
	Action  Action
	Default interface{}
}

// RegisterAction attaches an Action to a hierarchy under an
// assignment.  The action's Name is its dispatch key, which must be
// unique per (hierarchy, assignment) or it silently replaces the
// earlier registration.
func (r *Registry) RegisterAction(hierarchy Hierarchy, assignment string, action Action) error {
	if action == nil {
		return errors.New("nil action")
	}
	if action.Name() == "" {
		return errors.New("action has no name")
	}

	hierarchy = ParseHierarchy(string(hierarchy))
	if hierarchy == "" {
		return errors.New("action has no hierarchy")
	}
	if assignment == "" {
		assignment = DefaultAssignment
	}

	assignments, have := r.actions[hierarchy]
	if !have {
		assignments = make(map[string]map[string]Action)
		r.actions[hierarchy] = assignments
	}
	names, have := assignments[assignment]
	if !have {
		names = make(map[string]Action)
		assignments[assignment] = names
	}
	names[action.Name()] = action

	return nil
}

// RegisterActionDefault records a stand-in value for an action name
// that might not be registered.  An empty hierarchy makes the default
// apply everywhere; a concrete hierarchy wins over the global one.
func (r *Registry) RegisterActionDefault(hierarchy Hierarchy, name string, value interface{}) {
	hierarchy = ParseHierarchy(string(hierarchy))

	names, have := r.actionDefaults[hierarchy]
	if !have {
		names = make(map[string]interface{})
		r.actionDefaults[hierarchy] = names
	}
	names[name] = value
}

// actionAssignments gives the assignment namespaces an action lookup
// consults, in decreasing precedence.
//
// A concrete selector checks itself and then falls back to
// DefaultAssignment.  The empty selector walks the priority order
// backwards, so the assignment that wins plugin merges also wins
// action dispatch.
func (r *Registry) actionAssignments(assignment string) []string {
	if assignment != "" {
		if assignment == DefaultAssignment {
			return []string{assignment}
		}
		return []string{assignment, DefaultAssignment}
	}

	acc := make([]string, 0, len(r.priority))
	for i := len(r.priority) - 1; 0 <= i; i-- {
		acc = append(acc, r.priority[i])
	}
	return acc
}

// FindAction looks up an action by name for a hierarchy under an
// assignment selector.  The lookup is an explicit table walk; nothing
// is inherited from ancestor hierarchies.
func (r *Registry) FindAction(hierarchy Hierarchy, assignment string, name string) ActionLookup {
	hierarchy = r.ResolveAlias(ParseHierarchy(string(hierarchy)))

	for _, candidate := range r.actionAssignments(assignment) {
		if action, have := r.actions[hierarchy][candidate][name]; have {
			return ActionLookup{
				Status: ActionFound,
				Action: action,
			}
		}
	}

	if value, have := r.actionDefaults[hierarchy][name]; have {
		return ActionLookup{
			Status:  ActionDefaulted,
			Default: value,
		}
	}
	if value, have := r.actionDefaults[Hierarchy("")][name]; have {
		return ActionLookup{
			Status:  ActionDefaulted,
			Default: value,
		}
	}

	return ActionLookup{Status: ActionMissing}
}

// Actions returns the actions visible for a hierarchy under an
// assignment selector, keyed by name.  Where namespaces collide, the
// entry FindAction would pick wins.
func (r *Registry) Actions(hierarchy Hierarchy, assignment string) map[string]Action {
	hierarchy = r.ResolveAlias(ParseHierarchy(string(hierarchy)))

	acc := make(map[string]Action)
	candidates := r.actionAssignments(assignment)
	for i := len(candidates) - 1; 0 <= i; i-- {
		for name, action := range r.actions[hierarchy][candidates[i]] {
			acc[name] = action
		}
	}
	return acc
}

// ActionNames returns the sorted dispatch names visible for a
// hierarchy under an assignment selector.
func (r *Registry) ActionNames(hierarchy Hierarchy, assignment string) []string {
	actions := r.Actions(hierarchy, assignment)
	acc := make([]string, 0, len(actions))
	for name := range actions {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Actions returns the actions visible from this handle, keyed by
// name.
func (c *Context) Actions() map[string]Action {
	return c.registry.Actions(c.hierarchy, c.assignment)
}

// FindAction looks up an action by name for this handle.
func (c *Context) FindAction(name string) ActionLookup {
	return c.registry.FindAction(c.hierarchy, c.assignment, name)
}
