// Package task models named units of build work and the graph that composes them.
package task

import "context"

// Kind distinguishes leaf work from compositions.
type Kind int

const (
	KindFunc Kind = iota
	KindSeries
	KindParallel
)

func (k Kind) String() string {
	switch k {
	case KindSeries:
		return "series"
	case KindParallel:
		return "parallel"
	default:
		return "func"
	}
}

// Func is the body of a leaf task.
type Func func(ctx context.Context) error

// Task is a named, displayable unit of work. A task is either a leaf wrapping
// a Func or a series/parallel composition of other tasks. Tasks are values
// captured at assembly time and are never modified once built.
type Task struct {
	name     string
	display  string
	kind     Kind
	fn       Func
	children []*Task
}

// New returns a leaf task.
func New(name string, fn Func) *Task {
	return &Task{name: name, kind: KindFunc, fn: fn}
}

// Series returns a task running children one after another, stopping at the
// first failure.
func Series(name string, children ...*Task) *Task {
	return &Task{name: name, kind: KindSeries, children: compact(children)}
}

// Parallel returns a task running children concurrently.
func Parallel(name string, children ...*Task) *Task {
	return &Task{name: name, kind: KindParallel, children: compact(children)}
}

// WithDisplayName returns a copy of t carrying a human-readable label.
func (t *Task) WithDisplayName(display string) *Task {
	cp := *t
	cp.display = display
	return &cp
}

// Name returns the task identifier.
func (t *Task) Name() string { return t.name }

// DisplayName returns the label, falling back to the name.
func (t *Task) DisplayName() string {
	if t.display != "" {
		return t.display
	}
	return t.name
}

// Kind returns whether the task is a leaf or a composition.
func (t *Task) Kind() Kind { return t.kind }

// Children returns the composed tasks in declaration order.
func (t *Task) Children() []*Task {
	out := make([]*Task, len(t.children))
	copy(out, t.children)
	return out
}

// Walk visits t and every task below it depth first.
func (t *Task) Walk(fn func(*Task)) {
	fn(t)
	for _, c := range t.children {
		c.Walk(fn)
	}
}

func compact(tasks []*Task) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
