package task

import (
	"fmt"
	"sort"
	"sync"

	"github.com/starford/quire/internal/apperr"
)

// Graph is the table of invocable tasks for one build invocation. It is
// created explicitly and handed to the runner, there is no process-wide
// registry.
type Graph struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Register adds t under its name. Names are unique within a graph.
func (g *Graph) Register(t *Task) error {
	return g.RegisterAs(t.Name(), t)
}

// RegisterAs adds t under an explicit name.
func (g *Graph) RegisterAs(name string, t *Task) error {
	if name == "" {
		return fmt.Errorf("task: register: empty name")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tasks[name]; ok {
		return fmt.Errorf("task: register %q: %w", name, apperr.ErrDuplicateTask)
	}
	g.tasks[name] = t
	g.order = append(g.order, name)
	return nil
}

// Lookup returns the task registered under name.
func (g *Graph) Lookup(name string) (*Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[name]
	if !ok {
		return nil, fmt.Errorf("task: %q: %w", name, apperr.ErrNotFound)
	}
	return t, nil
}

// Names returns the registered names in registration order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// SortedNames returns the registered names alphabetically.
func (g *Graph) SortedNames() []string {
	names := g.Names()
	sort.Strings(names)
	return names
}
