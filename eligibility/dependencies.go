package eligibility

import (
	"github.com/signadot/gsonopt/classfile"
)

// DependencyGraph is the graph of program classes reachable from the
// seeds. An edge A -> B means a value of A may hold a B: A declares an
// instance field mentioning B in its type, or B is A's superclass.
type DependencyGraph struct {
	// Nodes maps class name to class
	Nodes map[string]*classfile.Class

	// Edges maps class name to the class names it depends on
	Edges map[string][]string

	// ReverseEdges maps class name to the class names that depend on it
	ReverseEdges map[string][]string

	// Order lists the nodes in breadth-first order from the seeds.
	Order []string
}

// BuildDependencyGraph computes the closure of seeds over field types,
// type arguments of generic field signatures and superclasses. Only
// program classes become nodes.
func BuildDependencyGraph(pools classfile.Pools, seeds []string) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes:        make(map[string]*classfile.Class),
		Edges:        make(map[string][]string),
		ReverseEdges: make(map[string][]string),
	}
	var queue []string
	visit := func(name string) {
		if _, ok := graph.Nodes[name]; ok {
			return
		}
		c := pools.Program.Get(name)
		if c == nil {
			return
		}
		graph.Nodes[name] = c
		graph.Order = append(graph.Order, name)
		queue = append(queue, name)
	}
	for _, s := range seeds {
		visit(s)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		deps := findDependencies(graph.Nodes[name], pools)
		graph.Edges[name] = deps
		for _, dep := range deps {
			graph.ReverseEdges[dep] = append(graph.ReverseEdges[dep], name)
			visit(dep)
		}
	}
	return graph
}

// findDependencies returns the program classes c depends on.
func findDependencies(c *classfile.Class, pools classfile.Pools) []string {
	var deps []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == c.Name || seen[name] || !pools.IsProgramClass(name) {
			return
		}
		seen[name] = true
		deps = append(deps, name)
	}

	if c.Super != "" {
		add(c.Super)
	}
	for _, f := range c.Fields {
		if f.IsStatic() {
			continue
		}
		if sig := f.Signature(); sig != "" {
			if t, err := classfile.ParseTypeSignature(sig); err == nil {
				for _, n := range t.ClassNames() {
					add(n)
				}
				continue
			}
		}
		if n, ok := classfile.ElementClassOf(f.Descriptor); ok {
			add(n)
		}
	}
	return deps
}

// Dependents returns the classes that depend on name.
func (g *DependencyGraph) Dependents(name string) []string {
	return g.ReverseEdges[name]
}
