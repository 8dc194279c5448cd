package eligibility

import (
	"fmt"

	"github.com/signadot/gsonopt/analysis"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
)

// Seed is a class passed directly to a Gson entry point.
type Seed struct {
	Class string
	// Site is the calling method, as class.name.
	Site string
}

// FindSeeds evaluates every program method calling a Gson entry point and
// returns the program classes whose (de)serialization it requests, in
// order of first appearance.
func FindSeeds(pools classfile.Pools) ([]Seed, error) {
	d := &discovery{
		pools:    pools,
		resolver: analysis.Resolver{Pools: pools},
		seen:     map[string]bool{},
	}
	if err := classfile.WalkPool(pools.Program, d); err != nil {
		return nil, fmt.Errorf("finding data classes: %w", err)
	}
	return d.seeds, nil
}

type discovery struct {
	pools    classfile.Pools
	eval     analysis.Evaluator
	resolver analysis.Resolver
	seen     map[string]bool
	seeds    []Seed
}

func (d *discovery) VisitMethod(c *classfile.Class, m *classfile.Method) error {
	if c.Name == gson.Gson || !callsGson(c, m) {
		return nil
	}
	return d.eval.Evaluate(c, m, func(offset int, in *classfile.Instruction, f *analysis.Frame) error {
		if !in.Op.IsInvoke() {
			return nil
		}
		ref, err := c.Pool.Ref(in.Index)
		if err != nil {
			return err
		}
		if ref.Class != gson.Gson {
			return nil
		}
		ep, ok := gson.FindEntryPoint(ref.Name, ref.Descriptor)
		if !ok {
			return nil
		}
		params, _, err := classfile.ParseMethodDescriptor(ref.Descriptor)
		if err != nil {
			return err
		}
		args, ok := f.Top(len(params) + 1)
		if !ok {
			return nil
		}
		d.add(c, m, ep, args[ep.Arg+1])
		return nil
	})
}

func (d *discovery) add(c *classfile.Class, m *classfile.Method, ep gson.EntryPoint, v analysis.Value) {
	var (
		t  *classfile.TypeSig
		ok bool
	)
	switch ep.Kind {
	case gson.ArgInstance:
		t, ok = d.resolver.InstanceType(v)
	case gson.ArgType:
		t, ok = d.resolver.TypeOf(v)
	case gson.ArgToken:
		t, ok = d.resolver.TokenOf(v)
	}
	if !ok {
		if debug.Eligibility() {
			debug.Logf("eligibility: %s.%s: unresolved %s argument %v", c.Name, m.Name, ep.Name, v)
		}
		return
	}
	for _, name := range t.ClassNames() {
		if d.seen[name] || !d.pools.IsProgramClass(name) {
			continue
		}
		d.seen[name] = true
		d.seeds = append(d.seeds, Seed{Class: name, Site: c.Name + "." + m.Name})
	}
}

func callsGson(c *classfile.Class, m *classfile.Method) bool {
	code := m.Code()
	if code == nil {
		return false
	}
	for i := range code.Instructions {
		in := &code.Instructions[i]
		if !in.Op.IsInvoke() {
			continue
		}
		if ref, err := c.Pool.Ref(in.Index); err == nil && ref.Class == gson.Gson {
			return true
		}
	}
	return false
}
