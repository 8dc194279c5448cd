package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signadot/gsonopt/analysis"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
)

// FactoriesMarker is the descriptor text that identifies the Gson
// constructors assembling the factory list. Any constructor taking a
// List matches.
const FactoriesMarker = "Ljava/util/List;"

const (
	listAddAll = "(Ljava/util/Collection;)Z"
	listAdd    = "(Ljava/lang/Object;)Z"
)

// patchConstructors registers the generated factory in every Gson
// constructor that builds the factory list, right after the user
// factories are added.
func (p *Planner) patchConstructors() error {
	g := p.Pools.Program.Get(gson.Gson)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrMissingRuntimeType, gson.Gson)
	}
	patched := 0
	for _, m := range g.MethodsNamed("<init>") {
		if !strings.Contains(m.Descriptor, FactoriesMarker) || m.Code() == nil {
			continue
		}
		ok, err := p.patchConstructor(g, m)
		if err != nil {
			return fmt.Errorf("patching %s.<init>%s: %w", g.Name, m.Descriptor, err)
		}
		if ok {
			patched++
		}
	}
	if patched == 0 {
		p.warn("no %s constructor adds user factories; the generated factory is never registered", g.Name)
	}
	return nil
}

func (p *Planner) patchConstructor(g *classfile.Class, m *classfile.Method) (bool, error) {
	site, slot, depth := -1, -1, 0
	var eval analysis.Evaluator
	err := eval.Evaluate(g, m, func(offset int, in *classfile.Instruction, f *analysis.Frame) error {
		if in.Op != classfile.OpInvokeinterface {
			return nil
		}
		ref, err := g.Pool.Ref(in.Index)
		if err != nil {
			return err
		}
		if ref.Class != gson.List || ref.Name != "addAll" || ref.Descriptor != listAddAll {
			return nil
		}
		site, slot = offset, -1
		if args, ok := f.Top(2); ok {
			slot = args[0].Slot
			depth = len(f.Stack) - 2
		}
		return nil
	})
	switch {
	case errors.Is(err, classfile.ErrBadInstruction):
		p.warn("%s.<init>%s not patched: %v", g.Name, m.Descriptor, err)
		return false, nil
	case err != nil:
		return false, err
	}
	code := m.Code().Instructions
	switch {
	case site < 0:
		p.warn("%s.<init>%s never calls List.addAll", g.Name, m.Descriptor)
		return false, nil
	case slot < 0:
		p.warn("%s.<init>%s: list receiving user factories is not a local", g.Name, m.Descriptor)
		return false, nil
	case site+1 >= len(code) || code[site+1].Op != classfile.OpPop:
		p.warn("%s.<init>%s: result of List.addAll is used", g.Name, m.Descriptor)
		return false, nil
	}

	pool := p.poolFor(g)
	factory := p.Name(FactoryImpl)
	comp := classfile.NewComposer(pool)
	comp.Local(classfile.OpAload, slot).
		Type(classfile.OpNew, factory).
		Op(classfile.OpDup)
	if p.AddExcluder {
		comp.Local(classfile.OpAload, 0).
			Field(classfile.OpGetfield, gson.Gson, gsonExcluderField, gson.Descriptor(gson.Excluder))
	}
	comp.Invoke(classfile.OpInvokespecial, factory, "<init>", p.factoryInitDesc()).
		Invoke(classfile.OpInvokeinterface, gson.List, "add", listAdd).
		Op(classfile.OpPop)
	seq, err := comp.Instructions()
	if err != nil {
		return false, err
	}
	ed := classfile.NewEditor(code)
	ed.InsertAfter(site+1, seq)
	out, err := ed.Apply()
	if err != nil {
		return false, err
	}
	if debug.Synth() {
		debug.Logf("synth: registering %s in %s.<init>%s after offset %d", factory, g.Name, m.Descriptor, site)
	}
	p.plan.Edits = append(p.plan.Edits, &MethodEdit{
		Class:      g,
		Method:     m,
		Name:       m.Name,
		Descriptor: m.Descriptor,
		Access:     m.Access,
		Code:       out,
		MaxStack:   max(m.Code().MaxStack, 2*(depth+4)),
		MaxLocals:  m.Code().MaxLocals,
		Before:     classfile.Disassemble(pool, code),
		After:      classfile.Disassemble(pool, out),
	})
	return true, nil
}
