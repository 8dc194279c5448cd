// Package scan finds the GsonBuilder configuration calls a program makes
// and records the features they enable.
package scan

import (
	"fmt"
	"log/slog"

	"github.com/signadot/gsonopt/analysis"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/settings"
)

// Collector receives a class resolved from a registration call.
type Collector func(class string)

// Scanner matches every call in the program against Table.
type Scanner struct {
	Settings *settings.Runtime
	Pools    classfile.Pools

	// TypeAdapters receives the types custom adapters are registered for
	// and the classes of registered factories. It defaults to adding to
	// Settings.TypeAdapterClasses.
	TypeAdapters Collector

	// InstanceCreators receives the types instance creators are
	// registered for. It defaults to adding to
	// Settings.InstanceCreatorClasses.
	InstanceCreators Collector

	Log *slog.Logger

	eval     analysis.Evaluator
	resolver analysis.Resolver
}

// New returns a scanner recording into rs.
func New(rs *settings.Runtime, pools classfile.Pools) *Scanner {
	return &Scanner{Settings: rs, Pools: pools}
}

// Scan visits every method of every program class.
func (s *Scanner) Scan() error {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.TypeAdapters == nil {
		s.TypeAdapters = func(class string) { s.Settings.TypeAdapterClasses.Add(class) }
	}
	if s.InstanceCreators == nil {
		s.InstanceCreators = func(class string) { s.Settings.InstanceCreatorClasses.Add(class) }
	}
	s.resolver.Pools = s.Pools
	if err := classfile.WalkPool(s.Pools.Program, s); err != nil {
		return fmt.Errorf("scanning builder calls: %w", err)
	}
	return nil
}

// VisitMethod implements classfile.MethodVisitor.
func (s *Scanner) VisitMethod(c *classfile.Class, m *classfile.Method) error {
	if !callsBuilder(c, m) {
		return nil
	}
	return s.eval.Evaluate(c, m, func(offset int, in *classfile.Instruction, f *analysis.Frame) error {
		return s.visitCall(c, m, offset, in, f)
	})
}

func callsBuilder(c *classfile.Class, m *classfile.Method) bool {
	code := m.Code()
	if code == nil {
		return false
	}
	for i := range code.Instructions {
		in := &code.Instructions[i]
		if !in.Op.IsInvoke() {
			continue
		}
		if ref, err := c.Pool.Ref(in.Index); err == nil && ref.Class == gson.GsonBuilder {
			return true
		}
	}
	return false
}

func (s *Scanner) visitCall(c *classfile.Class, m *classfile.Method, offset int, in *classfile.Instruction, f *analysis.Frame) error {
	if !in.Op.IsInvoke() {
		return nil
	}
	ref, err := c.Pool.Ref(in.Index)
	if err != nil {
		return err
	}
	entry, ok := Table[CallSite{Class: ref.Class, Name: ref.Name, Descriptor: ref.Descriptor}]
	if !ok {
		return nil
	}
	if s.Settings.Set(entry.Feature) {
		s.Log.Debug("builder feature in use", "feature", entry.Feature, "class", c.Name, "method", m.Name)
	}
	if debug.Scan() {
		debug.Logf("scan: %s.%s%s at %d calls %s", c.Name, m.Name, m.Descriptor, offset, ref.Name)
	}
	params, _, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	// receiver first
	args, ok := f.Top(len(params) + 1)
	if !ok {
		return nil
	}
	switch entry.Action {
	case RegisterAdapter:
		s.registerAdapter(args[1], args[2])
	case RegisterFactory:
		if args[1].Kind == analysis.Instance && args[1].Class != gson.TypeAdapterFactory {
			s.TypeAdapters(args[1].Class)
		}
	case ExcludeModifiers:
		s.excludeModifiers(args[1])
	}
	return nil
}

func (s *Scanner) registerAdapter(typ, adapter analysis.Value) {
	t, ok := s.resolver.TypeOf(typ)
	if !ok || t.Class == "" {
		if debug.Scan() {
			debug.Logf("scan: unresolved registered type %v", typ)
		}
		return
	}
	if adapter.Kind == analysis.Instance && s.Pools.Implements(adapter.Class, gson.InstanceCreator) {
		s.Settings.Set(settings.InstanceCreators)
		s.InstanceCreators(t.Class)
		return
	}
	s.TypeAdapters(t.Class)
}

func (s *Scanner) excludeModifiers(arg analysis.Value) {
	if arg.Kind != analysis.IntArray {
		s.Settings.UnresolvedModifiers()
		return
	}
	elems, ok := arg.Array.Constants()
	if !ok {
		s.Settings.UnresolvedModifiers()
		return
	}
	var mask classfile.AccessFlags
	for _, e := range elems {
		mask |= classfile.AccessFlags(e)
	}
	s.Settings.AddModifierMask(mask)
}
