// Package synth plans and commits the bytecode that replaces Gson's
// reflective binding for optimized data classes.
//
// Planning composes every generated class and method body against copies
// of the affected constant pools; nothing in the input pools changes
// until Commit. A Planner that fails leaves the program as it was.
package synth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/settings"
)

// ErrMissingRuntimeType is returned when a class the generated code needs
// at run time is in neither class pool.
var ErrMissingRuntimeType = errors.New("missing runtime type")

// ErrAlreadyOptimized is returned when the program already holds the
// generated classes.
var ErrAlreadyOptimized = errors.New("program already optimized")

// DefaultPackage is the package generated classes are placed in.
const DefaultPackage = "com/google/gson/internal/optimization"

// Simple names of the generated classes.
const (
	ReaderImpl  = "_OptimizedJsonReaderImpl"
	WriterImpl  = "_OptimizedJsonWriterImpl"
	AdapterImpl = "_OptimizedTypeAdapterImpl"
	FactoryImpl = "_OptimizedTypeAdapterFactory"
)

// Names of the methods added to data classes.
const (
	FromJson     = "fromJson$"
	FromJsonDesc = "(Lcom/google/gson/Gson;Lcom/google/gson/stream/JsonReader;)V"
	ToJson       = "toJson$"
	ToJsonDesc   = "(Lcom/google/gson/Gson;Lcom/google/gson/stream/JsonWriter;)V"
)

// RuntimeAdapter is the static method of the generated adapter that picks
// the adapter a delegated field value is written with.
const (
	RuntimeAdapter     = "runtimeAdapter"
	RuntimeAdapterDesc = "(Lcom/google/gson/Gson;Lcom/google/gson/TypeAdapter;Ljava/lang/reflect/Type;Ljava/lang/Object;)Lcom/google/gson/TypeAdapter;"
)

// Config holds the choices of a synthesis run.
type Config struct {
	// Package is the internal name of the package generated classes are
	// placed in.
	Package string

	// MapType is the map implementation the static lookup tables use.
	MapType string

	// AddExcluder makes the generated factory consult Gson's Excluder.
	AddExcluder bool

	Log *slog.Logger
}

// Planner builds a Plan for the classes of an index.
type Planner struct {
	Pools    classfile.Pools
	Settings *settings.Runtime
	Index    *index.OptimizedIndex
	Config

	pools map[*classfile.Class]*classfile.ConstantPool
	plan  *Plan
}

// Plan is the complete set of edits of one run.
type Plan struct {
	// Classes are the generated classes, added to the program pool on
	// commit.
	Classes []*classfile.Class

	// Edits are the methods added to or changed in program classes.
	Edits []*MethodEdit

	// Warnings are non-fatal conditions found while planning.
	Warnings []string

	pools map[*classfile.Class]*classfile.ConstantPool
}

// MethodEdit is a new or rewritten method body of a program class.
type MethodEdit struct {
	Class *classfile.Class

	// Method is the edited method, nil when the method is added.
	Method *classfile.Method

	Name       string
	Descriptor string
	Access     classfile.AccessFlags

	Code      []classfile.Instruction
	MaxStack  int
	MaxLocals int

	// Before and After are disassemblies of the body. Before is empty
	// for added methods.
	Before string
	After  string
}

// Added reports whether the edit adds a method.
func (e *MethodEdit) Added() bool {
	return e.Method == nil
}

// String names the edited method.
func (e *MethodEdit) String() string {
	return e.Class.Name + "." + e.Name + e.Descriptor
}

// Name returns the internal name of the generated class called simple.
func (p *Planner) Name(simple string) string {
	return p.pkg() + "/" + simple
}

func (p *Planner) pkg() string {
	if p.Package == "" {
		return DefaultPackage
	}
	return strings.TrimSuffix(p.Package, "/")
}

// Plan composes every generated class and edit.
func (p *Planner) Plan() (*Plan, error) {
	if p.Log == nil {
		p.Log = slog.Default()
	}
	p.pools = map[*classfile.Class]*classfile.ConstantPool{}
	p.plan = &Plan{pools: p.pools}

	for _, simple := range []string{ReaderImpl, WriterImpl, AdapterImpl, FactoryImpl} {
		if p.Pools.IsProgramClass(p.Name(simple)) {
			return nil, fmt.Errorf("%w: %s exists", ErrAlreadyOptimized, p.Name(simple))
		}
	}
	mapType, err := p.mapType()
	if err != nil {
		return nil, err
	}
	if p.AddExcluder {
		if err := p.checkExcluder(); err != nil {
			return nil, err
		}
	}

	reader, err := p.readerImpl(mapType)
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", ReaderImpl, err)
	}
	writer, err := p.writerImpl(mapType)
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", WriterImpl, err)
	}
	adapter, err := p.adapterImpl()
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", AdapterImpl, err)
	}
	factory, err := p.factoryImpl()
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", FactoryImpl, err)
	}
	p.plan.Classes = append(p.plan.Classes, reader, writer, adapter, factory)

	for _, name := range p.Index.ClassNames() {
		c := p.Pools.Program.Get(name)
		if c == nil {
			return nil, fmt.Errorf("optimized class %s not in program", name)
		}
		if err := p.dataClass(c, p.Index.Info(name)); err != nil {
			return nil, fmt.Errorf("planning %s: %w", name, err)
		}
	}
	if err := p.patchConstructors(); err != nil {
		return nil, err
	}
	if debug.Synth() {
		debug.Logf("synth: %d generated classes, %d edits", len(p.plan.Classes), len(p.plan.Edits))
	}
	return p.plan, nil
}

// mapType resolves the configured map implementation, looking in the
// library pool first.
func (p *Planner) mapType() (string, error) {
	name := p.MapType
	if name == "" {
		name = gson.HashMap
	}
	if p.Pools.Library.Contains(name) || p.Pools.Program.Contains(name) {
		return name, nil
	}
	return "", fmt.Errorf("%w: map implementation %s", ErrMissingRuntimeType, name)
}

func (p *Planner) checkExcluder() error {
	if !p.Pools.Library.Contains(gson.Excluder) && !p.Pools.Program.Contains(gson.Excluder) {
		return fmt.Errorf("%w: %s", ErrMissingRuntimeType, gson.Excluder)
	}
	g := p.Pools.Program.Get(gson.Gson)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrMissingRuntimeType, gson.Gson)
	}
	f := g.Field(gsonExcluderField)
	if f == nil || f.Descriptor != gson.Descriptor(gson.Excluder) {
		return fmt.Errorf("%w: field %s.%s", ErrMissingRuntimeType, gson.Gson, gsonExcluderField)
	}
	return nil
}

func (p *Planner) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.plan.Warnings = append(p.plan.Warnings, msg)
	p.Log.Warn(msg)
}

// poolFor returns the working copy of c's constant pool.
func (p *Planner) poolFor(c *classfile.Class) *classfile.ConstantPool {
	if pool, ok := p.pools[c]; ok {
		return pool
	}
	pool := c.Pool.Clone()
	p.pools[c] = pool
	return pool
}

// addMethod records a method added to the program class c.
func (p *Planner) addMethod(c *classfile.Class, access classfile.AccessFlags, name, desc string, comp *classfile.Composer, locals int) error {
	code, err := comp.Instructions()
	if err != nil {
		return fmt.Errorf("%s%s: %w", name, desc, err)
	}
	stack, err := maxStack(comp.Pool(), code)
	if err != nil {
		return fmt.Errorf("%s%s: %w", name, desc, err)
	}
	p.plan.Edits = append(p.plan.Edits, &MethodEdit{
		Class:      c,
		Name:       name,
		Descriptor: desc,
		Access:     access,
		Code:       code,
		MaxStack:   stack,
		MaxLocals:  locals,
		After:      classfile.Disassemble(comp.Pool(), code),
	})
	return nil
}

// Commit applies the plan to the program pool.
func (pl *Plan) Commit(program *classfile.ClassPool) {
	for c, pool := range pl.pools {
		c.Pool = pool
	}
	for _, e := range pl.Edits {
		m := e.Method
		if m == nil {
			m = e.Class.AddMethod(e.Access, e.Name, e.Descriptor, e.Code)
		} else {
			m.Code().Instructions = e.Code
		}
		code := m.Code()
		code.MaxStack = e.MaxStack
		code.MaxLocals = e.MaxLocals
	}
	for _, c := range pl.Classes {
		program.Add(c)
	}
}

// newClass starts a generated class.
func newClass(name, super string, access classfile.AccessFlags, ifaces ...string) *classfile.Class {
	c := classfile.NewClass(name, super, access|classfile.AccSynthetic)
	for _, i := range ifaces {
		c.Interfaces = append(c.Interfaces, i)
		c.Pool.AddClass(i)
	}
	return c
}

// define adds a method composed with comp to the generated class c.
func define(c *classfile.Class, access classfile.AccessFlags, name, desc string, comp *classfile.Composer, locals int) error {
	code, err := comp.Instructions()
	if err != nil {
		return fmt.Errorf("%s%s: %w", name, desc, err)
	}
	stack, err := maxStack(c.Pool, code)
	if err != nil {
		return fmt.Errorf("%s%s: %w", name, desc, err)
	}
	m := c.AddMethod(access, name, desc, code)
	m.Code().MaxStack = stack
	m.Code().MaxLocals = locals
	return nil
}

// maxStack bounds the operand stack in slots. classfile.MaxStack counts
// entries and long and double entries take two slots.
func maxStack(pool *classfile.ConstantPool, code []classfile.Instruction) (int, error) {
	n, err := classfile.MaxStack(pool, code)
	return 2 * n, err
}

// defaultConstructor defines a public constructor calling super().
func defaultConstructor(c *classfile.Class) error {
	comp := classfile.NewComposer(c.Pool)
	comp.Local(classfile.OpAload, 0).
		Invoke(classfile.OpInvokespecial, c.Super, "<init>", "()V").
		Op(classfile.OpReturn)
	return define(c, classfile.AccPublic, "<init>", "()V", comp, 1)
}
