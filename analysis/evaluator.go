package analysis

import (
	"fmt"
	"maps"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
)

// Frame is the abstract state before an instruction.
type Frame struct {
	Stack  []Value
	Locals map[int]Value
}

func (f *Frame) clone() *Frame {
	return &Frame{
		Stack:  append([]Value(nil), f.Stack...),
		Locals: maps.Clone(f.Locals),
	}
}

// Top returns the n topmost stack values, deepest first.
func (f *Frame) Top(n int) ([]Value, bool) {
	if n > len(f.Stack) {
		return nil, false
	}
	return f.Stack[len(f.Stack)-n:], true
}

func (f *Frame) push(v Value) {
	f.Stack = append(f.Stack, v)
}

func (f *Frame) pop(n int) ([]Value, error) {
	if n > len(f.Stack) {
		return nil, fmt.Errorf("%w: stack underflow", classfile.ErrBadInstruction)
	}
	res := append([]Value(nil), f.Stack[len(f.Stack)-n:]...)
	f.Stack = f.Stack[:len(f.Stack)-n]
	return res, nil
}

// Step is called with each reachable instruction and the frame before
// it. The frame must not be retained.
type Step func(offset int, in *classfile.Instruction, f *Frame) error

// Evaluator partially evaluates method bodies. It walks the instructions
// in order, carrying the frame from each instruction to the next and
// merging the frames of forward branches into their targets. Code reached
// only by backward branches starts with an empty stack and the locals
// last seen.
type Evaluator struct {
	Finder TypeArgumentFinder
}

// Evaluate runs m of class c, calling step before every instruction.
func (e *Evaluator) Evaluate(c *classfile.Class, m *classfile.Method, step Step) error {
	code := m.Code()
	if code == nil {
		return nil
	}
	f, err := entryFrame(c, m)
	if err != nil {
		return err
	}
	pending := map[int]*Frame{}
	lastLocals := f.Locals
	for i := range code.Instructions {
		in := &code.Instructions[i]
		if p, ok := pending[i]; ok {
			if f == nil {
				f = p
			} else {
				f = mergeFrames(f, p)
			}
			delete(pending, i)
		}
		if f == nil {
			f = &Frame{Locals: maps.Clone(lastLocals)}
		}
		if step != nil {
			if err := step(i, in, f); err != nil {
				return err
			}
		}
		if err := e.exec(c.Pool, i, in, f, pending); err != nil {
			return fmt.Errorf("%s.%s%s at %d (%s): %w", c.Name, m.Name, m.Descriptor, i, in.Op, err)
		}
		lastLocals = f.Locals
		if in.Op.EndsBlock() {
			f = nil
		}
	}
	return nil
}

func entryFrame(c *classfile.Class, m *classfile.Method) (*Frame, error) {
	params, _, err := classfile.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return nil, err
	}
	f := &Frame{Locals: map[int]Value{}}
	slot := 0
	if !m.IsStatic() {
		f.Locals[0] = Value{Kind: Instance, Class: c.Name, Producer: -1, Slot: 0}
		slot = 1
	}
	for _, p := range params {
		v := typed(p, -1)
		v.Slot = slot
		f.Locals[slot] = v
		slot += classfile.SlotSize(p)
	}
	return f, nil
}

func mergeFrames(a, b *Frame) *Frame {
	res := &Frame{Locals: map[int]Value{}}
	n := min(len(a.Stack), len(b.Stack))
	for i := 0; i < n; i++ {
		res.Stack = append(res.Stack, merge(a.Stack[len(a.Stack)-n+i], b.Stack[len(b.Stack)-n+i]))
	}
	for slot, v := range a.Locals {
		if w, ok := b.Locals[slot]; ok {
			res.Locals[slot] = merge(v, w)
		}
	}
	return res
}

func (e *Evaluator) branch(pending map[int]*Frame, target int, f *Frame) {
	if p, ok := pending[target]; ok {
		pending[target] = mergeFrames(p, f)
		return
	}
	pending[target] = f.clone()
}

func (e *Evaluator) exec(pool *classfile.ConstantPool, i int, in *classfile.Instruction, f *Frame, pending map[int]*Frame) error {
	op := in.Op
	switch op {
	case classfile.OpNop:
	case classfile.OpAconstNull:
		f.push(Value{Kind: Null, Producer: i, Slot: -1})
	case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2,
		classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5:
		f.push(Value{Kind: IntConst, Int: int64(op) - int64(classfile.OpIconst0), Producer: i, Slot: -1})
	case classfile.OpBipush, classfile.OpSipush:
		f.push(Value{Kind: IntConst, Int: int64(in.Operand), Producer: i, Slot: -1})
	case classfile.OpLconst0, classfile.OpLconst1, classfile.OpFconst0, classfile.OpDconst0:
		f.push(unknown(i))
	case classfile.OpLdc:
		f.push(e.ldc(pool, i, in))
	case classfile.OpIload, classfile.OpLload, classfile.OpFload, classfile.OpDload, classfile.OpAload:
		v, ok := f.Locals[in.Operand]
		if !ok {
			v = unknown(i)
		}
		v.Producer = i
		v.Slot = in.Operand
		f.push(v)
	case classfile.OpIstore, classfile.OpLstore, classfile.OpFstore, classfile.OpDstore, classfile.OpAstore:
		vs, err := f.pop(1)
		if err != nil {
			return err
		}
		f.Locals[in.Operand] = vs[0]
	case classfile.OpIaload, classfile.OpArraylength, classfile.OpInstanceof,
		classfile.OpI2l, classfile.OpF2d, classfile.OpL2i, classfile.OpD2f,
		classfile.OpI2b, classfile.OpI2c, classfile.OpI2s:
		pops, _, _ := classfile.StackEffect(pool, in)
		if _, err := f.pop(pops); err != nil {
			return err
		}
		f.push(unknown(i))
	case classfile.OpAaload:
		vs, err := f.pop(2)
		if err != nil {
			return err
		}
		v := unknown(i)
		if vs[0].Kind == Instance && len(vs[0].Class) > 1 && vs[0].Class[0] == '[' {
			v = typed(vs[0].Class[1:], i)
		}
		f.push(v)
	case classfile.OpIastore:
		vs, err := f.pop(3)
		if err != nil {
			return err
		}
		arr, idx, val := vs[0], vs[1], vs[2]
		if arr.Kind == IntArray && arr.Array != nil {
			if idx.Kind == IntConst && val.Kind == IntConst && idx.Int >= 0 && int(idx.Int) < arr.Array.Len {
				arr.Array.Elems[int(idx.Int)] = val.Int
			} else {
				arr.Array.Opaque = true
			}
		}
	case classfile.OpAastore:
		if _, err := f.pop(3); err != nil {
			return err
		}
	case classfile.OpPop:
		if _, err := f.pop(1); err != nil {
			return err
		}
	case classfile.OpDup:
		vs, err := f.pop(1)
		if err != nil {
			return err
		}
		f.push(vs[0])
		f.push(vs[0])
	case classfile.OpDupX1:
		vs, err := f.pop(2)
		if err != nil {
			return err
		}
		f.push(vs[1])
		f.push(vs[0])
		f.push(vs[1])
	case classfile.OpSwap:
		vs, err := f.pop(2)
		if err != nil {
			return err
		}
		f.push(vs[1])
		f.push(vs[0])
	case classfile.OpIadd, classfile.OpIsub, classfile.OpIor:
		vs, err := f.pop(2)
		if err != nil {
			return err
		}
		v := unknown(i)
		if vs[0].Kind == IntConst && vs[1].Kind == IntConst {
			v.Kind = IntConst
			switch op {
			case classfile.OpIadd:
				v.Int = int64(int32(vs[0].Int + vs[1].Int))
			case classfile.OpIsub:
				v.Int = int64(int32(vs[0].Int - vs[1].Int))
			default:
				v.Int = vs[0].Int | vs[1].Int
			}
		}
		f.push(v)
	case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt,
		classfile.OpIfle, classfile.OpIfnull, classfile.OpIfnonnull:
		if _, err := f.pop(1); err != nil {
			return err
		}
		e.branch(pending, in.Target, f)
	case classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfAcmpeq, classfile.OpIfAcmpne:
		if _, err := f.pop(2); err != nil {
			return err
		}
		e.branch(pending, in.Target, f)
	case classfile.OpGoto:
		e.branch(pending, in.Target, f)
	case classfile.OpLookupswitch:
		if _, err := f.pop(1); err != nil {
			return err
		}
		for _, t := range in.Branches() {
			e.branch(pending, t, f)
		}
	case classfile.OpIreturn, classfile.OpLreturn, classfile.OpFreturn, classfile.OpDreturn,
		classfile.OpAreturn, classfile.OpAthrow:
		if _, err := f.pop(1); err != nil {
			return err
		}
	case classfile.OpReturn:
	case classfile.OpGetstatic, classfile.OpGetfield:
		ref, err := pool.Ref(in.Index)
		if err != nil {
			return err
		}
		if op == classfile.OpGetfield {
			if _, err := f.pop(1); err != nil {
				return err
			}
		}
		f.push(typed(ref.Descriptor, i))
	case classfile.OpPutstatic:
		if _, err := f.pop(1); err != nil {
			return err
		}
	case classfile.OpPutfield:
		if _, err := f.pop(2); err != nil {
			return err
		}
	case classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokestatic, classfile.OpInvokeinterface:
		return e.invoke(pool, i, in, f)
	case classfile.OpNew:
		name, ok := e.Finder.Find(pool, in.Index)
		v := unknown(i)
		if ok {
			v = Value{Kind: Instance, Class: name, Exact: true, Producer: i, Slot: -1}
		}
		f.push(v)
	case classfile.OpNewarray:
		vs, err := f.pop(1)
		if err != nil {
			return err
		}
		v := Value{Kind: Instance, Class: "[?", Producer: i, Slot: -1}
		if in.Operand == classfile.TInt {
			v.Class = "[I"
			if vs[0].Kind == IntConst && vs[0].Int >= 0 {
				v.Kind = IntArray
				v.Array = &Ints{Len: int(vs[0].Int), Elems: map[int]int64{}}
			}
		}
		f.push(v)
	case classfile.OpAnewarray:
		if _, err := f.pop(1); err != nil {
			return err
		}
		v := unknown(i)
		if name, ok := e.Finder.Find(pool, in.Index); ok {
			v = Value{Kind: Instance, Class: "[" + classfile.Descriptor(name), Exact: true, Producer: i, Slot: -1}
		}
		f.push(v)
	case classfile.OpCheckcast:
		vs, err := f.pop(1)
		if err != nil {
			return err
		}
		v := vs[0]
		name, ok := e.Finder.Find(pool, in.Index)
		switch {
		case v.Kind == Null, v.Kind == Instance && v.Exact, !ok:
		default:
			v.Kind = Instance
			v.Class = name
			v.Exact = false
			v.Array = nil
		}
		v.Producer = i
		f.push(v)
	default:
		return fmt.Errorf("%w: evaluator cannot run %s", classfile.ErrBadInstruction, op)
	}
	return nil
}

func (e *Evaluator) ldc(pool *classfile.ConstantPool, i int, in *classfile.Instruction) Value {
	k, err := pool.Get(in.Index)
	if err != nil {
		return unknown(i)
	}
	switch k.Kind {
	case classfile.ConstInteger:
		return Value{Kind: IntConst, Int: k.Int, Producer: i, Slot: -1}
	case classfile.ConstString:
		return Value{Kind: Instance, Class: "java/lang/String", Exact: true, Producer: i, Slot: -1}
	case classfile.ConstClass:
		if name, ok := e.Finder.Find(pool, in.Index); ok {
			if debug.Eval() {
				debug.Logf("eval: ldc class %s at %d", name, i)
			}
			return Value{Kind: ClassLiteral, Class: name, Producer: i, Slot: -1}
		}
	}
	return unknown(i)
}

func (e *Evaluator) invoke(pool *classfile.ConstantPool, i int, in *classfile.Instruction, f *Frame) error {
	ref, err := pool.Ref(in.Index)
	if err != nil {
		return err
	}
	params, ret, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	n := len(params)
	if in.Op != classfile.OpInvokestatic {
		n++
	}
	args, err := f.pop(n)
	if err != nil {
		return err
	}
	if ret == "V" {
		return nil
	}
	v := typed(ret, i)
	v.Call = &ref
	v.Args = args
	f.push(v)
	return nil
}
