package classfile

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Label marks a position in a Composer's output.
type Label int

// Composer builds an instruction sequence by appending. Branches refer to
// labels that are resolved to instruction indices by Instructions.
// Constants are added to the pool as instructions are emitted.
type Composer struct {
	pool   *ConstantPool
	code   []Instruction
	labels []int
	// labeled holds the indices of instructions whose targets are labels.
	labeled map[int]bool
	err     error
}

// NewComposer returns a composer adding constants to pool.
func NewComposer(pool *ConstantPool) *Composer {
	return &Composer{pool: pool, labeled: map[int]bool{}}
}

// Pool returns the constant pool the composer emits against.
func (c *Composer) Pool() *ConstantPool {
	return c.pool
}

// Len returns the number of instructions emitted so far.
func (c *Composer) Len() int {
	return len(c.code)
}

// NewLabel allocates an unplaced label.
func (c *Composer) NewLabel() Label {
	c.labels = append(c.labels, -1)
	return Label(len(c.labels) - 1)
}

// Mark places l at the next instruction.
func (c *Composer) Mark(l Label) *Composer {
	if c.labels[l] >= 0 {
		c.fail(fmt.Errorf("%w: label %d placed twice", ErrBadInstruction, l))
		return c
	}
	c.labels[l] = len(c.code)
	return c
}

func (c *Composer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Composer) emit(in Instruction) *Composer {
	c.code = append(c.code, in)
	return c
}

// Op emits an instruction without operands.
func (c *Composer) Op(op Opcode) *Composer {
	if op.Operand() != OperandNone {
		c.fail(fmt.Errorf("%w: %s needs an operand", ErrBadInstruction, op))
	}
	return c.emit(Instruction{Op: op})
}

// Ops emits instructions without operands.
func (c *Composer) Ops(ops ...Opcode) *Composer {
	for _, op := range ops {
		c.Op(op)
	}
	return c
}

// Local emits a load or store of a local variable slot.
func (c *Composer) Local(op Opcode, slot int) *Composer {
	if op.Operand() != OperandLocal {
		c.fail(fmt.Errorf("%w: %s takes no local", ErrBadInstruction, op))
	}
	return c.emit(Instruction{Op: op, Operand: slot})
}

// Int pushes an int constant using the shortest instruction.
func (c *Composer) Int(v int) *Composer {
	switch {
	case v >= -1 && v <= 5:
		return c.emit(Instruction{Op: Opcode(int(OpIconst0) + v)})
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return c.emit(Instruction{Op: OpBipush, Operand: v})
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return c.emit(Instruction{Op: OpSipush, Operand: v})
	}
	return c.emit(Instruction{Op: OpLdc, Index: c.pool.AddInteger(int32(v))})
}

// String pushes a string constant.
func (c *Composer) String(s string) *Composer {
	return c.emit(Instruction{Op: OpLdc, Index: c.pool.AddString(s)})
}

// ClassLiteral pushes the java.lang.Class of an internal name.
func (c *Composer) ClassLiteral(name string) *Composer {
	return c.emit(Instruction{Op: OpLdc, Index: c.pool.AddClass(name)})
}

// Type emits new, checkcast, anewarray or instanceof of a class.
func (c *Composer) Type(op Opcode, class string) *Composer {
	switch op {
	case OpNew, OpCheckcast, OpAnewarray, OpInstanceof:
	default:
		c.fail(fmt.Errorf("%w: %s takes no class", ErrBadInstruction, op))
	}
	return c.emit(Instruction{Op: op, Index: c.pool.AddClass(class)})
}

// Field emits a field access.
func (c *Composer) Field(op Opcode, class, name, desc string) *Composer {
	switch op {
	case OpGetfield, OpPutfield, OpGetstatic, OpPutstatic:
	default:
		c.fail(fmt.Errorf("%w: %s is no field access", ErrBadInstruction, op))
	}
	return c.emit(Instruction{Op: op, Index: c.pool.AddFieldRef(class, name, desc)})
}

// Invoke emits a method call. invokeinterface refers to an interface
// method reference.
func (c *Composer) Invoke(op Opcode, class, name, desc string) *Composer {
	if !op.IsInvoke() {
		c.fail(fmt.Errorf("%w: %s is no invocation", ErrBadInstruction, op))
	}
	idx := c.pool.AddMethodRef(class, name, desc)
	if op == OpInvokeinterface {
		idx = c.pool.AddInterfaceMethodRef(class, name, desc)
	}
	return c.emit(Instruction{Op: op, Index: idx})
}

// Branch emits a branch to l.
func (c *Composer) Branch(op Opcode, l Label) *Composer {
	if op.Operand() != OperandBranch {
		c.fail(fmt.Errorf("%w: %s is no branch", ErrBadInstruction, op))
	}
	c.labeled[len(c.code)] = true
	return c.emit(Instruction{Op: op, Target: int(l)})
}

// Switch emits a lookupswitch. keys need not be sorted.
func (c *Composer) Switch(keys []int32, targets []Label, dflt Label) *Composer {
	if len(keys) != len(targets) {
		c.fail(fmt.Errorf("%w: %d switch keys, %d targets", ErrBadInstruction, len(keys), len(targets)))
		return c
	}
	in := Instruction{Op: OpLookupswitch, Target: int(dflt)}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(keys[a], keys[b]) })
	for _, i := range order {
		in.Keys = append(in.Keys, keys[i])
		in.Targets = append(in.Targets, int(targets[i]))
	}
	c.labeled[len(c.code)] = true
	return c.emit(in)
}

// Append emits a previously composed sequence whose branch targets are
// relative to its own start.
func (c *Composer) Append(seq []Instruction) *Composer {
	base := len(c.code)
	for _, in := range seq {
		in = in.Clone()
		in.retarget(func(t int) int { return t + base })
		c.code = append(c.code, in)
	}
	return c
}

// Instructions resolves labels and returns the sequence. Appended
// sequences are already absolute; label-based branches are mapped here.
func (c *Composer) Instructions() ([]Instruction, error) {
	if c.err != nil {
		return nil, c.err
	}
	res := make([]Instruction, len(c.code))
	for i, in := range c.code {
		res[i] = in.Clone()
	}
	var err error
	for i := range res {
		if !c.labeled[i] {
			continue
		}
		res[i].retarget(func(l int) int {
			if l < 0 || l >= len(c.labels) {
				err = fmt.Errorf("%w: unknown label %d", ErrBadInstruction, l)
				return 0
			}
			t := c.labels[l]
			if t < 0 {
				err = fmt.Errorf("%w: label %d never placed", ErrBadInstruction, l)
			} else if t >= len(res) {
				err = fmt.Errorf("%w: label %d placed after the last instruction", ErrBadInstruction, l)
			}
			return t
		})
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
