package classfile

import (
	"errors"
	"fmt"
)

// ErrBadInstruction is returned for malformed instructions and assembler
// input.
var ErrBadInstruction = errors.New("bad instruction")

// Opcode is a JVM opcode. Only the subset the optimizer reads or emits is
// modeled.
type Opcode uint8

const (
	OpNop             Opcode = 0x00
	OpAconstNull      Opcode = 0x01
	OpIconstM1        Opcode = 0x02
	OpIconst0         Opcode = 0x03
	OpIconst1         Opcode = 0x04
	OpIconst2         Opcode = 0x05
	OpIconst3         Opcode = 0x06
	OpIconst4         Opcode = 0x07
	OpIconst5         Opcode = 0x08
	OpLconst0         Opcode = 0x09
	OpLconst1         Opcode = 0x0a
	OpFconst0         Opcode = 0x0b
	OpDconst0         Opcode = 0x0e
	OpBipush          Opcode = 0x10
	OpSipush          Opcode = 0x11
	OpLdc             Opcode = 0x12
	OpIload           Opcode = 0x15
	OpLload           Opcode = 0x16
	OpFload           Opcode = 0x17
	OpDload           Opcode = 0x18
	OpAload           Opcode = 0x19
	OpIaload          Opcode = 0x2e
	OpAaload          Opcode = 0x32
	OpIstore          Opcode = 0x36
	OpLstore          Opcode = 0x37
	OpFstore          Opcode = 0x38
	OpDstore          Opcode = 0x39
	OpAstore          Opcode = 0x3a
	OpIastore         Opcode = 0x4f
	OpAastore         Opcode = 0x53
	OpPop             Opcode = 0x57
	OpDup             Opcode = 0x59
	OpDupX1           Opcode = 0x5a
	OpSwap            Opcode = 0x5f
	OpIadd            Opcode = 0x60
	OpIsub            Opcode = 0x64
	OpIor             Opcode = 0x80
	OpI2l             Opcode = 0x85
	OpF2d             Opcode = 0x8d
	OpL2i             Opcode = 0x88
	OpD2f             Opcode = 0x90
	OpI2b             Opcode = 0x91
	OpI2c             Opcode = 0x92
	OpI2s             Opcode = 0x93
	OpIfeq            Opcode = 0x99
	OpIfne            Opcode = 0x9a
	OpIflt            Opcode = 0x9b
	OpIfge            Opcode = 0x9c
	OpIfgt            Opcode = 0x9d
	OpIfle            Opcode = 0x9e
	OpIfIcmpeq        Opcode = 0x9f
	OpIfIcmpne        Opcode = 0xa0
	OpIfAcmpeq        Opcode = 0xa5
	OpIfAcmpne        Opcode = 0xa6
	OpGoto            Opcode = 0xa7
	OpLookupswitch    Opcode = 0xab
	OpIreturn         Opcode = 0xac
	OpLreturn         Opcode = 0xad
	OpFreturn         Opcode = 0xae
	OpDreturn         Opcode = 0xaf
	OpAreturn         Opcode = 0xb0
	OpReturn          Opcode = 0xb1
	OpGetstatic       Opcode = 0xb2
	OpPutstatic       Opcode = 0xb3
	OpGetfield        Opcode = 0xb4
	OpPutfield        Opcode = 0xb5
	OpInvokevirtual   Opcode = 0xb6
	OpInvokespecial   Opcode = 0xb7
	OpInvokestatic    Opcode = 0xb8
	OpInvokeinterface Opcode = 0xb9
	OpNew             Opcode = 0xbb
	OpNewarray        Opcode = 0xbc
	OpAnewarray       Opcode = 0xbd
	OpArraylength     Opcode = 0xbe
	OpAthrow          Opcode = 0xbf
	OpCheckcast       Opcode = 0xc0
	OpInstanceof      Opcode = 0xc1
	OpIfnull          Opcode = 0xc6
	OpIfnonnull       Opcode = 0xc7
)

// OperandKind says what an opcode's operand is.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	// OperandConstant operands live in Index.
	OperandConstant
	// OperandLocal operands are local variable slots in Operand.
	OperandLocal
	// OperandImmediate operands are values in Operand.
	OperandImmediate
	// OperandBranch operands are instruction indices in Target.
	OperandBranch
	// OperandSwitch operands are Keys, Targets and Target as default.
	OperandSwitch
)

type opInfo struct {
	name    string
	operand OperandKind
	// pops and pushes count stack entries; -1 means it depends on the
	// referenced member.
	pops, pushes int
}

var opTable = map[Opcode]opInfo{
	OpNop:             {"nop", OperandNone, 0, 0},
	OpAconstNull:      {"aconst_null", OperandNone, 0, 1},
	OpIconstM1:        {"iconst_m1", OperandNone, 0, 1},
	OpIconst0:         {"iconst_0", OperandNone, 0, 1},
	OpIconst1:         {"iconst_1", OperandNone, 0, 1},
	OpIconst2:         {"iconst_2", OperandNone, 0, 1},
	OpIconst3:         {"iconst_3", OperandNone, 0, 1},
	OpIconst4:         {"iconst_4", OperandNone, 0, 1},
	OpIconst5:         {"iconst_5", OperandNone, 0, 1},
	OpLconst0:         {"lconst_0", OperandNone, 0, 1},
	OpLconst1:         {"lconst_1", OperandNone, 0, 1},
	OpFconst0:         {"fconst_0", OperandNone, 0, 1},
	OpDconst0:         {"dconst_0", OperandNone, 0, 1},
	OpBipush:          {"bipush", OperandImmediate, 0, 1},
	OpSipush:          {"sipush", OperandImmediate, 0, 1},
	OpLdc:             {"ldc", OperandConstant, 0, 1},
	OpIload:           {"iload", OperandLocal, 0, 1},
	OpLload:           {"lload", OperandLocal, 0, 1},
	OpFload:           {"fload", OperandLocal, 0, 1},
	OpDload:           {"dload", OperandLocal, 0, 1},
	OpAload:           {"aload", OperandLocal, 0, 1},
	OpIaload:          {"iaload", OperandNone, 2, 1},
	OpAaload:          {"aaload", OperandNone, 2, 1},
	OpIstore:          {"istore", OperandLocal, 1, 0},
	OpLstore:          {"lstore", OperandLocal, 1, 0},
	OpFstore:          {"fstore", OperandLocal, 1, 0},
	OpDstore:          {"dstore", OperandLocal, 1, 0},
	OpAstore:          {"astore", OperandLocal, 1, 0},
	OpIastore:         {"iastore", OperandNone, 3, 0},
	OpAastore:         {"aastore", OperandNone, 3, 0},
	OpPop:             {"pop", OperandNone, 1, 0},
	OpDup:             {"dup", OperandNone, 1, 2},
	OpDupX1:           {"dup_x1", OperandNone, 2, 3},
	OpSwap:            {"swap", OperandNone, 2, 2},
	OpIadd:            {"iadd", OperandNone, 2, 1},
	OpIsub:            {"isub", OperandNone, 2, 1},
	OpIor:             {"ior", OperandNone, 2, 1},
	OpI2l:             {"i2l", OperandNone, 1, 1},
	OpF2d:             {"f2d", OperandNone, 1, 1},
	OpL2i:             {"l2i", OperandNone, 1, 1},
	OpD2f:             {"d2f", OperandNone, 1, 1},
	OpI2b:             {"i2b", OperandNone, 1, 1},
	OpI2c:             {"i2c", OperandNone, 1, 1},
	OpI2s:             {"i2s", OperandNone, 1, 1},
	OpIfeq:            {"ifeq", OperandBranch, 1, 0},
	OpIfne:            {"ifne", OperandBranch, 1, 0},
	OpIflt:            {"iflt", OperandBranch, 1, 0},
	OpIfge:            {"ifge", OperandBranch, 1, 0},
	OpIfgt:            {"ifgt", OperandBranch, 1, 0},
	OpIfle:            {"ifle", OperandBranch, 1, 0},
	OpIfIcmpeq:        {"if_icmpeq", OperandBranch, 2, 0},
	OpIfIcmpne:        {"if_icmpne", OperandBranch, 2, 0},
	OpIfAcmpeq:        {"if_acmpeq", OperandBranch, 2, 0},
	OpIfAcmpne:        {"if_acmpne", OperandBranch, 2, 0},
	OpGoto:            {"goto", OperandBranch, 0, 0},
	OpLookupswitch:    {"lookupswitch", OperandSwitch, 1, 0},
	OpIreturn:         {"ireturn", OperandNone, 1, 0},
	OpLreturn:         {"lreturn", OperandNone, 1, 0},
	OpFreturn:         {"freturn", OperandNone, 1, 0},
	OpDreturn:         {"dreturn", OperandNone, 1, 0},
	OpAreturn:         {"areturn", OperandNone, 1, 0},
	OpReturn:          {"return", OperandNone, 0, 0},
	OpGetstatic:       {"getstatic", OperandConstant, 0, 1},
	OpPutstatic:       {"putstatic", OperandConstant, 1, 0},
	OpGetfield:        {"getfield", OperandConstant, 1, 1},
	OpPutfield:        {"putfield", OperandConstant, 2, 0},
	OpInvokevirtual:   {"invokevirtual", OperandConstant, -1, -1},
	OpInvokespecial:   {"invokespecial", OperandConstant, -1, -1},
	OpInvokestatic:    {"invokestatic", OperandConstant, -1, -1},
	OpInvokeinterface: {"invokeinterface", OperandConstant, -1, -1},
	OpNew:             {"new", OperandConstant, 0, 1},
	OpNewarray:        {"newarray", OperandImmediate, 1, 1},
	OpAnewarray:       {"anewarray", OperandConstant, 1, 1},
	OpArraylength:     {"arraylength", OperandNone, 1, 1},
	OpAthrow:          {"athrow", OperandNone, 1, 0},
	OpCheckcast:       {"checkcast", OperandConstant, 1, 1},
	OpInstanceof:      {"instanceof", OperandConstant, 1, 1},
	OpIfnull:          {"ifnull", OperandBranch, 1, 0},
	OpIfnonnull:       {"ifnonnull", OperandBranch, 1, 0},
}

var opByName = func() map[string]Opcode {
	res := make(map[string]Opcode, len(opTable))
	for op, info := range opTable {
		res[info.name] = op
	}
	return res
}()

func (op Opcode) String() string {
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op(0x%02x)", uint8(op))
}

// Operand returns the operand kind of op.
func (op Opcode) Operand() OperandKind {
	return opTable[op].operand
}

// Valid reports whether op is part of the modeled subset.
func (op Opcode) Valid() bool {
	_, ok := opTable[op]
	return ok
}

// IsInvoke reports whether op is a method invocation.
func (op Opcode) IsInvoke() bool {
	switch op {
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		return true
	}
	return false
}

// IsReturn reports whether op returns from the method.
func (op Opcode) IsReturn() bool {
	switch op {
	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn:
		return true
	}
	return false
}

// EndsBlock reports whether control never falls through op.
func (op Opcode) EndsBlock() bool {
	return op == OpGoto || op == OpLookupswitch || op == OpAthrow || op.IsReturn()
}

// Newarray element type codes.
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

// Instruction is a single instruction. Branch targets are instruction
// indices within the same body.
type Instruction struct {
	Op Opcode

	// Index is the constant pool operand.
	Index uint16

	// Operand is a local variable slot or an immediate value.
	Operand int

	// Target is the branch target, or the default target of a switch.
	Target int

	Keys    []int32
	Targets []int
}

// NodeKind implements Node.
func (in *Instruction) NodeKind() Kind { return KindInstruction }

// Clone returns a deep copy of in.
func (in Instruction) Clone() Instruction {
	res := in
	if in.Keys != nil {
		res.Keys = append([]int32(nil), in.Keys...)
	}
	if in.Targets != nil {
		res.Targets = append([]int(nil), in.Targets...)
	}
	return res
}

// Branches returns every branch target of in.
func (in *Instruction) Branches() []int {
	switch in.Op.Operand() {
	case OperandBranch:
		return []int{in.Target}
	case OperandSwitch:
		res := append([]int(nil), in.Targets...)
		return append(res, in.Target)
	}
	return nil
}

func (in *Instruction) retarget(f func(int) int) {
	switch in.Op.Operand() {
	case OperandBranch:
		in.Target = f(in.Target)
	case OperandSwitch:
		in.Target = f(in.Target)
		for i := range in.Targets {
			in.Targets[i] = f(in.Targets[i])
		}
	}
}

// StackEffect returns how many stack entries in pops and pushes. Long and
// double values count as one entry.
func StackEffect(p *ConstantPool, in *Instruction) (pops, pushes int, err error) {
	info, ok := opTable[in.Op]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown opcode %s", ErrBadInstruction, in.Op)
	}
	if info.pops >= 0 {
		return info.pops, info.pushes, nil
	}
	ref, err := p.Ref(in.Index)
	if err != nil {
		return 0, 0, err
	}
	params, ret, err := ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return 0, 0, err
	}
	pops = len(params)
	if in.Op != OpInvokestatic {
		pops++
	}
	if ret != "V" {
		pushes = 1
	}
	return pops, pushes, nil
}

// MaxStack computes the maximum operand stack depth of code.
func MaxStack(p *ConstantPool, code []Instruction) (int, error) {
	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}
	maxDepth := 0
	work := []int{0}
	if len(code) == 0 {
		return 0, nil
	}
	depth[0] = 0
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		in := &code[i]
		pops, pushes, err := StackEffect(p, in)
		if err != nil {
			return 0, fmt.Errorf("instruction %d: %w", i, err)
		}
		d := depth[i] - pops
		if d < 0 {
			return 0, fmt.Errorf("%w: stack underflow at %d (%s)", ErrBadInstruction, i, in.Op)
		}
		d += pushes
		if d > maxDepth {
			maxDepth = d
		}
		next := in.Branches()
		if !in.Op.EndsBlock() {
			next = append(next, i+1)
		}
		for _, j := range next {
			if j < 0 || j >= len(code) {
				if j == len(code) && !in.Op.EndsBlock() {
					return 0, fmt.Errorf("%w: control falls off the end after %d", ErrBadInstruction, i)
				}
				return 0, fmt.Errorf("%w: branch target %d out of range at %d", ErrBadInstruction, j, i)
			}
			if depth[j] < 0 {
				depth[j] = d
				work = append(work, j)
			}
		}
	}
	return maxDepth, nil
}
