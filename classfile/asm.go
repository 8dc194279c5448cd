package classfile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var newarrayTypes = map[string]int{
	"boolean": TBoolean,
	"char":    TChar,
	"float":   TFloat,
	"double":  TDouble,
	"byte":    TByte,
	"short":   TShort,
	"int":     TInt,
	"long":    TLong,
}

// Assemble parses one instruction per line, adding the constants it
// refers to to pool. Empty lines and lines starting with '#' are ignored;
// a line "name:" places a label.
func Assemble(pool *ConstantPool, text string) ([]Instruction, error) {
	c := NewComposer(pool)
	labels := map[string]Label{}
	label := func(name string) Label {
		l, ok := labels[name]
		if !ok {
			l = c.NewLabel()
			labels[name] = l
		}
		return l
	}
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isLabelLine(line) {
			c.Mark(label(strings.TrimSuffix(line, ":")))
			continue
		}
		if err := assembleLine(c, line, label); err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", n+1, line, err)
		}
	}
	return c.Instructions()
}

func isLabelLine(line string) bool {
	if !strings.HasSuffix(line, ":") || len(line) < 2 {
		return false
	}
	for i, r := range line[:len(line)-1] {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func assembleLine(c *Composer, line string, label func(string) Label) error {
	mnemonic, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	op, ok := opByName[mnemonic]
	if !ok {
		return fmt.Errorf("%w: unknown mnemonic %q", ErrBadInstruction, mnemonic)
	}
	switch op.Operand() {
	case OperandNone:
		if rest != "" {
			return fmt.Errorf("%w: %s takes no operand", ErrBadInstruction, op)
		}
		c.Op(op)
	case OperandLocal:
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("%w: bad local %q", ErrBadInstruction, rest)
		}
		c.Local(op, v)
	case OperandImmediate:
		v, ok := newarrayTypes[rest]
		if !ok || op != OpNewarray {
			var err error
			v, err = strconv.Atoi(rest)
			if err != nil {
				return fmt.Errorf("%w: bad immediate %q", ErrBadInstruction, rest)
			}
		}
		c.emit(Instruction{Op: op, Operand: v})
	case OperandBranch:
		if !isLabelLine(rest + ":") {
			return fmt.Errorf("%w: bad label %q", ErrBadInstruction, rest)
		}
		c.Branch(op, label(rest))
	case OperandSwitch:
		var keys []int32
		var targets []Label
		dflt := Label(-1)
		for _, f := range strings.Fields(rest) {
			k, l, ok := strings.Cut(f, ":")
			if !ok {
				return fmt.Errorf("%w: bad switch case %q", ErrBadInstruction, f)
			}
			if k == "default" {
				dflt = label(l)
				continue
			}
			v, err := strconv.ParseInt(k, 10, 32)
			if err != nil {
				return fmt.Errorf("%w: bad switch key %q", ErrBadInstruction, k)
			}
			keys = append(keys, int32(v))
			targets = append(targets, label(l))
		}
		if dflt < 0 {
			return fmt.Errorf("%w: switch without default", ErrBadInstruction)
		}
		c.Switch(keys, targets, dflt)
	case OperandConstant:
		return assembleConstant(c, op, rest)
	}
	return nil
}

func assembleConstant(c *Composer, op Opcode, rest string) error {
	pool := c.pool
	switch op {
	case OpLdc:
		idx, err := parseLdc(pool, rest)
		if err != nil {
			return err
		}
		c.emit(Instruction{Op: op, Index: idx})
	case OpNew, OpCheckcast, OpAnewarray, OpInstanceof:
		if rest == "" || strings.ContainsAny(rest, " .") {
			return fmt.Errorf("%w: bad class name %q", ErrBadInstruction, rest)
		}
		c.Type(op, rest)
	case OpGetfield, OpPutfield, OpGetstatic, OpPutstatic:
		ref, err := ParseMemberRef(rest)
		if err != nil || ref.Kind != ConstFieldRef {
			return fmt.Errorf("%w: bad field reference %q", ErrBadInstruction, rest)
		}
		c.Field(op, ref.Class, ref.Name, ref.Descriptor)
	default:
		ref, err := ParseMemberRef(rest)
		if err != nil || ref.Kind == ConstFieldRef {
			return fmt.Errorf("%w: bad method reference %q", ErrBadInstruction, rest)
		}
		c.Invoke(op, ref.Class, ref.Name, ref.Descriptor)
	}
	return nil
}

func parseLdc(pool *ConstantPool, s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, `"`):
		v, err := strconv.Unquote(s)
		if err != nil {
			return 0, fmt.Errorf("%w: bad string %s", ErrBadInstruction, s)
		}
		return pool.AddString(v), nil
	case strings.HasPrefix(s, "class "):
		return pool.AddClass(strings.TrimSpace(strings.TrimPrefix(s, "class "))), nil
	case strings.HasSuffix(s, "L"):
		v, err := strconv.ParseInt(strings.TrimSuffix(s, "L"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad long %s", ErrBadInstruction, s)
		}
		return pool.AddLong(v), nil
	case strings.HasSuffix(s, "D"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "D"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad double %s", ErrBadInstruction, s)
		}
		return pool.AddDouble(v), nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad ldc operand %s", ErrBadInstruction, s)
	}
	return pool.AddInteger(int32(v)), nil
}

// ParseMemberRef parses "class.name:desc" as a field reference and
// "class.name(params)ret" as a method reference.
func ParseMemberRef(s string) (MemberRef, error) {
	if p := strings.IndexByte(s, '('); p >= 0 {
		dot := strings.LastIndexByte(s[:p], '.')
		if dot <= 0 || dot == p-1 {
			return MemberRef{}, fmt.Errorf("%w: bad method reference %q", ErrBadInstruction, s)
		}
		desc := s[p:]
		if _, _, err := ParseMethodDescriptor(desc); err != nil {
			return MemberRef{}, fmt.Errorf("%w: %w", ErrBadInstruction, err)
		}
		return MemberRef{Kind: ConstMethodRef, Class: s[:dot], Name: s[dot+1 : p], Descriptor: desc}, nil
	}
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return MemberRef{}, fmt.Errorf("%w: bad member reference %q", ErrBadInstruction, s)
	}
	dot := strings.LastIndexByte(s[:colon], '.')
	if dot <= 0 || dot == colon-1 || colon == len(s)-1 {
		return MemberRef{}, fmt.Errorf("%w: bad field reference %q", ErrBadInstruction, s)
	}
	return MemberRef{Kind: ConstFieldRef, Class: s[:dot], Name: s[dot+1 : colon], Descriptor: s[colon+1:]}, nil
}

// Disassemble renders code in the syntax Assemble reads. Branch targets
// are labeled L<index>.
func Disassemble(pool *ConstantPool, code []Instruction) string {
	targets := map[int]bool{}
	for i := range code {
		for _, t := range code[i].Branches() {
			targets[t] = true
		}
	}
	var b strings.Builder
	for i := range code {
		if targets[i] {
			fmt.Fprintf(&b, "L%d:\n", i)
		}
		b.WriteString(FormatInstruction(pool, &code[i]))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatInstruction renders a single instruction.
func FormatInstruction(pool *ConstantPool, in *Instruction) string {
	switch in.Op.Operand() {
	case OperandLocal, OperandImmediate:
		if in.Op == OpNewarray {
			for n, v := range newarrayTypes {
				if v == in.Operand {
					return "newarray " + n
				}
			}
		}
		return fmt.Sprintf("%s %d", in.Op, in.Operand)
	case OperandBranch:
		return fmt.Sprintf("%s L%d", in.Op, in.Target)
	case OperandSwitch:
		parts := []string{in.Op.String()}
		cases := make([]int, len(in.Keys))
		for i := range cases {
			cases[i] = i
		}
		sort.Slice(cases, func(a, b int) bool { return in.Keys[cases[a]] < in.Keys[cases[b]] })
		for _, i := range cases {
			parts = append(parts, fmt.Sprintf("%d:L%d", in.Keys[i], in.Targets[i]))
		}
		parts = append(parts, fmt.Sprintf("default:L%d", in.Target))
		return strings.Join(parts, " ")
	case OperandConstant:
		k, err := pool.Get(in.Index)
		if err == nil && k.Kind == ConstClass && in.Op != OpLdc {
			name, _ := pool.ClassName(in.Index)
			return in.Op.String() + " " + name
		}
		return in.Op.String() + " " + pool.Format(in.Index)
	}
	return in.Op.String()
}
