package classfile

import (
	"fmt"
	"strings"
)

// ParseMethodDescriptor splits a method descriptor into its parameter
// field descriptors and its return descriptor.
func ParseMethodDescriptor(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("method descriptor %q: missing '('", desc)
	}
	var params []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldTypeLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("method descriptor %q: missing ')'", desc)
	}
	ret := desc[i+1:]
	if ret != "V" {
		n, err := fieldTypeLen(ret)
		if err != nil || n != len(ret) {
			return nil, "", fmt.Errorf("method descriptor %q: bad return type", desc)
		}
	}
	return params, ret, nil
}

func fieldTypeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated type")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		j := strings.IndexByte(s[i:], ';')
		if j < 0 {
			return 0, fmt.Errorf("unterminated class type")
		}
		return i + j + 1, nil
	}
	return 0, fmt.Errorf("bad type character %q", s[i])
}

// IsPrimitive reports whether desc is a primitive field descriptor.
func IsPrimitive(desc string) bool {
	return len(desc) == 1 && strings.IndexByte("BCDFIJSZ", desc[0]) >= 0
}

// IsReference reports whether desc denotes a class or array type.
func IsReference(desc string) bool {
	return strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

// ClassOf returns the internal class name of a class type descriptor.
// Arrays and primitives yield false.
func ClassOf(desc string) (string, bool) {
	if len(desc) < 3 || desc[0] != 'L' || desc[len(desc)-1] != ';' {
		return "", false
	}
	return desc[1 : len(desc)-1], true
}

// ElementClassOf returns the class name of a class type or of the
// innermost element of an array type.
func ElementClassOf(desc string) (string, bool) {
	return ClassOf(strings.TrimLeft(desc, "["))
}

// Descriptor returns the field descriptor of an internal class name.
// Array names, which are descriptors already, are returned unchanged.
func Descriptor(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "L" + name + ";"
}

// LoadOp returns the load opcode for values of the field descriptor desc.
func LoadOp(desc string) Opcode {
	switch desc {
	case "J":
		return OpLload
	case "F":
		return OpFload
	case "D":
		return OpDload
	case "B", "C", "I", "S", "Z":
		return OpIload
	}
	return OpAload
}

// ReturnOp returns the return opcode for the descriptor desc.
func ReturnOp(desc string) Opcode {
	switch desc {
	case "V":
		return OpReturn
	case "J":
		return OpLreturn
	case "F":
		return OpFreturn
	case "D":
		return OpDreturn
	case "B", "C", "I", "S", "Z":
		return OpIreturn
	}
	return OpAreturn
}

// SlotSize returns the number of local variable slots a value of type desc
// occupies.
func SlotSize(desc string) int {
	if desc == "J" || desc == "D" {
		return 2
	}
	return 1
}

// ParamSlots returns the local variable slots used by the parameters of a
// method, including the receiver of instance methods.
func ParamSlots(desc string, static bool) (int, error) {
	params, _, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	n := 0
	if !static {
		n = 1
	}
	for _, p := range params {
		n += SlotSize(p)
	}
	return n, nil
}
