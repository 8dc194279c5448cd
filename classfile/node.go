package classfile

import (
	"errors"
	"fmt"
)

// ErrWrongNodeKind is returned when a node of one kind is handed to code
// that only accepts another.
var ErrWrongNodeKind = errors.New("wrong node kind")

// Kind identifies the kind of a model node.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindField
	KindMethod
	KindAttribute
	KindInstruction
	KindConstant
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindAttribute:
		return "attribute"
	case KindInstruction:
		return "instruction"
	case KindConstant:
		return "constant"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is any element of the class model.
type Node interface {
	NodeKind() Kind
}

// RequireClass returns n as a class, or ErrWrongNodeKind.
func RequireClass(n Node) (*Class, error) {
	c, ok := n.(*Class)
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrWrongNodeKind, KindClass, kindOf(n))
	}
	return c, nil
}

// RequireField returns n as a field, or ErrWrongNodeKind.
func RequireField(n Node) (*Field, error) {
	f, ok := n.(*Field)
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrWrongNodeKind, KindField, kindOf(n))
	}
	return f, nil
}

func kindOf(n Node) string {
	if n == nil {
		return "nil"
	}
	return n.NodeKind().String()
}

// ClassVisitor is called once per visited class.
type ClassVisitor interface {
	VisitClass(c *Class) error
}

// FieldVisitor is called for each field of a visited class.
type FieldVisitor interface {
	VisitField(c *Class, f *Field) error
}

// MethodVisitor is called for each method of a visited class.
type MethodVisitor interface {
	VisitMethod(c *Class, m *Method) error
}

// AttributeVisitor is called for each attribute of a class, field or
// method. owner is the node carrying the attribute.
type AttributeVisitor interface {
	VisitAttribute(c *Class, owner Node, a Attribute) error
}

// InstructionVisitor is called for each instruction of each method body.
type InstructionVisitor interface {
	VisitInstruction(c *Class, m *Method, offset int, in *Instruction) error
}

// ConstantVisitor is called for constant pool entries.
type ConstantVisitor interface {
	VisitConstant(p *ConstantPool, index uint16, k *Constant) error
}

// Walk traverses c, calling the capabilities v implements: the class
// first, then fields with their attributes, methods with their attributes
// and instructions, and finally the class attributes.
func Walk(c *Class, v any) error {
	if c == nil {
		return fmt.Errorf("%w: want %s, got nil", ErrWrongNodeKind, KindClass)
	}
	cv, _ := v.(ClassVisitor)
	fv, _ := v.(FieldVisitor)
	mv, _ := v.(MethodVisitor)
	av, _ := v.(AttributeVisitor)
	iv, _ := v.(InstructionVisitor)

	if cv != nil {
		if err := cv.VisitClass(c); err != nil {
			return err
		}
	}
	if fv != nil || av != nil {
		for _, f := range c.Fields {
			if fv != nil {
				if err := fv.VisitField(c, f); err != nil {
					return err
				}
			}
			if av != nil {
				for _, a := range f.Attributes {
					if err := av.VisitAttribute(c, f, a); err != nil {
						return err
					}
				}
			}
		}
	}
	if mv != nil || av != nil || iv != nil {
		for _, m := range c.Methods {
			if mv != nil {
				if err := mv.VisitMethod(c, m); err != nil {
					return err
				}
			}
			if av != nil {
				for _, a := range m.Attributes {
					if err := av.VisitAttribute(c, m, a); err != nil {
						return err
					}
				}
			}
			if iv != nil {
				code := m.Code()
				if code == nil {
					continue
				}
				for i := range code.Instructions {
					if err := iv.VisitInstruction(c, m, i, &code.Instructions[i]); err != nil {
						return err
					}
				}
			}
		}
	}
	if av != nil {
		for _, a := range c.Attributes {
			if err := av.VisitAttribute(c, c, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// WalkPool walks every class of p in order.
func WalkPool(p *ClassPool, v any) error {
	for _, c := range p.Classes() {
		if err := Walk(c, v); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}
