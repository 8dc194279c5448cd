package classfile

import (
	"fmt"
	"strings"
)

// TypeSig is a parsed generic type signature.
type TypeSig struct {
	// Prim is the primitive descriptor character, or 0.
	Prim byte

	// Class is the internal name of a class type. Nested class types
	// (Outer<..>.Inner) are joined with '$'.
	Class string

	// Var is the name of a type variable.
	Var string

	// Array is the element type of an array type.
	Array *TypeSig

	// Args are the type arguments of a class type; a nil entry stands for
	// the unbounded wildcard.
	Args []*TypeSig

	// Wildcard is '+' or '-' for bounded wildcard arguments.
	Wildcard byte
}

// ClassNames returns every class named in t, outermost first.
func (t *TypeSig) ClassNames() []string {
	var res []string
	t.collect(&res)
	return res
}

func (t *TypeSig) collect(res *[]string) {
	if t == nil {
		return
	}
	if t.Class != "" {
		*res = append(*res, t.Class)
	}
	t.Array.collect(res)
	for _, a := range t.Args {
		a.collect(res)
	}
}

// Raw returns the erased field descriptor of t.
func (t *TypeSig) Raw() string {
	switch {
	case t.Prim != 0:
		return string(t.Prim)
	case t.Array != nil:
		return "[" + t.Array.Raw()
	case t.Var != "":
		return "Ljava/lang/Object;"
	}
	return "L" + t.Class + ";"
}

// IsGeneric reports whether t mentions type arguments or type variables.
func (t *TypeSig) IsGeneric() bool {
	if t == nil {
		return false
	}
	if t.Var != "" || len(t.Args) > 0 {
		return true
	}
	return t.Array.IsGeneric()
}

// HasTypeVar reports whether t mentions a type variable.
func (t *TypeSig) HasTypeVar() bool {
	if t == nil {
		return false
	}
	if t.Var != "" {
		return true
	}
	for _, a := range t.Args {
		if a.HasTypeVar() {
			return true
		}
	}
	return t.Array.HasTypeVar()
}

// ParseTypeSignature parses a field type signature.
func ParseTypeSignature(sig string) (*TypeSig, error) {
	p := &sigParser{s: sig}
	t, err := p.typeSig()
	if err != nil {
		return nil, fmt.Errorf("signature %q: %w", sig, err)
	}
	if p.i != len(sig) {
		return nil, fmt.Errorf("signature %q: trailing data at %d", sig, p.i)
	}
	return t, nil
}

// ParseClassSignature parses a class signature into its superclass and
// interface types. Formal type parameters are skipped.
func ParseClassSignature(sig string) (*TypeSig, []*TypeSig, error) {
	p := &sigParser{s: sig}
	if err := p.skipFormals(); err != nil {
		return nil, nil, fmt.Errorf("class signature %q: %w", sig, err)
	}
	super, err := p.typeSig()
	if err != nil {
		return nil, nil, fmt.Errorf("class signature %q: %w", sig, err)
	}
	var ifaces []*TypeSig
	for p.i < len(sig) {
		t, err := p.typeSig()
		if err != nil {
			return nil, nil, fmt.Errorf("class signature %q: %w", sig, err)
		}
		ifaces = append(ifaces, t)
	}
	return super, ifaces, nil
}

type sigParser struct {
	s string
	i int
}

func (p *sigParser) peek() byte {
	if p.i >= len(p.s) {
		return 0
	}
	return p.s[p.i]
}

func (p *sigParser) skipFormals() error {
	if p.peek() != '<' {
		return nil
	}
	depth := 0
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				p.i++
				return nil
			}
		}
		p.i++
	}
	return fmt.Errorf("unterminated formal type parameters")
}

func (p *sigParser) typeSig() (*TypeSig, error) {
	c := p.peek()
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.i++
		return &TypeSig{Prim: c}, nil
	case '[':
		p.i++
		elem, err := p.typeSig()
		if err != nil {
			return nil, err
		}
		return &TypeSig{Array: elem}, nil
	case 'T':
		j := strings.IndexByte(p.s[p.i:], ';')
		if j < 0 {
			return nil, fmt.Errorf("unterminated type variable")
		}
		t := &TypeSig{Var: p.s[p.i+1 : p.i+j]}
		p.i += j + 1
		return t, nil
	case 'L':
		p.i++
		return p.classSig()
	}
	return nil, fmt.Errorf("unexpected %q at %d", c, p.i)
}

func (p *sigParser) classSig() (*TypeSig, error) {
	t := &TypeSig{}
	var name strings.Builder
	for {
		c := p.peek()
		switch c {
		case 0:
			return nil, fmt.Errorf("unterminated class type")
		case ';':
			p.i++
			t.Class = name.String()
			return t, nil
		case '.':
			// nested class of a parameterized outer class
			p.i++
			name.WriteByte('$')
			t.Args = nil
		case '<':
			p.i++
			args, err := p.typeArgs()
			if err != nil {
				return nil, err
			}
			t.Args = args
		default:
			name.WriteByte(c)
			p.i++
		}
	}
}

func (p *sigParser) typeArgs() ([]*TypeSig, error) {
	var args []*TypeSig
	for {
		switch p.peek() {
		case '>':
			p.i++
			return args, nil
		case '*':
			p.i++
			args = append(args, nil)
		case '+', '-':
			w := p.peek()
			p.i++
			t, err := p.typeSig()
			if err != nil {
				return nil, err
			}
			t.Wildcard = w
			args = append(args, t)
		case 0:
			return nil, fmt.Errorf("unterminated type arguments")
		default:
			t, err := p.typeSig()
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
	}
}
