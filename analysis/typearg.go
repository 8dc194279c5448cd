package analysis

import (
	"github.com/signadot/gsonopt/classfile"
)

// TypeArgumentFinder is a constant visitor holding the class named by the
// last constant it visited. It is not an accumulator: each visit
// overwrites the slot, and a visit of anything but a class constant
// clears it, so the caller reads TypeArgument right after the visit of
// interest.
type TypeArgumentFinder struct {
	TypeArgument string
}

// VisitConstant implements classfile.ConstantVisitor.
func (f *TypeArgumentFinder) VisitConstant(p *classfile.ConstantPool, index uint16, k *classfile.Constant) error {
	f.TypeArgument = ""
	if k.Kind != classfile.ConstClass {
		return nil
	}
	name, err := p.ClassName(index)
	if err != nil {
		return err
	}
	f.TypeArgument = name
	return nil
}

// Find visits the constant at index and returns the class it names.
func (f *TypeArgumentFinder) Find(p *classfile.ConstantPool, index uint16) (string, bool) {
	if err := p.Accept(index, f); err != nil {
		f.TypeArgument = ""
	}
	return f.TypeArgument, f.TypeArgument != ""
}
