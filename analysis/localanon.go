package analysis

import (
	"github.com/signadot/gsonopt/classfile"
)

// LocalOrAnonymousChecker tells whether a class is a local or anonymous
// class, judging only by the InnerClasses attribute of the class itself.
//
// A class is local or anonymous when it has an InnerClasses entry whose
// inner class index is the pool index of the class itself and whose outer
// class or inner name is absent.
type LocalOrAnonymousChecker struct {
	localOrAnonymous bool
}

// Check reports whether c is a local or anonymous class. A class that
// cannot be walked is reported as one, with the error.
func (k *LocalOrAnonymousChecker) Check(c *classfile.Class) (bool, error) {
	if err := classfile.Walk(c, k); err != nil {
		return true, err
	}
	return k.localOrAnonymous, nil
}

// CheckNode is Check for a node that must be a class.
func (k *LocalOrAnonymousChecker) CheckNode(n classfile.Node) (bool, error) {
	c, err := classfile.RequireClass(n)
	if err != nil {
		return false, err
	}
	return k.Check(c)
}

// VisitClass implements classfile.ClassVisitor.
func (k *LocalOrAnonymousChecker) VisitClass(c *classfile.Class) error {
	k.localOrAnonymous = false
	return nil
}

// VisitAttribute implements classfile.AttributeVisitor.
func (k *LocalOrAnonymousChecker) VisitAttribute(c *classfile.Class, owner classfile.Node, a classfile.Attribute) error {
	if owner.NodeKind() != classfile.KindClass {
		return nil
	}
	ic, ok := a.(*classfile.InnerClassesAttribute)
	if !ok {
		return nil
	}
	for _, e := range ic.Classes {
		if e.InnerClassIndex == 0 || e.InnerClassIndex != c.ThisClass {
			continue
		}
		if e.OuterClassIndex == 0 || e.InnerNameIndex == 0 {
			k.localOrAnonymous = true
		}
	}
	return nil
}

// IsNonStaticInner reports whether c is declared as a member class
// without the static modifier.
func IsNonStaticInner(c *classfile.Class) bool {
	ic := c.InnerClasses()
	if ic == nil {
		return false
	}
	for _, e := range ic.Classes {
		if e.InnerClassIndex == 0 || e.OuterClassIndex == 0 || e.InnerNameIndex == 0 {
			continue
		}
		if name, err := c.Pool.ClassName(e.InnerClassIndex); err == nil && name == c.Name {
			return !e.Access.Has(classfile.AccStatic)
		}
	}
	return false
}
