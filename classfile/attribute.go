package classfile

// Attribute names as they appear in class files.
const (
	AttrCode                     = "Code"
	AttrInnerClasses             = "InnerClasses"
	AttrSignature                = "Signature"
	AttrRuntimeVisibleAnnotation = "RuntimeVisibleAnnotations"
)

// Attribute is a class, field or method attribute.
type Attribute interface {
	Node
	AttributeName() string
}

// InnerClass is one entry of an InnerClasses attribute. Indices refer to
// the owning class's constant pool; 0 means absent.
type InnerClass struct {
	InnerClassIndex uint16
	OuterClassIndex uint16
	InnerNameIndex  uint16
	Access          AccessFlags
}

// InnerClassesAttribute lists the nested classes a class refers to,
// including possibly itself.
type InnerClassesAttribute struct {
	Classes []InnerClass
}

func (*InnerClassesAttribute) NodeKind() Kind        { return KindAttribute }
func (*InnerClassesAttribute) AttributeName() string { return AttrInnerClasses }

// SignatureAttribute carries a generic signature.
type SignatureAttribute struct {
	Signature string
}

func (*SignatureAttribute) NodeKind() Kind        { return KindAttribute }
func (*SignatureAttribute) AttributeName() string { return AttrSignature }

// AnnotationsAttribute holds runtime visible annotations.
type AnnotationsAttribute struct {
	Annotations []*Annotation
}

func (*AnnotationsAttribute) NodeKind() Kind        { return KindAttribute }
func (*AnnotationsAttribute) AttributeName() string { return AttrRuntimeVisibleAnnotation }

// Annotation is a single annotation. Type is the annotation's type
// descriptor, e.g. Lcom/google/gson/annotations/Expose;.
type Annotation struct {
	Type     string
	Elements []ElementValue
}

// Element returns the element called name.
func (a *Annotation) Element(name string) (*ElementValue, bool) {
	for i := range a.Elements {
		if a.Elements[i].Name == name {
			return &a.Elements[i], true
		}
	}
	return nil, false
}

// Element value tags.
const (
	ElemString  = 's'
	ElemBoolean = 'Z'
	ElemDouble  = 'D'
	ElemClass   = 'c'
	ElemArray   = '['
)

// ElementValue is a named annotation element.
type ElementValue struct {
	Name   string
	Tag    byte
	String string // ElemString; ElemClass holds a descriptor
	Bool   bool
	Number float64
	Array  []ElementValue
}

// Strings returns the string values of e: itself for a string element,
// the string members for an array.
func (e *ElementValue) Strings() []string {
	switch e.Tag {
	case ElemString:
		return []string{e.String}
	case ElemArray:
		var res []string
		for i := range e.Array {
			if e.Array[i].Tag == ElemString {
				res = append(res, e.Array[i].String)
			}
		}
		return res
	}
	return nil
}

// CodeAttribute is a method body.
type CodeAttribute struct {
	MaxStack     int
	MaxLocals    int
	Instructions []Instruction
}

func (*CodeAttribute) NodeKind() Kind        { return KindAttribute }
func (*CodeAttribute) AttributeName() string { return AttrCode }
