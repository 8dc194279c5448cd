package classfile

import "strings"

// ObjectClass is the root of the class hierarchy.
const ObjectClass = "java/lang/Object"

// Class is a JVM class or interface.
type Class struct {
	// Name is the internal name, e.g. com/example/Person.
	Name string

	// Super is the internal name of the superclass, empty for java/lang/Object.
	Super string

	Interfaces []string
	Access     AccessFlags

	// Pool is the class's own constant pool.
	Pool *ConstantPool

	// ThisClass is the pool index of the class entry naming this class.
	ThisClass uint16

	Fields     []*Field
	Methods    []*Method
	Attributes []Attribute
}

// NodeKind implements Node.
func (c *Class) NodeKind() Kind { return KindClass }

// NewClass returns an empty class with a fresh constant pool.
func NewClass(name, super string, access AccessFlags) *Class {
	pool := NewConstantPool()
	c := &Class{
		Name:      name,
		Super:     super,
		Access:    access,
		Pool:      pool,
		ThisClass: pool.AddClass(name),
	}
	if super != "" {
		pool.AddClass(super)
	}
	return c
}

// Package returns the package part of the class name, without the
// trailing slash.
func (c *Class) Package() string {
	return PackageOf(c.Name)
}

// PackageOf returns the package of an internal class name.
func PackageOf(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// SimpleName returns the class name without its package.
func (c *Class) SimpleName() string {
	return c.Name[strings.LastIndexByte(c.Name, '/')+1:]
}

func (c *Class) IsInterface() bool { return c.Access.Any(AccInterface) }
func (c *Class) IsAbstract() bool  { return c.Access.Any(AccAbstract) }
func (c *Class) IsEnum() bool      { return c.Access.Any(AccEnum) }

// Field returns the field named name, or nil.
func (c *Class) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the method with the given name and descriptor, or nil.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// MethodsNamed returns all methods called name.
func (c *Class) MethodsNamed(name string) []*Method {
	var res []*Method
	for _, m := range c.Methods {
		if m.Name == name {
			res = append(res, m)
		}
	}
	return res
}

// AddField appends a field and returns it.
func (c *Class) AddField(access AccessFlags, name, desc string) *Field {
	f := &Field{Access: access, Name: name, Descriptor: desc}
	c.Pool.AddUtf8(name)
	c.Pool.AddUtf8(desc)
	c.Fields = append(c.Fields, f)
	return f
}

// AddMethod appends a method with the given body and returns it. A nil
// body produces an abstract or native method without code.
func (c *Class) AddMethod(access AccessFlags, name, desc string, body []Instruction) *Method {
	m := &Method{Access: access, Name: name, Descriptor: desc}
	c.Pool.AddUtf8(name)
	c.Pool.AddUtf8(desc)
	if body != nil {
		m.Attributes = append(m.Attributes, &CodeAttribute{Instructions: body})
	}
	c.Methods = append(c.Methods, m)
	return m
}

// InnerClasses returns the class's inner classes attribute, or nil.
func (c *Class) InnerClasses() *InnerClassesAttribute {
	for _, a := range c.Attributes {
		if ic, ok := a.(*InnerClassesAttribute); ok {
			return ic
		}
	}
	return nil
}

// Signature returns the generic signature of the class, if any.
func (c *Class) Signature() string {
	return signatureOf(c.Attributes)
}

// Annotations returns the runtime visible annotations of the class.
func (c *Class) Annotations() []*Annotation {
	return annotationsOf(c.Attributes)
}

// Field is a class field.
type Field struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	Attributes []Attribute
}

// NodeKind implements Node.
func (f *Field) NodeKind() Kind { return KindField }

func (f *Field) IsStatic() bool { return f.Access.Any(AccStatic) }

// Signature returns the generic signature of the field, if any.
func (f *Field) Signature() string {
	return signatureOf(f.Attributes)
}

// Annotations returns the runtime visible annotations of the field.
func (f *Field) Annotations() []*Annotation {
	return annotationsOf(f.Attributes)
}

// Annotation returns the annotation of the given type descriptor, or nil.
func (f *Field) Annotation(typ string) *Annotation {
	return findAnnotation(f.Annotations(), typ)
}

// Method is a class method.
type Method struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	Attributes []Attribute
}

// NodeKind implements Node.
func (m *Method) NodeKind() Kind { return KindMethod }

func (m *Method) IsStatic() bool { return m.Access.Any(AccStatic) }

// Code returns the method body, or nil for abstract and native methods.
func (m *Method) Code() *CodeAttribute {
	for _, a := range m.Attributes {
		if code, ok := a.(*CodeAttribute); ok {
			return code
		}
	}
	return nil
}

// FindAnnotation returns the annotation of the given type descriptor in
// anns, or nil.
func FindAnnotation(anns []*Annotation, typ string) *Annotation {
	return findAnnotation(anns, typ)
}

func findAnnotation(anns []*Annotation, typ string) *Annotation {
	for _, a := range anns {
		if a.Type == typ {
			return a
		}
	}
	return nil
}

func signatureOf(attrs []Attribute) string {
	for _, a := range attrs {
		if s, ok := a.(*SignatureAttribute); ok {
			return s.Signature
		}
	}
	return ""
}

func annotationsOf(attrs []Attribute) []*Annotation {
	var res []*Annotation
	for _, a := range attrs {
		if aa, ok := a.(*AnnotationsAttribute); ok {
			res = append(res, aa.Annotations...)
		}
	}
	return res
}
