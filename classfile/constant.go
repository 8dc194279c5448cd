package classfile

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// ErrNoSuchConstant is returned for constant pool indices that are out of
// range or hold an entry of an unexpected kind.
var ErrNoSuchConstant = errors.New("no such constant")

// ConstantKind tags the variant held by a Constant.
type ConstantKind uint8

const (
	ConstUtf8 ConstantKind = iota + 1
	ConstInteger
	ConstLong
	ConstDouble
	ConstString
	ConstClass
	ConstNameAndType
	ConstFieldRef
	ConstMethodRef
	ConstInterfaceMethodRef
)

func (k ConstantKind) String() string {
	switch k {
	case ConstUtf8:
		return "utf8"
	case ConstInteger:
		return "integer"
	case ConstLong:
		return "long"
	case ConstDouble:
		return "double"
	case ConstString:
		return "string"
	case ConstClass:
		return "class"
	case ConstNameAndType:
		return "nameandtype"
	case ConstFieldRef:
		return "fieldref"
	case ConstMethodRef:
		return "methodref"
	case ConstInterfaceMethodRef:
		return "interfacemethodref"
	default:
		return "constant(" + strconv.Itoa(int(k)) + ")"
	}
}

// Constant is a constant pool entry.
//
// Which fields are meaningful depends on Kind:
//
//	Utf8                 Text
//	Integer, Long        Int
//	Double               Float
//	String               A: utf8 index
//	Class                A: utf8 index of the internal name
//	NameAndType          A: name utf8 index, B: descriptor utf8 index
//	Field/Method refs    A: class index, B: name-and-type index
type Constant struct {
	Kind  ConstantKind
	Text  string
	Int   int64
	Float float64
	A, B  uint16
}

// NodeKind implements Node.
func (k *Constant) NodeKind() Kind { return KindConstant }

// IsRef reports whether k is a field, method or interface method reference.
func (k *Constant) IsRef() bool {
	switch k.Kind {
	case ConstFieldRef, ConstMethodRef, ConstInterfaceMethodRef:
		return true
	}
	return false
}

// MemberRef is a resolved field or method reference.
type MemberRef struct {
	Kind       ConstantKind
	Class      string
	Name       string
	Descriptor string
}

func (r MemberRef) String() string {
	if r.Kind == ConstFieldRef {
		return r.Class + "." + r.Name + ":" + r.Descriptor
	}
	return r.Class + "." + r.Name + r.Descriptor
}

// ConstantPool holds the constants of one class. Index 0 is never a valid
// entry and stands for "absent" wherever an index is optional.
type ConstantPool struct {
	entries []Constant
	lookup  map[Constant]uint16
}

// NewConstantPool returns an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries: make([]Constant, 1),
		lookup:  map[Constant]uint16{},
	}
}

// Clone returns a copy of p. Entries of p keep their indices in the copy.
func (p *ConstantPool) Clone() *ConstantPool {
	return &ConstantPool{
		entries: slices.Clone(p.entries),
		lookup:  maps.Clone(p.lookup),
	}
}

// Len returns the number of slots including the unused slot 0.
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// Get returns the entry at index i.
func (p *ConstantPool) Get(i uint16) (*Constant, error) {
	if i == 0 || int(i) >= len(p.entries) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNoSuchConstant, i, len(p.entries))
	}
	return &p.entries[i], nil
}

func (p *ConstantPool) getKind(i uint16, kinds ...ConstantKind) (*Constant, error) {
	k, err := p.Get(i)
	if err != nil {
		return nil, err
	}
	for _, want := range kinds {
		if k.Kind == want {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: index %d is %s, want %v", ErrNoSuchConstant, i, k.Kind, kinds)
}

// Utf8 returns the text of the utf8 entry at i.
func (p *ConstantPool) Utf8(i uint16) (string, error) {
	k, err := p.getKind(i, ConstUtf8)
	if err != nil {
		return "", err
	}
	return k.Text, nil
}

// ClassName returns the internal name of the class entry at i.
func (p *ConstantPool) ClassName(i uint16) (string, error) {
	k, err := p.getKind(i, ConstClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(k.A)
}

// StringValue returns the value of the string entry at i.
func (p *ConstantPool) StringValue(i uint16) (string, error) {
	k, err := p.getKind(i, ConstString)
	if err != nil {
		return "", err
	}
	return p.Utf8(k.A)
}

// NameAndType returns the name and descriptor of the entry at i.
func (p *ConstantPool) NameAndType(i uint16) (string, string, error) {
	k, err := p.getKind(i, ConstNameAndType)
	if err != nil {
		return "", "", err
	}
	name, err := p.Utf8(k.A)
	if err != nil {
		return "", "", err
	}
	desc, err := p.Utf8(k.B)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// Ref resolves the field or method reference at i.
func (p *ConstantPool) Ref(i uint16) (MemberRef, error) {
	k, err := p.getKind(i, ConstFieldRef, ConstMethodRef, ConstInterfaceMethodRef)
	if err != nil {
		return MemberRef{}, err
	}
	class, err := p.ClassName(k.A)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := p.NameAndType(k.B)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Kind: k.Kind, Class: class, Name: name, Descriptor: desc}, nil
}

// Accept calls v with the entry at i.
func (p *ConstantPool) Accept(i uint16, v ConstantVisitor) error {
	k, err := p.Get(i)
	if err != nil {
		return err
	}
	return v.VisitConstant(p, i, k)
}

// Walk calls v for every entry in index order.
func (p *ConstantPool) Walk(v ConstantVisitor) error {
	for i := 1; i < len(p.entries); i++ {
		if err := v.VisitConstant(p, uint16(i), &p.entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *ConstantPool) add(k Constant) uint16 {
	if i, ok := p.lookup[k]; ok {
		return i
	}
	i := uint16(len(p.entries))
	p.entries = append(p.entries, k)
	p.lookup[k] = i
	return i
}

// AddUtf8 adds (or finds) a utf8 entry.
func (p *ConstantPool) AddUtf8(s string) uint16 {
	return p.add(Constant{Kind: ConstUtf8, Text: s})
}

// AddInteger adds (or finds) an integer entry.
func (p *ConstantPool) AddInteger(v int32) uint16 {
	return p.add(Constant{Kind: ConstInteger, Int: int64(v)})
}

// AddLong adds (or finds) a long entry.
func (p *ConstantPool) AddLong(v int64) uint16 {
	return p.add(Constant{Kind: ConstLong, Int: v})
}

// AddDouble adds (or finds) a double entry.
func (p *ConstantPool) AddDouble(v float64) uint16 {
	return p.add(Constant{Kind: ConstDouble, Float: v})
}

// AddString adds (or finds) a string entry.
func (p *ConstantPool) AddString(s string) uint16 {
	return p.add(Constant{Kind: ConstString, A: p.AddUtf8(s)})
}

// AddClass adds (or finds) a class entry for an internal name.
func (p *ConstantPool) AddClass(name string) uint16 {
	return p.add(Constant{Kind: ConstClass, A: p.AddUtf8(name)})
}

// AddNameAndType adds (or finds) a name-and-type entry.
func (p *ConstantPool) AddNameAndType(name, desc string) uint16 {
	return p.add(Constant{Kind: ConstNameAndType, A: p.AddUtf8(name), B: p.AddUtf8(desc)})
}

// AddFieldRef adds (or finds) a field reference.
func (p *ConstantPool) AddFieldRef(class, name, desc string) uint16 {
	return p.add(Constant{Kind: ConstFieldRef, A: p.AddClass(class), B: p.AddNameAndType(name, desc)})
}

// AddMethodRef adds (or finds) a method reference.
func (p *ConstantPool) AddMethodRef(class, name, desc string) uint16 {
	return p.add(Constant{Kind: ConstMethodRef, A: p.AddClass(class), B: p.AddNameAndType(name, desc)})
}

// AddInterfaceMethodRef adds (or finds) an interface method reference.
func (p *ConstantPool) AddInterfaceMethodRef(class, name, desc string) uint16 {
	return p.add(Constant{Kind: ConstInterfaceMethodRef, A: p.AddClass(class), B: p.AddNameAndType(name, desc)})
}

// AddRef adds a reference of the kind given in r.
func (p *ConstantPool) AddRef(r MemberRef) uint16 {
	switch r.Kind {
	case ConstFieldRef:
		return p.AddFieldRef(r.Class, r.Name, r.Descriptor)
	case ConstInterfaceMethodRef:
		return p.AddInterfaceMethodRef(r.Class, r.Name, r.Descriptor)
	default:
		return p.AddMethodRef(r.Class, r.Name, r.Descriptor)
	}
}

// Format renders the entry at i the way the assembler reads ldc operands
// and member references.
func (p *ConstantPool) Format(i uint16) string {
	k, err := p.Get(i)
	if err != nil {
		return fmt.Sprintf("#%d?", i)
	}
	switch k.Kind {
	case ConstUtf8:
		return strconv.Quote(k.Text)
	case ConstInteger:
		return strconv.FormatInt(k.Int, 10)
	case ConstLong:
		return strconv.FormatInt(k.Int, 10) + "L"
	case ConstDouble:
		return strconv.FormatFloat(k.Float, 'g', -1, 64) + "D"
	case ConstString:
		s, _ := p.Utf8(k.A)
		return strconv.Quote(s)
	case ConstClass:
		s, _ := p.Utf8(k.A)
		return "class " + s
	case ConstNameAndType:
		n, d, _ := p.NameAndType(i)
		return n + ":" + d
	default:
		r, err := p.Ref(i)
		if err != nil {
			return fmt.Sprintf("#%d?", i)
		}
		return r.String()
	}
}
