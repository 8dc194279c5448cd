package classfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Document is the YAML form of a set of class pools.
type Document struct {
	Program []ClassDoc `yaml:"program"`
	Library []ClassDoc `yaml:"library,omitempty"`
}

// ClassDoc is the YAML form of a class.
type ClassDoc struct {
	Name         string          `yaml:"name"`
	Super        string          `yaml:"super,omitempty"`
	Interfaces   []string        `yaml:"interfaces,omitempty"`
	Access       []string        `yaml:"access,omitempty"`
	Signature    string          `yaml:"signature,omitempty"`
	Annotations  []AnnotationDoc `yaml:"annotations,omitempty"`
	InnerClasses []InnerClassDoc `yaml:"innerClasses,omitempty"`
	Fields       []FieldDoc      `yaml:"fields,omitempty"`
	Methods      []MethodDoc     `yaml:"methods,omitempty"`
}

// InnerClassDoc is one InnerClasses entry. Empty names stand for absent
// (zero) references.
type InnerClassDoc struct {
	Inner  string   `yaml:"inner,omitempty"`
	Outer  string   `yaml:"outer,omitempty"`
	Name   string   `yaml:"name,omitempty"`
	Access []string `yaml:"access,omitempty"`
}

// FieldDoc is the YAML form of a field.
type FieldDoc struct {
	Name        string          `yaml:"name"`
	Descriptor  string          `yaml:"descriptor"`
	Access      []string        `yaml:"access,omitempty"`
	Signature   string          `yaml:"signature,omitempty"`
	Annotations []AnnotationDoc `yaml:"annotations,omitempty"`
}

// MethodDoc is the YAML form of a method. Code is assembler text.
type MethodDoc struct {
	Name       string   `yaml:"name"`
	Descriptor string   `yaml:"descriptor"`
	Access     []string `yaml:"access,omitempty"`
	Signature  string   `yaml:"signature,omitempty"`
	MaxStack   int      `yaml:"maxStack,omitempty"`
	MaxLocals  int      `yaml:"maxLocals,omitempty"`
	Code       string   `yaml:"code,omitempty"`
}

// AnnotationDoc is the YAML form of an annotation. Values are strings,
// booleans, numbers, lists of those, or {class: descriptor} maps.
type AnnotationDoc struct {
	Type   string         `yaml:"type"`
	Values map[string]any `yaml:"values,omitempty"`
}

// ParseDocument decodes YAML into a Document.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding class document: %w", err)
	}
	return doc, nil
}

// LoadDocument decodes YAML into class pools.
func LoadDocument(data []byte) (Pools, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return Pools{}, err
	}
	return doc.Pools()
}

// Pools builds class pools from the document.
func (d *Document) Pools() (Pools, error) {
	program, err := buildPool(d.Program)
	if err != nil {
		return Pools{}, fmt.Errorf("program: %w", err)
	}
	library, err := buildPool(d.Library)
	if err != nil {
		return Pools{}, fmt.Errorf("library: %w", err)
	}
	return Pools{Program: program, Library: library}, nil
}

func buildPool(docs []ClassDoc) (*ClassPool, error) {
	pool := NewClassPool()
	for i := range docs {
		c, err := docs[i].Class()
		if err != nil {
			return nil, err
		}
		if pool.Contains(c.Name) {
			return nil, fmt.Errorf("duplicate class %s", c.Name)
		}
		pool.Add(c)
	}
	return pool, nil
}

// Class builds the class described by d.
func (d *ClassDoc) Class() (*Class, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("class without name")
	}
	access, err := ParseAccess(KindClass, d.Access)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", d.Name, err)
	}
	super := d.Super
	if super == "" && d.Name != ObjectClass {
		super = ObjectClass
	}
	c := NewClass(d.Name, super, access)
	c.Interfaces = append(c.Interfaces, d.Interfaces...)
	for _, i := range d.Interfaces {
		c.Pool.AddClass(i)
	}
	if d.Signature != "" {
		c.Attributes = append(c.Attributes, &SignatureAttribute{Signature: d.Signature})
	}
	if len(d.Annotations) > 0 {
		anns, err := buildAnnotations(d.Annotations)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", d.Name, err)
		}
		c.Attributes = append(c.Attributes, &AnnotationsAttribute{Annotations: anns})
	}
	if len(d.InnerClasses) > 0 {
		ic := &InnerClassesAttribute{}
		for _, e := range d.InnerClasses {
			acc, err := ParseAccess(KindClass, e.Access)
			if err != nil {
				return nil, fmt.Errorf("class %s: inner class %s: %w", d.Name, e.Inner, err)
			}
			entry := InnerClass{Access: acc}
			if e.Inner != "" {
				entry.InnerClassIndex = c.Pool.AddClass(e.Inner)
			}
			if e.Outer != "" {
				entry.OuterClassIndex = c.Pool.AddClass(e.Outer)
			}
			if e.Name != "" {
				entry.InnerNameIndex = c.Pool.AddUtf8(e.Name)
			}
			ic.Classes = append(ic.Classes, entry)
		}
		c.Attributes = append(c.Attributes, ic)
	}
	for _, fd := range d.Fields {
		acc, err := ParseAccess(KindField, fd.Access)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", d.Name, fd.Name, err)
		}
		f := c.AddField(acc, fd.Name, fd.Descriptor)
		if fd.Signature != "" {
			f.Attributes = append(f.Attributes, &SignatureAttribute{Signature: fd.Signature})
		}
		if len(fd.Annotations) > 0 {
			anns, err := buildAnnotations(fd.Annotations)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", d.Name, fd.Name, err)
			}
			f.Attributes = append(f.Attributes, &AnnotationsAttribute{Annotations: anns})
		}
	}
	for _, md := range d.Methods {
		acc, err := ParseAccess(KindMethod, md.Access)
		if err != nil {
			return nil, fmt.Errorf("method %s.%s: %w", d.Name, md.Name, err)
		}
		var body []Instruction
		if strings.TrimSpace(md.Code) != "" {
			body, err = Assemble(c.Pool, md.Code)
			if err != nil {
				return nil, fmt.Errorf("method %s.%s%s: %w", d.Name, md.Name, md.Descriptor, err)
			}
		}
		m := c.AddMethod(acc, md.Name, md.Descriptor, body)
		if code := m.Code(); code != nil {
			code.MaxStack = md.MaxStack
			code.MaxLocals = md.MaxLocals
		}
		if md.Signature != "" {
			m.Attributes = append(m.Attributes, &SignatureAttribute{Signature: md.Signature})
		}
	}
	return c, nil
}

func buildAnnotations(docs []AnnotationDoc) ([]*Annotation, error) {
	var res []*Annotation
	for _, ad := range docs {
		a := &Annotation{Type: ad.Type}
		names := make([]string, 0, len(ad.Values))
		for n := range ad.Values {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			ev, err := elementValue(ad.Values[n])
			if err != nil {
				return nil, fmt.Errorf("annotation %s element %s: %w", ad.Type, n, err)
			}
			ev.Name = n
			a.Elements = append(a.Elements, ev)
		}
		res = append(res, a)
	}
	return res, nil
}

func elementValue(v any) (ElementValue, error) {
	switch x := v.(type) {
	case string:
		return ElementValue{Tag: ElemString, String: x}, nil
	case bool:
		return ElementValue{Tag: ElemBoolean, Bool: x}, nil
	case int:
		return ElementValue{Tag: ElemDouble, Number: float64(x)}, nil
	case int64:
		return ElementValue{Tag: ElemDouble, Number: float64(x)}, nil
	case uint64:
		return ElementValue{Tag: ElemDouble, Number: float64(x)}, nil
	case float64:
		return ElementValue{Tag: ElemDouble, Number: x}, nil
	case []any:
		ev := ElementValue{Tag: ElemArray, Array: []ElementValue{}}
		for _, e := range x {
			sub, err := elementValue(e)
			if err != nil {
				return ElementValue{}, err
			}
			ev.Array = append(ev.Array, sub)
		}
		return ev, nil
	case map[string]any:
		if cls, ok := x["class"].(string); ok && len(x) == 1 {
			return ElementValue{Tag: ElemClass, String: cls}, nil
		}
	}
	return ElementValue{}, fmt.Errorf("unsupported element value %v (%T)", v, v)
}

func elementDoc(ev *ElementValue) any {
	switch ev.Tag {
	case ElemString:
		return ev.String
	case ElemBoolean:
		return ev.Bool
	case ElemDouble:
		return ev.Number
	case ElemClass:
		return map[string]any{"class": ev.String}
	case ElemArray:
		res := make([]any, len(ev.Array))
		for i := range ev.Array {
			res[i] = elementDoc(&ev.Array[i])
		}
		return res
	}
	return nil
}

func annotationDocs(anns []*Annotation) []AnnotationDoc {
	var res []AnnotationDoc
	for _, a := range anns {
		ad := AnnotationDoc{Type: a.Type}
		if len(a.Elements) > 0 {
			ad.Values = map[string]any{}
			for i := range a.Elements {
				ad.Values[a.Elements[i].Name] = elementDoc(&a.Elements[i])
			}
		}
		res = append(res, ad)
	}
	return res
}

// NewDocument renders pools as a Document.
func NewDocument(pools Pools) *Document {
	doc := &Document{}
	for _, c := range pools.Program.Classes() {
		doc.Program = append(doc.Program, ClassDocOf(c))
	}
	for _, c := range pools.Library.Classes() {
		doc.Library = append(doc.Library, ClassDocOf(c))
	}
	return doc
}

// ClassDocOf renders a class as a ClassDoc.
func ClassDocOf(c *Class) ClassDoc {
	d := ClassDoc{
		Name:        c.Name,
		Interfaces:  c.Interfaces,
		Access:      c.Access.Names(KindClass),
		Signature:   c.Signature(),
		Annotations: annotationDocs(c.Annotations()),
	}
	if c.Super != ObjectClass {
		d.Super = c.Super
	}
	if ic := c.InnerClasses(); ic != nil {
		for _, e := range ic.Classes {
			ed := InnerClassDoc{Access: e.Access.Names(KindClass)}
			if e.InnerClassIndex != 0 {
				ed.Inner, _ = c.Pool.ClassName(e.InnerClassIndex)
			}
			if e.OuterClassIndex != 0 {
				ed.Outer, _ = c.Pool.ClassName(e.OuterClassIndex)
			}
			if e.InnerNameIndex != 0 {
				ed.Name, _ = c.Pool.Utf8(e.InnerNameIndex)
			}
			d.InnerClasses = append(d.InnerClasses, ed)
		}
	}
	for _, f := range c.Fields {
		d.Fields = append(d.Fields, FieldDoc{
			Name:        f.Name,
			Descriptor:  f.Descriptor,
			Access:      f.Access.Names(KindField),
			Signature:   f.Signature(),
			Annotations: annotationDocs(f.Annotations()),
		})
	}
	for _, m := range c.Methods {
		md := MethodDoc{
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Access:     m.Access.Names(KindMethod),
			Signature:  signatureOf(m.Attributes),
		}
		if code := m.Code(); code != nil {
			md.MaxStack = code.MaxStack
			md.MaxLocals = code.MaxLocals
			md.Code = Disassemble(c.Pool, code.Instructions)
		}
		d.Methods = append(d.Methods, md)
	}
	return d
}

// MarshalDocument renders pools as YAML.
func MarshalDocument(pools Pools) ([]byte, error) {
	data, err := yaml.Marshal(NewDocument(pools))
	if err != nil {
		return nil, fmt.Errorf("encoding class document: %w", err)
	}
	return data, nil
}

// MarshalDocumentJSON renders pools as JSON.
func MarshalDocumentJSON(pools Pools) ([]byte, error) {
	data, err := MarshalDocument(pools)
	if err != nil {
		return nil, err
	}
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting class document to json: %w", err)
	}
	return j, nil
}
