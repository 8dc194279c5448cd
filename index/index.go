// Package index holds the dense numbering shared by all generated code:
// one index per optimized data class and one per distinct JSON field
// name across all classes.
package index

import (
	"cmp"
	"slices"
	"sort"
	"strings"

	"github.com/signadot/gsonopt/classfile"
)

// Expose holds the elements of an @Expose annotation.
type Expose struct {
	Serialize   bool
	Deserialize bool
}

// Field is a field a data class (de)serializes, possibly inherited.
type Field struct {
	// Owner is the class declaring the field.
	Owner      string
	Name       string
	Descriptor string
	Signature  string
	Access     classfile.AccessFlags

	// Serialize and Deserialize say in which directions the field takes
	// part.
	Serialize   bool
	Deserialize bool
}

// ClassInfo is what the generated code needs to know about one data
// class.
type ClassInfo struct {
	// FieldAliases maps a field name to its JSON names. The first name is
	// the one written; all of them are accepted when reading.
	FieldAliases map[string][]string

	// ExposedFields holds the fields marked @Expose. It is only filled
	// when exposure is required.
	ExposedFields map[string]Expose

	// Fields are the (de)serialized fields, the class's own first, then
	// those of each superclass.
	Fields []Field
}

// NewClassInfo returns an empty ClassInfo.
func NewClassInfo() *ClassInfo {
	return &ClassInfo{
		FieldAliases:  map[string][]string{},
		ExposedFields: map[string]Expose{},
	}
}

// SerializedName returns the JSON name field is written under.
func (ci *ClassInfo) SerializedName(field string) string {
	if names := ci.FieldAliases[field]; len(names) > 0 {
		return names[0]
	}
	return field
}

// Field returns the field called name.
func (ci *ClassInfo) Field(name string) (Field, bool) {
	for _, f := range ci.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// OptimizedIndex numbers data classes and JSON field names. Indices are
// only meaningful after AssignIndices.
type OptimizedIndex struct {
	ClassIndex     map[string]int
	FieldNameIndex map[string]int
	ClassInfo      map[string]*ClassInfo

	classOrder []string
	fieldOrder []string
}

// New returns an empty index.
func New() *OptimizedIndex {
	return &OptimizedIndex{
		ClassIndex:     map[string]int{},
		FieldNameIndex: map[string]int{},
		ClassInfo:      map[string]*ClassInfo{},
	}
}

// AddClass registers a data class with its info. Registering a class
// again replaces its info.
func (x *OptimizedIndex) AddClass(name string, info *ClassInfo) {
	if _, ok := x.ClassIndex[name]; !ok {
		x.ClassIndex[name] = len(x.ClassIndex)
		x.classOrder = append(x.classOrder, name)
	}
	x.ClassInfo[name] = info
}

// AddFieldName registers a JSON field name.
func (x *OptimizedIndex) AddFieldName(name string) {
	if _, ok := x.FieldNameIndex[name]; !ok {
		x.FieldNameIndex[name] = len(x.FieldNameIndex)
		x.fieldOrder = append(x.fieldOrder, name)
	}
}

// AssignIndices renumbers classes and field names densely from 0, in
// registration order. Keys placed in the maps directly come after the
// registered ones, in lexical order. Whatever values the maps held
// before, afterwards each map is a bijection onto [0, len).
func (x *OptimizedIndex) AssignIndices() {
	x.classOrder = assign(x.ClassIndex, x.classOrder)
	x.fieldOrder = assign(x.FieldNameIndex, x.fieldOrder)
}

func assign(m map[string]int, order []string) []string {
	seen := make(map[string]bool, len(m))
	keys := make([]string, 0, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)
	for i, k := range keys {
		m[k] = i
	}
	return keys
}

// ClassNames returns the data classes ordered by index.
func (x *OptimizedIndex) ClassNames() []string {
	return byIndex(x.ClassIndex)
}

// FieldNames returns the JSON field names ordered by index.
func (x *OptimizedIndex) FieldNames() []string {
	return byIndex(x.FieldNameIndex)
}

func byIndex(m map[string]int) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	slices.SortFunc(res, func(a, b string) int {
		if c := cmp.Compare(m[a], m[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return res
}

// Contains reports whether class is an optimized data class.
func (x *OptimizedIndex) Contains(class string) bool {
	_, ok := x.ClassIndex[class]
	return ok
}

// Info returns the info of an optimized data class, or nil.
func (x *OptimizedIndex) Info(class string) *ClassInfo {
	return x.ClassInfo[class]
}
