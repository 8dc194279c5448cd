package analysis

import (
	"fmt"

	"github.com/signadot/gsonopt/classfile"
)

// ValueKind classifies what the evaluator knows about a value.
type ValueKind uint8

const (
	Unknown ValueKind = iota
	// ClassLiteral is a java.lang.Class constant; Class names it.
	ClassLiteral
	// Instance is a reference of static type Class. Exact is set when the
	// runtime class is known to be Class itself.
	Instance
	// IntConst is an int known to be Int.
	IntConst
	// IntArray is an int[] whose stores are tracked in Array.
	IntArray
	// Null is the null reference.
	Null
)

func (k ValueKind) String() string {
	switch k {
	case ClassLiteral:
		return "class"
	case Instance:
		return "instance"
	case IntConst:
		return "int"
	case IntArray:
		return "int[]"
	case Null:
		return "null"
	}
	return "unknown"
}

// Ints tracks the elements stored into an int array. Copies of a value
// share the same Ints.
type Ints struct {
	Len    int
	Elems  map[int]int64
	Opaque bool
}

// Constants returns the elements when every one of them is known.
func (a *Ints) Constants() ([]int64, bool) {
	if a == nil || a.Opaque || len(a.Elems) != a.Len {
		return nil, false
	}
	res := make([]int64, a.Len)
	for i := range res {
		v, ok := a.Elems[i]
		if !ok {
			return nil, false
		}
		res[i] = v
	}
	return res, true
}

// Value is an abstract operand stack or local variable entry.
type Value struct {
	Kind  ValueKind
	Class string
	Exact bool
	Int   int64
	Array *Ints

	// Producer is the offset of the instruction that pushed the value, or
	// -1 for method parameters.
	Producer int

	// Slot is the local variable the value was last loaded from, or -1.
	Slot int

	// Call is the method whose result the value is, if any; Args are the
	// call's arguments with the receiver first for instance methods.
	Call *classfile.MemberRef
	Args []Value
}

func unknown(producer int) Value {
	return Value{Kind: Unknown, Producer: producer, Slot: -1}
}

// typed returns an unknown value of the given field descriptor: an
// inexact instance for references, unknown for primitives.
func typed(desc string, producer int) Value {
	v := unknown(producer)
	if class, ok := classfile.ClassOf(desc); ok {
		v.Kind = Instance
		v.Class = class
	} else if classfile.IsReference(desc) {
		v.Kind = Instance
		v.Class = desc
	}
	return v
}

// same reports whether v and w carry the same knowledge.
func (v Value) same(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case ClassLiteral:
		return v.Class == w.Class
	case Instance:
		return v.Class == w.Class && v.Exact == w.Exact
	case IntConst:
		return v.Int == w.Int
	case IntArray:
		return v.Array == w.Array
	case Null:
		return true
	}
	return false
}

// merge returns what is known about a value that may be v or w.
func merge(v, w Value) Value {
	if v.same(w) {
		if v.Producer != w.Producer {
			v.Producer = -1
		}
		if v.Slot != w.Slot {
			v.Slot = -1
		}
		if v.Call != w.Call {
			v.Call, v.Args = nil, nil
		}
		return v
	}
	if v.Kind == Instance && w.Kind == Instance && v.Class == w.Class {
		return Value{Kind: Instance, Class: v.Class, Producer: -1, Slot: -1}
	}
	return unknown(-1)
}

func (v Value) String() string {
	switch v.Kind {
	case ClassLiteral:
		return "class " + v.Class
	case Instance:
		if v.Exact {
			return "new " + v.Class
		}
		return v.Class
	case IntConst:
		return fmt.Sprint(v.Int)
	case IntArray:
		if c, ok := v.Array.Constants(); ok {
			return fmt.Sprint(c)
		}
		return "int[?]"
	case Null:
		return "null"
	}
	return "?"
}
