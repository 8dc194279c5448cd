package analysis

import (
	"strings"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
)

// Resolver recovers the types that evaluated values denote when they are
// passed to Gson.
type Resolver struct {
	Pools classfile.Pools
}

// InstanceType returns the static type of an object value. Values typed
// only as java.lang.Object resolve to nothing.
func (r *Resolver) InstanceType(v Value) (*classfile.TypeSig, bool) {
	if v.Kind != Instance || v.Class == "" || v.Class == gson.Object {
		return nil, false
	}
	return classSig(v.Class)
}

// TypeOf returns the type a java.lang.Class or java.lang.reflect.Type
// value denotes: a class literal, or the type of a TypeToken obtained
// with getType.
func (r *Resolver) TypeOf(v Value) (*classfile.TypeSig, bool) {
	switch v.Kind {
	case ClassLiteral:
		return classSig(v.Class)
	case Instance:
		if v.Call != nil && v.Call.Name == gson.TypeTokenGetType && v.Call.Descriptor == gson.TypeTokenGetTypeDesc && len(v.Args) == 1 {
			return r.TokenOf(v.Args[0])
		}
	}
	return nil, false
}

// TokenOf returns the type a TypeToken value captures: the type argument
// of an anonymous TypeToken subclass, or the argument of TypeToken.get.
func (r *Resolver) TokenOf(v Value) (*classfile.TypeSig, bool) {
	if v.Kind != Instance {
		return nil, false
	}
	if v.Call != nil {
		if v.Call.Class == gson.TypeToken && v.Call.Name == gson.TypeTokenGet && len(v.Args) == 1 {
			return r.TypeOf(v.Args[0])
		}
		return nil, false
	}
	if !v.Exact {
		return nil, false
	}
	c, ok := r.Pools.Lookup(v.Class)
	if !ok || c.Super != gson.TypeToken || c.Signature() == "" {
		return nil, false
	}
	super, _, err := classfile.ParseClassSignature(c.Signature())
	if err != nil || len(super.Args) != 1 || super.Args[0] == nil || super.Args[0].Var != "" {
		return nil, false
	}
	return super.Args[0], true
}

func classSig(name string) (*classfile.TypeSig, bool) {
	if strings.HasPrefix(name, "[") {
		t, err := classfile.ParseTypeSignature(name)
		return t, err == nil
	}
	return &classfile.TypeSig{Class: name}, true
}
