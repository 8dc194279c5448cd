package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
)

func TestResolverTypeToken(t *testing.T) {
	token := classfile.NewClass("com/example/Main$1", gson.TypeToken, 0)
	token.Attributes = append(token.Attributes, &classfile.SignatureAttribute{
		Signature: "Lcom/google/gson/reflect/TypeToken<Ljava/util/List<Lcom/example/Person;>;>;",
	})
	c := classfile.NewClass("com/example/Main", classfile.ObjectClass, classfile.AccPublic)
	m := method(t, c, classfile.AccPublic|classfile.AccStatic, "run", "()V", `
new com/example/Main$1
dup
invokespecial com/example/Main$1.<init>()V
dup
invokevirtual com/example/Main$1.getType()Ljava/lang/reflect/Type;
ldc class com/example/Item
invokestatic com/google/gson/reflect/TypeToken.get(Ljava/lang/Class;)Lcom/google/gson/reflect/TypeToken;
return
`)
	r := &Resolver{Pools: classfile.Pools{
		Program: classfile.NewClassPool(c, token),
		Library: classfile.NewClassPool(),
	}}
	frames := framesAt(t, c, m, 5, 7)

	typeValue := frames[5].Stack[1]
	ts, ok := r.TypeOf(typeValue)
	if !ok {
		t.Fatalf("TypeOf(%v) unresolved", typeValue)
	}
	if diff := cmp.Diff([]string{"java/util/List", "com/example/Person"}, ts.ClassNames()); diff != "" {
		t.Errorf("getType classes mismatch (-want +got):\n%s", diff)
	}

	tokenValue := frames[5].Stack[0]
	ts, ok = r.TokenOf(tokenValue)
	if !ok || ts.Class != "java/util/List" {
		t.Errorf("TokenOf(anonymous) = %+v, %v", ts, ok)
	}

	got := frames[7].Stack[len(frames[7].Stack)-1]
	ts, ok = r.TokenOf(got)
	if !ok || ts.Class != "com/example/Item" {
		t.Errorf("TokenOf(TypeToken.get) = %+v, %v", ts, ok)
	}
}

func TestResolverUnresolved(t *testing.T) {
	r := &Resolver{Pools: classfile.Pools{Program: classfile.NewClassPool(), Library: classfile.NewClassPool()}}
	tests := []struct {
		name string
		v    Value
	}{
		{"unknown", Value{Kind: Unknown}},
		{"plain object", Value{Kind: Instance, Class: gson.Object}},
		{"unknown token class", Value{Kind: Instance, Class: "com/example/Missing", Exact: true}},
		{"inexact token", Value{Kind: Instance, Class: gson.TypeToken}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := r.TypeOf(tt.v); ok {
				t.Errorf("TypeOf resolved %v", tt.v)
			}
			if _, ok := r.TokenOf(tt.v); ok {
				t.Errorf("TokenOf resolved %v", tt.v)
			}
		})
	}
	if _, ok := r.InstanceType(Value{Kind: Instance, Class: gson.Object}); ok {
		t.Errorf("InstanceType(Object) resolved")
	}
	ts, ok := r.InstanceType(Value{Kind: Instance, Class: "[Lcom/example/Person;"})
	if !ok || ts.Array == nil || ts.Array.Class != "com/example/Person" {
		t.Errorf("InstanceType(array) = %+v, %v", ts, ok)
	}
}
