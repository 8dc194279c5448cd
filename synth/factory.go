package synth

import (
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
)

const (
	factoryExcluder   = "excluder"
	gsonExcluderField = "excluder"

	factoryCreate     = "create"
	factoryCreateDesc = "(Lcom/google/gson/Gson;Lcom/google/gson/reflect/TypeToken;)Lcom/google/gson/TypeAdapter;"

	excludeClass     = "excludeClass"
	excludeClassDesc = "(Ljava/lang/Class;Z)Z"
)

// factoryInitDesc is the constructor descriptor of the generated
// factory.
func (p *Planner) factoryInitDesc() string {
	if p.AddExcluder {
		return "(" + gson.Descriptor(gson.Excluder) + ")V"
	}
	return "()V"
}

// factoryImpl generates the TypeAdapterFactory Gson consults for every
// type. It returns the generated adapter for optimized classes and null
// for everything else, which lets Gson continue with its own factories.
func (p *Planner) factoryImpl() (*classfile.Class, error) {
	c := newClass(p.Name(FactoryImpl), gson.Object, classfile.AccPublic|classfile.AccFinal|classfile.AccSuper, gson.TypeAdapterFactory)
	excluderDesc := gson.Descriptor(gson.Excluder)

	comp := classfile.NewComposer(c.Pool)
	comp.Local(classfile.OpAload, 0).
		Invoke(classfile.OpInvokespecial, gson.Object, "<init>", "()V")
	locals := 1
	if p.AddExcluder {
		c.AddField(classfile.AccPrivate|classfile.AccFinal, factoryExcluder, excluderDesc)
		comp.Local(classfile.OpAload, 0).
			Local(classfile.OpAload, 1).
			Field(classfile.OpPutfield, c.Name, factoryExcluder, excluderDesc)
		locals = 2
	}
	comp.Op(classfile.OpReturn)
	if err := define(c, classfile.AccPublic, "<init>", p.factoryInitDesc(), comp, locals); err != nil {
		return nil, err
	}

	adapter := p.Name(AdapterImpl)
	comp = classfile.NewComposer(c.Pool)
	decline := comp.NewLabel()
	comp.Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.TypeToken, "getRawType", "()Ljava/lang/Class;").
		Local(classfile.OpAstore, 3)
	if p.AddExcluder {
		for _, serialize := range []int{1, 0} {
			comp.Local(classfile.OpAload, 0).
				Field(classfile.OpGetfield, c.Name, factoryExcluder, excluderDesc).
				Local(classfile.OpAload, 3).
				Int(serialize).
				Invoke(classfile.OpInvokevirtual, gson.Excluder, excludeClass, excludeClassDesc).
				Branch(classfile.OpIfne, decline)
		}
	}
	for _, name := range p.Index.ClassNames() {
		next := comp.NewLabel()
		comp.Local(classfile.OpAload, 3).
			ClassLiteral(name).
			Branch(classfile.OpIfAcmpne, next).
			Type(classfile.OpNew, adapter).
			Op(classfile.OpDup).
			Local(classfile.OpAload, 1).
			Int(p.Index.ClassIndex[name]).
			Invoke(classfile.OpInvokespecial, adapter, "<init>", adapterInitDesc).
			Op(classfile.OpAreturn).
			Mark(next)
	}
	comp.Mark(decline).
		Ops(classfile.OpAconstNull, classfile.OpAreturn)
	if err := define(c, classfile.AccPublic, factoryCreate, factoryCreateDesc, comp, 4); err != nil {
		return nil, err
	}
	return c, nil
}
