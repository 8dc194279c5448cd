package synth

import (
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
)

const (
	adapterGson       = "gson"
	adapterClassIndex = "classIndex"
	adapterInitDesc   = "(Lcom/google/gson/Gson;I)V"

	adapterRead  = "(Lcom/google/gson/stream/JsonReader;)Ljava/lang/Object;"
	adapterWrite = "(Lcom/google/gson/stream/JsonWriter;Ljava/lang/Object;)V"

	jsonTokenDesc = "Lcom/google/gson/stream/JsonToken;"
	illegalState  = "java/lang/IllegalStateException"
)

// adapterImpl generates the TypeAdapter shared by all optimized classes.
// It dispatches on the class index it was created with.
func (p *Planner) adapterImpl() (*classfile.Class, error) {
	c := newClass(p.Name(AdapterImpl), gson.TypeAdapter, classfile.AccPublic|classfile.AccFinal|classfile.AccSuper)
	gsonDesc := gson.Descriptor(gson.Gson)
	c.AddField(classfile.AccPrivate|classfile.AccFinal, adapterGson, gsonDesc)
	c.AddField(classfile.AccPrivate|classfile.AccFinal, adapterClassIndex, "I")

	comp := classfile.NewComposer(c.Pool)
	comp.Local(classfile.OpAload, 0).
		Invoke(classfile.OpInvokespecial, gson.TypeAdapter, "<init>", "()V").
		Local(classfile.OpAload, 0).
		Local(classfile.OpAload, 1).
		Field(classfile.OpPutfield, c.Name, adapterGson, gsonDesc).
		Local(classfile.OpAload, 0).
		Local(classfile.OpIload, 2).
		Field(classfile.OpPutfield, c.Name, adapterClassIndex, "I").
		Op(classfile.OpReturn)
	if err := define(c, classfile.AccPublic, "<init>", adapterInitDesc, comp, 3); err != nil {
		return nil, err
	}

	classes := p.Index.ClassNames()

	// read
	comp = classfile.NewComposer(c.Pool)
	notNull, dflt := comp.NewLabel(), comp.NewLabel()
	comp.Local(classfile.OpAload, 1).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "peek", "()"+jsonTokenDesc).
		Field(classfile.OpGetstatic, gson.JsonToken, "NULL", jsonTokenDesc).
		Branch(classfile.OpIfAcmpne, notNull).
		Local(classfile.OpAload, 1).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "nextNull", "()V").
		Ops(classfile.OpAconstNull, classfile.OpAreturn).
		Mark(notNull)
	keys, targets := p.dispatch(comp, c.Name, classes)
	comp.Switch(keys, targets, dflt)
	for i, name := range classes {
		comp.Mark(targets[i]).
			Type(classfile.OpNew, name).
			Op(classfile.OpDup).
			Invoke(classfile.OpInvokespecial, name, "<init>", "()V").
			Op(classfile.OpDup).
			Local(classfile.OpAload, 0).
			Field(classfile.OpGetfield, c.Name, adapterGson, gsonDesc).
			Local(classfile.OpAload, 1).
			Invoke(classfile.OpInvokevirtual, name, FromJson, FromJsonDesc).
			Op(classfile.OpAreturn)
	}
	comp.Mark(dflt)
	throwIllegalState(comp)
	if err := define(c, classfile.AccPublic, "read", adapterRead, comp, 2); err != nil {
		return nil, err
	}

	// write
	comp = classfile.NewComposer(c.Pool)
	notNull, dflt = comp.NewLabel(), comp.NewLabel()
	comp.Local(classfile.OpAload, 2).
		Branch(classfile.OpIfnonnull, notNull).
		Local(classfile.OpAload, 1).
		Invoke(classfile.OpInvokevirtual, gson.JsonWriter, "nullValue", "()"+gson.Descriptor(gson.JsonWriter)).
		Ops(classfile.OpPop, classfile.OpReturn).
		Mark(notNull)
	keys, targets = p.dispatch(comp, c.Name, classes)
	comp.Switch(keys, targets, dflt)
	for i, name := range classes {
		comp.Mark(targets[i]).
			Local(classfile.OpAload, 2).
			Type(classfile.OpCheckcast, name).
			Local(classfile.OpAload, 0).
			Field(classfile.OpGetfield, c.Name, adapterGson, gsonDesc).
			Local(classfile.OpAload, 1).
			Invoke(classfile.OpInvokevirtual, name, ToJson, ToJsonDesc).
			Op(classfile.OpReturn)
	}
	comp.Mark(dflt)
	throwIllegalState(comp)
	if err := define(c, classfile.AccPublic, "write", adapterWrite, comp, 3); err != nil {
		return nil, err
	}
	if err := runtimeAdapter(c); err != nil {
		return nil, err
	}
	return c, nil
}

// runtimeAdapter defines the choice Gson makes for reflectively bound
// fields: a non-null value whose declared type is a Class or a type
// variable is written with the adapter of its runtime class, unless that
// adapter is reflective and the declared one is not.
func runtimeAdapter(c *classfile.Class) error {
	// locals: 0 gson, 1 declared adapter, 2 declared type, 3 value,
	// 4 runtime class, 5 runtime adapter
	comp := classfile.NewComposer(c.Pool)
	runtime, chosen, declared := comp.NewLabel(), comp.NewLabel(), comp.NewLabel()
	comp.Local(classfile.OpAload, 3).
		Branch(classfile.OpIfnull, declared).
		Local(classfile.OpAload, 2).
		Type(classfile.OpInstanceof, gson.Class).
		Branch(classfile.OpIfne, runtime).
		Local(classfile.OpAload, 2).
		Type(classfile.OpInstanceof, gson.TypeVar).
		Branch(classfile.OpIfeq, declared).
		Mark(runtime).
		Local(classfile.OpAload, 3).
		Invoke(classfile.OpInvokevirtual, gson.Object, "getClass", "()"+gson.Descriptor(gson.Class)).
		Local(classfile.OpAstore, 4).
		Local(classfile.OpAload, 4).
		Local(classfile.OpAload, 2).
		Branch(classfile.OpIfAcmpeq, declared).
		Local(classfile.OpAload, 0).
		Local(classfile.OpAload, 4).
		Invoke(classfile.OpInvokevirtual, gson.Gson, "getAdapter", getAdapterClass).
		Local(classfile.OpAstore, 5).
		Local(classfile.OpAload, 5).
		Type(classfile.OpInstanceof, gson.ReflectiveAdapter).
		Branch(classfile.OpIfeq, chosen).
		Local(classfile.OpAload, 1).
		Type(classfile.OpInstanceof, gson.ReflectiveAdapter).
		Branch(classfile.OpIfeq, declared).
		Mark(chosen).
		Local(classfile.OpAload, 5).
		Op(classfile.OpAreturn).
		Mark(declared).
		Local(classfile.OpAload, 1).
		Op(classfile.OpAreturn)
	return define(c, classfile.AccPublic|classfile.AccStatic, RuntimeAdapter, RuntimeAdapterDesc, comp, 6)
}

// dispatch loads the class index field and allocates one switch target
// per class.
func (p *Planner) dispatch(comp *classfile.Composer, owner string, classes []string) ([]int32, []classfile.Label) {
	comp.Local(classfile.OpAload, 0).Field(classfile.OpGetfield, owner, adapterClassIndex, "I")
	keys := make([]int32, len(classes))
	targets := make([]classfile.Label, len(classes))
	for i, name := range classes {
		keys[i] = int32(p.Index.ClassIndex[name])
		targets[i] = comp.NewLabel()
	}
	return keys, targets
}

func throwIllegalState(comp *classfile.Composer) {
	comp.Type(classfile.OpNew, illegalState).
		Op(classfile.OpDup).
		Invoke(classfile.OpInvokespecial, illegalState, "<init>", "()V").
		Op(classfile.OpAthrow)
}
