package synth

import (
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
)

const (
	namesField = "names"
	mapDesc    = "Ljava/util/Map;"

	mapPut = "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"
	mapGet = "(Ljava/lang/Object;)Ljava/lang/Object;"

	integerValueOf = "(I)Ljava/lang/Integer;"

	// NextFieldIndex maps the next property name of a JsonReader to its
	// field name index, or -1 for unknown names.
	NextFieldIndex     = "nextFieldIndex"
	NextFieldIndexDesc = "(Lcom/google/gson/stream/JsonReader;)I"

	// WriteName writes the field name with the given index.
	WriteName     = "name"
	WriteNameDesc = "(Lcom/google/gson/stream/JsonWriter;I)V"
)

// staticTable defines <clinit> of c, filling the static map "names" with
// one entry per JSON field name. keyByName selects String keys and
// Integer values; otherwise Integer keys map to String values.
func (p *Planner) staticTable(c *classfile.Class, mapType string, keyByName bool) error {
	c.AddField(classfile.AccPrivate|classfile.AccStatic|classfile.AccFinal, namesField, mapDesc)

	comp := classfile.NewComposer(c.Pool)
	comp.Type(classfile.OpNew, mapType).
		Op(classfile.OpDup).
		Invoke(classfile.OpInvokespecial, mapType, "<init>", "()V").
		Field(classfile.OpPutstatic, c.Name, namesField, mapDesc)
	for i, name := range p.Index.FieldNames() {
		comp.Field(classfile.OpGetstatic, c.Name, namesField, mapDesc)
		if keyByName {
			comp.String(name).Int(i).Invoke(classfile.OpInvokestatic, gson.Integer, "valueOf", integerValueOf)
		} else {
			comp.Int(i).Invoke(classfile.OpInvokestatic, gson.Integer, "valueOf", integerValueOf).String(name)
		}
		comp.Invoke(classfile.OpInvokeinterface, gson.Map, "put", mapPut).Op(classfile.OpPop)
	}
	comp.Op(classfile.OpReturn)
	return define(c, classfile.AccStatic, "<clinit>", "()V", comp, 0)
}

// readerImpl generates the class mapping JSON property names to field
// name indices.
func (p *Planner) readerImpl(mapType string) (*classfile.Class, error) {
	c := newClass(p.Name(ReaderImpl), gson.Object, classfile.AccPublic|classfile.AccFinal|classfile.AccSuper)
	if err := p.staticTable(c, mapType, true); err != nil {
		return nil, err
	}

	comp := classfile.NewComposer(c.Pool)
	missing := comp.NewLabel()
	comp.Field(classfile.OpGetstatic, c.Name, namesField, mapDesc).
		Local(classfile.OpAload, 0).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "nextName", "()Ljava/lang/String;").
		Invoke(classfile.OpInvokeinterface, gson.Map, "get", mapGet).
		Op(classfile.OpDup).
		Branch(classfile.OpIfnull, missing).
		Type(classfile.OpCheckcast, gson.Integer).
		Invoke(classfile.OpInvokevirtual, gson.Integer, "intValue", "()I").
		Op(classfile.OpIreturn).
		Mark(missing).
		Ops(classfile.OpPop, classfile.OpIconstM1, classfile.OpIreturn)
	if err := define(c, classfile.AccPublic|classfile.AccStatic, NextFieldIndex, NextFieldIndexDesc, comp, 1); err != nil {
		return nil, err
	}
	return c, nil
}

// writerImpl generates the class writing field names by index.
func (p *Planner) writerImpl(mapType string) (*classfile.Class, error) {
	c := newClass(p.Name(WriterImpl), gson.Object, classfile.AccPublic|classfile.AccFinal|classfile.AccSuper)
	if err := p.staticTable(c, mapType, false); err != nil {
		return nil, err
	}

	comp := classfile.NewComposer(c.Pool)
	comp.Local(classfile.OpAload, 0).
		Field(classfile.OpGetstatic, c.Name, namesField, mapDesc).
		Local(classfile.OpIload, 1).
		Invoke(classfile.OpInvokestatic, gson.Integer, "valueOf", integerValueOf).
		Invoke(classfile.OpInvokeinterface, gson.Map, "get", mapGet).
		Type(classfile.OpCheckcast, gson.String).
		Invoke(classfile.OpInvokevirtual, gson.JsonWriter, "name", "(Ljava/lang/String;)Lcom/google/gson/stream/JsonWriter;").
		Ops(classfile.OpPop, classfile.OpReturn)
	if err := define(c, classfile.AccPublic|classfile.AccStatic, WriteName, WriteNameDesc, comp, 2); err != nil {
		return nil, err
	}
	return c, nil
}
