package synth

import (
	"fmt"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/inline"
)

const (
	getAdapterClass = "(Ljava/lang/Class;)Lcom/google/gson/TypeAdapter;"
	getAdapterToken = "(Lcom/google/gson/reflect/TypeToken;)Lcom/google/gson/TypeAdapter;"

	// TypeTokenSuffix joins a data class and a field name into the name
	// of the TypeToken subclass capturing the field's generic type.
	TypeTokenSuffix = "$_TypeToken$"
)

var unboxMethods = map[string]string{
	"Z": "booleanValue",
	"B": "byteValue",
	"C": "charValue",
	"S": "shortValue",
	"I": "intValue",
	"J": "longValue",
	"F": "floatValue",
	"D": "doubleValue",
}

// dataClass plans fromJson$ and toJson$ for c.
func (p *Planner) dataClass(c *classfile.Class, info *index.ClassInfo) error {
	if c.Method(FromJson, FromJsonDesc) != nil || c.Method(ToJson, ToJsonDesc) != nil {
		return fmt.Errorf("%w: %s has generated methods", ErrAlreadyOptimized, c.Name)
	}
	if err := p.fromJson(c, info); err != nil {
		return err
	}
	return p.toJson(c, info)
}

// fromJson reads the properties of a JSON object into the fields of the
// receiver. Unknown properties are skipped.
func (p *Planner) fromJson(c *classfile.Class, info *index.ClassInfo) error {
	comp := classfile.NewComposer(p.poolFor(c))
	loop, end, skip := comp.NewLabel(), comp.NewLabel(), comp.NewLabel()

	var (
		keys    []int32
		targets []classfile.Label
		fields  []index.Field
		labels  []classfile.Label
	)
	for _, f := range info.Fields {
		if !f.Deserialize {
			continue
		}
		l := comp.NewLabel()
		fields = append(fields, f)
		labels = append(labels, l)
		for _, alias := range info.FieldAliases[f.Name] {
			idx, ok := p.Index.FieldNameIndex[alias]
			if !ok {
				return fmt.Errorf("field name %q of %s.%s has no index", alias, c.Name, f.Name)
			}
			keys = append(keys, int32(idx))
			targets = append(targets, l)
		}
	}

	comp.Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "beginObject", "()V").
		Mark(loop).
		Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "hasNext", "()Z").
		Branch(classfile.OpIfeq, end).
		Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokestatic, p.Name(ReaderImpl), NextFieldIndex, NextFieldIndexDesc).
		Switch(keys, targets, skip)
	for i, f := range fields {
		comp.Mark(labels[i])
		if err := p.readField(comp, c, f, loop); err != nil {
			return err
		}
	}
	comp.Mark(skip).
		Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "skipValue", "()V").
		Branch(classfile.OpGoto, loop).
		Mark(end).
		Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "endObject", "()V").
		Op(classfile.OpReturn)
	return p.addMethod(c, classfile.AccPublic|classfile.AccSynthetic, FromJson, FromJsonDesc, comp, 4)
}

// readField emits the read of one field and a jump back to loop.
func (p *Planner) readField(comp *classfile.Composer, c *classfile.Class, f index.Field, loop classfile.Label) error {
	if s, ok := inline.For(f.Descriptor); ok && s.CanDeserialize(p.Settings) {
		if debug.Synth() {
			debug.Logf("synth: %s.%s read inline", c.Name, f.Name)
		}
		value := comp.NewLabel()
		comp.Local(classfile.OpAload, 2).
			Invoke(classfile.OpInvokevirtual, gson.JsonReader, "peek", "()"+jsonTokenDesc).
			Field(classfile.OpGetstatic, gson.JsonToken, "NULL", jsonTokenDesc).
			Branch(classfile.OpIfAcmpne, value).
			Local(classfile.OpAload, 2).
			Invoke(classfile.OpInvokevirtual, gson.JsonReader, "nextNull", "()V")
		if !s.Primitive() {
			comp.Local(classfile.OpAload, 0).
				Op(classfile.OpAconstNull).
				Field(classfile.OpPutfield, f.Owner, f.Name, f.Descriptor)
		}
		comp.Branch(classfile.OpGoto, loop).
			Mark(value).
			Local(classfile.OpAload, 0).
			Local(classfile.OpAload, 2)
		s.EmitRead(comp)
		comp.Field(classfile.OpPutfield, f.Owner, f.Name, f.Descriptor).
			Branch(classfile.OpGoto, loop)
		return nil
	}

	comp.Local(classfile.OpAload, 1)
	getAdapter, err := p.pushType(comp, c, f)
	if err != nil {
		return err
	}
	comp.Invoke(classfile.OpInvokevirtual, gson.Gson, "getAdapter", getAdapter).
		Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.TypeAdapter, "read", adapterRead)
	if !classfile.IsPrimitive(f.Descriptor) {
		comp.Type(classfile.OpCheckcast, castTarget(f.Descriptor)).
			Local(classfile.OpAstore, 3).
			Local(classfile.OpAload, 0).
			Local(classfile.OpAload, 3).
			Field(classfile.OpPutfield, f.Owner, f.Name, f.Descriptor).
			Branch(classfile.OpGoto, loop)
		return nil
	}
	// a null read leaves a primitive field at its default
	box := gson.Boxes[f.Descriptor]
	comp.Local(classfile.OpAstore, 3).
		Local(classfile.OpAload, 3).
		Branch(classfile.OpIfnull, loop).
		Local(classfile.OpAload, 0).
		Local(classfile.OpAload, 3).
		Type(classfile.OpCheckcast, box).
		Invoke(classfile.OpInvokevirtual, box, unboxMethods[f.Descriptor], "()"+f.Descriptor).
		Field(classfile.OpPutfield, f.Owner, f.Name, f.Descriptor).
		Branch(classfile.OpGoto, loop)
	return nil
}

// toJson writes the serialized fields of the receiver as a JSON object.
func (p *Planner) toJson(c *classfile.Class, info *index.ClassInfo) error {
	comp := classfile.NewComposer(p.poolFor(c))
	writerDesc := gson.Descriptor(gson.JsonWriter)
	comp.Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.JsonWriter, "beginObject", "()"+writerDesc).
		Op(classfile.OpPop)
	for _, f := range info.Fields {
		if !f.Serialize {
			continue
		}
		name := info.SerializedName(f.Name)
		idx, ok := p.Index.FieldNameIndex[name]
		if !ok {
			return fmt.Errorf("field name %q of %s.%s has no index", name, c.Name, f.Name)
		}
		if err := p.writeField(comp, c, f, idx); err != nil {
			return err
		}
	}
	comp.Local(classfile.OpAload, 2).
		Invoke(classfile.OpInvokevirtual, gson.JsonWriter, "endObject", "()"+writerDesc).
		Ops(classfile.OpPop, classfile.OpReturn)
	return p.addMethod(c, classfile.AccPublic|classfile.AccSynthetic, ToJson, ToJsonDesc, comp, 5)
}

// writeName writes the field name with index idx.
func (p *Planner) writeName(comp *classfile.Composer, idx int) {
	comp.Local(classfile.OpAload, 2).
		Int(idx).
		Invoke(classfile.OpInvokestatic, p.Name(WriterImpl), WriteName, WriteNameDesc)
}

// writeField emits the name and value of one field. A field delegated
// to Gson is written with the adapter of its runtime type and skipped,
// name included, when it refers to the receiver itself.
func (p *Planner) writeField(comp *classfile.Composer, c *classfile.Class, f index.Field, idx int) error {
	if s, ok := inline.For(f.Descriptor); ok && s.CanSerialize(p.Pools.Library, p.Settings) {
		if debug.Synth() {
			debug.Logf("synth: %s.%s written inline", c.Name, f.Name)
		}
		p.writeName(comp, idx)
		var next classfile.Label
		if !s.Primitive() {
			value := comp.NewLabel()
			next = comp.NewLabel()
			comp.Local(classfile.OpAload, 0).
				Field(classfile.OpGetfield, f.Owner, f.Name, f.Descriptor).
				Branch(classfile.OpIfnonnull, value).
				Local(classfile.OpAload, 2).
				Invoke(classfile.OpInvokevirtual, gson.JsonWriter, "nullValue", "()"+gson.Descriptor(gson.JsonWriter)).
				Op(classfile.OpPop).
				Branch(classfile.OpGoto, next).
				Mark(value)
		}
		comp.Local(classfile.OpAload, 2).
			Local(classfile.OpAload, 0).
			Field(classfile.OpGetfield, f.Owner, f.Name, f.Descriptor)
		s.EmitWrite(comp, p.Settings)
		if !s.Primitive() {
			comp.Mark(next)
		}
		return nil
	}

	// locals: 3 the value, 4 the declared Class or TypeToken
	comp.Local(classfile.OpAload, 0).
		Field(classfile.OpGetfield, f.Owner, f.Name, f.Descriptor)
	box, primitive := gson.Boxes[f.Descriptor]
	if primitive {
		comp.Invoke(classfile.OpInvokestatic, box, "valueOf", "("+f.Descriptor+")"+gson.Descriptor(box))
	}
	comp.Local(classfile.OpAstore, 3)
	var next classfile.Label
	if !primitive {
		next = comp.NewLabel()
		comp.Local(classfile.OpAload, 3).
			Local(classfile.OpAload, 0).
			Branch(classfile.OpIfAcmpeq, next)
	}
	p.writeName(comp, idx)
	getAdapter, err := p.pushType(comp, c, f)
	if err != nil {
		return err
	}
	comp.Local(classfile.OpAstore, 4).
		Local(classfile.OpAload, 1).
		Local(classfile.OpAload, 1).
		Local(classfile.OpAload, 4).
		Invoke(classfile.OpInvokevirtual, gson.Gson, "getAdapter", getAdapter).
		Local(classfile.OpAload, 4)
	if getAdapter == getAdapterToken {
		comp.Invoke(classfile.OpInvokevirtual, gson.TypeToken, gson.TypeTokenGetType, gson.TypeTokenGetTypeDesc)
	}
	comp.Local(classfile.OpAload, 3).
		Invoke(classfile.OpInvokestatic, p.Name(AdapterImpl), RuntimeAdapter, RuntimeAdapterDesc).
		Local(classfile.OpAload, 2).
		Local(classfile.OpAload, 3).
		Invoke(classfile.OpInvokevirtual, gson.TypeAdapter, "write", adapterWrite)
	if !primitive {
		comp.Mark(next)
	}
	return nil
}

// pushType pushes the argument of Gson.getAdapter for the declared type
// of f and returns the descriptor of the getAdapter overload to call.
func (p *Planner) pushType(comp *classfile.Composer, c *classfile.Class, f index.Field) (string, error) {
	if f.Signature != "" {
		t, err := classfile.ParseTypeSignature(f.Signature)
		if err != nil {
			return "", fmt.Errorf("field %s.%s: %w", c.Name, f.Name, err)
		}
		if t.IsGeneric() {
			token, err := p.typeToken(c, f)
			if err != nil {
				return "", err
			}
			comp.Type(classfile.OpNew, token).
				Op(classfile.OpDup).
				Invoke(classfile.OpInvokespecial, token, "<init>", "()V")
			return getAdapterToken, nil
		}
	}
	if box, ok := gson.Boxes[f.Descriptor]; ok {
		comp.Field(classfile.OpGetstatic, box, "TYPE", gson.Descriptor(gson.Class))
		return getAdapterClass, nil
	}
	comp.ClassLiteral(castTarget(f.Descriptor))
	return getAdapterClass, nil
}

// castTarget returns the class name a reference descriptor is cast to.
func castTarget(desc string) string {
	if name, ok := classfile.ClassOf(desc); ok {
		return name
	}
	return desc
}

// typeToken returns the TypeToken subclass capturing the generic type of
// f, generating it on first use.
func (p *Planner) typeToken(c *classfile.Class, f index.Field) (string, error) {
	name := c.Name + TypeTokenSuffix + f.Name
	for _, g := range p.plan.Classes {
		if g.Name == name {
			return name, nil
		}
	}
	if _, ok := p.Pools.Lookup(name); ok {
		return "", fmt.Errorf("%w: %s exists", ErrAlreadyOptimized, name)
	}
	t := newClass(name, gson.TypeToken, classfile.AccPublic|classfile.AccFinal|classfile.AccSuper)
	t.Attributes = append(t.Attributes, &classfile.SignatureAttribute{
		Signature: "L" + gson.TypeToken + "<" + f.Signature + ">;",
	})
	if err := defaultConstructor(t); err != nil {
		return "", err
	}
	p.plan.Classes = append(p.plan.Classes, t)
	return name, nil
}
