// Package inline holds the strategies that read and write well-known
// scalar field types directly on the JSON stream instead of going through
// a Gson TypeAdapter.
package inline

import (
	"sort"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/settings"
)

// Strategy handles fields of one descriptor.
type Strategy struct {
	// Descriptor is the field descriptor handled.
	Descriptor string

	// Box is the wrapper class of the value: the descriptor's own class
	// for reference types.
	Box string

	// Checked is the class whose registered adapter rules out inline
	// reading. Narrow integral types share the Integer check.
	Checked string

	readName string
	readDesc string
	narrow   classfile.Opcode

	writeDesc string
	widen     classfile.Opcode
	boxWrite  bool
	floating  bool

	// policy is a feature under which Gson writes the value differently.
	policy    settings.Feature
	hasPolicy bool
}

// Primitive reports whether the strategy handles a primitive descriptor.
func (s *Strategy) Primitive() bool {
	return classfile.IsPrimitive(s.Descriptor)
}

// CanDeserialize reports whether fields of the strategy's type may be
// read inline: no custom adapter is registered for the checked type.
func (s *Strategy) CanDeserialize(rs *settings.Runtime) bool {
	return !rs.TypeAdapterClasses.Contains(s.Checked)
}

// CanSerialize reports whether fields of the strategy's type may be
// written inline. The JsonWriter method used must exist in the library,
// no adapter may be registered for the boxed type and no policy may
// change how Gson writes it.
func (s *Strategy) CanSerialize(library *classfile.ClassPool, rs *settings.Runtime) bool {
	w := library.Get(gson.JsonWriter)
	if w == nil || w.Method("value", s.writeDesc) == nil {
		return false
	}
	if rs.TypeAdapterClasses.Contains(s.Box) {
		return false
	}
	return !s.hasPolicy || !rs.Has(s.policy)
}

// EmitRead emits the read of one value. The stack holds a JsonReader
// before and the value, of the strategy's descriptor, after. Strings
// accept a boolean token and booleans a string token, as Gson's own
// adapters do.
func (s *Strategy) EmitRead(c *classfile.Composer) {
	switch s.Box {
	case gson.String:
		other, done := c.NewLabel(), c.NewLabel()
		peekFor(c, "BOOLEAN", other)
		c.Invoke(classfile.OpInvokevirtual, gson.JsonReader, s.readName, s.readDesc).
			Branch(classfile.OpGoto, done).
			Mark(other).
			Invoke(classfile.OpInvokevirtual, gson.JsonReader, "nextBoolean", "()Z").
			Invoke(classfile.OpInvokestatic, gson.Boolean, "toString", "(Z)Ljava/lang/String;").
			Mark(done)
		return
	case gson.Boolean:
		other, done := c.NewLabel(), c.NewLabel()
		peekFor(c, "STRING", other)
		c.Invoke(classfile.OpInvokevirtual, gson.JsonReader, s.readName, s.readDesc).
			Branch(classfile.OpGoto, done).
			Mark(other).
			Invoke(classfile.OpInvokevirtual, gson.JsonReader, "nextString", "()Ljava/lang/String;").
			Invoke(classfile.OpInvokestatic, gson.Boolean, "parseBoolean", "(Ljava/lang/String;)Z").
			Mark(done)
	default:
		c.Invoke(classfile.OpInvokevirtual, gson.JsonReader, s.readName, s.readDesc)
	}
	if s.narrow != 0 {
		c.Op(s.narrow)
	}
	if !s.Primitive() && s.Box != gson.String {
		c.Invoke(classfile.OpInvokestatic, s.Box, "valueOf", "("+unboxed(s.Box)+")"+gson.Descriptor(s.Box))
	}
}

// peekFor branches to l when the next token of the JsonReader on top of
// the stack is the JsonToken called token. The reader stays on the
// stack.
func peekFor(c *classfile.Composer, token string, l classfile.Label) {
	c.Op(classfile.OpDup).
		Invoke(classfile.OpInvokevirtual, gson.JsonReader, "peek", "()"+jsonTokenDesc).
		Field(classfile.OpGetstatic, gson.JsonToken, token, jsonTokenDesc).
		Branch(classfile.OpIfAcmpeq, l)
}

// EmitWrite emits the write of one non-null value. The stack holds a
// JsonWriter and the value before and nothing after. Unless rs allows
// special floating point values, NaN and infinite values throw
// IllegalArgumentException with Gson's message.
func (s *Strategy) EmitWrite(c *classfile.Composer, rs *settings.Runtime) {
	if s.widen != 0 {
		c.Op(s.widen)
	}
	if s.boxWrite {
		c.Invoke(classfile.OpInvokestatic, s.Box, "valueOf", "("+s.Descriptor+")"+gson.Descriptor(s.Box))
	}
	if s.floating && !rs.Has(settings.SerializeSpecialFloatingPointValues) {
		checkFloating(c)
	}
	c.Invoke(classfile.OpInvokevirtual, gson.JsonWriter, "value", s.writeDesc)
	c.Op(classfile.OpPop)
}

// checkFloating throws unless the Number on top of the stack is finite.
func checkFloating(c *classfile.Composer) {
	invalid, valid := c.NewLabel(), c.NewLabel()
	c.Op(classfile.OpDup).
		Invoke(classfile.OpInvokevirtual, gson.Number, "doubleValue", "()D").
		Invoke(classfile.OpInvokestatic, gson.Double, "isNaN", "(D)Z").
		Branch(classfile.OpIfne, invalid).
		Op(classfile.OpDup).
		Invoke(classfile.OpInvokevirtual, gson.Number, "doubleValue", "()D").
		Invoke(classfile.OpInvokestatic, gson.Double, "isInfinite", "(D)Z").
		Branch(classfile.OpIfeq, valid).
		Mark(invalid).
		Invoke(classfile.OpInvokestatic, gson.String, "valueOf", "(Ljava/lang/Object;)Ljava/lang/String;").
		String(invalidFloatingPoint).
		Invoke(classfile.OpInvokevirtual, gson.String, "concat", "(Ljava/lang/String;)Ljava/lang/String;").
		Type(classfile.OpNew, illegalArgument).
		Ops(classfile.OpDupX1, classfile.OpSwap).
		Invoke(classfile.OpInvokespecial, illegalArgument, "<init>", "(Ljava/lang/String;)V").
		Op(classfile.OpAthrow).
		Mark(valid)
}

const (
	jsonTokenDesc   = "Lcom/google/gson/stream/JsonToken;"
	illegalArgument = "java/lang/IllegalArgumentException"

	invalidFloatingPoint = " is not a valid double value as per JSON specification. " +
		"To override this behavior, use GsonBuilder.serializeSpecialFloatingPointValues() method."
)

const (
	writeString  = "(Ljava/lang/String;)Lcom/google/gson/stream/JsonWriter;"
	writeLong    = "(J)Lcom/google/gson/stream/JsonWriter;"
	writeBool    = "(Z)Lcom/google/gson/stream/JsonWriter;"
	writeBoolean = "(Ljava/lang/Boolean;)Lcom/google/gson/stream/JsonWriter;"
	writeNumber  = "(Ljava/lang/Number;)Lcom/google/gson/stream/JsonWriter;"
)

var strategies = map[string]*Strategy{
	"Ljava/lang/String;": {
		Checked: gson.String, Box: gson.String,
		readName: "nextString", readDesc: "()Ljava/lang/String;",
		writeDesc: writeString,
	},
	"I": {
		Checked: gson.Integer, Box: gson.Integer,
		readName: "nextInt", readDesc: "()I",
		writeDesc: writeLong, widen: classfile.OpI2l,
	},
	"Ljava/lang/Integer;": {
		Checked: gson.Integer, Box: gson.Integer,
		readName: "nextInt", readDesc: "()I",
		writeDesc: writeNumber,
	},
	"S": {
		Checked: gson.Integer, Box: gson.Short,
		readName: "nextInt", readDesc: "()I", narrow: classfile.OpI2s,
		writeDesc: writeLong, widen: classfile.OpI2l,
	},
	"Ljava/lang/Short;": {
		Checked: gson.Integer, Box: gson.Short,
		readName: "nextInt", readDesc: "()I", narrow: classfile.OpI2s,
		writeDesc: writeNumber,
	},
	"B": {
		Checked: gson.Integer, Box: gson.Byte,
		readName: "nextInt", readDesc: "()I", narrow: classfile.OpI2b,
		writeDesc: writeLong, widen: classfile.OpI2l,
	},
	"Ljava/lang/Byte;": {
		Checked: gson.Integer, Box: gson.Byte,
		readName: "nextInt", readDesc: "()I", narrow: classfile.OpI2b,
		writeDesc: writeNumber,
	},
	"J": {
		Checked: gson.Long, Box: gson.Long,
		readName: "nextLong", readDesc: "()J",
		writeDesc: writeLong,
		policy: settings.LongSerializationPolicy, hasPolicy: true,
	},
	"Ljava/lang/Long;": {
		Checked: gson.Long, Box: gson.Long,
		readName: "nextLong", readDesc: "()J",
		writeDesc: writeNumber,
		policy: settings.LongSerializationPolicy, hasPolicy: true,
	},
	"Z": {
		Checked: gson.Boolean, Box: gson.Boolean,
		readName: "nextBoolean", readDesc: "()Z",
		writeDesc: writeBool,
	},
	"Ljava/lang/Boolean;": {
		Checked: gson.Boolean, Box: gson.Boolean,
		readName: "nextBoolean", readDesc: "()Z",
		writeDesc: writeBoolean,
	},
	// floating point values are boxed for the validity check and written
	// as Numbers, floats keeping their short decimal form
	"D": {
		Checked: gson.Double, Box: gson.Double,
		readName: "nextDouble", readDesc: "()D",
		writeDesc: writeNumber, boxWrite: true, floating: true,
	},
	"Ljava/lang/Double;": {
		Checked: gson.Double, Box: gson.Double,
		readName: "nextDouble", readDesc: "()D",
		writeDesc: writeNumber, floating: true,
	},
	"F": {
		Checked: gson.Float, Box: gson.Float,
		readName: "nextDouble", readDesc: "()D", narrow: classfile.OpD2f,
		writeDesc: writeNumber, boxWrite: true, floating: true,
	},
	"Ljava/lang/Float;": {
		Checked: gson.Float, Box: gson.Float,
		readName: "nextDouble", readDesc: "()D", narrow: classfile.OpD2f,
		writeDesc: writeNumber, floating: true,
	},
}

func init() {
	for desc, s := range strategies {
		s.Descriptor = desc
	}
}

// For returns the strategy for fields of descriptor desc.
func For(desc string) (*Strategy, bool) {
	s, ok := strategies[desc]
	return s, ok
}

// Descriptors returns the descriptors that have a strategy.
func Descriptors() []string {
	res := make([]string, 0, len(strategies))
	for d := range strategies {
		res = append(res, d)
	}
	sort.Strings(res)
	return res
}

func unboxed(box string) string {
	for prim, b := range gson.Boxes {
		if b == box {
			return prim
		}
	}
	return ""
}
