// Package gson names the classes, members and annotations of the Gson
// library that the optimizer matches against and generates calls to.
package gson

// Library classes, in internal form.
const (
	Gson               = "com/google/gson/Gson"
	GsonBuilder        = "com/google/gson/GsonBuilder"
	TypeAdapter        = "com/google/gson/TypeAdapter"
	TypeAdapterFactory = "com/google/gson/TypeAdapterFactory"
	InstanceCreator    = "com/google/gson/InstanceCreator"
	ExclusionStrategy  = "com/google/gson/ExclusionStrategy"
	JsonElement        = "com/google/gson/JsonElement"
	TypeToken          = "com/google/gson/reflect/TypeToken"
	JsonReader         = "com/google/gson/stream/JsonReader"
	JsonWriter         = "com/google/gson/stream/JsonWriter"
	JsonToken          = "com/google/gson/stream/JsonToken"
	Excluder           = "com/google/gson/internal/Excluder"

	// ReflectiveAdapter is the type of the adapters Gson's reflective
	// factory creates.
	ReflectiveAdapter = "com/google/gson/internal/bind/ReflectiveTypeAdapterFactory$Adapter"
)

// Annotation type descriptors.
const (
	SerializedName = "Lcom/google/gson/annotations/SerializedName;"
	Expose         = "Lcom/google/gson/annotations/Expose;"
	JsonAdapter    = "Lcom/google/gson/annotations/JsonAdapter;"
	Since          = "Lcom/google/gson/annotations/Since;"
	Until          = "Lcom/google/gson/annotations/Until;"
)

// Platform classes the generated code uses.
const (
	Object    = "java/lang/Object"
	String    = "java/lang/String"
	Class     = "java/lang/Class"
	Type      = "java/lang/reflect/Type"
	TypeVar   = "java/lang/reflect/TypeVariable"
	Map       = "java/util/Map"
	List      = "java/util/List"
	HashMap   = "java/util/HashMap"
	Integer   = "java/lang/Integer"
	Long      = "java/lang/Long"
	Short     = "java/lang/Short"
	Byte      = "java/lang/Byte"
	Boolean   = "java/lang/Boolean"
	Double    = "java/lang/Double"
	Float     = "java/lang/Float"
	Character = "java/lang/Character"
	Number    = "java/lang/Number"
)

// Descriptor returns the field descriptor of an internal class name.
func Descriptor(class string) string {
	return "L" + class + ";"
}

// Boxes maps primitive descriptors to their wrapper classes.
var Boxes = map[string]string{
	"Z": Boolean,
	"B": Byte,
	"C": Character,
	"S": Short,
	"I": Integer,
	"J": Long,
	"F": Float,
	"D": Double,
}

// ArgKind says how an entry point argument denotes the data type.
type ArgKind uint8

const (
	// ArgInstance is an object whose runtime class is the data type.
	ArgInstance ArgKind = iota
	// ArgType is a java.lang.Class or java.lang.reflect.Type.
	ArgType
	// ArgToken is a TypeToken.
	ArgToken
)

// EntryPoint is a Gson method that (de)serializes a data type given by
// one of its arguments. Arg counts parameters from 0, excluding the
// receiver.
type EntryPoint struct {
	Name       string
	Descriptor string
	Arg        int
	Kind       ArgKind
}

// EntryPoints lists the Gson methods through which data classes reach
// the binding machinery.
var EntryPoints = []EntryPoint{
	{"toJson", "(Ljava/lang/Object;)Ljava/lang/String;", 0, ArgInstance},
	{"toJson", "(Ljava/lang/Object;Ljava/lang/Appendable;)V", 0, ArgInstance},
	{"toJson", "(Ljava/lang/Object;Ljava/lang/reflect/Type;)Ljava/lang/String;", 1, ArgType},
	{"toJson", "(Ljava/lang/Object;Ljava/lang/reflect/Type;Ljava/lang/Appendable;)V", 1, ArgType},
	{"toJson", "(Ljava/lang/Object;Ljava/lang/reflect/Type;Lcom/google/gson/stream/JsonWriter;)V", 1, ArgType},
	{"toJsonTree", "(Ljava/lang/Object;)Lcom/google/gson/JsonElement;", 0, ArgInstance},
	{"toJsonTree", "(Ljava/lang/Object;Ljava/lang/reflect/Type;)Lcom/google/gson/JsonElement;", 1, ArgType},
	{"fromJson", "(Ljava/lang/String;Ljava/lang/Class;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Ljava/lang/String;Ljava/lang/reflect/Type;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Ljava/lang/String;Lcom/google/gson/reflect/TypeToken;)Ljava/lang/Object;", 1, ArgToken},
	{"fromJson", "(Ljava/io/Reader;Ljava/lang/Class;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Ljava/io/Reader;Ljava/lang/reflect/Type;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Ljava/io/Reader;Lcom/google/gson/reflect/TypeToken;)Ljava/lang/Object;", 1, ArgToken},
	{"fromJson", "(Lcom/google/gson/stream/JsonReader;Ljava/lang/reflect/Type;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Lcom/google/gson/stream/JsonReader;Lcom/google/gson/reflect/TypeToken;)Ljava/lang/Object;", 1, ArgToken},
	{"fromJson", "(Lcom/google/gson/JsonElement;Ljava/lang/Class;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Lcom/google/gson/JsonElement;Ljava/lang/reflect/Type;)Ljava/lang/Object;", 1, ArgType},
	{"fromJson", "(Lcom/google/gson/JsonElement;Lcom/google/gson/reflect/TypeToken;)Ljava/lang/Object;", 1, ArgToken},
	{"getAdapter", "(Ljava/lang/Class;)Lcom/google/gson/TypeAdapter;", 0, ArgType},
	{"getAdapter", "(Lcom/google/gson/reflect/TypeToken;)Lcom/google/gson/TypeAdapter;", 0, ArgToken},
}

// FindEntryPoint returns the entry point with the given name and
// descriptor.
func FindEntryPoint(name, desc string) (EntryPoint, bool) {
	for _, ep := range EntryPoints {
		if ep.Name == name && ep.Descriptor == desc {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Members of TypeToken the type resolver understands.
const (
	TypeTokenGetType      = "getType"
	TypeTokenGetTypeDesc  = "()Ljava/lang/reflect/Type;"
	TypeTokenGet          = "get"
	TypeTokenGetClassDesc = "(Ljava/lang/Class;)Lcom/google/gson/reflect/TypeToken;"
	TypeTokenGetTypeArg   = "(Ljava/lang/reflect/Type;)Lcom/google/gson/reflect/TypeToken;"
)
