package scan

import (
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/settings"
)

// Action is what a matched builder call does beyond flagging its feature.
type Action uint8

const (
	// Flag only records the feature.
	Flag Action = iota
	// RegisterAdapter resolves the registered type (first argument) and
	// the adapter object (second argument).
	RegisterAdapter
	// RegisterFactory resolves the factory class.
	RegisterFactory
	// ExcludeModifiers resolves the modifier array.
	ExcludeModifiers
)

// CallSite identifies a method by declaring class, name and descriptor.
type CallSite struct {
	Class      string
	Name       string
	Descriptor string
}

// Entry is the effect of a builder call.
type Entry struct {
	Feature settings.Feature
	Action  Action
}

const builderRet = ")Lcom/google/gson/GsonBuilder;"

func builder(name, params string) CallSite {
	return CallSite{Class: gson.GsonBuilder, Name: name, Descriptor: "(" + params + builderRet}
}

// Table maps GsonBuilder configuration methods to their effect.
var Table = map[CallSite]Entry{
	builder("setVersion", "D"):                                                            {settings.VersionSet, Flag},
	builder("excludeFieldsWithModifiers", "[I"):                                           {settings.ExcludeFieldsWithModifiers, ExcludeModifiers},
	builder("generateNonExecutableJson", ""):                                              {settings.GenerateNonExecutableJSON, Flag},
	builder("excludeFieldsWithoutExposeAnnotation", ""):                                   {settings.ExcludeFieldsWithoutExposeAnnotation, Flag},
	builder("serializeNulls", ""):                                                         {settings.SerializeNulls, Flag},
	builder("serializeSpecialFloatingPointValues", ""):                                    {settings.SerializeSpecialFloatingPointValues, Flag},
	builder("enableComplexMapKeySerialization", ""):                                       {settings.ComplexMapKeySerialization, Flag},
	builder("disableInnerClassSerialization", ""):                                         {settings.DisableInnerClassSerialization, Flag},
	builder("setLongSerializationPolicy", "Lcom/google/gson/LongSerializationPolicy;"):    {settings.LongSerializationPolicy, Flag},
	builder("setFieldNamingPolicy", "Lcom/google/gson/FieldNamingPolicy;"):                {settings.FieldNamingPolicy, Flag},
	builder("setFieldNamingStrategy", "Lcom/google/gson/FieldNamingStrategy;"):            {settings.FieldNamingStrategy, Flag},
	builder("setExclusionStrategies", "[Lcom/google/gson/ExclusionStrategy;"):             {settings.ExclusionStrategies, Flag},
	builder("addSerializationExclusionStrategy", "Lcom/google/gson/ExclusionStrategy;"):   {settings.SerializationExclusionStrategy, Flag},
	builder("addDeserializationExclusionStrategy", "Lcom/google/gson/ExclusionStrategy;"): {settings.DeserializationExclusionStrategy, Flag},
	builder("registerTypeAdapter", "Ljava/lang/reflect/Type;Ljava/lang/Object;"):          {settings.TypeAdapters, RegisterAdapter},
	builder("registerTypeHierarchyAdapter", "Ljava/lang/Class;Ljava/lang/Object;"):        {settings.TypeHierarchyAdapters, RegisterAdapter},
	builder("registerTypeAdapterFactory", "Lcom/google/gson/TypeAdapterFactory;"):         {settings.TypeAdapterFactories, RegisterFactory},
}
