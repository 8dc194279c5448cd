// Package settings records which GsonBuilder configuration features a
// program uses.
//
// A Runtime is created once per run, filled by the builder-invocation
// scan and read by every later pass. Flags only ever go from false to
// true.
package settings

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/signadot/gsonopt/classfile"
)

// Feature is a GsonBuilder configuration feature.
type Feature uint8

const (
	VersionSet Feature = iota
	ExcludeFieldsWithModifiers
	GenerateNonExecutableJSON
	ExcludeFieldsWithoutExposeAnnotation
	SerializeNulls
	ComplexMapKeySerialization
	DisableInnerClassSerialization
	LongSerializationPolicy
	FieldNamingPolicy
	FieldNamingStrategy
	ExclusionStrategies
	SerializationExclusionStrategy
	DeserializationExclusionStrategy
	TypeAdapters
	TypeHierarchyAdapters
	TypeAdapterFactories
	InstanceCreators
	SerializeSpecialFloatingPointValues

	numFeatures
)

var featureNames = [numFeatures]string{
	VersionSet:                           "versionSet",
	ExcludeFieldsWithModifiers:           "excludeFieldsWithModifiers",
	GenerateNonExecutableJSON:            "generateNonExecutableJson",
	ExcludeFieldsWithoutExposeAnnotation: "excludeFieldsWithoutExposeAnnotation",
	SerializeNulls:                       "serializeNulls",
	ComplexMapKeySerialization:           "complexMapKeySerialization",
	DisableInnerClassSerialization:       "disableInnerClassSerialization",
	LongSerializationPolicy:              "longSerializationPolicy",
	FieldNamingPolicy:                    "fieldNamingPolicy",
	FieldNamingStrategy:                  "fieldNamingStrategy",
	ExclusionStrategies:                  "exclusionStrategies",
	SerializationExclusionStrategy:       "serializationExclusionStrategy",
	DeserializationExclusionStrategy:     "deserializationExclusionStrategy",
	TypeAdapters:                         "typeAdapters",
	TypeHierarchyAdapters:                "typeHierarchyAdapters",
	TypeAdapterFactories:                 "typeAdapterFactories",
	InstanceCreators:                     "instanceCreators",
	SerializeSpecialFloatingPointValues:  "serializeSpecialFloatingPointValues",
}

func (f Feature) String() string {
	if f < numFeatures {
		return featureNames[f]
	}
	return fmt.Sprintf("feature(%d)", uint8(f))
}

// AllFeatures returns every feature in declaration order.
func AllFeatures() []Feature {
	res := make([]Feature, numFeatures)
	for i := range res {
		res[i] = Feature(i)
	}
	return res
}

// ParseFeature returns the feature called name.
func ParseFeature(name string) (Feature, error) {
	for i, n := range featureNames {
		if strings.EqualFold(n, name) {
			return Feature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feature %q", name)
}

// DefaultExcludedModifiers is the modifier mask Gson excludes when
// excludeFieldsWithModifiers is never called.
const DefaultExcludedModifiers = classfile.AccStatic | classfile.AccTransient

// ClassSet is a set of internal class names.
type ClassSet map[string]bool

// Add adds name and reports whether it was new.
func (s ClassSet) Add(name string) bool {
	if s[name] {
		return false
	}
	s[name] = true
	return true
}

// Contains reports whether name is in s.
func (s ClassSet) Contains(name string) bool {
	return s[name]
}

// Sorted returns the members of s in lexical order.
func (s ClassSet) Sorted() []string {
	res := make([]string, 0, len(s))
	for n := range s {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// Runtime is the set of builder features in use by a program.
type Runtime struct {
	flags [numFeatures]bool

	// TypeAdapterClasses holds the types custom adapters are registered
	// for, and the classes of registered adapter factories.
	TypeAdapterClasses ClassSet

	// InstanceCreatorClasses holds the types instance creators are
	// registered for.
	InstanceCreatorClasses ClassSet

	masks      []classfile.AccessFlags
	unresolved bool
}

// New returns a Runtime with every feature unset.
func New() *Runtime {
	return &Runtime{
		TypeAdapterClasses:     ClassSet{},
		InstanceCreatorClasses: ClassSet{},
	}
}

// Set marks f as in use and reports whether it was unset before.
func (r *Runtime) Set(f Feature) bool {
	if r.flags[f] {
		return false
	}
	r.flags[f] = true
	return true
}

// Has reports whether f is in use.
func (r *Runtime) Has(f Feature) bool {
	return r.flags[f]
}

// Features returns the features in use, in declaration order.
func (r *Runtime) Features() []Feature {
	var res []Feature
	for i, on := range r.flags {
		if on {
			res = append(res, Feature(i))
		}
	}
	return res
}

// CustomNaming reports whether a field naming policy or strategy is set,
// in which case JSON names cannot be derived statically.
func (r *Runtime) CustomNaming() bool {
	return r.Has(FieldNamingPolicy) || r.Has(FieldNamingStrategy)
}

// ExclusionStrategiesInUse reports whether user exclusion strategies are
// registered in any form.
func (r *Runtime) ExclusionStrategiesInUse() bool {
	return r.Has(ExclusionStrategies) ||
		r.Has(SerializationExclusionStrategy) ||
		r.Has(DeserializationExclusionStrategy)
}

// NeedsExcluder reports whether the Gson excluder can reject classes or
// fields beyond the defaults, so that generated code has to consult it.
func (r *Runtime) NeedsExcluder() bool {
	return r.ExclusionStrategiesInUse() ||
		r.Has(VersionSet) ||
		r.Has(ExcludeFieldsWithModifiers) ||
		r.Has(DisableInnerClassSerialization)
}

// AddModifierMask records a statically known argument of
// excludeFieldsWithModifiers.
func (r *Runtime) AddModifierMask(mask classfile.AccessFlags) {
	if !slices.Contains(r.masks, mask) {
		r.masks = append(r.masks, mask)
	}
}

// UnresolvedModifiers records a call to excludeFieldsWithModifiers whose
// argument could not be determined.
func (r *Runtime) UnresolvedModifiers() {
	r.unresolved = true
}

// ExcludedModifiers returns the modifier mask fields are excluded by. ok
// is false when the program calls excludeFieldsWithModifiers with an
// unknown argument or with more than one distinct mask.
func (r *Runtime) ExcludedModifiers() (mask classfile.AccessFlags, ok bool) {
	if !r.Has(ExcludeFieldsWithModifiers) {
		return DefaultExcludedModifiers, true
	}
	if r.unresolved || len(r.masks) != 1 {
		return 0, false
	}
	return r.masks[0], true
}

func (r *Runtime) String() string {
	var names []string
	for _, f := range r.Features() {
		names = append(names, f.String())
	}
	return "[" + strings.Join(names, " ") + "]"
}
