// Package eligibility decides which classes the optimizer can handle and
// records, for each of them, the fields and JSON names the generated code
// uses.
package eligibility

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/signadot/gsonopt/analysis"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/settings"
)

// KeepFunc is a user filter; classes for which it returns false stay on
// the reflective path.
type KeepFunc func(c *classfile.Class, info *index.ClassInfo) (bool, error)

// Skip records why a reachable class is not optimized.
type Skip struct {
	Class  string
	Reason string
}

// Builder fills an OptimizedIndex from the data classes of a program.
type Builder struct {
	Pools    classfile.Pools
	Settings *settings.Runtime

	// Conservative skips classes that mix @Expose and unannotated fields
	// while the program does not require the annotation.
	Conservative bool

	Keep KeepFunc
	Log  *slog.Logger

	checker analysis.LocalOrAnonymousChecker
}

// Result is the outcome of Build.
type Result struct {
	Index   *index.OptimizedIndex
	Graph   *DependencyGraph
	Seeds   []Seed
	Skipped []Skip
}

// Build discovers the data classes of the program, registers the
// eligible ones with their fields and assigns indices.
func (b *Builder) Build() (*Result, error) {
	if b.Log == nil {
		b.Log = slog.Default()
	}
	seeds, err := FindSeeds(b.Pools)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(seeds))
	for i, s := range seeds {
		names[i] = s.Class
	}
	res := &Result{
		Index: index.New(),
		Graph: BuildDependencyGraph(b.Pools, names),
		Seeds: seeds,
	}
	for _, name := range res.Graph.Order {
		c := res.Graph.Nodes[name]
		info, reason, err := b.classInfo(c)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			res.Skipped = append(res.Skipped, Skip{Class: name, Reason: reason})
			b.Log.Debug("class stays reflective", "class", name, "reason", reason)
			if debug.Eligibility() {
				debug.Logf("eligibility: skip %s: %s", name, reason)
			}
			continue
		}
		res.Index.AddClass(name, info)
		for _, f := range info.Fields {
			for _, n := range info.FieldAliases[f.Name] {
				res.Index.AddFieldName(n)
			}
		}
		if debug.Eligibility() {
			debug.Logf("eligibility: optimize %s (%d fields)", name, len(info.Fields))
		}
	}
	res.Index.AssignIndices()
	return res, nil
}

// classInfo returns the info of c, or the reason c is not eligible.
func (b *Builder) classInfo(c *classfile.Class) (*index.ClassInfo, string, error) {
	reason, err := b.classReason(c)
	if err != nil || reason != "" {
		return nil, reason, err
	}
	info, reason, err := b.fields(c)
	if err != nil || reason != "" {
		return nil, reason, err
	}
	if b.Keep != nil {
		keep, err := b.Keep(c, info)
		if err != nil {
			return nil, "", fmt.Errorf("keep filter on %s: %w", c.Name, err)
		}
		if !keep {
			return nil, "rejected by keep filter", nil
		}
	}
	return info, "", nil
}

func (b *Builder) classReason(c *classfile.Class) (string, error) {
	rs := b.Settings
	local, err := b.checker.Check(c)
	if err != nil {
		return "", fmt.Errorf("checking %s for a local or anonymous class: %w", c.Name, err)
	}
	switch {
	case !b.Pools.IsProgramClass(c.Name):
		return "library class", nil
	case local:
		return "local or anonymous class", nil
	case analysis.IsNonStaticInner(c):
		return "non-static inner class", nil
	case c.IsInterface():
		return "interface", nil
	case c.IsEnum():
		return "enum", nil
	case c.IsAbstract():
		return "abstract class", nil
	case !c.Access.Has(classfile.AccPublic):
		return "not public", nil
	}
	ctor := c.Method("<init>", "()V")
	if ctor == nil || !ctor.Access.Has(classfile.AccPublic) {
		return "no public no-argument constructor", nil
	}
	if classfile.FindAnnotation(c.Annotations(), gson.JsonAdapter) != nil {
		return "annotated @JsonAdapter", nil
	}
	if rs.TypeAdapterClasses.Contains(c.Name) {
		return "custom type adapter registered", nil
	}
	if rs.InstanceCreatorClasses.Contains(c.Name) {
		return "instance creator registered", nil
	}
	if rs.Has(settings.TypeHierarchyAdapters) {
		for _, t := range rs.TypeAdapterClasses.Sorted() {
			if t != c.Name && b.Pools.Implements(c.Name, t) {
				return "hierarchy adapter registered for " + t, nil
			}
		}
	}
	if rs.CustomNaming() {
		return "custom field naming", nil
	}
	if rs.ExclusionStrategiesInUse() {
		return "exclusion strategies registered", nil
	}
	if _, ok := rs.ExcludedModifiers(); !ok {
		return "excluded modifiers not statically known", nil
	}
	for s := c.Super; s != "" && s != classfile.ObjectClass; {
		sc := b.Pools.Program.Get(s)
		if sc == nil {
			return "library superclass " + s, nil
		}
		s = sc.Super
	}
	if rs.Has(settings.VersionSet) {
		for _, hc := range b.hierarchy(c) {
			if versioned(hc.Annotations()) {
				return "versioned class " + hc.Name, nil
			}
			for _, f := range hc.Fields {
				if versioned(f.Annotations()) {
					return "versioned field " + hc.Name + "." + f.Name, nil
				}
			}
		}
	}
	return "", nil
}

func versioned(anns []*classfile.Annotation) bool {
	return classfile.FindAnnotation(anns, gson.Since) != nil || classfile.FindAnnotation(anns, gson.Until) != nil
}

// hierarchy returns c followed by its program superclasses.
func (b *Builder) hierarchy(c *classfile.Class) []*classfile.Class {
	var res []*classfile.Class
	seen := map[string]bool{}
	for c != nil && !seen[c.Name] {
		seen[c.Name] = true
		res = append(res, c)
		c = b.Pools.Program.Get(c.Super)
	}
	return res
}

// fields collects the fields of c and its superclasses that Gson
// (de)serializes, subclass fields first.
func (b *Builder) fields(c *classfile.Class) (*index.ClassInfo, string, error) {
	rs := b.Settings
	// classReason has already rejected an unresolved mask.
	mask, _ := rs.ExcludedModifiers()
	requireExpose := rs.Has(settings.ExcludeFieldsWithoutExposeAnnotation)
	info := index.NewClassInfo()
	var exposed, plain int
	owners := map[string]string{}
	jsonNames := map[string]string{}
	for _, hc := range b.hierarchy(c) {
		for _, f := range hc.Fields {
			if f.Access.Any(classfile.AccSynthetic) || f.Access.Any(mask) {
				continue
			}
			excluded, err := b.excludedFieldType(f.Descriptor)
			if err != nil {
				return nil, "", err
			}
			if excluded {
				continue
			}
			field := index.Field{
				Owner:       hc.Name,
				Name:        f.Name,
				Descriptor:  f.Descriptor,
				Signature:   f.Signature(),
				Access:      f.Access,
				Serialize:   true,
				Deserialize: true,
			}
			ann := f.Annotation(gson.Expose)
			if ann != nil {
				exposed++
			} else {
				plain++
			}
			if requireExpose {
				if ann == nil {
					continue
				}
				exp := index.Expose{
					Serialize:   boolElement(ann, "serialize", true),
					Deserialize: boolElement(ann, "deserialize", true),
				}
				if !exp.Serialize && !exp.Deserialize {
					continue
				}
				field.Serialize, field.Deserialize = exp.Serialize, exp.Deserialize
				info.ExposedFields[f.Name] = exp
			}
			if f.Annotation(gson.JsonAdapter) != nil {
				return nil, "field " + f.Name + " annotated @JsonAdapter", nil
			}
			if sig := f.Signature(); sig != "" {
				t, err := classfile.ParseTypeSignature(sig)
				if err != nil || t.HasTypeVar() {
					return nil, "field " + f.Name + " has a type variable in its type", nil
				}
			}
			if hc != c {
				switch {
				case f.Access.Has(classfile.AccPrivate):
					return nil, "inherits private field " + hc.Name + "." + f.Name, nil
				case !f.Access.Any(classfile.AccPublic|classfile.AccProtected) && hc.Package() != c.Package():
					return nil, "inherits package-private field " + hc.Name + "." + f.Name, nil
				}
			}
			if prev, dup := owners[f.Name]; dup {
				return nil, fmt.Sprintf("field %s declared in both %s and %s", f.Name, prev, hc.Name), nil
			}
			owners[f.Name] = hc.Name
			names := jsonNamesOf(f)
			for _, n := range names {
				if prev, dup := jsonNames[n]; dup {
					return nil, fmt.Sprintf("duplicate JSON name %q (fields %s and %s)", n, prev, f.Name), nil
				}
				jsonNames[n] = f.Name
			}
			info.FieldAliases[f.Name] = names
			info.Fields = append(info.Fields, field)
		}
	}
	if b.Conservative && !requireExpose && exposed > 0 && plain > 0 {
		return nil, "mixes @Expose and unannotated fields", nil
	}
	return info, "", nil
}

// excludedFieldType reports whether Gson skips fields of type desc: local
// and anonymous classes always, non-static inner classes when inner
// class serialization is disabled.
func (b *Builder) excludedFieldType(desc string) (bool, error) {
	name, ok := classfile.ClassOf(desc)
	if !ok {
		return false, nil
	}
	fc := b.Pools.Program.Get(name)
	if fc == nil {
		return false, nil
	}
	local, err := b.checker.Check(fc)
	if err != nil || local {
		return local, err
	}
	return b.Settings.Has(settings.DisableInnerClassSerialization) && analysis.IsNonStaticInner(fc), nil
}

// jsonNamesOf returns the JSON names of f, the written one first.
func jsonNamesOf(f *classfile.Field) []string {
	ann := f.Annotation(gson.SerializedName)
	if ann == nil {
		return []string{f.Name}
	}
	var names []string
	if v, ok := ann.Element("value"); ok && v.Tag == classfile.ElemString {
		names = append(names, v.String)
	}
	if alt, ok := ann.Element("alternate"); ok {
		for _, n := range alt.Strings() {
			if !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return []string{f.Name}
	}
	return names
}

func boolElement(a *classfile.Annotation, name string, dflt bool) bool {
	if v, ok := a.Element(name); ok && v.Tag == classfile.ElemBoolean {
		return v.Bool
	}
	return dflt
}
