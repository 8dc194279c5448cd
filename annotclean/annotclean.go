// Package annotclean removes the naming and exposure annotations of
// optimized fields once the index holds what they say.
package annotclean

import (
	"log/slog"
	"slices"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/debug"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/settings"
)

// Removed lists the annotation types the cleaner strips.
var Removed = []string{gson.SerializedName, gson.Expose}

// Cleaner strips annotations from the fields of optimized classes.
type Cleaner struct {
	Pools    classfile.Pools
	Settings *settings.Runtime
	Index    *index.OptimizedIndex
	Log      *slog.Logger
}

// Clean removes the annotations and returns how many it removed. Nothing
// is removed while a custom naming policy or strategy is in use, since
// Gson still reads the names at run time then.
//
// A field keeps its annotations when its declaring class is not
// optimized, or when a program class that is not optimized inherits it,
// as reflective binding of that class still needs them.
func (cl *Cleaner) Clean() int {
	if cl.Log == nil {
		cl.Log = slog.Default()
	}
	if cl.Settings.CustomNaming() {
		cl.Log.Debug("keeping field annotations", "reason", "custom field naming")
		return 0
	}
	reflective := cl.reflectiveOwners()
	n := 0
	for _, name := range cl.Index.ClassNames() {
		for _, f := range cl.Index.Info(name).Fields {
			if !cl.Index.Contains(f.Owner) || reflective[f.Owner] {
				continue
			}
			owner := cl.Pools.Program.Get(f.Owner)
			if owner == nil {
				continue
			}
			field := owner.Field(f.Name)
			if field == nil {
				continue
			}
			k := strip(field)
			if k > 0 && debug.Clean() {
				debug.Logf("annotclean: %s.%s: removed %d", f.Owner, f.Name, k)
			}
			n += k
		}
	}
	if n > 0 {
		cl.Log.Debug("removed field annotations", "count", n)
	}
	return n
}

// reflectiveOwners returns the program classes that are superclasses of,
// or equal to, a program class left on the reflective path.
func (cl *Cleaner) reflectiveOwners() map[string]bool {
	res := map[string]bool{}
	for _, c := range cl.Pools.Program.Classes() {
		if cl.Index.Contains(c.Name) {
			continue
		}
		for cur := c; cur != nil && !res[cur.Name]; cur = cl.Pools.Program.Get(cur.Super) {
			res[cur.Name] = true
		}
	}
	return res
}

// strip removes the annotations in Removed from f, dropping annotation
// attributes left empty.
func strip(f *classfile.Field) int {
	n := 0
	attrs := f.Attributes[:0]
	for _, a := range f.Attributes {
		aa, ok := a.(*classfile.AnnotationsAttribute)
		if !ok {
			attrs = append(attrs, a)
			continue
		}
		before := len(aa.Annotations)
		aa.Annotations = slices.DeleteFunc(aa.Annotations, func(an *classfile.Annotation) bool {
			return slices.Contains(Removed, an.Type)
		})
		n += before - len(aa.Annotations)
		if len(aa.Annotations) > 0 {
			attrs = append(attrs, a)
		}
	}
	clear(f.Attributes[len(attrs):])
	f.Attributes = attrs
	return n
}
