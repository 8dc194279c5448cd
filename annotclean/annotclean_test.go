package annotclean

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/settings"
)

const model = `
program:
  - name: com/example/Data
    super: com/example/Base
    fields:
      - name: a
        descriptor: I
        signature: I
        annotations:
          - type: Lcom/google/gson/annotations/SerializedName;
            values:
              value: x
          - type: Lcom/google/gson/annotations/Expose;
          - type: Ljava/lang/Deprecated;
      - name: b
        descriptor: I
        annotations:
          - type: Lcom/google/gson/annotations/Expose;
  - name: com/example/Base
    fields:
      - name: id
        descriptor: J
        annotations:
          - type: Lcom/google/gson/annotations/SerializedName;
            values:
              value: ID
  - name: com/example/Plain
    fields:
      - name: p
        descriptor: I
        annotations:
          - type: Lcom/google/gson/annotations/SerializedName;
            values:
              value: q
`

func setup(t *testing.T) (classfile.Pools, *index.OptimizedIndex) {
	t.Helper()
	pools, err := classfile.LoadDocument([]byte(model))
	if err != nil {
		t.Fatal(err)
	}
	x := index.New()
	for _, name := range []string{"com/example/Data", "com/example/Base"} {
		info := index.NewClassInfo()
		for cur := pools.Program.Get(name); cur != nil; cur = pools.Program.Get(cur.Super) {
			for _, f := range cur.Fields {
				info.Fields = append(info.Fields, index.Field{Owner: cur.Name, Name: f.Name, Descriptor: f.Descriptor})
			}
		}
		x.AddClass(name, info)
	}
	x.AssignIndices()
	return pools, x
}

func annotationTypes(f *classfile.Field) []string {
	var res []string
	for _, a := range f.Annotations() {
		res = append(res, a.Type)
	}
	return res
}

func attributeCount(f *classfile.Field) int {
	return len(f.Attributes)
}

func TestClean(t *testing.T) {
	pools, x := setup(t)
	cl := &Cleaner{Pools: pools, Settings: settings.New(), Index: x}
	if n := cl.Clean(); n != 4 {
		t.Errorf("removed %d annotations, want 4", n)
	}
	data := pools.Program.Get("com/example/Data")
	if diff := cmp.Diff([]string{"Ljava/lang/Deprecated;"}, annotationTypes(data.Field("a"))); diff != "" {
		t.Errorf("a annotations mismatch (-want +got):\n%s", diff)
	}
	if got := data.Field("a").Signature(); got != "I" {
		t.Errorf("a lost its signature: %q", got)
	}
	if n := attributeCount(data.Field("b")); n != 0 {
		t.Errorf("b has %d attributes, want 0", n)
	}
	if n := attributeCount(pools.Program.Get("com/example/Base").Field("id")); n != 0 {
		t.Errorf("id has %d attributes, want 0", n)
	}
	plain := pools.Program.Get("com/example/Plain").Field("p")
	if diff := cmp.Diff([]string{gson.SerializedName}, annotationTypes(plain)); diff != "" {
		t.Errorf("annotations of a class outside the index changed (-want +got):\n%s", diff)
	}

	if n := cl.Clean(); n != 0 {
		t.Errorf("second run removed %d annotations", n)
	}
	if n := attributeCount(data.Field("a")); n != 2 {
		t.Errorf("a has %d attributes after the second run, want 2", n)
	}
}

func TestCustomNamingKeepsAnnotations(t *testing.T) {
	for _, f := range []settings.Feature{settings.FieldNamingPolicy, settings.FieldNamingStrategy} {
		t.Run(f.String(), func(t *testing.T) {
			pools, x := setup(t)
			rs := settings.New()
			rs.Set(f)
			cl := &Cleaner{Pools: pools, Settings: rs, Index: x}
			if n := cl.Clean(); n != 0 {
				t.Errorf("removed %d annotations", n)
			}
			got := annotationTypes(pools.Program.Get("com/example/Data").Field("a"))
			if len(got) != 3 {
				t.Errorf("annotations = %v", got)
			}
		})
	}
}

func TestReflectiveSubclassKeepsInheritedAnnotations(t *testing.T) {
	pools, x := setup(t)
	sub := classfile.NewClass("com/example/Sub", "com/example/Base", classfile.AccPublic)
	pools.Program.Add(sub)
	cl := &Cleaner{Pools: pools, Settings: settings.New(), Index: x}
	if n := cl.Clean(); n != 3 {
		t.Errorf("removed %d annotations, want 3", n)
	}
	id := pools.Program.Get("com/example/Base").Field("id")
	if diff := cmp.Diff([]string{gson.SerializedName}, annotationTypes(id)); diff != "" {
		t.Errorf("id annotations mismatch (-want +got):\n%s", diff)
	}
}
