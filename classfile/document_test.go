package classfile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const personDoc = `
program:
  - name: com/example/Person
    access: [public, super]
    innerClasses:
      - inner: com/example/Person$1
        name: ""
    fields:
      - name: name
        descriptor: Ljava/lang/String;
        access: [private]
        annotations:
          - type: Lcom/google/gson/annotations/SerializedName;
            values:
              value: full_name
              alternate: [fullName, nm]
      - name: tags
        descriptor: Ljava/util/List;
        signature: Ljava/util/List<Ljava/lang/String;>;
    methods:
      - name: <init>
        descriptor: ()V
        access: [public]
        maxStack: 1
        maxLocals: 1
        code: |
          aload 0
          invokespecial java/lang/Object.<init>()V
          return
library:
  - name: java/lang/Object
    access: [public]
`

func TestLoadDocument(t *testing.T) {
	pools, err := LoadDocument([]byte(personDoc))
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if pools.Program.Len() != 1 || pools.Library.Len() != 1 {
		t.Fatalf("got %d program, %d library classes", pools.Program.Len(), pools.Library.Len())
	}
	person := pools.Program.Get("com/example/Person")
	if person.Super != ObjectClass {
		t.Errorf("Super = %q, want %q", person.Super, ObjectClass)
	}
	if !person.Access.Has(AccPublic | AccSuper) {
		t.Errorf("Access = %v", person.Access.Names(KindClass))
	}
	name := person.Field("name")
	ann := name.Annotation("Lcom/google/gson/annotations/SerializedName;")
	if ann == nil {
		t.Fatalf("SerializedName missing")
	}
	v, _ := ann.Element("value")
	alt, _ := ann.Element("alternate")
	if v.String != "full_name" {
		t.Errorf("value = %q", v.String)
	}
	if diff := cmp.Diff([]string{"fullName", "nm"}, alt.Strings()); diff != "" {
		t.Errorf("alternate mismatch (-want +got):\n%s", diff)
	}
	if got := person.Field("tags").Signature(); got != "Ljava/util/List<Ljava/lang/String;>;" {
		t.Errorf("tags signature = %q", got)
	}
	ctor := person.Method("<init>", "()V")
	if ctor == nil || ctor.Code() == nil || len(ctor.Code().Instructions) != 3 {
		t.Fatalf("constructor body not assembled")
	}
	ic := person.InnerClasses()
	if ic == nil || len(ic.Classes) != 1 {
		t.Fatalf("inner classes = %+v", ic)
	}
	inner, _ := person.Pool.ClassName(ic.Classes[0].InnerClassIndex)
	if inner != "com/example/Person$1" || ic.Classes[0].OuterClassIndex != 0 || ic.Classes[0].InnerNameIndex != 0 {
		t.Errorf("inner class entry = %+v (%s)", ic.Classes[0], inner)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	pools, err := LoadDocument([]byte(personDoc))
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalDocument(pools)
	if err != nil {
		t.Fatalf("MarshalDocument() error = %v", err)
	}
	again, err := LoadDocument(data)
	if err != nil {
		t.Fatalf("reloading: %v\n%s", err, data)
	}
	want := NewDocument(pools)
	got := NewDocument(again)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalDocumentJSON(t *testing.T) {
	pools, err := LoadDocument([]byte(personDoc))
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalDocumentJSON(pools)
	if err != nil {
		t.Fatalf("MarshalDocumentJSON() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("not json: %v\n%s", err, data)
	}
	if _, ok := doc["program"]; !ok {
		t.Errorf("json lacks program: %s", data)
	}
}

func TestLoadDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad access", "program:\n  - name: A\n    access: [sealed]\n", "sealed"},
		{"bad code", "program:\n  - name: A\n    methods:\n      - name: m\n        descriptor: ()V\n        code: frob\n", "frob"},
		{"duplicate", "program:\n  - name: A\n  - name: A\n", "duplicate"},
		{"unnamed", "program:\n  - super: A\n", "without name"},
		{"bad element", "program:\n  - name: A\n    annotations:\n      - type: LX;\n        values:\n          v: {x: 1}\n", "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDocument([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadDocument() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
