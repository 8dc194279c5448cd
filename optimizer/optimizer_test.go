package optimizer

import (
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/eligibility"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/settings"
	"github.com/signadot/gsonopt/synth"
)

const person = "com/example/Person"

func loadApp(t *testing.T) classfile.Pools {
	t.Helper()
	data, err := os.ReadFile("testdata/app.yaml")
	if err != nil {
		t.Fatal(err)
	}
	pools, err := classfile.LoadDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	return pools
}

func run(t *testing.T, pools classfile.Pools, cfg Config) (*Result, error) {
	t.Helper()
	o, err := New(&Spec{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	return o.Execute(pools)
}

func TestIdleWithoutGson(t *testing.T) {
	pools := loadApp(t)
	pools.Program.Remove(gson.Gson)
	n := pools.Program.Len()
	res, err := run(t, pools, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Idle {
		t.Errorf("state = %s, want idle", res.State)
	}
	if res.Settings != nil || res.Optimized() != nil {
		t.Error("idle run produced results")
	}
	if pools.Program.Len() != n || pools.Program.Get(person).Method(synth.FromJson, synth.FromJsonDesc) != nil {
		t.Error("idle run changed the program")
	}
}

func TestExecute(t *testing.T) {
	pools := loadApp(t)
	res, err := run(t, pools, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Active {
		t.Fatalf("state = %s, want active", res.State)
	}
	if diff := cmp.Diff([]settings.Feature{settings.SerializeNulls}, res.Settings.Features()); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{person}, res.Optimized()); diff != "" {
		t.Errorf("optimized mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"n", "age"}, res.Index.FieldNames()); diff != "" {
		t.Errorf("field names mismatch (-want +got):\n%s", diff)
	}
	if len(res.Generated) != 4 {
		t.Errorf("generated %v", res.Generated)
	}
	for _, name := range res.Generated {
		if !strings.HasPrefix(name, synth.DefaultPackage+"/") || !pools.Program.Contains(name) {
			t.Errorf("generated class %s misplaced", name)
		}
	}
	var edits []string
	for _, e := range res.Edits {
		edits = append(edits, e.Class.Name+"."+e.Name)
	}
	if diff := cmp.Diff([]string{person + ".fromJson$", person + ".toJson$", gson.Gson + ".<init>"}, edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
	p := pools.Program.Get(person)
	if p.Method(synth.FromJson, synth.FromJsonDesc) == nil {
		t.Error("fromJson$ not committed")
	}
	if res.AnnotationsRemoved != 1 || len(p.Field("name").Annotations()) != 0 {
		t.Errorf("annotations removed = %d", res.AnnotationsRemoved)
	}
	ctor := pools.Program.Get(gson.Gson).Method("<init>", "(Lcom/google/gson/internal/Excluder;Ljava/util/List;)V")
	text := classfile.Disassemble(pools.Program.Get(gson.Gson).Pool, ctor.Code().Instructions)
	if !strings.Contains(text, "new com/google/gson/internal/optimization/_OptimizedTypeAdapterFactory\n") {
		t.Errorf("factory not registered:\n%s", text)
	}
	if strings.Contains(text, "getfield com/google/gson/Gson.excluder") {
		t.Error("excluder wired without exclusion settings")
	}
}

func TestExcluderModes(t *testing.T) {
	tests := []struct {
		mode string
		want bool
	}{
		{"", false},
		{ExcluderAuto, false},
		{ExcluderNever, false},
		{ExcluderAlways, true},
	}
	for _, tt := range tests {
		t.Run("mode="+tt.mode, func(t *testing.T) {
			res, err := run(t, loadApp(t), Config{Excluder: tt.mode})
			if err != nil {
				t.Fatal(err)
			}
			e := res.Edits[len(res.Edits)-1]
			if got := strings.Contains(e.After, "getfield com/google/gson/Gson.excluder"); got != tt.want {
				t.Errorf("excluder wired = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestKeepFilter(t *testing.T) {
	pools := loadApp(t)
	res, err := run(t, pools, Config{Keep: `simpleName != "Person"`})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Active || len(res.Optimized()) != 0 {
		t.Fatalf("optimized %v", res.Optimized())
	}
	want := []eligibility.Skip{{Class: person, Reason: "rejected by keep filter"}}
	if diff := cmp.Diff(want, res.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
	if len(res.Edits) != 0 || len(res.Generated) != 0 {
		t.Error("edits without optimized classes")
	}
}

func TestFailedRunLeavesProgram(t *testing.T) {
	pools := loadApp(t)
	_, err := run(t, pools, Config{MapType: "java/util/TreeMap"})
	if !errors.Is(err, synth.ErrMissingRuntimeType) {
		t.Fatalf("error = %v, want ErrMissingRuntimeType", err)
	}
	p := pools.Program.Get(person)
	if len(p.Methods) != 1 || len(p.Field("name").Annotations()) != 1 {
		t.Error("failed run changed a data class")
	}
	for _, c := range pools.Program.Classes() {
		if strings.HasPrefix(c.Name, synth.DefaultPackage) {
			t.Errorf("failed run added %s", c.Name)
		}
	}
}

func TestGeneratedPackage(t *testing.T) {
	res, err := run(t, loadApp(t), Config{GeneratedPackage: "com/example/gen"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(res.Generated, "com/example/gen/_OptimizedTypeAdapterFactory") {
		t.Errorf("generated %v", res.Generated)
	}
}
