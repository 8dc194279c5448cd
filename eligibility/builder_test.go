package eligibility

import (
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/settings"
)

func loadShop(t *testing.T) classfile.Pools {
	t.Helper()
	data, err := os.ReadFile("testdata/shop.yaml")
	if err != nil {
		t.Fatal(err)
	}
	pools, err := classfile.LoadDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	return pools
}

func TestFindSeeds(t *testing.T) {
	seeds, err := FindSeeds(loadShop(t))
	if err != nil {
		t.Fatal(err)
	}
	want := []Seed{
		{Class: "com/example/Person", Site: "com/example/Main.run"},
		{Class: "com/example/Order", Site: "com/example/Main.run"},
		{Class: "com/example/Item", Site: "com/example/Main.run"},
		{Class: "com/example/Main$2", Site: "com/example/Main.run"},
	}
	if diff := cmp.Diff(want, seeds); diff != "" {
		t.Errorf("seeds mismatch (-want +got):\n%s", diff)
	}
}

func TestDependencyGraph(t *testing.T) {
	pools := loadShop(t)
	g := BuildDependencyGraph(pools, []string{"com/example/Person", "com/example/Order"})
	wantOrder := []string{
		"com/example/Person",
		"com/example/Order",
		"com/example/Address",
		"com/example/Base",
		"com/example/Item",
	}
	if diff := cmp.Diff(wantOrder, g.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"com/example/Base", "com/example/Item"}, g.Edges["com/example/Order"]); diff != "" {
		t.Errorf("Order edges mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"com/example/Order"}, g.Dependents("com/example/Base")); diff != "" {
		t.Errorf("Base dependents mismatch (-want +got):\n%s", diff)
	}
	if _, ok := g.Nodes["java/lang/String"]; ok {
		t.Error("library class in graph")
	}
}

func TestBuildShop(t *testing.T) {
	b := &Builder{Pools: loadShop(t), Settings: settings.New()}
	res, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	wantClasses := map[string]int{
		"com/example/Person":  0,
		"com/example/Order":   1,
		"com/example/Item":    2,
		"com/example/Address": 3,
		"com/example/Base":    4,
	}
	if diff := cmp.Diff(wantClasses, res.Index.ClassIndex); diff != "" {
		t.Errorf("ClassIndex mismatch (-want +got):\n%s", diff)
	}
	wantNames := []string{"full_name", "fullName", "age", "address", "items", "id", "street"}
	if diff := cmp.Diff(wantNames, res.Index.FieldNames()); diff != "" {
		t.Errorf("field names mismatch (-want +got):\n%s", diff)
	}
	wantSkipped := []Skip{{Class: "com/example/Main$2", Reason: "local or anonymous class"}}
	if diff := cmp.Diff(wantSkipped, res.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}

	person := res.Index.Info("com/example/Person")
	var fields []string
	for _, f := range person.Fields {
		fields = append(fields, f.Name)
	}
	if diff := cmp.Diff([]string{"name", "age", "address"}, fields); diff != "" {
		t.Errorf("Person fields mismatch (-want +got):\n%s", diff)
	}
	if got := person.SerializedName("name"); got != "full_name" {
		t.Errorf("SerializedName(name) = %q, want full_name", got)
	}

	order := res.Index.Info("com/example/Order")
	want := []index.Field{
		{Owner: "com/example/Order", Name: "items", Descriptor: "Ljava/util/List;", Signature: "Ljava/util/List<Lcom/example/Item;>;", Serialize: true, Deserialize: true},
		{Owner: "com/example/Base", Name: "id", Descriptor: "I", Access: classfile.AccProtected, Serialize: true, Deserialize: true},
	}
	if diff := cmp.Diff(want, order.Fields); diff != "" {
		t.Errorf("Order fields mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCustomNamingSkipsAll(t *testing.T) {
	rs := settings.New()
	rs.Set(settings.FieldNamingPolicy)
	res, err := (&Builder{Pools: loadShop(t), Settings: rs}).Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Index.ClassIndex) != 0 {
		t.Errorf("ClassIndex = %v, want empty", res.Index.ClassIndex)
	}
	if len(res.Skipped) != 6 {
		t.Errorf("got %d skipped classes, want 6", len(res.Skipped))
	}
}

func TestBuildKeepFilter(t *testing.T) {
	b := &Builder{
		Pools:    loadShop(t),
		Settings: settings.New(),
		Keep: func(c *classfile.Class, info *index.ClassInfo) (bool, error) {
			return c.Name != "com/example/Address", nil
		},
	}
	res, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if res.Index.Contains("com/example/Address") {
		t.Error("Address optimized despite keep filter")
	}
	if !slices.Contains(res.Skipped, Skip{Class: "com/example/Address", Reason: "rejected by keep filter"}) {
		t.Errorf("Address not reported as rejected: %v", res.Skipped)
	}
	// street is only used by Address
	if _, ok := res.Index.FieldNameIndex["street"]; ok {
		t.Error("field name of a rejected class registered")
	}

	boom := errors.New("boom")
	b.Keep = func(*classfile.Class, *index.ClassInfo) (bool, error) { return false, boom }
	if _, err := b.Build(); !errors.Is(err, boom) {
		t.Errorf("Build error = %v, want %v", err, boom)
	}
}

type classOpt func(c *classfile.Class)

func withCtor(access classfile.AccessFlags) classOpt {
	return func(c *classfile.Class) {
		c.AddMethod(access, "<init>", "()V", []classfile.Instruction{{Op: classfile.OpReturn}})
	}
}

func withField(access classfile.AccessFlags, name, desc string, anns ...*classfile.Annotation) classOpt {
	return func(c *classfile.Class) {
		f := c.AddField(access, name, desc)
		if len(anns) > 0 {
			f.Attributes = append(f.Attributes, &classfile.AnnotationsAttribute{Annotations: anns})
		}
	}
}

func withClassAnnotation(a *classfile.Annotation) classOpt {
	return func(c *classfile.Class) {
		c.Attributes = append(c.Attributes, &classfile.AnnotationsAttribute{Annotations: []*classfile.Annotation{a}})
	}
}

func withInner(outer, name string, access classfile.AccessFlags) classOpt {
	return func(c *classfile.Class) {
		e := classfile.InnerClass{InnerClassIndex: c.Pool.AddClass(c.Name), Access: access}
		if outer != "" {
			e.OuterClassIndex = c.Pool.AddClass(outer)
		}
		if name != "" {
			e.InnerNameIndex = c.Pool.AddUtf8(name)
		}
		c.Attributes = append(c.Attributes, &classfile.InnerClassesAttribute{Classes: []classfile.InnerClass{e}})
	}
}

func class(name, super string, access classfile.AccessFlags, opts ...classOpt) *classfile.Class {
	c := classfile.NewClass(name, super, access)
	for _, o := range opts {
		o(c)
	}
	return c
}

func data(name string, opts ...classOpt) *classfile.Class {
	return class(name, classfile.ObjectClass, classfile.AccPublic|classfile.AccSuper, append([]classOpt{withCtor(classfile.AccPublic)}, opts...)...)
}

func ann(typ string, elems ...classfile.ElementValue) *classfile.Annotation {
	return &classfile.Annotation{Type: typ, Elements: elems}
}

func TestClassReasons(t *testing.T) {
	pub := classfile.AccPublic | classfile.AccSuper
	program := classfile.NewClassPool(
		data("p/Plain", withField(classfile.AccPrivate, "x", "I")),
		data("p/Anon", withInner("", "", 0)),
		data("p/Local", withInner("p/Outer", "", 0)),
		data("p/Outer$In", withInner("p/Outer", "In", classfile.AccPublic)),
		data("p/Outer$Nested", withInner("p/Outer", "Nested", classfile.AccPublic|classfile.AccStatic)),
		class("p/Iface", "", classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract),
		class("p/Color", "java/lang/Enum", pub|classfile.AccEnum, withCtor(classfile.AccPublic)),
		class("p/Shape", classfile.ObjectClass, pub|classfile.AccAbstract, withCtor(classfile.AccPublic)),
		class("p/Hidden", classfile.ObjectClass, classfile.AccSuper, withCtor(classfile.AccPublic)),
		class("p/NoCtor", classfile.ObjectClass, pub),
		class("p/PrivCtor", classfile.ObjectClass, pub, withCtor(classfile.AccPrivate)),
		data("p/Adapted", withClassAnnotation(ann(gson.JsonAdapter))),
		data("p/Custom"),
		data("p/Created"),
		data("p/Thread", func(c *classfile.Class) { c.Super = "java/lang/Thread" }),
		data("p/Secret", withField(classfile.AccPrivate, "s", "I")),
		data("p/Leaks", func(c *classfile.Class) { c.Super = "p/Secret" }),
		data("p/Shadow", func(c *classfile.Class) { c.Super = "p/Plain" }, withField(0, "x", "J")),
		data("p/FieldAdapter", withField(0, "f", "I", ann(gson.JsonAdapter))),
		data("p/Clash",
			withField(0, "a", "I", ann(gson.SerializedName, classfile.ElementValue{Name: "value", Tag: classfile.ElemString, String: "k"})),
			withField(0, "k", "I")),
		data("p/HoldsAnon", withField(0, "a", "Lp/Anon;"), withField(0, "n", "I")),
	)
	if c := program.Get("p/Iface"); c != nil {
		c.Super = classfile.ObjectClass
	}
	library := classfile.NewClassPool(
		class("java/lang/Thread", classfile.ObjectClass, pub, withCtor(classfile.AccPublic)),
	)
	pools := classfile.Pools{Program: program, Library: library}

	rs := settings.New()
	rs.Set(settings.TypeAdapters)
	rs.TypeAdapterClasses.Add("p/Custom")
	rs.Set(settings.InstanceCreators)
	rs.InstanceCreatorClasses.Add("p/Created")
	b := &Builder{Pools: pools, Settings: rs}

	tests := []struct {
		class  string
		reason string
	}{
		{"p/Plain", ""},
		{"p/Anon", "local or anonymous class"},
		{"p/Local", "local or anonymous class"},
		{"p/Outer$In", "non-static inner class"},
		{"p/Outer$Nested", ""},
		{"p/Iface", "interface"},
		{"p/Color", "enum"},
		{"p/Shape", "abstract class"},
		{"p/Hidden", "not public"},
		{"p/NoCtor", "no public no-argument constructor"},
		{"p/PrivCtor", "no public no-argument constructor"},
		{"p/Adapted", "annotated @JsonAdapter"},
		{"p/Custom", "custom type adapter registered"},
		{"p/Created", "instance creator registered"},
		{"p/Thread", "library superclass java/lang/Thread"},
		{"p/Leaks", "inherits private field p/Secret.s"},
		{"p/Shadow", "inherits private field p/Plain.x"},
		{"p/FieldAdapter", "field f annotated @JsonAdapter"},
		{"p/Clash", `duplicate JSON name "k" (fields a and k)`},
		{"p/HoldsAnon", ""},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			info, reason, err := b.classInfo(program.Get(tt.class))
			if err != nil {
				t.Fatal(err)
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
			if (info != nil) != (tt.reason == "") {
				t.Errorf("info = %v with reason %q", info, reason)
			}
		})
	}

	info, _, _ := b.classInfo(program.Get("p/HoldsAnon"))
	if _, ok := info.Field("a"); ok {
		t.Error("field of anonymous class type kept")
	}
	if _, ok := info.Field("n"); !ok {
		t.Error("field n missing")
	}
}

func TestShadowedField(t *testing.T) {
	program := classfile.NewClassPool(
		data("p/Base", withField(classfile.AccProtected, "x", "I")),
		data("p/Sub", func(c *classfile.Class) { c.Super = "p/Base" }, withField(classfile.AccPublic, "x", "J")),
	)
	b := &Builder{Pools: classfile.Pools{Program: program, Library: classfile.NewClassPool()}, Settings: settings.New()}
	_, reason, err := b.classInfo(program.Get("p/Sub"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "field x declared in both p/Sub and p/Base"; reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestPackagePrivateInheritance(t *testing.T) {
	program := classfile.NewClassPool(
		data("a/Base", withField(0, "x", "I")),
		data("a/Same", func(c *classfile.Class) { c.Super = "a/Base" }),
		data("b/Other", func(c *classfile.Class) { c.Super = "a/Base" }),
	)
	b := &Builder{Pools: classfile.Pools{Program: program, Library: classfile.NewClassPool()}, Settings: settings.New()}
	if _, reason, _ := b.classInfo(program.Get("a/Same")); reason != "" {
		t.Errorf("same package: reason %q", reason)
	}
	if _, reason, _ := b.classInfo(program.Get("b/Other")); !strings.HasPrefix(reason, "inherits package-private field") {
		t.Errorf("other package: reason %q", reason)
	}
}

func TestHierarchyAdapter(t *testing.T) {
	program := classfile.NewClassPool(
		data("p/Animal"),
		data("p/Dog", func(c *classfile.Class) { c.Super = "p/Animal" }),
	)
	rs := settings.New()
	rs.Set(settings.TypeHierarchyAdapters)
	rs.TypeAdapterClasses.Add("p/Animal")
	b := &Builder{Pools: classfile.Pools{Program: program, Library: classfile.NewClassPool()}, Settings: rs}
	_, reason, _ := b.classInfo(program.Get("p/Dog"))
	if want := "hierarchy adapter registered for p/Animal"; reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestVersioned(t *testing.T) {
	program := classfile.NewClassPool(
		data("p/V", withField(0, "x", "I", ann(gson.Since))),
	)
	pools := classfile.Pools{Program: program, Library: classfile.NewClassPool()}
	rs := settings.New()
	b := &Builder{Pools: pools, Settings: rs}
	if _, reason, _ := b.classInfo(program.Get("p/V")); reason != "" {
		t.Errorf("without version: reason %q", reason)
	}
	rs.Set(settings.VersionSet)
	if _, reason, _ := b.classInfo(program.Get("p/V")); reason != "versioned field p/V.x" {
		t.Errorf("with version: reason %q", reason)
	}
}

func TestExpose(t *testing.T) {
	expose := func(ser, deser bool) *classfile.Annotation {
		return ann(gson.Expose,
			classfile.ElementValue{Name: "serialize", Tag: classfile.ElemBoolean, Bool: ser},
			classfile.ElementValue{Name: "deserialize", Tag: classfile.ElemBoolean, Bool: deser})
	}
	program := classfile.NewClassPool(
		data("p/E",
			withField(0, "both", "I", ann(gson.Expose)),
			withField(0, "out", "I", expose(true, false)),
			withField(0, "none", "I", expose(false, false)),
			withField(0, "plain", "I")),
	)
	rs := settings.New()
	rs.Set(settings.ExcludeFieldsWithoutExposeAnnotation)
	b := &Builder{Pools: classfile.Pools{Program: program, Library: classfile.NewClassPool()}, Settings: rs}
	info, reason, err := b.classInfo(program.Get("p/E"))
	if err != nil || reason != "" {
		t.Fatalf("classInfo: %q %v", reason, err)
	}
	want := map[string]index.Expose{
		"both": {Serialize: true, Deserialize: true},
		"out":  {Serialize: true},
	}
	if diff := cmp.Diff(want, info.ExposedFields); diff != "" {
		t.Errorf("ExposedFields mismatch (-want +got):\n%s", diff)
	}
	var got []string
	for _, f := range info.Fields {
		got = append(got, f.Name)
	}
	if diff := cmp.Diff([]string{"both", "out"}, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if f, _ := info.Field("out"); f.Deserialize {
		t.Error("out is deserialized")
	}
}

func TestConservative(t *testing.T) {
	program := classfile.NewClassPool(data("p/A", withField(classfile.AccTransient, "t", "I")))
	pools := classfile.Pools{Program: program, Library: classfile.NewClassPool()}

	tests := []struct {
		name         string
		setup        func(rs *settings.Runtime)
		conservative bool
		reason       string
		fields       []string
	}{
		{
			name: "strategies",
			setup: func(rs *settings.Runtime) {
				rs.Set(settings.SerializationExclusionStrategy)
			},
			conservative: true,
			reason:       "exclusion strategies registered",
		},
		{
			name: "strategies permissive",
			setup: func(rs *settings.Runtime) {
				rs.Set(settings.ExclusionStrategies)
			},
			reason: "exclusion strategies registered",
		},
		{
			name: "unknown modifiers",
			setup: func(rs *settings.Runtime) {
				rs.Set(settings.ExcludeFieldsWithModifiers)
				rs.UnresolvedModifiers()
			},
			conservative: true,
			reason:       "excluded modifiers not statically known",
		},
		{
			name: "unknown modifiers permissive",
			setup: func(rs *settings.Runtime) {
				rs.Set(settings.ExcludeFieldsWithModifiers)
				rs.UnresolvedModifiers()
			},
			reason: "excluded modifiers not statically known",
		},
		{
			name: "static only",
			setup: func(rs *settings.Runtime) {
				rs.Set(settings.ExcludeFieldsWithModifiers)
				rs.AddModifierMask(classfile.AccStatic)
			},
			conservative: true,
			fields:       []string{"t"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := settings.New()
			tt.setup(rs)
			b := &Builder{Pools: pools, Settings: rs, Conservative: tt.conservative}
			info, reason, err := b.classInfo(program.Get("p/A"))
			if err != nil {
				t.Fatal(err)
			}
			if reason != tt.reason {
				t.Fatalf("reason = %q, want %q", reason, tt.reason)
			}
			if info == nil {
				return
			}
			got := []string{}
			for _, f := range info.Fields {
				got = append(got, f.Name)
			}
			if diff := cmp.Diff(tt.fields, got); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConservativeMixedExpose(t *testing.T) {
	a := data("p/A", withField(0, "x", "I", ann(gson.Expose)), withField(0, "y", "I"))
	program := classfile.NewClassPool(a)
	pools := classfile.Pools{Program: program, Library: classfile.NewClassPool()}

	tests := []struct {
		name         string
		conservative bool
		require      bool
		reason       string
	}{
		{name: "permissive"},
		{name: "conservative", conservative: true, reason: "mixes @Expose and unannotated fields"},
		{name: "expose required", conservative: true, require: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := settings.New()
			if tt.require {
				rs.Set(settings.ExcludeFieldsWithoutExposeAnnotation)
			}
			b := &Builder{Pools: pools, Settings: rs, Conservative: tt.conservative}
			_, reason, err := b.classInfo(a)
			if err != nil {
				t.Fatal(err)
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestTypeVariableField(t *testing.T) {
	box := data("p/Box", withField(0, "v", "Ljava/lang/Object;"), withField(0, "n", "Ljava/util/List;"))
	box.Fields[0].Attributes = append(box.Fields[0].Attributes, &classfile.SignatureAttribute{Signature: "TT;"})
	box.Fields[1].Attributes = append(box.Fields[1].Attributes, &classfile.SignatureAttribute{Signature: "Ljava/util/List<Ljava/lang/String;>;"})
	program := classfile.NewClassPool(box)
	b := &Builder{Pools: classfile.Pools{Program: program, Library: classfile.NewClassPool()}, Settings: settings.New()}
	_, reason, _ := b.classInfo(box)
	if want := "field v has a type variable in its type"; reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}
