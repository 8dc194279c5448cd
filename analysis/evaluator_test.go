package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/gsonopt/classfile"
)

// method assembles body into a new method of class c.
func method(t *testing.T, c *classfile.Class, access classfile.AccessFlags, name, desc, body string) *classfile.Method {
	t.Helper()
	code, err := classfile.Assemble(c.Pool, body)
	if err != nil {
		t.Fatalf("assembling %s: %v", name, err)
	}
	return c.AddMethod(access, name, desc, code)
}

// framesAt evaluates m and returns the frames before the given offsets.
func framesAt(t *testing.T, c *classfile.Class, m *classfile.Method, offsets ...int) map[int]*Frame {
	t.Helper()
	want := map[int]bool{}
	for _, o := range offsets {
		want[o] = true
	}
	res := map[int]*Frame{}
	var e Evaluator
	err := e.Evaluate(c, m, func(offset int, in *classfile.Instruction, f *Frame) error {
		if want[offset] {
			res[offset] = f.clone()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return res
}

func TestEvaluatorCallArguments(t *testing.T) {
	c := classfile.NewClass("com/example/Main", classfile.ObjectClass, classfile.AccPublic)
	m := method(t, c, classfile.AccPublic|classfile.AccStatic, "run", "(Ljava/lang/String;)V", `
new com/google/gson/Gson
dup
invokespecial com/google/gson/Gson.<init>()V
astore 1
aload 1
aload 0
ldc class com/example/Person
invokevirtual com/google/gson/Gson.fromJson(Ljava/lang/String;Ljava/lang/Class;)Ljava/lang/Object;
checkcast com/example/Person
astore 2
return
`)
	frames := framesAt(t, c, m, 7, 9)
	args, ok := frames[7].Top(3)
	if !ok {
		t.Fatalf("stack too shallow: %v", frames[7].Stack)
	}
	if args[0].Kind != Instance || !args[0].Exact || args[0].Class != "com/google/gson/Gson" || args[0].Slot != 1 {
		t.Errorf("receiver = %+v", args[0])
	}
	if args[1].Kind != Instance || args[1].Class != "java/lang/String" || args[1].Exact || args[1].Slot != 0 {
		t.Errorf("parameter = %+v", args[1])
	}
	if args[2].Kind != ClassLiteral || args[2].Class != "com/example/Person" || args[2].Producer != 6 {
		t.Errorf("class literal = %+v", args[2])
	}
	top := frames[9].Stack[len(frames[9].Stack)-1]
	if top.Kind != Instance || top.Class != "com/example/Person" || top.Call == nil || top.Call.Name != "fromJson" {
		t.Errorf("cast result = %+v", top)
	}
}

func TestEvaluatorIntArray(t *testing.T) {
	c := classfile.NewClass("com/example/Main", classfile.ObjectClass, classfile.AccPublic)
	m := method(t, c, classfile.AccPublic|classfile.AccStatic, "run", "()V", `
iconst_2
newarray int
dup
iconst_0
bipush 8
iastore
dup
iconst_1
sipush 128
iastore
astore 0
aload 0
pop
return
`)
	frames := framesAt(t, c, m, 12)
	v := frames[12].Stack[0]
	got, ok := v.Array.Constants()
	if v.Kind != IntArray || !ok {
		t.Fatalf("array = %+v", v)
	}
	if diff := cmp.Diff([]int64{8, 128}, got); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorPartialIntArray(t *testing.T) {
	c := classfile.NewClass("com/example/Main", classfile.ObjectClass, classfile.AccPublic)
	m := method(t, c, classfile.AccPublic|classfile.AccStatic, "run", "(I)V", `
iconst_2
newarray int
dup
iconst_0
iload 0
iastore
pop
return
`)
	frames := framesAt(t, c, m, 6)
	if _, ok := frames[6].Stack[0].Array.Constants(); ok {
		t.Errorf("array with an unknown store resolved")
	}
}

func TestEvaluatorMergesBranches(t *testing.T) {
	tests := []struct {
		name     string
		then     string
		want     ValueKind
		wantName string
	}{
		{name: "different classes", then: "com/example/A", want: Unknown},
		{name: "same class", then: "com/example/B", want: ClassLiteral, wantName: "com/example/B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classfile.NewClass("com/example/Main", classfile.ObjectClass, classfile.AccPublic)
			m := method(t, c, classfile.AccPublic|classfile.AccStatic, "pick", "(I)Ljava/lang/Object;", `
iload 0
ifeq other
ldc class `+tt.then+`
goto join
other:
ldc class com/example/B
join:
areturn
`)
			frames := framesAt(t, c, m, 5)
			v := frames[5].Stack[0]
			if v.Kind != tt.want || v.Class != tt.wantName {
				t.Errorf("merged = %+v, want %s %s", v, tt.want, tt.wantName)
			}
		})
	}
}

func TestEvaluatorRejectsUnderflow(t *testing.T) {
	c := classfile.NewClass("com/example/Main", classfile.ObjectClass, classfile.AccPublic)
	m := method(t, c, classfile.AccPublic|classfile.AccStatic, "bad", "()V", "pop\nreturn")
	var e Evaluator
	if err := e.Evaluate(c, m, nil); err == nil {
		t.Errorf("Evaluate() of an underflowing body succeeded")
	}
}
