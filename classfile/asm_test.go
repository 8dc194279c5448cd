package classfile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const loopText = `
# skip every member of an object
aload 1
invokevirtual com/google/gson/stream/JsonReader.beginObject()V
loop:
aload 1
invokevirtual com/google/gson/stream/JsonReader.hasNext()Z
ifeq done
aload 1
invokevirtual com/google/gson/stream/JsonReader.skipValue()V
goto loop
done:
aload 1
invokevirtual com/google/gson/stream/JsonReader.endObject()V
return
`

func TestAssembleLabels(t *testing.T) {
	pool := NewConstantPool()
	code, err := Assemble(pool, loopText)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(code) != 11 {
		t.Fatalf("got %d instructions, want 11", len(code))
	}
	if code[4].Op != OpIfeq || code[4].Target != 8 {
		t.Errorf("ifeq = %s -> %d, want ifeq -> 8", code[4].Op, code[4].Target)
	}
	if code[7].Op != OpGoto || code[7].Target != 2 {
		t.Errorf("goto = %s -> %d, want goto -> 2", code[7].Op, code[7].Target)
	}
	ref, err := pool.Ref(code[3].Index)
	if err != nil {
		t.Fatalf("Ref() error = %v", err)
	}
	want := MemberRef{Kind: ConstMethodRef, Class: "com/google/gson/stream/JsonReader", Name: "hasNext", Descriptor: "()Z"}
	if diff := cmp.Diff(want, ref); diff != "" {
		t.Errorf("hasNext ref mismatch (-want +got):\n%s", diff)
	}
	depth, err := MaxStack(pool, code)
	if err != nil {
		t.Fatalf("MaxStack() error = %v", err)
	}
	if depth != 1 {
		t.Errorf("MaxStack() = %d, want 1", depth)
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	texts := []string{
		loopText,
		`
iload 1
lookupswitch 3:three 1:one default:other
one:
ldc "one"
areturn
three:
ldc class com/example/Three
areturn
other:
aconst_null
areturn
`,
	}
	for i, text := range texts {
		pool := NewConstantPool()
		code, err := Assemble(pool, text)
		if err != nil {
			t.Fatalf("text %d: Assemble() error = %v", i, err)
		}
		again, err := Assemble(pool, Disassemble(pool, code))
		if err != nil {
			t.Fatalf("text %d: reassembling: %v", i, err)
		}
		if diff := cmp.Diff(code, again); diff != "" {
			t.Errorf("text %d: round trip mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestAssembleConstants(t *testing.T) {
	pool := NewConstantPool()
	code, err := Assemble(pool, `
ldc 100000
ldc 7L
ldc 1.5D
bipush -3
sipush 1000
newarray int
getstatic java/lang/Integer.TYPE:Ljava/lang/Class;
invokeinterface java/util/List.add(Ljava/lang/Object;)Z
`)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	got := []string{}
	for i := range code {
		got = append(got, FormatInstruction(pool, &code[i]))
	}
	want := []string{
		"ldc 100000",
		"ldc 7L",
		"ldc 1.5D",
		"bipush -3",
		"sipush 1000",
		"newarray int",
		"getstatic java/lang/Integer.TYPE:Ljava/lang/Class;",
		"invokeinterface java/util/List.add(Ljava/lang/Object;)Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("formatted mismatch (-want +got):\n%s", diff)
	}
	k, _ := pool.Get(code[7].Index)
	if k.Kind != ConstInterfaceMethodRef {
		t.Errorf("invokeinterface refers to %s, want InterfaceMethodref", k.Kind)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown mnemonic", "frobnicate"},
		{"missing operand", "aload x"},
		{"stray operand", "return 1"},
		{"unplaced label", "goto nowhere"},
		{"switch without default", "lookupswitch 1:a\na:\nreturn"},
		{"bad field", "getfield Foo"},
		{"field for invoke", "invokevirtual Foo.bar:I"},
		{"bad descriptor", "invokestatic Foo.bar(Q)V"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(NewConstantPool(), tt.text)
			if !errors.Is(err, ErrBadInstruction) {
				t.Errorf("Assemble(%q) error = %v, want ErrBadInstruction", tt.text, err)
			}
		})
	}
}

func TestParseMemberRef(t *testing.T) {
	tests := []struct {
		in      string
		want    MemberRef
		wantErr bool
	}{
		{
			in:   "com/google/gson/Gson.excluder:Lcom/google/gson/internal/Excluder;",
			want: MemberRef{Kind: ConstFieldRef, Class: "com/google/gson/Gson", Name: "excluder", Descriptor: "Lcom/google/gson/internal/Excluder;"},
		},
		{
			in:   "com/google/gson/Gson.<init>()V",
			want: MemberRef{Kind: ConstMethodRef, Class: "com/google/gson/Gson", Name: "<init>", Descriptor: "()V"},
		},
		{in: "noclass(I)V", wantErr: true},
		{in: "Foo.:I", wantErr: true},
		{in: "Foo.bar:", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMemberRef(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMemberRef(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseMemberRef(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
