package classfile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ops(code []Instruction) []string {
	var res []string
	for _, in := range code {
		res = append(res, in.Op.String())
	}
	return res
}

func TestEditorRetargets(t *testing.T) {
	pool := NewConstantPool()
	code, err := Assemble(pool, `
aload 0
ifnull end
nop
end:
return
`)
	if err != nil {
		t.Fatal(err)
	}
	ed := NewEditor(code)
	ed.InsertAfter(0, []Instruction{{Op: OpNop}})
	ed.InsertBefore(3, []Instruction{{Op: OpIconst0}, {Op: OpPop}})
	got, err := ed.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{"aload", "nop", "ifnull", "nop", "iconst_0", "pop", "return"}
	if diff := cmp.Diff(want, ops(got)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if got[2].Target != 4 {
		t.Errorf("ifnull target = %d, want 4 (the inserted code before return)", got[2].Target)
	}
	if code[1].Target != 3 {
		t.Errorf("original body modified: ifnull target = %d", code[1].Target)
	}
}

func TestEditorInsertedBranches(t *testing.T) {
	pool := NewConstantPool()
	code, err := Assemble(pool, "aload 0\npop\nreturn")
	if err != nil {
		t.Fatal(err)
	}
	c := NewComposer(pool)
	skip := c.NewLabel()
	c.Local(OpAload, 0).Branch(OpIfnull, skip).Op(OpNop).Mark(skip).Op(OpNop)
	seq, err := c.Instructions()
	if err != nil {
		t.Fatalf("Instructions() error = %v", err)
	}
	ed := NewEditor(code)
	ed.InsertAfter(1, seq)
	ed.Delete(0)
	ed.Replace(1, []Instruction{{Op: OpNop}})
	got, err := ed.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{"nop", "aload", "ifnull", "nop", "nop", "return"}
	if diff := cmp.Diff(want, ops(got)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if got[2].Target != 4 {
		t.Errorf("inserted ifnull target = %d, want 4", got[2].Target)
	}
}

func TestEditorRejectsBadOffsets(t *testing.T) {
	ed := NewEditor([]Instruction{{Op: OpReturn}})
	ed.InsertBefore(3, []Instruction{{Op: OpNop}})
	if _, err := ed.Apply(); err == nil {
		t.Errorf("Apply() with offset out of range succeeded")
	}
	ed = NewEditor([]Instruction{{Op: OpReturn}})
	ed.InsertBefore(0, []Instruction{{Op: OpGoto, Target: 5}})
	if _, err := ed.Apply(); err == nil {
		t.Errorf("Apply() with escaping branch succeeded")
	}
}

func TestComposerInt(t *testing.T) {
	tests := []struct {
		v    int
		want string
	}{
		{-1, "iconst_m1"},
		{0, "iconst_0"},
		{5, "iconst_5"},
		{6, "bipush 6"},
		{-128, "bipush -128"},
		{300, "sipush 300"},
		{70000, "ldc 70000"},
	}
	for _, tt := range tests {
		pool := NewConstantPool()
		code, err := NewComposer(pool).Int(tt.v).Instructions()
		if err != nil {
			t.Fatalf("Int(%d): %v", tt.v, err)
		}
		if got := FormatInstruction(pool, &code[0]); got != tt.want {
			t.Errorf("Int(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestComposerSwitchSortsKeys(t *testing.T) {
	pool := NewConstantPool()
	c := NewComposer(pool)
	a, b, d := c.NewLabel(), c.NewLabel(), c.NewLabel()
	c.Local(OpIload, 0).Switch([]int32{7, 2}, []Label{a, b}, d)
	c.Mark(a).Op(OpReturn)
	c.Mark(b).Op(OpReturn)
	c.Mark(d).Op(OpReturn)
	code, err := c.Instructions()
	if err != nil {
		t.Fatal(err)
	}
	sw := code[1]
	if diff := cmp.Diff([]int32{2, 7}, sw.Keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 2}, sw.Targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if sw.Target != 4 {
		t.Errorf("default = %d, want 4", sw.Target)
	}
}

func TestComposerRejectsMisuse(t *testing.T) {
	pool := NewConstantPool()
	if _, err := NewComposer(pool).Op(OpAload).Instructions(); err == nil {
		t.Errorf("Op(aload) succeeded")
	}
	if _, err := NewComposer(pool).Type(OpGetfield, "A").Instructions(); err == nil {
		t.Errorf("Type(getfield) succeeded")
	}
	c := NewComposer(pool)
	l := c.NewLabel()
	c.Mark(l).Op(OpNop).Mark(l)
	if _, err := c.Instructions(); err == nil {
		t.Errorf("placing a label twice succeeded")
	}
}

func TestConstantPoolClone(t *testing.T) {
	pool := NewConstantPool()
	s := pool.AddString("a")
	cp := pool.Clone()
	if got := cp.AddString("a"); got != s {
		t.Errorf("clone index of existing entry = %d, want %d", got, s)
	}
	cp.AddString("b")
	if pool.Len() != 3 {
		t.Errorf("original pool grew to %d entries", pool.Len())
	}
	if cp.Len() != 5 {
		t.Errorf("clone has %d entries, want 5", cp.Len())
	}
}
