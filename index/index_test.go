package index

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func isBijection(m map[string]int) bool {
	vals := make([]int, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	sort.Ints(vals)
	for i, v := range vals {
		if v != i {
			return false
		}
	}
	return true
}

func TestAssignIndicesThreeClasses(t *testing.T) {
	x := New()
	for _, c := range []string{"com/example/A", "com/example/B", "com/example/C"} {
		x.AddClass(c, NewClassInfo())
	}
	x.AssignIndices()
	want := map[string]int{"com/example/A": 0, "com/example/B": 1, "com/example/C": 2}
	if diff := cmp.Diff(want, x.ClassIndex); diff != "" {
		t.Errorf("ClassIndex mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignIndicesIsBijection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{0, 1, 2, 7, 50} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			x := New()
			for i := 0; i < size; i++ {
				x.AddClass(fmt.Sprintf("c/C%d", i), NewClassInfo())
				x.AddFieldName(fmt.Sprintf("f%d", i))
			}
			// stale and duplicate values, plus keys that bypassed AddClass
			for k := range x.ClassIndex {
				x.ClassIndex[k] = rng.Intn(3)
			}
			for k := range x.FieldNameIndex {
				x.FieldNameIndex[k] = 42
			}
			x.ClassIndex["z/Direct"] = -5
			x.AssignIndices()
			if !isBijection(x.ClassIndex) {
				t.Errorf("ClassIndex not a bijection: %v", x.ClassIndex)
			}
			if !isBijection(x.FieldNameIndex) {
				t.Errorf("FieldNameIndex not a bijection: %v", x.FieldNameIndex)
			}
			if x.ClassIndex["z/Direct"] != size {
				t.Errorf("direct key index = %d, want %d", x.ClassIndex["z/Direct"], size)
			}

			again := make(map[string]int)
			for k, v := range x.ClassIndex {
				again[k] = v
			}
			x.AssignIndices()
			if diff := cmp.Diff(again, x.ClassIndex); diff != "" {
				t.Errorf("reassignment changed indices (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNamesByIndex(t *testing.T) {
	x := New()
	x.AddFieldName("name")
	x.AddFieldName("age")
	x.AddFieldName("name")
	x.AddClass("b/B", NewClassInfo())
	x.AddClass("a/A", NewClassInfo())
	x.AssignIndices()
	if diff := cmp.Diff([]string{"name", "age"}, x.FieldNames()); diff != "" {
		t.Errorf("FieldNames mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b/B", "a/A"}, x.ClassNames()); diff != "" {
		t.Errorf("ClassNames mismatch (-want +got):\n%s", diff)
	}
	if !x.Contains("a/A") || x.Contains("c/C") {
		t.Errorf("Contains mismatch")
	}
}

func TestSerializedName(t *testing.T) {
	ci := NewClassInfo()
	ci.FieldAliases["name"] = []string{"full_name", "fullName"}
	if got := ci.SerializedName("name"); got != "full_name" {
		t.Errorf("SerializedName(name) = %q", got)
	}
	if got := ci.SerializedName("age"); got != "age" {
		t.Errorf("SerializedName(age) = %q", got)
	}
}
