package classfile

import "fmt"

// Editor collects edits against an existing method body and applies them
// in a single splice. Offsets always refer to the original body. Inserted
// sequences carry branch targets relative to their own start, as produced
// by Composer.Instructions.
//
// A branch to an original instruction lands on the code inserted before
// it; a branch to a deleted instruction lands on whatever follows.
type Editor struct {
	code    []Instruction
	before  map[int][]Instruction
	after   map[int][]Instruction
	replace map[int][]Instruction
	deleted map[int]bool
}

// NewEditor returns an editor for code. code itself is never modified.
func NewEditor(code []Instruction) *Editor {
	return &Editor{
		code:    code,
		before:  map[int][]Instruction{},
		after:   map[int][]Instruction{},
		replace: map[int][]Instruction{},
		deleted: map[int]bool{},
	}
}

// InsertBefore inserts seq before the instruction at offset.
func (e *Editor) InsertBefore(offset int, seq []Instruction) {
	e.before[offset] = append(e.before[offset], seq...)
}

// InsertAfter inserts seq after the instruction at offset.
func (e *Editor) InsertAfter(offset int, seq []Instruction) {
	e.after[offset] = append(e.after[offset], seq...)
}

// Replace replaces the instruction at offset with seq.
func (e *Editor) Replace(offset int, seq []Instruction) {
	e.replace[offset] = seq
}

// Delete removes the instruction at offset.
func (e *Editor) Delete(offset int) {
	e.deleted[offset] = true
}

// Modified reports whether any edit was recorded.
func (e *Editor) Modified() bool {
	return len(e.before)+len(e.after)+len(e.replace)+len(e.deleted) > 0
}

// Apply returns the edited body.
func (e *Editor) Apply() ([]Instruction, error) {
	for _, m := range []map[int][]Instruction{e.before, e.after, e.replace} {
		for off, seq := range m {
			if off < 0 || off >= len(e.code) {
				return nil, fmt.Errorf("%w: edit offset %d out of range", ErrBadInstruction, off)
			}
			for i := range seq {
				for _, t := range seq[i].Branches() {
					if t < 0 || t >= len(seq) {
						return nil, fmt.Errorf("%w: inserted branch target %d outside its sequence", ErrBadInstruction, t)
					}
				}
			}
		}
	}
	newIndex := make([]int, len(e.code)+1)
	var out []Instruction
	var original []int
	appendSeq := func(seq []Instruction) {
		base := len(out)
		for _, in := range seq {
			in = in.Clone()
			in.retarget(func(t int) int { return t + base })
			out = append(out, in)
		}
	}
	for i, in := range e.code {
		newIndex[i] = len(out)
		appendSeq(e.before[i])
		if seq, ok := e.replace[i]; ok {
			appendSeq(seq)
		} else if !e.deleted[i] {
			original = append(original, len(out))
			out = append(out, in.Clone())
		}
		appendSeq(e.after[i])
	}
	newIndex[len(e.code)] = len(out)
	for _, j := range original {
		out[j].retarget(func(t int) int {
			if t < 0 || t > len(e.code) {
				return t
			}
			return newIndex[t]
		})
	}
	return out, nil
}
