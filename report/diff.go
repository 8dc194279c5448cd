package report

import (
	"io"
	"strings"

	"github.com/signadot/gsonopt/synth"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// LineOp is the kind of a diff line.
type LineOp int

const (
	Same LineOp = iota
	Inserted
	Deleted
)

// Line is one line of a method diff.
type Line struct {
	Op   LineOp
	Text string
}

// DiffLines compares two disassemblies line by line.
func DiffLines(from, to string) []Line {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	var res []Line
	for _, d := range diffs {
		op := Same
		switch d.Type {
		case diffpatch.DiffInsert:
			op = Inserted
		case diffpatch.DiffDelete:
			op = Deleted
		}
		for _, ln := range strings.SplitAfter(d.Text, "\n") {
			if ln == "" {
				continue
			}
			res = append(res, Line{Op: op, Text: strings.TrimSuffix(ln, "\n")})
		}
	}
	return res
}

// MethodDiff writes the diff of an edited method to w. Added methods
// show as all inserted.
func MethodDiff(w io.Writer, e *synth.MethodEdit, c *Colors) error {
	p := &printer{w: w}
	p.printf("%s\n", c.Color(HeaderColor, e.String()))
	for _, ln := range DiffLines(e.Before, e.After) {
		switch ln.Op {
		case Inserted:
			p.printf("%s\n", c.Color(InsertColor, "+ "+ln.Text))
		case Deleted:
			p.printf("%s\n", c.Color(DeleteColor, "- "+ln.Text))
		default:
			p.printf("  %s\n", ln.Text)
		}
	}
	return p.err
}

// MethodDiffs writes the diffs of all edits.
func MethodDiffs(w io.Writer, edits []*synth.MethodEdit, c *Colors) error {
	for i, e := range edits {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := MethodDiff(w, e, c); err != nil {
			return err
		}
	}
	return nil
}
