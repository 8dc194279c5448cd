// Package report renders the outcome of an optimizer run for people:
// a summary of what was optimized and why other classes were not, the
// disassembly diffs of edited methods and merge patches between model
// documents.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signadot/gsonopt/optimizer"
)

// Summary writes an overview of res to w.
func Summary(w io.Writer, res *optimizer.Result, c *Colors) error {
	p := &printer{w: w}
	p.printf("%s %s\n", c.Color(HeaderColor, "gsonopt:"), res.State)
	if res.State == optimizer.Idle {
		p.printf("  the program does not contain Gson\n")
		return p.err
	}

	features := "none"
	if fs := res.Settings.Features(); len(fs) > 0 {
		names := make([]string, len(fs))
		for i, f := range fs {
			names[i] = c.Color(FeatureColor, f.String())
		}
		features = strings.Join(names, " ")
	}
	p.printf("%s %s\n", c.Color(HeaderColor, "builder features:"), features)
	for _, class := range res.Settings.TypeAdapterClasses.Sorted() {
		p.printf("  type adapter for %s\n", c.Color(ClassColor, class))
	}
	for _, class := range res.Settings.InstanceCreatorClasses.Sorted() {
		p.printf("  instance creator for %s\n", c.Color(ClassColor, class))
	}

	optimized := res.Optimized()
	p.header(c, "optimized", len(optimized))
	for _, name := range optimized {
		info := res.Index.Info(name)
		p.printf("  %s %s %s\n",
			c.Color(CountColor, strconv.Itoa(res.Index.ClassIndex[name])),
			c.Color(ClassColor, name),
			c.Color(ReasonColor, fmt.Sprintf("(%d fields)", len(info.Fields))))
	}
	p.header(c, "skipped", len(res.Skipped))
	for _, s := range res.Skipped {
		p.printf("  %s: %s\n", c.Color(ClassColor, s.Class), c.Color(ReasonColor, s.Reason))
	}
	if len(res.Generated) > 0 {
		p.header(c, "generated", len(res.Generated))
		for _, name := range res.Generated {
			p.printf("  %s\n", name)
		}
	}
	if len(res.Edits) > 0 {
		p.header(c, "edited methods", len(res.Edits))
		for _, e := range res.Edits {
			mark := c.Color(InsertColor, "+")
			if !e.Added() {
				mark = c.Color(WarningColor, "~")
			}
			p.printf("  %s %s\n", mark, e)
		}
	}
	for _, warn := range res.Warnings {
		p.printf("%s %s\n", c.Color(WarningColor, "warning:"), warn)
	}
	if res.AnnotationsRemoved > 0 {
		p.printf("%s %d\n", c.Color(HeaderColor, "annotations removed:"), res.AnnotationsRemoved)
	}
	return p.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) header(c *Colors, title string, n int) {
	p.printf("%s (%s)\n", c.Color(HeaderColor, title), c.Color(CountColor, strconv.Itoa(n)))
}
