// Package optimizer runs the passes that replace Gson's reflective
// binding of a program's data classes with generated code.
//
// A run is idle when the program does not contain Gson itself, since
// only a program that ships Gson can have its constructors patched.
// Otherwise it scans the builder configuration, selects and indexes
// the data classes, plans all generated code, commits it and finally
// strips the annotations the generated code made redundant. Planning
// completes before anything is committed, so a failed run leaves the
// program unchanged.
package optimizer

import (
	"fmt"
	"log/slog"

	"github.com/signadot/gsonopt/annotclean"
	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/eligibility"
	"github.com/signadot/gsonopt/gson"
	"github.com/signadot/gsonopt/index"
	"github.com/signadot/gsonopt/scan"
	"github.com/signadot/gsonopt/settings"
	"github.com/signadot/gsonopt/synth"
)

// State is the state of a run.
type State uint8

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Spec configures an Optimizer.
type Spec struct {
	Config
	Log *slog.Logger
}

// Optimizer executes runs over class pools.
type Optimizer struct {
	spec Spec
	keep eligibility.KeepFunc
}

// New returns an optimizer for spec. It fails if the configuration is
// invalid.
func New(spec *Spec) (*Optimizer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	keep, err := spec.KeepFunc()
	if err != nil {
		return nil, err
	}
	o := &Optimizer{spec: *spec, keep: keep}
	if o.spec.Log == nil {
		o.spec.Log = slog.Default()
	}
	return o, nil
}

// Result describes a run.
type Result struct {
	State    State
	Settings *settings.Runtime
	Index    *index.OptimizedIndex

	// Seeds are the data classes found at Gson call sites.
	Seeds []eligibility.Seed

	// Skipped are the reachable classes left on the reflective path.
	Skipped []eligibility.Skip

	// Generated are the names of the generated classes.
	Generated []string

	// Edits are the methods added to or changed in program classes.
	Edits []*synth.MethodEdit

	Warnings []string

	// AnnotationsRemoved counts the field annotations stripped.
	AnnotationsRemoved int
}

// Optimized returns the optimized data classes in index order.
func (r *Result) Optimized() []string {
	if r.Index == nil {
		return nil
	}
	return r.Index.ClassNames()
}

// Execute optimizes the program pool of pools in place.
func (o *Optimizer) Execute(pools classfile.Pools) (*Result, error) {
	log := o.spec.Log
	res := &Result{State: Idle}
	if !pools.Program.Contains(gson.Gson) {
		log.Info("gson is not part of the program, nothing to do")
		return res, nil
	}
	res.State = Active

	rs := settings.New()
	sc := scan.New(rs, pools)
	sc.Log = log
	if err := sc.Scan(); err != nil {
		return nil, err
	}
	res.Settings = rs
	log.Debug("builder features", "features", rs.String())

	b := &eligibility.Builder{
		Pools:        pools,
		Settings:     rs,
		Conservative: o.spec.Conservative,
		Keep:         o.keep,
		Log:          log,
	}
	built, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("selecting data classes: %w", err)
	}
	res.Index = built.Index
	res.Seeds = built.Seeds
	res.Skipped = built.Skipped
	if len(built.Index.ClassIndex) == 0 {
		log.Info("no data class can be optimized", "skipped", len(built.Skipped))
		return res, nil
	}

	p := &synth.Planner{
		Pools:    pools,
		Settings: rs,
		Index:    built.Index,
		Config: synth.Config{
			Package:     o.spec.GeneratedPackage,
			MapType:     o.spec.MapType,
			AddExcluder: o.addExcluder(rs),
			Log:         log,
		},
	}
	plan, err := p.Plan()
	if err != nil {
		return nil, fmt.Errorf("planning generated code: %w", err)
	}
	plan.Commit(pools.Program)
	for _, c := range plan.Classes {
		res.Generated = append(res.Generated, c.Name)
	}
	res.Edits = plan.Edits
	res.Warnings = plan.Warnings

	cl := &annotclean.Cleaner{Pools: pools, Settings: rs, Index: built.Index, Log: log}
	res.AnnotationsRemoved = cl.Clean()

	log.Info("optimized",
		"classes", len(built.Index.ClassIndex),
		"skipped", len(built.Skipped),
		"generated", len(res.Generated),
		"edits", len(res.Edits))
	return res, nil
}

func (o *Optimizer) addExcluder(rs *settings.Runtime) bool {
	switch o.spec.Excluder {
	case ExcluderAlways:
		return true
	case ExcluderNever:
		return false
	}
	return rs.NeedsExcluder()
}
