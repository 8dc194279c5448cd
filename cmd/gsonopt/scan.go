package main

import (
	"fmt"
	"log/slog"

	"github.com/scott-cotton/cli"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/scan"
	"github.com/signadot/gsonopt/settings"
)

type ScanConfig struct {
	*MainConfig

	In string `cli:"name=in desc='input model document'"`

	Scan *cli.Command
}

func scanModel(cfg *ScanConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Scan.Parse(cc, args)
	if err != nil {
		return err
	}
	_, pools, err := loadModel(cfg.In)
	if err != nil {
		return err
	}
	rs := settings.New()
	sc := scan.New(rs, pools)
	sc.Log = slog.Default()
	if err := sc.Scan(); err != nil {
		return err
	}
	for _, f := range settings.AllFeatures() {
		fmt.Fprintf(cc.Out, "%s: %t\n", f, rs.Has(f))
	}
	if mask, ok := rs.ExcludedModifiers(); ok {
		fmt.Fprintf(cc.Out, "excluded modifiers: %v\n", mask.Names(classfile.KindField))
	} else {
		fmt.Fprintln(cc.Out, "excluded modifiers: unknown")
	}
	for _, c := range rs.TypeAdapterClasses.Sorted() {
		fmt.Fprintf(cc.Out, "type adapter: %s\n", c)
	}
	for _, c := range rs.InstanceCreatorClasses.Sorted() {
		fmt.Fprintf(cc.Out, "instance creator: %s\n", c)
	}
	return nil
}
