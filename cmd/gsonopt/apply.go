package main

import (
	"fmt"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/report"
)

type ApplyConfig struct {
	*MainConfig

	In       string `cli:"name=in desc='input model document'"`
	Patch    string `cli:"name=patch desc='merge patch or json patch file'"`
	ModelOut string `cli:"name=out desc='write the patched model to this file (default: report output)'"`
	JSON     bool   `cli:"name=json desc='write the patched model as json'"`

	Apply *cli.Command
}

func apply(cfg *ApplyConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Apply.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Patch == "" {
		return fmt.Errorf("%w: -patch is required", cli.ErrUsage)
	}
	data, _, err := loadModel(cfg.In)
	if err != nil {
		return err
	}
	patch, err := os.ReadFile(cfg.Patch)
	if err != nil {
		return err
	}
	patched, err := report.ApplyPatch(data, patch)
	if err != nil {
		return fmt.Errorf("error applying %s: %w", cfg.Patch, err)
	}
	// the result has to be a model again
	pools, err := classfile.LoadDocument(patched)
	if err != nil {
		return fmt.Errorf("patched model: %w", err)
	}
	out, err := marshalModel(pools, cfg.JSON)
	if err != nil {
		return err
	}
	return writeOut(cc, cfg.ModelOut, out)
}
