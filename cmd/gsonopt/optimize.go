package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/signadot/gsonopt/optimizer"
	"github.com/signadot/gsonopt/report"
)

type OptimizeConfig struct {
	*MainConfig

	In         string `cli:"name=in desc='input model document'"`
	ModelOut   string `cli:"name=out desc='write the optimized model document to this file'"`
	JSON       bool   `cli:"name=json desc='write the optimized model as json'"`
	ConfigFile string `cli:"name=config desc='optimizer configuration file (yaml)'"`
	Patch      string `cli:"name=patch desc='write a json merge patch from the input to the optimized model'"`
	Diff       bool   `cli:"name=diff desc='show disassembly diffs of edited methods'"`

	Conservative bool   `cli:"name=conservative desc='skip classes mixing @Expose and unannotated fields'"`
	Keep         string `cli:"name=keep desc='expression selecting the classes to optimize'"`
	MapType      string `cli:"name=map desc='map implementation of the generated lookup tables'"`
	Package      string `cli:"name=pkg desc='package of the generated classes'"`
	Excluder     string `cli:"name=excluder desc='wire the gson excluder: auto, always or never'"`

	Optimize *cli.Command
}

// config merges the configuration file with the command line, which
// takes precedence.
func (cfg *OptimizeConfig) config() (*optimizer.Config, error) {
	res := &optimizer.Config{}
	if cfg.ConfigFile != "" {
		c, err := optimizer.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		res = c
	}
	res.Merge(&optimizer.Config{
		Conservative:     cfg.Conservative,
		Keep:             cfg.Keep,
		MapType:          cfg.MapType,
		GeneratedPackage: cfg.Package,
		Excluder:         cfg.Excluder,
	})
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	return res, nil
}

func optimize(cfg *OptimizeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Optimize.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: unexpected arguments %v", cli.ErrUsage, args)
	}
	oCfg, err := cfg.config()
	if err != nil {
		return err
	}
	data, pools, err := loadModel(cfg.In)
	if err != nil {
		return err
	}
	o, err := optimizer.New(&optimizer.Spec{Config: *oCfg, Log: slog.Default()})
	if err != nil {
		return err
	}
	res, err := o.Execute(pools)
	if err != nil {
		return fmt.Errorf("error optimizing %s: %w", cfg.In, err)
	}

	colors := cfg.colors(cc)
	if err := report.Summary(cc.Out, res, colors); err != nil {
		return err
	}
	if cfg.Diff && len(res.Edits) > 0 {
		fmt.Fprintln(cc.Out)
		if err := report.MethodDiffs(cc.Out, res.Edits, colors); err != nil {
			return err
		}
	}

	if cfg.ModelOut == "" && cfg.Patch == "" {
		return nil
	}
	out, err := marshalModel(pools, cfg.JSON)
	if err != nil {
		return err
	}
	if cfg.ModelOut != "" {
		if err := os.WriteFile(cfg.ModelOut, out, 0644); err != nil {
			return err
		}
	}
	if cfg.Patch != "" {
		patch, err := report.MergePatch(data, out)
		if err != nil {
			return fmt.Errorf("error computing patch: %w", err)
		}
		if err := os.WriteFile(cfg.Patch, patch, 0644); err != nil {
			return err
		}
	}
	return nil
}
