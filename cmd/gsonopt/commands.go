package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, &cli.Opt{
		Name:        "o",
		Description: "report output file (default stdout)",
		Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
	})

	return cli.NewCommandAt(&cfg.Main, "gsonopt").
		WithSynopsis("gsonopt [opts] command [opts]").
		WithDescription("gsonopt replaces Gson's reflective binding of data classes with generated code.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return gsonoptMain(cfg, cc, args)
		}).
		WithSubs(
			OptimizeCommand(cfg),
			ScanCommand(cfg),
			ApplyCommand(cfg))
}

func gsonoptMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	defer func() {
		if cfg.CloseOut != nil {
			cfg.CloseOut()
		}
	}()
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	cfg.setup()
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func OptimizeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &OptimizeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Optimize, "optimize").
		WithAliases("opt").
		WithSynopsis("optimize -in model.yaml [-out out.yaml] [-config c.yaml] [opts]").
		WithDescription("optimize the data classes of a model document").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return optimize(cfg, cc, args)
		})
}

func ScanCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ScanConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Scan, "scan").
		WithSynopsis("scan -in model.yaml").
		WithDescription("show the Gson builder features a model document uses").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return scanModel(cfg, cc, args)
		})
}

func ApplyCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ApplyConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Apply, "apply").
		WithSynopsis("apply -in model.yaml -patch p.json [-out out.yaml]").
		WithDescription("apply a merge patch or JSON patch to a model document").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return apply(cfg, cc, args)
		})
}
