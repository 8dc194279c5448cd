package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/gops/agent"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/report"
)

type MainConfig struct {
	Color   bool `cli:"name=color desc='color the report'"`
	Verbose bool `cli:"name=v desc='log debug messages'"`
	Gops    bool `cli:"name=gops desc='start a gops diagnostics agent'"`

	Out      string
	CloseOut func() error

	Main *cli.Command
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	cfg.Out = a
	if a == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	cc.Out = f
	cfg.CloseOut = f.Close
	return nil, nil
}

// setup applies the options shared by all commands.
func (cfg *MainConfig) setup() {
	if cfg.Verbose {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(theLog)
	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(os.Stderr, "gops agent failed: %v\n", err)
		}
	}
}

// colors returns the report colors: on with -color, off when -color is
// given as false, else on when the output is a terminal.
func (cfg *MainConfig) colors(cc *cli.Context) *report.Colors {
	if cfg.Color {
		return report.NewColors()
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return nil
		}
	}
	f, ok := cc.Out.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) {
		return report.NewColors()
	}
	return nil
}

func loadModel(path string) ([]byte, classfile.Pools, error) {
	if path == "" {
		return nil, classfile.Pools{}, fmt.Errorf("%w: -in is required", cli.ErrUsage)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classfile.Pools{}, err
	}
	pools, err := classfile.LoadDocument(data)
	if err != nil {
		return nil, classfile.Pools{}, fmt.Errorf("error loading %s: %w", path, err)
	}
	return data, pools, nil
}

func marshalModel(pools classfile.Pools, asJSON bool) ([]byte, error) {
	if asJSON {
		return classfile.MarshalDocumentJSON(pools)
	}
	return classfile.MarshalDocument(pools)
}

// writeOut writes data to path, or to the command output when path is
// empty.
func writeOut(cc *cli.Context, path string, data []byte) error {
	if path == "" {
		_, err := cc.Out.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
