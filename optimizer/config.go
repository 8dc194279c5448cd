package optimizer

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"

	"github.com/signadot/gsonopt/classfile"
	"github.com/signadot/gsonopt/eligibility"
	"github.com/signadot/gsonopt/index"
)

// Excluder modes.
const (
	// ExcluderAuto wires Gson's Excluder into the generated factory when
	// the program configures class exclusion.
	ExcluderAuto   = "auto"
	ExcluderAlways = "always"
	ExcluderNever  = "never"
)

// Config is the serializable configuration of a run.
type Config struct {
	// Conservative leaves classes that mix @Expose and unannotated fields
	// on the reflective path unless the program requires the annotation.
	Conservative bool `yaml:"conservative,omitempty"`

	// Keep is an expression over a candidate data class. Classes for
	// which it is false are not optimized. The environment holds name,
	// package, simpleName and fields.
	Keep string `yaml:"keep,omitempty"`

	// MapType is the map implementation of the generated lookup tables.
	MapType string `yaml:"mapType,omitempty"`

	// GeneratedPackage is the internal name of the package generated
	// classes are placed in.
	GeneratedPackage string `yaml:"generatedPackage,omitempty"`

	// Excluder is one of auto, always and never.
	Excluder string `yaml:"excluder,omitempty"`
}

// ParseConfig decodes a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated settings and that Keep compiles.
func (c *Config) Validate() error {
	switch c.Excluder {
	case "", ExcluderAuto, ExcluderAlways, ExcluderNever:
	default:
		return fmt.Errorf("unknown excluder mode %q", c.Excluder)
	}
	_, err := c.KeepFunc()
	return err
}

// Merge overrides the settings of c that are set in o.
func (c *Config) Merge(o *Config) {
	if o.Conservative {
		c.Conservative = true
	}
	if o.Keep != "" {
		c.Keep = o.Keep
	}
	if o.MapType != "" {
		c.MapType = o.MapType
	}
	if o.GeneratedPackage != "" {
		c.GeneratedPackage = o.GeneratedPackage
	}
	if o.Excluder != "" {
		c.Excluder = o.Excluder
	}
}

// KeepEnv is the environment of a keep expression.
type KeepEnv struct {
	Name       string   `expr:"name"`
	Package    string   `expr:"package"`
	SimpleName string   `expr:"simpleName"`
	Fields     []string `expr:"fields"`
}

func keepEnv(c *classfile.Class, info *index.ClassInfo) KeepEnv {
	env := KeepEnv{
		Name:       c.Name,
		Package:    c.Package(),
		SimpleName: c.SimpleName(),
	}
	for _, f := range info.Fields {
		env.Fields = append(env.Fields, f.Name)
	}
	return env
}

// KeepFunc compiles Keep. It returns nil when Keep is empty.
func (c *Config) KeepFunc() (eligibility.KeepFunc, error) {
	if c.Keep == "" {
		return nil, nil
	}
	program, err := expr.Compile(c.Keep, expr.Env(KeepEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("error compiling keep expression %q: %w", c.Keep, err)
	}
	return func(cls *classfile.Class, info *index.ClassInfo) (bool, error) {
		res, err := vm.Run(program, keepEnv(cls, info))
		if err != nil {
			return false, fmt.Errorf("error evaluating %q: %w", c.Keep, err)
		}
		return res.(bool), nil
	}, nil
}
