package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Scan        bool
	Eval        bool
	Eligibility bool
	Synth       bool
	Clean       bool
}

var d *debug

func init() {
	d = &debug{}
	d.Scan = boolEnv("GSONOPT_DEBUG_SCAN")
	d.Eval = boolEnv("GSONOPT_DEBUG_EVAL")
	d.Eligibility = boolEnv("GSONOPT_DEBUG_ELIGIBILITY")
	d.Synth = boolEnv("GSONOPT_DEBUG_SYNTH")
	d.Clean = boolEnv("GSONOPT_DEBUG_CLEAN")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Scan() bool {
	return d.Scan
}
func Eval() bool {
	return d.Eval
}
func Eligibility() bool {
	return d.Eligibility
}
func Synth() bool {
	return d.Synth
}
func Clean() bool {
	return d.Clean
}

// Logf writes a formatted trace line to stderr.
func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(d)
	os.Stderr.Write([]byte{'\n'})
}
