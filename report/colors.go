package report

import (
	"strings"

	"github.com/fatih/color"
)

type Attr int

const (
	HeaderColor Attr = iota
	ClassColor
	ReasonColor
	FeatureColor
	InsertColor
	DeleteColor
	WarningColor
	CountColor
)

type Colors struct {
	Default func(string, ...any) string
	Map     map[Attr]func(string, ...any) string
}

func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Map:     map[Attr]func(string, ...any) string{},
	}
	colors.Map[HeaderColor] = color.New(color.Bold).SprintfFunc()
	colors.Map[ClassColor] = color.RGB(128, 168, 196).SprintfFunc()
	colors.Map[ReasonColor] = color.RGB(96, 96, 96).SprintfFunc()
	colors.Map[FeatureColor] = color.CyanString
	colors.Map[InsertColor] = color.RGB(8, 196, 16).SprintfFunc()
	colors.Map[DeleteColor] = color.RGB(196, 32, 32).SprintfFunc()
	colors.Map[WarningColor] = color.YellowString
	colors.Map[CountColor] = color.RGB(128, 216, 236).SprintfFunc()
	for k, f := range colors.Map {
		colors.Map[k] = func(v string, _ ...any) string {
			return f(strings.ReplaceAll(v, "%", "%%"))
		}
	}
	return colors
}

func colorDefault(v string, _ ...any) string { return v }

// Color renders s in the color of a. A nil Colors renders s as is.
func (c *Colors) Color(a Attr, s string) string {
	if c == nil {
		return s
	}
	return c.Get(a)(s)
}

func (c *Colors) Get(a Attr) func(string, ...any) string {
	f := c.Map[a]
	if f == nil {
		return c.Default
	}
	return f
}
