package classfile

import (
	"fmt"
	"strings"
)

// AccessFlags are JVM access and property flags. The values double as
// java.lang.reflect.Modifier bits.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

type accessName struct {
	flag AccessFlags
	name string
}

var classAccess = []accessName{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSuper, "super"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
}

var fieldAccess = []accessName{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccVolatile, "volatile"},
	{AccTransient, "transient"},
	{AccSynthetic, "synthetic"},
	{AccEnum, "enum"},
}

var methodAccess = []accessName{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccBridge, "bridge"},
	{AccVarargs, "varargs"},
	{AccNative, "native"},
	{AccAbstract, "abstract"},
	{AccSynthetic, "synthetic"},
}

func accessTable(k Kind) []accessName {
	switch k {
	case KindField:
		return fieldAccess
	case KindMethod:
		return methodAccess
	default:
		return classAccess
	}
}

// Names returns the flag names set in a, using the names of the given node
// kind (class, field or method).
func (a AccessFlags) Names(k Kind) []string {
	var res []string
	for _, an := range accessTable(k) {
		if a&an.flag != 0 {
			res = append(res, an.name)
		}
	}
	return res
}

// Has reports whether all flags in f are set.
func (a AccessFlags) Has(f AccessFlags) bool {
	return a&f == f
}

// Any reports whether any flag in f is set.
func (a AccessFlags) Any(f AccessFlags) bool {
	return a&f != 0
}

// ParseAccess parses flag names for the given node kind.
func ParseAccess(k Kind, names []string) (AccessFlags, error) {
	var res AccessFlags
	table := accessTable(k)
outer:
	for _, n := range names {
		n = strings.TrimSpace(n)
		for _, an := range table {
			if an.name == n {
				res |= an.flag
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown %s access flag %q", k, n)
	}
	return res, nil
}
