// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// literalHygiene removes characters that break the textual triple syntax and
// folds line breaks so every triple stays on one line.
var literalHygiene = strings.NewReplacer(
	`"`, "",
	"$", "",
	`\`, "",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// StringLiteral builds a string literal with unsafe characters removed.
func StringLiteral(s string) types.Literal {
	return types.Literal{Kind: types.KindString, Lexical: literalHygiene.Replace(s)}
}

// IntegerLiteral builds a bare integer literal.
func IntegerLiteral(v int64) types.Literal {
	return types.Literal{Kind: types.KindInteger, Lexical: strconv.FormatInt(v, 10)}
}

// DoubleLiteral formats v with 20 significant digits. The exponent form
// keeps the literal a double when read back. NaN and infinities have no
// numeric literal and become strings.
func DoubleLiteral(v float64) types.Literal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return StringLiteral(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return types.Literal{Kind: types.KindDouble, Lexical: strconv.FormatFloat(v, 'e', 19, 64)}
}

// UnsignedLiteral builds an integer literal from v. Values beyond the int64
// range have no integer literal and become strings.
func UnsignedLiteral(v uint64) types.Literal {
	if v > math.MaxInt64 {
		return StringLiteral(strconv.FormatUint(v, 10))
	}
	return IntegerLiteral(int64(v))
}

// BooleanLiteral builds a bare boolean literal.
func BooleanLiteral(v bool) types.Literal {
	return types.Literal{Kind: types.KindBoolean, Lexical: strconv.FormatBool(v)}
}

// Normalize expands findings into facts about subject. List values give one
// fact per element, scalars one fact. Keys are visited in sorted order so
// the same findings always produce the same facts.
func Normalize(subject string, findings types.Findings) []types.Fact {
	keys := make([]string, 0, len(findings))
	for k := range findings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var facts []types.Fact
	for _, k := range keys {
		for _, lit := range literals(findings[k]) {
			facts = append(facts, types.Fact{Subject: subject, Predicate: k, Object: lit})
		}
	}
	return facts
}

func literals(v any) []types.Literal {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return []types.Literal{StringLiteral(string(x))}
	case []any:
		out := make([]types.Literal, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			out = append(out, scalarLiteral(e))
		}
		return out
	case []string:
		return mapLiterals(x, StringLiteral)
	case []int:
		return mapLiterals(x, func(i int) types.Literal { return IntegerLiteral(int64(i)) })
	case []int64:
		return mapLiterals(x, IntegerLiteral)
	case []uint64:
		return mapLiterals(x, UnsignedLiteral)
	case []float32:
		return mapLiterals(x, func(f float32) types.Literal { return DoubleLiteral(float64(f)) })
	case []float64:
		return mapLiterals(x, DoubleLiteral)
	case []bool:
		return mapLiterals(x, BooleanLiteral)
	}

	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return []types.Literal{scalarLiteral(v)}
	}
	out := make([]types.Literal, 0, rv.Len())
	for i := range rv.Len() {
		e := rv.Index(i)
		if isNil(e) {
			continue
		}
		out = append(out, scalarLiteral(e.Interface()))
	}
	return out
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func mapLiterals[T any](xs []T, f func(T) types.Literal) []types.Literal {
	out := make([]types.Literal, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

func scalarLiteral(v any) types.Literal {
	switch x := v.(type) {
	case string:
		return StringLiteral(x)
	case int:
		return IntegerLiteral(int64(x))
	case int8:
		return IntegerLiteral(int64(x))
	case int16:
		return IntegerLiteral(int64(x))
	case int32:
		return IntegerLiteral(int64(x))
	case int64:
		return IntegerLiteral(x)
	case uint:
		return UnsignedLiteral(uint64(x))
	case uint8:
		return IntegerLiteral(int64(x))
	case uint16:
		return IntegerLiteral(int64(x))
	case uint32:
		return IntegerLiteral(int64(x))
	case uint64:
		return UnsignedLiteral(x)
	case float32:
		return DoubleLiteral(float64(x))
	case float64:
		return DoubleLiteral(x)
	case bool:
		return BooleanLiteral(x)
	case fmt.Stringer:
		return StringLiteral(x.String())
	}

	// Named types over a basic kind.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return StringLiteral(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntegerLiteral(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return UnsignedLiteral(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return DoubleLiteral(rv.Float())
	case reflect.Bool:
		return BooleanLiteral(rv.Bool())
	default:
		return StringLiteral(fmt.Sprint(v))
	}
}
