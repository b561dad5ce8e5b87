// Package value evaluates constant-expression token ranges (constant
// values, property and parameter defaults) into native Go values.
//
// Values are nil, bool, int64, float64, string, *Array or NotResolved.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type notResolved struct{}

func (notResolved) String() string { return "<not resolved>" }

// NotResolved stands in for any reference or sub-expression that could not
// be evaluated. It propagates through operators instead of failing the
// whole expression.
var NotResolved any = notResolved{}

func IsNotResolved(v any) bool {
	_, ok := v.(notResolved)
	return ok
}

// Entry is one key/value pair of an Array. Keys are int64 or string.
type Entry struct {
	Key   any
	Value any
}

// Array is an ordered map with PHP key semantics.
type Array struct {
	entries []Entry
	index   map[any]int
	next    int64
}

func NewArray() *Array {
	return &Array{index: make(map[any]int)}
}

// Append stores v under the next integer key.
func (a *Array) Append(v any) {
	a.Set(a.next, v)
}

// Set stores v under key, normalizing the key the way PHP does.
func (a *Array) Set(key, v any) {
	k := normalizeKey(key)
	if i, ok := a.index[k]; ok {
		a.entries[i].Value = v
		return
	}
	a.index[k] = len(a.entries)
	a.entries = append(a.entries, Entry{Key: k, Value: v})
	if n, ok := k.(int64); ok && n >= a.next {
		a.next = n + 1
	}
}

func (a *Array) Get(key any) (any, bool) {
	i, ok := a.index[normalizeKey(key)]
	if !ok {
		return nil, false
	}
	return a.entries[i].Value, true
}

func (a *Array) Len() int { return len(a.entries) }

func (a *Array) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

func normalizeKey(key any) any {
	switch k := key.(type) {
	case int64:
		return k
	case int:
		return int64(k)
	case float64:
		return int64(k)
	case bool:
		if k {
			return int64(1)
		}
		return int64(0)
	case nil:
		return ""
	case string:
		if n, err := strconv.ParseInt(k, 10, 64); err == nil && strconv.FormatInt(n, 10) == k {
			return n
		}
		return k
	}
	return fmt.Sprint(key)
}

// Native converts a value into plain Go data for JSON or YAML output.
// Arrays with consecutive integer keys become slices, others maps.
func Native(v any) any {
	switch x := v.(type) {
	case *Array:
		list := true
		for i, e := range x.entries {
			if n, ok := e.Key.(int64); !ok || n != int64(i) {
				list = false
				break
			}
		}
		if list {
			out := make([]any, 0, len(x.entries))
			for _, e := range x.entries {
				out = append(out, Native(e.Value))
			}
			return out
		}
		out := make(map[string]any, len(x.entries))
		for _, e := range x.entries {
			out[fmt.Sprint(e.Key)] = Native(e.Value)
		}
		return out
	case notResolved:
		return x.String()
	}
	return v
}

// Export renders a value as PHP source text.
func Export(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := FormatFloat(x)
		if !strings.ContainsAny(s, ".EN") {
			s += ".0"
		}
		return s
	case string:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(x) + "'"
	case *Array:
		parts := make([]string, 0, len(x.entries))
		for _, e := range x.entries {
			parts = append(parts, Export(e.Key)+" => "+Export(e.Value))
		}
		return "array(" + strings.Join(parts, ", ") + ")"
	case notResolved:
		return x.String()
	}
	return fmt.Sprint(v)
}

// FormatFloat formats a float the way PHP converts it to a string, with
// fourteen significant digits.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NAN"
	}
	s := strconv.FormatFloat(f, 'G', 14, 64)
	mant, exp, ok := strings.Cut(s, "E")
	if !ok {
		return s
	}
	sign := "+"
	if exp != "" && (exp[0] == '+' || exp[0] == '-') {
		sign, exp = exp[:1], exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	return mant + "E" + sign + exp
}

// ToString converts a scalar the way string concatenation does.
func ToString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case bool:
		if x {
			return "1", true
		}
		return "", true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return FormatFloat(x), true
	case string:
		return x, true
	case *Array:
		return "Array", true
	}
	return "", false
}

// ToNumber converts a scalar into int64 or float64.
func ToNumber(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return int64(0), true
	case bool:
		if x {
			return int64(1), true
		}
		return int64(0), true
	case int64, float64:
		return x, true
	case string:
		return parseNumericPrefix(x), true
	}
	return nil, false
}

func parseNumericPrefix(s string) any {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	isFloat := false
	if end < len(s) && s[end] == '.' {
		isFloat = true
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
	}
	if end == digits || (isFloat && end == digits+1) {
		return int64(0)
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		if exp < len(s) && s[exp] >= '0' && s[exp] <= '9' {
			isFloat = true
			end = exp
			for end < len(s) && s[end] >= '0' && s[end] <= '9' {
				end++
			}
		}
	}
	if !isFloat {
		if n, err := strconv.ParseInt(s[:end], 10, 64); err == nil {
			return n
		}
	}
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

func isNumericString(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	_, err := strconv.ParseFloat(t, 64)
	return err == nil
}

// ToBool applies PHP truthiness.
func ToBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	case *Array:
		return x.Len() > 0
	}
	return false
}

func toInt(v any) (int64, bool) {
	n, ok := ToNumber(v)
	if !ok {
		return 0, false
	}
	switch x := n.(type) {
	case int64:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

// Identical implements ===.
func Identical(a, b any) bool {
	switch x := a.(type) {
	case *Array:
		y, ok := b.(*Array)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, e := range x.entries {
			f := y.entries[i]
			if e.Key != f.Key || !Identical(e.Value, f.Value) {
				return false
			}
		}
		return true
	case notResolved:
		return false
	}
	if _, ok := b.(*Array); ok {
		return false
	}
	return a == b
}

// LooseEqual implements ==.
func LooseEqual(a, b any) bool {
	switch {
	case a == nil && b == nil:
		return true
	case isBool(a) || isBool(b) || a == nil || b == nil:
		return ToBool(a) == ToBool(b)
	}
	if x, ok := a.(*Array); ok {
		y, ok := b.(*Array)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, e := range x.entries {
			v, ok := y.Get(e.Key)
			if !ok || !LooseEqual(e.Value, v) {
				return false
			}
		}
		return true
	}
	if _, ok := b.(*Array); ok {
		return false
	}
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr && !(isNumericString(sa) && isNumericString(sb)) {
		return sa == sb
	}
	if (aStr && !isNumericString(sa)) || (bStr && !isNumericString(sb)) {
		x, _ := ToString(a)
		y, _ := ToString(b)
		return x == y
	}
	return compareNumbers(a, b) == 0
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// Compare implements <=> for scalars.
func Compare(a, b any) int {
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr && !(isNumericString(sa) && isNumericString(sb)) {
		return strings.Compare(sa, sb)
	}
	if isBool(a) || isBool(b) || a == nil || b == nil {
		x, y := ToBool(a), ToBool(b)
		switch {
		case x == y:
			return 0
		case x:
			return 1
		}
		return -1
	}
	return compareNumbers(a, b)
}

func compareNumbers(a, b any) int {
	x, _ := ToNumber(a)
	y, _ := ToNumber(b)
	xi, xInt := x.(int64)
	yi, yInt := y.(int64)
	if xInt && yInt {
		switch {
		case xi < yi:
			return -1
		case xi > yi:
			return 1
		}
		return 0
	}
	xf, yf := toFloat(x), toFloat(y)
	switch {
	case xf < yf:
		return -1
	case xf > yf:
		return 1
	}
	return 0
}
