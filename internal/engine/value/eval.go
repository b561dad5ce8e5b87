package value

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/token"
)

// Scope is the context an expression is evaluated in.
type Scope struct {
	Namespace    string
	Aliases      map[string]string
	ConstAliases map[string]string
	File         string
	Line         int
	Function     string
	Method       string
	Class        string
	Trait        string
	Parent       string
}

// Lookup resolves symbol references against the registry. A reference that
// cannot be resolved yields NotResolved. complete is false when the value
// depends on something not yet registered.
type Lookup interface {
	Constant(fqn string) (v any, complete bool)
	ClassConstant(class, name string) (v any, complete bool)
}

type RefKind int

const (
	RefConstant RefKind = iota
	RefClassConstant
	RefClassName
	RefMagic
)

// Reference is a symbol-reference sub-range of an expression. Start and
// End index the significant tokens, End inclusive.
type Reference struct {
	Kind  RefKind
	Start int
	End   int
	Name  string
	Class string
	Magic token.Kind
	Line  int
}

var literalNames = map[string]bool{
	"true": true, "false": true, "null": true,
	"and": true, "or": true, "xor": true,
}

// Significant drops whitespace and comments.
func Significant(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if !t.Kind.IsInsignificant(true) {
			out = append(out, t)
		}
	}
	return out
}

// References finds every symbol reference in a significant token slice.
func References(toks []token.Token) []Reference {
	var refs []Reference
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind.IsMagicConstant() {
			refs = append(refs, Reference{Kind: RefMagic, Start: i, End: i, Magic: t.Kind, Line: t.Line})
			continue
		}
		if !startsName(toks, i) {
			continue
		}
		name, end := readName(toks, i)
		if end+1 < len(toks) && toks[end+1].Kind == token.LParen {
			i = end
			continue
		}
		if end+2 < len(toks) && toks[end+1].Kind == token.DoubleColon {
			member := toks[end+2]
			switch {
			case member.Kind == token.Class:
				refs = append(refs, Reference{Kind: RefClassName, Start: i, End: end + 2, Class: name, Line: t.Line})
				i = end + 2
				continue
			case member.Kind == token.Identifier && !(end+3 < len(toks) && toks[end+3].Kind == token.LParen):
				refs = append(refs, Reference{Kind: RefClassConstant, Start: i, End: end + 2, Class: name, Name: member.Text, Line: t.Line})
				i = end + 2
				continue
			}
			i = end
			continue
		}
		if !strings.Contains(name, resolver.Separator) && literalNames[strings.ToLower(name)] {
			i = end
			continue
		}
		refs = append(refs, Reference{Kind: RefConstant, Start: i, End: end, Name: name, Line: t.Line})
		i = end
	}
	return refs
}

func startsName(toks []token.Token, i int) bool {
	switch toks[i].Kind {
	case token.Identifier, token.NameQualified, token.NameFullyQualified, token.Static:
		if toks[i].Kind == token.Static {
			return i+1 < len(toks) && toks[i+1].Kind == token.DoubleColon
		}
		return i == 0 || toks[i-1].Kind != token.NsSeparator
	case token.NsSeparator:
		return i+1 < len(toks) && toks[i+1].Kind == token.Identifier && (i == 0 || toks[i-1].Kind != token.Namespace)
	case token.Namespace:
		return i+2 < len(toks) && toks[i+1].Kind == token.NsSeparator
	}
	return false
}

func readName(toks []token.Token, i int) (string, int) {
	var b strings.Builder
	end := i
	for end < len(toks) {
		k := toks[end].Kind
		if k.IsName() || k == token.Static || (k == token.Namespace && end == i) {
			if end > i && k != token.NsSeparator && toks[end-1].Kind != token.NsSeparator {
				break
			}
			b.WriteString(toks[end].Text)
			end++
			continue
		}
		break
	}
	return b.String(), end - 1
}

// Evaluate resolves the references in tokens, splices their values back
// and evaluates the resulting literal expression.
func Evaluate(tokens []token.Token, scope Scope, lookup Lookup) (any, bool) {
	toks := Significant(tokens)
	if len(toks) == 0 {
		return NotResolved, true
	}

	items := make([]item, 0, len(toks))
	complete := true
	next := 0
	for _, ref := range References(toks) {
		for ; next < ref.Start; next++ {
			items = append(items, item{tok: toks[next]})
		}
		v, ok := resolve(ref, scope, lookup)
		if !ok {
			complete = false
		}
		items = append(items, item{val: v, resolved: true, tok: toks[ref.Start]})
		next = ref.End + 1
	}
	for ; next < len(toks); next++ {
		items = append(items, item{tok: toks[next]})
	}

	p := &parser{items: items}
	v := p.expr(0)
	if p.failed || p.pos < len(p.items) {
		return NotResolved, complete
	}
	return v, complete
}

func resolve(ref Reference, scope Scope, lookup Lookup) (any, bool) {
	switch ref.Kind {
	case RefMagic:
		return magic(ref, scope), true
	case RefClassName:
		class, ok := className(ref.Class, scope)
		if !ok {
			return NotResolved, false
		}
		return class, true
	case RefClassConstant:
		class, ok := className(ref.Class, scope)
		if !ok || lookup == nil {
			return NotResolved, false
		}
		return lookup.ClassConstant(class, ref.Name)
	}

	fqn, fallback := resolver.ResolveFunction(ref.Name, scope.ConstAliases, scope.Namespace)
	if lookup != nil {
		if v, complete := lookup.Constant(fqn); !IsNotResolved(v) {
			return v, complete
		}
		if fallback != "" {
			if v, complete := lookup.Constant(fallback); !IsNotResolved(v) {
				return v, complete
			}
		}
	}
	global := fqn
	if fallback != "" {
		global = fallback
	}
	if v, ok := Builtin(global); ok {
		return v, true
	}
	return NotResolved, false
}

func className(raw string, scope Scope) (string, bool) {
	switch strings.ToLower(raw) {
	case "self", "static":
		return scope.Class, scope.Class != ""
	case "parent":
		return scope.Parent, scope.Parent != ""
	}
	return resolver.Resolve(raw, scope.Aliases, scope.Namespace), true
}

func magic(ref Reference, scope Scope) any {
	switch ref.Magic {
	case token.LineC:
		if ref.Line > 0 {
			return int64(ref.Line)
		}
		return int64(scope.Line)
	case token.FileC:
		return scope.File
	case token.DirC:
		if scope.File == "" {
			return ""
		}
		return filepath.Dir(scope.File)
	case token.FuncC:
		return scope.Function
	case token.MethodC:
		return scope.Method
	case token.ClassC:
		return scope.Class
	case token.TraitC:
		return scope.Trait
	case token.NsC:
		return scope.Namespace
	}
	return NotResolved
}

type item struct {
	tok      token.Token
	val      any
	resolved bool
}

type parser struct {
	items  []item
	pos    int
	failed bool
}

func (p *parser) peek() (item, bool) {
	if p.pos >= len(p.items) {
		return item{}, false
	}
	return p.items[p.pos], true
}

func (p *parser) fail() any {
	p.failed = true
	return NotResolved
}

func (p *parser) expect(kind token.Kind) bool {
	it, ok := p.peek()
	if !ok || it.resolved || it.tok.Kind != kind {
		p.failed = true
		return false
	}
	p.pos++
	return true
}

// binding powers, PHP 8 precedence
func infixPower(it item) (left, right int, ok bool) {
	if it.resolved {
		return 0, 0, false
	}
	op := strings.ToLower(it.tok.Text)
	switch it.tok.Kind {
	case token.Question:
		return 5, 6, true
	case token.Ampersand:
		return 24, 25, true
	case token.Identifier:
		switch op {
		case "or":
			return 1, 2, true
		case "xor":
			return 2, 3, true
		case "and":
			return 3, 4, true
		}
		return 0, 0, false
	case token.Operator, token.Char:
	default:
		return 0, 0, false
	}
	switch op {
	case "??":
		return 8, 7, true
	case "||":
		return 10, 11, true
	case "&&":
		return 12, 13, true
	case "|":
		return 20, 21, true
	case "^":
		return 22, 23, true
	case "==", "!=", "<>", "===", "!==", "<=>":
		return 26, 27, true
	case "<", "<=", ">", ">=":
		return 28, 29, true
	case ".":
		return 30, 31, true
	case "<<", ">>":
		return 32, 33, true
	case "+", "-":
		return 34, 35, true
	case "*", "/", "%":
		return 36, 37, true
	case "**":
		return 41, 40, true
	}
	return 0, 0, false
}

const prefixPower = 38

func (p *parser) expr(minPower int) any {
	left := p.prefix()
	for !p.failed {
		it, ok := p.peek()
		if !ok {
			break
		}
		lp, rp, ok := infixPower(it)
		if !ok || lp < minPower {
			break
		}
		p.pos++
		if it.tok.Kind == token.Question {
			left = p.ternary(left, rp)
			continue
		}
		right := p.expr(rp)
		left = binary(strings.ToLower(it.tok.Text), left, right)
	}
	return left
}

func (p *parser) ternary(cond any, rp int) any {
	if it, ok := p.peek(); ok && !it.resolved && it.tok.Kind == token.Colon {
		p.pos++
		other := p.expr(rp)
		if IsNotResolved(cond) {
			return NotResolved
		}
		if ToBool(cond) {
			return cond
		}
		return other
	}
	then := p.expr(0)
	if !p.expect(token.Colon) {
		return NotResolved
	}
	other := p.expr(rp)
	if IsNotResolved(cond) {
		return NotResolved
	}
	if ToBool(cond) {
		return then
	}
	return other
}

func (p *parser) prefix() any {
	it, ok := p.peek()
	if !ok {
		return p.fail()
	}
	p.pos++
	if it.resolved {
		return it.val
	}

	t := it.tok
	switch t.Kind {
	case token.LNumber:
		return parseInt(t.Text)
	case token.DNumber:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t.Text, "_", ""), 64)
		if err != nil {
			return p.fail()
		}
		return f
	case token.ConstantString:
		return unquote(t.Text)
	case token.Heredoc:
		return heredoc(t.Text)
	case token.EncapsedString:
		return NotResolved
	case token.Identifier:
		switch strings.ToLower(t.Text) {
		case "true":
			return true
		case "false":
			return false
		case "null":
			return nil
		}
		if next, ok := p.peek(); ok && !next.resolved && next.tok.Kind == token.LParen {
			p.skipGroup()
		}
		return NotResolved
	case token.Array:
		if !p.expect(token.LParen) {
			return NotResolved
		}
		return p.array(token.RParen)
	case token.LBracket:
		return p.array(token.RBracket)
	case token.LParen:
		v := p.expr(0)
		if !p.expect(token.RParen) {
			return NotResolved
		}
		return v
	case token.Char, token.Operator:
		switch t.Text {
		case "-":
			return negate(p.expr(prefixPower))
		case "+":
			v := p.expr(prefixPower)
			if n, ok := ToNumber(v); ok && !IsNotResolved(v) {
				return n
			}
			return NotResolved
		case "!":
			v := p.expr(prefixPower)
			if IsNotResolved(v) {
				return NotResolved
			}
			return !ToBool(v)
		case "~":
			v := p.expr(prefixPower)
			n, ok := toInt(v)
			if !ok || IsNotResolved(v) {
				return NotResolved
			}
			return ^n
		case "@":
			return p.expr(prefixPower)
		}
	}
	return p.fail()
}

// skipGroup skips a parenthesized argument list the evaluator cannot run.
func (p *parser) skipGroup() {
	depth := 0
	for p.pos < len(p.items) {
		it := p.items[p.pos]
		p.pos++
		if it.resolved {
			continue
		}
		switch it.tok.Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				return
			}
		}
	}
	p.failed = true
}

func (p *parser) array(closing token.Kind) any {
	arr := NewArray()
	unresolvedKey := false
	for {
		it, ok := p.peek()
		if !ok {
			return p.fail()
		}
		if !it.resolved && it.tok.Kind == closing {
			p.pos++
			break
		}
		v := p.expr(0)
		if next, ok := p.peek(); ok && !next.resolved && next.tok.Kind == token.DoubleArrow {
			p.pos++
			val := p.expr(0)
			if IsNotResolved(v) {
				unresolvedKey = true
			} else {
				arr.Set(v, val)
			}
		} else {
			arr.Append(v)
		}
		if p.failed {
			return NotResolved
		}
		next, ok := p.peek()
		if !ok {
			return p.fail()
		}
		if !next.resolved && next.tok.Kind == token.Comma {
			p.pos++
			continue
		}
		if next.resolved || next.tok.Kind != closing {
			return p.fail()
		}
	}
	if unresolvedKey {
		return NotResolved
	}
	return arr
}

func negate(v any) any {
	if IsNotResolved(v) {
		return NotResolved
	}
	n, ok := ToNumber(v)
	if !ok {
		return NotResolved
	}
	switch x := n.(type) {
	case int64:
		if x == math.MinInt64 {
			return -float64(x)
		}
		return -x
	case float64:
		return -x
	}
	return NotResolved
}

func binary(op string, a, b any) any {
	if IsNotResolved(a) || IsNotResolved(b) {
		if op == "??" && !IsNotResolved(a) && a != nil {
			return a
		}
		return NotResolved
	}
	switch op {
	case ".":
		x, ok1 := ToString(a)
		y, ok2 := ToString(b)
		if !ok1 || !ok2 {
			return NotResolved
		}
		return x + y
	case "??":
		if a != nil {
			return a
		}
		return b
	case "||", "or":
		return ToBool(a) || ToBool(b)
	case "&&", "and":
		return ToBool(a) && ToBool(b)
	case "xor":
		return ToBool(a) != ToBool(b)
	case "==":
		return LooseEqual(a, b)
	case "!=", "<>":
		return !LooseEqual(a, b)
	case "===":
		return Identical(a, b)
	case "!==":
		return !Identical(a, b)
	case "<":
		return Compare(a, b) < 0
	case "<=":
		return Compare(a, b) <= 0
	case ">":
		return Compare(a, b) > 0
	case ">=":
		return Compare(a, b) >= 0
	case "<=>":
		return int64(Compare(a, b))
	case "|", "&", "^", "<<", ">>":
		return bitwise(op, a, b)
	case "+":
		if x, ok := a.(*Array); ok {
			y, ok := b.(*Array)
			if !ok {
				return NotResolved
			}
			out := NewArray()
			for _, e := range x.entries {
				out.Set(e.Key, e.Value)
			}
			for _, e := range y.entries {
				if _, exists := out.Get(e.Key); !exists {
					out.Set(e.Key, e.Value)
				}
			}
			return out
		}
	}
	return arithmetic(op, a, b)
}

func bitwise(op string, a, b any) any {
	x, ok1 := toInt(a)
	y, ok2 := toInt(b)
	if !ok1 || !ok2 {
		return NotResolved
	}
	switch op {
	case "|":
		return x | y
	case "&":
		return x & y
	case "^":
		return x ^ y
	case "<<":
		if y < 0 {
			return NotResolved
		}
		return x << uint64(y)
	case ">>":
		if y < 0 {
			return NotResolved
		}
		return x >> uint64(y)
	}
	return NotResolved
}

// mulInt multiplies and reports false on int64 overflow.
func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	m := a * b
	if m/b != a {
		return 0, false
	}
	return m, true
}

// powInt raises base to a non-negative exp by squaring and reports false
// on int64 overflow.
func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	var ok bool
	for exp > 0 {
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

func arithmetic(op string, a, b any) any {
	x, ok1 := ToNumber(a)
	y, ok2 := ToNumber(b)
	if !ok1 || !ok2 {
		return NotResolved
	}
	xi, xInt := x.(int64)
	yi, yInt := y.(int64)
	if xInt && yInt {
		switch op {
		case "+":
			if s := xi + yi; (s > xi) == (yi > 0) {
				return s
			}
		case "-":
			if d := xi - yi; (d < xi) == (yi > 0) {
				return d
			}
		case "*":
			if m, ok := mulInt(xi, yi); ok {
				return m
			}
		case "/":
			if yi == 0 {
				return NotResolved
			}
			if xi%yi == 0 {
				return xi / yi
			}
		case "%":
			if yi == 0 {
				return NotResolved
			}
			return xi % yi
		case "**":
			if yi >= 0 {
				if r, ok := powInt(xi, yi); ok {
					return r
				}
			}
		}
	}
	if op == "%" {
		xi, ok1 := toInt(x)
		yi, ok2 := toInt(y)
		if !ok1 || !ok2 || yi == 0 {
			return NotResolved
		}
		return xi % yi
	}
	xf, yf := toFloat(x), toFloat(y)
	switch op {
	case "+":
		return xf + yf
	case "-":
		return xf - yf
	case "*":
		return xf * yf
	case "/":
		if yf == 0 {
			return NotResolved
		}
		return xf / yf
	case "**":
		return math.Pow(xf, yf)
	}
	return NotResolved
}

func parseInt(text string) any {
	s := strings.ReplaceAll(text, "_", "")
	base := 10
	digits := s
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, digits = 16, s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, digits = 2, s[2:]
	case strings.HasPrefix(s, "0o") || strings.HasPrefix(s, "0O"):
		base, digits = 8, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, digits = 8, s[1:]
	}
	if n, err := strconv.ParseInt(digits, base, 64); err == nil {
		return n
	}
	if u, err := strconv.ParseUint(digits, base, 64); err == nil {
		return float64(u)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NotResolved
	}
	return f
}
